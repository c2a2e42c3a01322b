package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultMetricsInterval is the default interval for pushing metrics over OTLP
	DefaultMetricsInterval = 60 * time.Second

	// serviceNamespace groups the contacts services in a collector
	serviceNamespace = "contacts"
)

// providers is the tracer and meter pair of one contacts-server process.
// Both signals share a single resource.
type providers struct {
	tracer trace.TracerProvider
	meter  metric.MeterProvider

	// registry is set only when metrics are exported for Prometheus scraping
	registry *prometheus.Registry
}

// buildProviders creates the providers described by cfg. Signals that are
// disabled get no-op providers.
func buildProviders(ctx context.Context, cfg *Config) (*providers, error) {
	p := &providers{
		tracer: tracenoop.NewTracerProvider(),
		meter:  metricnoop.NewMeterProvider(),
	}

	// Nothing to export
	if cfg == nil || !cfg.Enabled {
		return p, nil
	}

	tracingOn := cfg.Tracing != nil && cfg.Tracing.Enabled
	metricsOn := cfg.Metrics != nil && cfg.Metrics.Enabled
	if !tracingOn && !metricsOn {
		slog.Info("Telemetry enabled but no signal is, using no-op providers")
		return p, nil
	}

	// Create resource with service information
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.GetServiceName()),
			semconv.ServiceVersion(cfg.GetServiceVersion()),
			semconv.ServiceNamespace(serviceNamespace),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if tracingOn {
		tp, err := newTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		p.tracer = tp
	}

	if metricsOn {
		if err := p.addMeterProvider(ctx, cfg, res); err != nil {
			// Do not leak the batcher started above
			_ = p.shutdownTracer(ctx)
			return nil, err
		}
	}

	return p, nil
}

// newTracerProvider exports spans over OTLP HTTP and installs the W3C propagator
func newTracerProvider(ctx context.Context, cfg *Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.GetEndpoint())}
	if cfg.GetInsecure() {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	// Create OTLP exporter
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP tracing exporter: %w", err)
	}

	// Incoming sampling decisions are honoured so a caller's trace stays whole
	sampling := cfg.Tracing.GetSampling()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampling))),
	)

	// Set as global tracer provider
	otel.SetTracerProvider(tp)

	// Set global propagator for W3C Trace Context propagation
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.GetInsecure() {
		slog.Warn("Tracing configured with insecure connection, spans are sent over plain HTTP")
	}
	slog.Info("Tracing initialized",
		"endpoint", cfg.GetEndpoint(),
		"sampling_ratio", sampling,
	)

	return tp, nil
}

// addMeterProvider sets p.meter, and p.registry for the Prometheus exporter
func (p *providers) addMeterProvider(ctx context.Context, cfg *Config, res *resource.Resource) error {
	var reader sdkmetric.Reader

	switch cfg.Metrics.GetExporter() {
	case MetricsExporterPrometheus:
		// Scraped from /metrics on the API listener
		p.registry = prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(p.registry))
		if err != nil {
			return fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		reader = exporter
	default:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.GetEndpoint())}
		if cfg.GetInsecure() {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricsInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	// Set as global meter provider
	otel.SetMeterProvider(mp)
	p.meter = mp

	slog.Info("Metrics initialized", "exporter", cfg.Metrics.GetExporter())
	return nil
}

// shutdownTracer flushes pending spans; no-op providers need nothing
func (p *providers) shutdownTracer(ctx context.Context) error {
	if tp, ok := p.tracer.(*sdktrace.TracerProvider); ok {
		return tp.Shutdown(ctx)
	}
	return nil
}

// shutdownMeter flushes pending metrics; no-op providers need nothing
func (p *providers) shutdownMeter(ctx context.Context) error {
	if mp, ok := p.meter.(*sdkmetric.MeterProvider); ok {
		return mp.Shutdown(ctx)
	}
	return nil
}
