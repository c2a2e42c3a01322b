package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// HTTPMetricsMeterName is the name used for the HTTP metrics meter
	HTTPMetricsMeterName = "github.com/stacklok/contacts-server/http"
)

// HTTPMetrics holds the request instruments of the contacts API. Every
// request is counted per route; contact operations are also counted per
// operation and outcome.
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	inFlight        metric.Int64UpDownCounter
	operations      metric.Int64Counter
}

// NewHTTPMetrics creates the instruments on provider. A nil provider yields
// nil metrics, whose Middleware passes requests through.
func NewHTTPMetrics(provider metric.MeterProvider) (*HTTPMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(HTTPMetricsMeterName)
	m := &HTTPMetrics{}
	var err error

	if m.requestDuration, err = meter.Float64Histogram(
		"contacts_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	); err != nil {
		return nil, err
	}

	if m.requestsTotal, err = meter.Int64Counter(
		"contacts_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.inFlight, err = meter.Int64UpDownCounter(
		"contacts_http_active_requests",
		metric.WithDescription("Number of currently in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.operations, err = meter.Int64Counter(
		"contacts_operations_total",
		metric.WithDescription("Contact list, create, update and delete calls by outcome"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// Middleware returns an HTTP middleware that records metrics for each request.
// If HTTPMetrics is nil, it returns a pass-through middleware.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skipInstrumentation(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		// Keep the request context for recording; it outlives ServeHTTP here
		ctx := r.Context()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		m.inFlight.Add(ctx, 1)
		defer m.inFlight.Add(ctx, -1)

		next.ServeHTTP(ww, r)

		m.record(ctx, classifyRoute(r), r.Method, ww.Status(), time.Since(start))
	})
}

func (m *HTTPMetrics) record(ctx context.Context, routed routedRequest, method string, status int, elapsed time.Duration) {
	requestAttrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", routed.route),
		attribute.String("status_code", strconv.Itoa(status)),
	)
	m.requestDuration.Record(ctx, elapsed.Seconds(), requestAttrs)
	m.requestsTotal.Add(ctx, 1, requestAttrs)

	switch routed.operation {
	case OperationList, OperationCreate, OperationUpdate, OperationDelete:
		m.operations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", routed.operation),
			attribute.String("outcome", outcomeForStatus(status)),
		))
	}
}

// MetricsMiddleware creates middleware from a MeterProvider for convenience.
// This is a helper function that combines NewHTTPMetrics and Middleware.
func MetricsMiddleware(provider metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	metrics, err := NewHTTPMetrics(provider)
	if err != nil {
		return nil, err
	}
	return metrics.Middleware, nil
}
