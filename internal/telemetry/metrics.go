package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// ReadinessMetricsMeterName is the name used for the readiness gate meter
	ReadinessMetricsMeterName = "github.com/stacklok/contacts-server/readiness"
)

// ReadinessMetrics holds the OpenTelemetry instruments for the database readiness gate
type ReadinessMetrics struct {
	probeAttempts metric.Int64Counter
	gateDuration  metric.Float64Histogram
}

// NewReadinessMetrics creates a new ReadinessMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewReadinessMetrics(provider metric.MeterProvider) (*ReadinessMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(ReadinessMetricsMeterName)

	probeAttempts, err := meter.Int64Counter(
		"contacts_db_probe_attempts_total",
		metric.WithDescription("Number of database connectivity probes issued by the readiness gate"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	gateDuration, err := meter.Float64Histogram(
		"contacts_db_readiness_wait_seconds",
		metric.WithDescription("Time spent waiting for the database to become reachable"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return nil, err
	}

	return &ReadinessMetrics{
		probeAttempts: probeAttempts,
		gateDuration:  gateDuration,
	}, nil
}

// RecordProbe records a single probe attempt and its outcome
func (m *ReadinessMetrics) RecordProbe(ctx context.Context, success bool) {
	if m == nil || m.probeAttempts == nil {
		return
	}

	m.probeAttempts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordWait records how long the gate waited and whether the database became ready
func (m *ReadinessMetrics) RecordWait(ctx context.Context, duration time.Duration, ready bool) {
	if m == nil || m.gateDuration == nil {
		return
	}

	m.gateDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.Bool("ready", ready)))
}
