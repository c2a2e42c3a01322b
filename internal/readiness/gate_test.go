package readiness

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/stacklok/contacts-server/internal/telemetry"
)

var errRefused = errors.New("connection refused")

// scriptedProber fails until the succeedOn-th call (1-based). A zero
// succeedOn never succeeds.
type scriptedProber struct {
	succeedOn int
	calls     atomic.Int32
}

func (p *scriptedProber) Probe(context.Context) error {
	n := int(p.calls.Add(1))
	if p.succeedOn > 0 && n >= p.succeedOn {
		return nil
	}
	return NewConnectionError(errRefused)
}

func newCountingGate(p Prober, delays *int, opts ...Option) *Gate {
	g := NewGate(p, append([]Option{
		WithDelay(time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	}, opts...)...)
	g.onWait = func(int, time.Duration) { *delays++ }
	return g
}

func TestGate_AwaitReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		maxAttempts int
		succeedOn   int
		wantReady   bool
		wantProbes  int
		wantDelays  int
	}{
		{
			name:        "succeeds on first attempt",
			maxAttempts: 10,
			succeedOn:   1,
			wantReady:   true,
			wantProbes:  1,
			wantDelays:  0,
		},
		{
			name:        "succeeds on third attempt",
			maxAttempts: 10,
			succeedOn:   3,
			wantReady:   true,
			wantProbes:  3,
			wantDelays:  2,
		},
		{
			name:        "succeeds on last attempt",
			maxAttempts: 4,
			succeedOn:   4,
			wantReady:   true,
			wantProbes:  4,
			wantDelays:  3,
		},
		{
			name:        "always fails",
			maxAttempts: 5,
			wantReady:   false,
			wantProbes:  5,
			wantDelays:  4,
		},
		{
			name:        "single attempt that fails has no delay",
			maxAttempts: 1,
			wantReady:   false,
			wantProbes:  1,
			wantDelays:  0,
		},
		{
			name:        "zero attempts never probes",
			maxAttempts: 0,
			succeedOn:   1,
			wantReady:   false,
			wantProbes:  0,
			wantDelays:  0,
		},
		{
			name:        "negative attempts never probes",
			maxAttempts: -3,
			succeedOn:   1,
			wantReady:   false,
			wantProbes:  0,
			wantDelays:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			prober := &scriptedProber{succeedOn: tt.succeedOn}
			delays := 0
			gate := newCountingGate(prober, &delays, WithMaxAttempts(tt.maxAttempts))

			ready := gate.AwaitReady(context.Background())

			assert.Equal(t, tt.wantReady, ready)
			assert.Equal(t, tt.wantProbes, int(prober.calls.Load()))
			assert.Equal(t, tt.wantDelays, delays)
		})
	}
}

func TestGate_Defaults(t *testing.T) {
	t.Parallel()

	gate := NewGate(ProbeFunc(func(context.Context) error { return nil }))
	assert.Equal(t, DefaultMaxAttempts, gate.MaxAttempts())
	assert.Equal(t, DefaultDelay, gate.delay)
	assert.True(t, gate.AwaitReady(context.Background()))
}

func TestGate_UsesConstantDelay(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	gate := NewGate(&scriptedProber{},
		WithMaxAttempts(4),
		WithDelay(3*time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
	gate.onWait = func(_ int, wait time.Duration) { waits = append(waits, wait) }

	assert.False(t, gate.AwaitReady(context.Background()))
	assert.Equal(t, []time.Duration{3 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond}, waits)
}

func TestGate_Cancellation(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before start", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		prober := &scriptedProber{succeedOn: 1}
		gate := NewGate(prober)

		assert.False(t, gate.AwaitReady(ctx))
		assert.Zero(t, prober.calls.Load())
	})

	t.Run("cancelled during wait", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		prober := &scriptedProber{}
		gate := NewGate(prober,
			WithMaxAttempts(10),
			WithDelay(time.Hour),
			WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		)
		gate.onWait = func(int, time.Duration) { cancel() }

		done := make(chan bool, 1)
		go func() { done <- gate.AwaitReady(ctx) }()

		select {
		case ready := <-done:
			assert.False(t, ready)
		case <-time.After(10 * time.Second):
			t.Fatal("gate did not return after cancellation")
		}
		assert.Equal(t, int32(1), prober.calls.Load())
	})

	t.Run("cancelled during probe", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		calls := 0
		gate := NewGate(ProbeFunc(func(context.Context) error {
			calls++
			cancel()
			return errRefused
		}), WithDelay(time.Hour), WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

		assert.False(t, gate.AwaitReady(ctx))
		assert.Equal(t, 1, calls)
	})
}

func TestGate_Diagnostics(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	gate := NewGate(&scriptedProber{},
		WithMaxAttempts(3),
		WithDelay(time.Millisecond),
		WithLogger(logger),
	)
	require.False(t, gate.AwaitReady(context.Background()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"remaining":2`)
	assert.Contains(t, lines[1], `"remaining":1`)
	assert.Contains(t, lines[2], `"level":"ERROR"`)
	assert.Contains(t, lines[2], "connection refused")
}

func TestGate_MetricsAndTracing(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	metrics, err := telemetry.NewReadinessMetrics(mp)
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	delays := 0
	gate := newCountingGate(&scriptedProber{succeedOn: 2}, &delays,
		WithMetrics(metrics),
		WithTracer(tp.Tracer("test")),
	)
	require.True(t, gate.AwaitReady(context.Background()))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var probes int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "contacts_db_probe_attempts_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				probes += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), probes)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "readiness.AwaitReady", spans[0].Name())
}

func TestConnectionError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewConnectionError(nil))

	err := NewConnectionError(errRefused)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, errRefused)
	assert.Equal(t, "database connection failed: connection refused", err.Error())

	assert.Same(t, err, NewConnectionError(err))
}
