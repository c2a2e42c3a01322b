package readiness

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/contacts-server/internal/otel"
	"github.com/stacklok/contacts-server/internal/telemetry"
)

const (
	// DefaultMaxAttempts is the number of probes issued before giving up
	DefaultMaxAttempts = 10

	// DefaultDelay is the fixed wait between two failed probes
	DefaultDelay = 5 * time.Second

	// TracerName is the instrumentation name for readiness spans
	TracerName = "github.com/stacklok/contacts-server/readiness"
)

// Gate blocks startup until the store answers a probe or the attempt budget
// is exhausted.
type Gate struct {
	prober      Prober
	maxAttempts int
	delay       time.Duration
	metrics     *telemetry.ReadinessMetrics
	tracer      trace.Tracer
	logger      *slog.Logger

	// onWait is invoked before every inter-attempt delay. Tests use it to
	// count delays.
	onWait func(attempt int, wait time.Duration)
}

// Option configures a Gate
type Option func(*Gate)

// WithMaxAttempts sets the attempt budget. Zero or negative means the gate
// reports not-ready without probing.
func WithMaxAttempts(n int) Option {
	return func(g *Gate) {
		g.maxAttempts = n
	}
}

// WithDelay sets the constant wait between failed attempts.
func WithDelay(d time.Duration) Option {
	return func(g *Gate) {
		g.delay = d
	}
}

// WithMetrics records probe attempts and total wait time.
func WithMetrics(m *telemetry.ReadinessMetrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// WithTracer wraps each AwaitReady call in a span.
func WithTracer(t trace.Tracer) Option {
	return func(g *Gate) {
		g.tracer = t
	}
}

// WithLogger overrides the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGate creates a Gate around prober with the default budget of
// DefaultMaxAttempts probes spaced DefaultDelay apart.
func NewGate(prober Prober, opts ...Option) *Gate {
	g := &Gate{
		prober:      prober,
		maxAttempts: DefaultMaxAttempts,
		delay:       DefaultDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MaxAttempts returns the configured attempt budget.
func (g *Gate) MaxAttempts() int {
	return g.maxAttempts
}

// AwaitReady probes the store until it answers, the attempt budget runs out
// or ctx is cancelled. It returns true as soon as a probe succeeds. The delay
// is only applied between failed attempts, never after the last one.
//
// AwaitReady never returns an error; failures are reported through logs,
// metrics and the returned boolean.
func (g *Gate) AwaitReady(ctx context.Context) bool {
	if g.maxAttempts <= 0 {
		g.logger.Error("Database readiness check skipped, no attempts configured",
			"max_attempts", g.maxAttempts)
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	ctx, span := otel.StartSpan(ctx, g.tracer, "readiness.AwaitReady")
	defer span.End()

	start := time.Now()
	attempt := 0

	probe := func() (struct{}, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		attempt++
		err := g.prober.Probe(ctx)
		g.metrics.RecordProbe(ctx, err == nil)
		if err != nil {
			// A cancelled probe is not a store failure; stop retrying.
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(ctx.Err())
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	notify := func(err error, wait time.Duration) {
		g.logger.Warn("Database not ready, retrying",
			"attempt", attempt,
			"remaining", g.maxAttempts-attempt,
			"retry_in", wait,
			"error", err,
		)
		if g.onWait != nil {
			g.onWait(attempt, wait)
		}
	}

	_, err := backoff.Retry(ctx, probe,
		backoff.WithBackOff(backoff.NewConstantBackOff(g.delay)),
		backoff.WithMaxTries(uint(g.maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)

	ready := err == nil
	g.metrics.RecordWait(ctx, time.Since(start), ready)
	span.SetAttributes(otel.AttrProbeAttempt.Int(attempt), attribute.Bool("readiness.ready", ready))

	switch {
	case ready:
		g.logger.Info("Database is ready", "attempts", attempt)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		g.logger.Warn("Database readiness check cancelled", "attempts", attempt, "error", err)
		otel.RecordError(span, err)
	default:
		g.logger.Error("Database not ready, giving up",
			"attempts", attempt,
			"remaining", 0,
			"error", err,
		)
		otel.RecordError(span, err)
	}

	return ready
}
