package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/contacts-server/internal/readiness"
)

const probeQuery = "SELECT 1"

// ConnProber checks connectivity by opening a fresh connection, running
// SELECT 1 and closing the connection again.
type ConnProber struct {
	connString string
	timeout    time.Duration
}

// NewConnProber creates a prober for connString. Each probe, including the
// connection handshake, is bounded by timeout; zero means unbounded.
func NewConnProber(connString string, timeout time.Duration) *ConnProber {
	return &ConnProber{connString: connString, timeout: timeout}
}

// Probe implements readiness.Prober
func (p *ConnProber) Probe(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conn, err := pgx.Connect(ctx, p.connString)
	if err != nil {
		return readiness.NewConnectionError(err)
	}
	defer func() {
		// Close with a fresh context; ctx may already be expired
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if closeErr := conn.Close(closeCtx); closeErr != nil {
			slog.Debug("Failed to close probe connection", "error", closeErr)
		}
	}()

	var one int
	if err := conn.QueryRow(ctx, probeQuery).Scan(&one); err != nil {
		return readiness.NewConnectionError(err)
	}
	return nil
}

// PoolProber checks connectivity through an existing pool
type PoolProber struct {
	pool *pgxpool.Pool
}

// NewPoolProber creates a prober backed by pool
func NewPoolProber(pool *pgxpool.Pool) *PoolProber {
	return &PoolProber{pool: pool}
}

// Probe implements readiness.Prober
func (p *PoolProber) Probe(ctx context.Context) error {
	var one int
	if err := p.pool.QueryRow(ctx, probeQuery).Scan(&one); err != nil {
		return readiness.NewConnectionError(err)
	}
	return nil
}
