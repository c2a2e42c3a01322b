package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/contacts-server/database"
	"github.com/stacklok/contacts-server/internal/config"
	"github.com/stacklok/contacts-server/internal/db"
	"github.com/stacklok/contacts-server/internal/readiness"
	"github.com/stacklok/contacts-server/internal/service"
	dbservice "github.com/stacklok/contacts-server/internal/service/db"
)

// DatabaseFactory creates database-backed storage components.
// All components created by this factory use PostgreSQL for persistence.
type DatabaseFactory struct {
	config *config.Config
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

var _ Factory = (*DatabaseFactory)(nil)

// DatabaseFactoryOption is a functional option for configuring the DatabaseFactory
type DatabaseFactoryOption func(*DatabaseFactory)

// WithTracer sets the OpenTelemetry tracer for the database service.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) DatabaseFactoryOption {
	return func(f *DatabaseFactory) {
		f.tracer = tracer
	}
}

// NewDatabaseFactory creates a new database-backed storage factory.
// The connection pool connects lazily, so this succeeds while PostgreSQL is
// still starting; the readiness gate decides when it is usable.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	slog.Info("Creating database-backed storage factory")

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	factory := &DatabaseFactory{
		config: cfg,
		pool:   pool,
	}

	for _, opt := range opts {
		opt(factory)
	}

	return factory, nil
}

// CreateProber creates a prober that opens a fresh connection per attempt,
// so that a failing pool cannot mask a recovered database.
func (d *DatabaseFactory) CreateProber(_ context.Context) (readiness.Prober, error) {
	slog.Debug("Creating database connectivity prober")
	return db.NewConnProber(d.config.Database.GetURL(), d.config.Database.GetProbeTimeout()), nil
}

// InitializeSchema creates the contact table through the pool.
func (d *DatabaseFactory) InitializeSchema(ctx context.Context) error {
	slog.Info("Initializing database schema")
	return database.EnsureSchema(ctx, d.pool)
}

// CreateContactService creates a database-backed contact service.
func (d *DatabaseFactory) CreateContactService(_ context.Context) (service.ContactService, error) {
	slog.Debug("Creating database-backed contact service")

	opts := []dbservice.Option{
		dbservice.WithConnectionPool(d.pool),
	}

	if d.tracer != nil {
		opts = append(opts, dbservice.WithTracer(d.tracer))
		slog.Debug("Database service tracing enabled")
	}

	return dbservice.New(opts...)
}

// Cleanup releases resources held by the database factory.
// This closes the database connection pool and any active connections.
func (d *DatabaseFactory) Cleanup() {
	if d.pool != nil {
		slog.Info("Closing database connection pool")
		d.pool.Close()
	}
}
