// Package storage provides factory functions for creating storage-dependent components.
// It implements the Abstract Factory pattern to ensure related components (contact
// service, connectivity prober, schema initializer) are created with compatible
// storage backends.
package storage

import (
	"context"
	"fmt"

	"github.com/stacklok/contacts-server/internal/config"
	"github.com/stacklok/contacts-server/internal/readiness"
	"github.com/stacklok/contacts-server/internal/service"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates storage-dependent components as a family.
// Implementations ensure all components are compatible with each other
// (e.g., all use PostgreSQL or all use process memory).
//
// It also manages the lifecycle of storage resources (e.g., database connections).
type Factory interface {
	// CreateProber creates the connectivity prober used by the readiness gate.
	CreateProber(ctx context.Context) (readiness.Prober, error)

	// InitializeSchema creates the contact schema. It is called once, after
	// the readiness gate succeeded.
	InitializeSchema(ctx context.Context) error

	// CreateContactService creates the contact service serving API requests.
	CreateContactService(ctx context.Context) (service.ContactService, error)

	// Cleanup releases any resources held by this factory.
	// For database factories, this closes the connection pool.
	// For memory factories, this is a no-op.
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configured storage type.
// Returns a DatabaseFactory for PostgreSQL storage or a MemoryFactory for in-process storage.
func NewStorageFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg, opts...)
	case config.StorageTypeMemory:
		return NewMemoryFactory(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.GetStorageType())
	}
}
