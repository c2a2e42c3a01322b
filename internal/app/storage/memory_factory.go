package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/contacts-server/internal/config"
	"github.com/stacklok/contacts-server/internal/readiness"
	"github.com/stacklok/contacts-server/internal/service"
	"github.com/stacklok/contacts-server/internal/service/inmemory"
)

// MemoryFactory creates in-process storage components. Contacts live in a
// map and are lost on restart.
type MemoryFactory struct {
	svc service.ContactService
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory creates a new in-memory storage factory.
func NewMemoryFactory(cfg *config.Config) (*MemoryFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	slog.Info("Creating in-memory storage factory")
	return &MemoryFactory{svc: inmemory.New()}, nil
}

// CreateProber returns a prober that always succeeds.
func (*MemoryFactory) CreateProber(_ context.Context) (readiness.Prober, error) {
	return readiness.ProbeFunc(func(context.Context) error { return nil }), nil
}

// InitializeSchema is a no-op for memory storage.
func (*MemoryFactory) InitializeSchema(_ context.Context) error {
	return nil
}

// CreateContactService returns the shared in-memory contact service.
func (m *MemoryFactory) CreateContactService(_ context.Context) (service.ContactService, error) {
	slog.Debug("Creating in-memory contact service")
	return m.svc, nil
}

// Cleanup is a no-op for memory storage.
func (*MemoryFactory) Cleanup() {}
