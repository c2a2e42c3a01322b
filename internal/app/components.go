package app

import (
	"github.com/stacklok/contacts-server/internal/app/storage"
	"github.com/stacklok/contacts-server/internal/readiness"
	"github.com/stacklok/contacts-server/internal/service"
	"github.com/stacklok/contacts-server/internal/status"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// ContactService provides contact business logic
	ContactService service.ContactService

	// StorageFactory owns the storage backend and its resources
	StorageFactory storage.Factory

	// Gate blocks startup until the store answers
	Gate *readiness.Gate

	// Startup records the gate and schema outcomes for /readiness
	Startup *status.Startup
}
