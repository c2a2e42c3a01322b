// Package app provides application lifecycle management for the contacts server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/stacklok/contacts-server/internal/config"
	"github.com/stacklok/contacts-server/internal/status"
)

// ContactsApp encapsulates all components needed to run the contacts API server
// It provides lifecycle management and graceful shutdown capabilities
type ContactsApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
	stopOnce   sync.Once
}

// Initialize runs the startup sequence: the readiness gate, then, only when
// the database answered, the schema initializer. The outcome is recorded in
// the startup state and returned; a false result means the server will run
// degraded.
func (app *ContactsApp) Initialize(ctx context.Context) bool {
	startup := app.components.Startup
	gate := app.components.Gate

	if !gate.AwaitReady(ctx) {
		err := fmt.Errorf("database not ready after %d attempts", gate.MaxAttempts())
		if ctx.Err() != nil {
			err = fmt.Errorf("database readiness check interrupted: %w", ctx.Err())
		}
		startup.RecordDatabase(false, err)
		slog.Error("Starting without database; schema initialization skipped", "error", err)
		return false
	}
	startup.RecordDatabase(true, nil)

	if err := app.components.StorageFactory.InitializeSchema(ctx); err != nil {
		startup.RecordSchema(false, err)
		slog.Error("Schema initialization failed", "error", err)
		return false
	}
	startup.RecordSchema(true, nil)

	slog.Info("Startup sequence complete")
	return true
}

// Start runs the startup sequence and then serves HTTP.
// This method blocks until the HTTP server stops or encounters an error
func (app *ContactsApp) Start() error {
	app.Initialize(app.ctx)

	listener, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	app.mu.Lock()
	app.listener = listener
	app.mu.Unlock()

	slog.Info("Server listening", "address", listener.Addr().String())
	if err := app.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout
// It shuts down the HTTP server and then releases storage resources
func (app *ContactsApp) Stop(timeout time.Duration) error {
	var stopErr error
	app.stopOnce.Do(func() {
		slog.Info("Shutting down server...")

		// Cancel the application context so a pending readiness wait returns
		if app.cancelFunc != nil {
			app.cancelFunc()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			stopErr = fmt.Errorf("server forced to shutdown: %w", err)
		}

		if app.components.StorageFactory != nil {
			app.components.StorageFactory.Cleanup()
		}

		if stopErr == nil {
			slog.Info("Server shutdown complete")
		}
	})
	return stopErr
}

// Addr returns the address the server listens on, or "" before Start bound it
func (app *ContactsApp) Addr() string {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.listener == nil {
		return ""
	}
	return app.listener.Addr().String()
}

// GetConfig returns the application configuration
func (app *ContactsApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server
func (app *ContactsApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Startup returns the startup state reported on /readiness
func (app *ContactsApp) Startup() *status.Startup {
	return app.components.Startup
}
