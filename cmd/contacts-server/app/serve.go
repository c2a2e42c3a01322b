package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/contacts-server/internal/app"
	"github.com/stacklok/contacts-server/internal/config"
	"github.com/stacklok/contacts-server/internal/telemetry"
)

// telemetryShutdownTimeout bounds flushing of pending spans and metrics
const telemetryShutdownTimeout = 5 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the contacts API server",
		Long: `Start the contacts API server.

The server waits for PostgreSQL to accept connections (bounded by
readiness.maxAttempts and readiness.delay), creates the contact table and then
listens for requests. If the database never becomes ready the server still
starts and reports itself as degraded on /readiness.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, v)
		},
	}

	serveCmd.Flags().String("address", config.DefaultAddress, "Address to listen on")
	if err := v.BindPFlag("server.address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
	}

	return serveCmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	contactsApp, err := app.NewContactsApp(ctx,
		app.WithConfig(cfg),
		app.WithMeterProvider(tel.MeterProvider()),
		app.WithTracerProvider(tel.TracerProvider()),
		app.WithMetricsHandler(tel.MetricsHandler()),
	)
	if err != nil {
		return fmt.Errorf("failed to create contacts app: %w", err)
	}

	slog.Info("Starting contacts server",
		"address", cfg.GetAddress(),
		"storage", cfg.GetStorageType(),
		"readiness_max_attempts", cfg.Readiness.GetMaxAttempts(),
		"readiness_delay", cfg.Readiness.GetDelay(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(contactsApp.Start)
	g.Go(func() error {
		<-gctx.Done()
		return contactsApp.Stop(cfg.GetShutdownTimeout())
	})

	return g.Wait()
}
