package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/contacts-server/internal/app/storage"
	"github.com/stacklok/contacts-server/internal/readiness"
)

// ErrDatabaseNotReady is returned by init-db when the readiness gate gives up
var ErrDatabaseNotReady = errors.New("database not ready")

func newInitDBCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Wait for the database and create the schema",
		Long: `Wait for PostgreSQL to accept connections and create the contact table.
The command exits with a non-zero status if the database does not become ready
within readiness.maxAttempts probes or if the schema cannot be created.
Running it against an initialized database is a no-op.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runInitDB(ctx, cmd, v)
		},
	}
}

func runInitDB(ctx context.Context, cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}

	factory, err := storage.NewStorageFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage factory: %w", err)
	}
	defer factory.Cleanup()

	prober, err := factory.CreateProber(ctx)
	if err != nil {
		return fmt.Errorf("failed to create prober: %w", err)
	}

	gate := readiness.NewGate(prober,
		readiness.WithMaxAttempts(cfg.Readiness.GetMaxAttempts()),
		readiness.WithDelay(cfg.Readiness.GetDelay()),
	)
	if !gate.AwaitReady(ctx) {
		return fmt.Errorf("%w after %d attempts", ErrDatabaseNotReady, gate.MaxAttempts())
	}

	if err := factory.InitializeSchema(ctx); err != nil {
		return err
	}

	slog.Info("Database initialized")
	return nil
}
