// Package app provides the entry point for the contacts server application.
package app

import (
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/contacts-server/internal/config"
	"github.com/stacklok/contacts-server/internal/versions"
)

// dotEnvFile is loaded from the working directory when present
const dotEnvFile = ".env"

// NewRootCmd creates a new root command for the contacts server. Every call
// returns an independent command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:               "contacts-server",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Contacts API server",
		Long: `Contacts API server exposes CRUD endpoints for contacts stored in PostgreSQL.
On startup it waits for the database to accept connections and creates the
schema before serving.`,
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")

	rootCmd.AddCommand(newServeCmd(v))
	rootCmd.AddCommand(newInitDBCmd(v))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig reads the optional --config file, .env and the overrides bound in v
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	opts := []config.Option{
		config.WithDotEnvFiles(dotEnvFile),
		config.WithViper(v),
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if configPath != "" {
		opts = append(opts, config.WithConfigPath(configPath))
	}

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
	versionCmd.Flags().String("format", "", "Output format (json)")
	return versionCmd
}
