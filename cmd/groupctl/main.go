// Command groupctl is the operator CLI for groupwatch: it extracts ids,
// checks single groups, edits the candidate list and mints control tokens.
// It reads the same environment (and .env file) as the worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	workerPkg "groupwatch/internal/infra/worker"
	"groupwatch/internal/observability/logging"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "groupctl",
	Short:         "Operate a groupwatch deployment",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		level := os.Getenv("LOG_LEVEL")
		if level == "" {
			level = "warn"
		}
		slog.SetDefault(logging.New(logging.Options{Level: level, Format: "text", Output: os.Stderr}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load if present")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
		os.Exit(1)
	}
}

// loadConfig reads the worker configuration from the environment.
func loadConfig() (*workerPkg.WorkerConfig, error) {
	return workerPkg.LoadConfigFromEnv(slog.Default(), nil)
}

// openStores opens the configured store backend.
func openStores(ctx context.Context) (*workerPkg.Stores, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return workerPkg.OpenStores(ctx, slog.Default(), cfg)
}
