package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"groupwatch/internal/infra/db"
	workerPkg "groupwatch/internal/infra/worker"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the Postgres schema (STORE_BACKEND=postgres)",
}

var dbMigrateUpCmd = &cobra.Command{
	Use:   "migrate-up",
	Short: "Create the candidate and reported tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(database *sql.DB) error {
			return runMigrate(cmd.OutOrStdout(), database, false)
		})
	},
}

var dbMigrateDownCmd = &cobra.Command{
	Use:   "migrate-down",
	Short: "Drop the candidate table (reported history is kept)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(database *sql.DB) error {
			return runMigrate(cmd.OutOrStdout(), database, true)
		})
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateUpCmd, dbMigrateDownCmd)
	rootCmd.AddCommand(dbCmd)
}

// withDatabase opens DATABASE_URL without running the worker's automatic
// migration, so migrate-down does not recreate what it drops.
func withDatabase(cmd *cobra.Command, fn func(*sql.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreBackend != workerPkg.StorePostgres {
		return errors.New("db commands need STORE_BACKEND=postgres and DATABASE_URL")
	}
	database, err := db.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()
	return fn(database)
}

func runMigrate(out io.Writer, database *sql.DB, down bool) error {
	green := color.New(color.FgGreen).SprintFunc()
	if down {
		if err := db.MigrateDown(database); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s candidate table dropped, reported history kept\n", green("✓"))
		return nil
	}
	if err := db.MigrateUp(database); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	fmt.Fprintf(out, "%s schema is up to date\n", green("✓"))
	return nil
}
