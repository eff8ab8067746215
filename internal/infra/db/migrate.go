package db

import (
	"database/sql"
	"fmt"
)

// MigrateUp creates the candidate and reported tables. Every statement is
// idempotent so it runs on each worker start.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS candidate_groups (
    group_id  TEXT PRIMARY KEY,
    added_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS reported_groups (
    group_id     TEXT PRIMARY KEY,
    reported_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		// Load orders by insertion time.
		`CREATE INDEX IF NOT EXISTS idx_candidate_groups_added_at ON candidate_groups(added_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reported_groups_reported_at ON reported_groups(reported_at)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// MigrateDown drops the candidate table only. Reported history is kept so a
// rollback can never cause a repeat notification.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_candidate_groups_added_at`,
		`DROP TABLE IF EXISTS candidate_groups`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("MigrateDown: %w", err)
		}
	}
	return nil
}
