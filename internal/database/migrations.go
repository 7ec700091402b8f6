package database

import (
	"database/sql"
	"fmt"
)

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS runs (
		id UUID PRIMARY KEY,
		correlation_id UUID NOT NULL,
		scenario VARCHAR(100) NOT NULL,
		search_term VARCHAR(255) NOT NULL DEFAULT '',
		engine VARCHAR(50) NOT NULL,
		status VARCHAR(50) NOT NULL,
		reason TEXT,
		product_url TEXT,
		product_title TEXT,
		challenge_outcome VARCHAR(50),
		screenshot_path TEXT,
		html_path TEXT,
		started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
	`

// RunMigrations creates the necessary database tables
func RunMigrations() error {
	if DB == nil {
		return fmt.Errorf("database connection not initialized")
	}
	return Migrate(DB)
}

// Migrate creates the runs table on db. It is safe to run repeatedly.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(createRunsTable); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	return nil
}
