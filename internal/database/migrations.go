package database

import (
	"fmt"
	"log/slog"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations contains all database migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_schema_version_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
	{
		Version: 2,
		Name:    "create_sessions_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS sessions (
				session_id TEXT PRIMARY KEY,
				workflow_kind TEXT NOT NULL,
				primary_keyword TEXT NOT NULL,
				blog_type TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				current_step INTEGER NOT NULL DEFAULT 1,
				state TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				expires_at TIMESTAMP NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
			CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
		`,
	},
	{
		Version: 3,
		Name:    "create_audit_entries_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS audit_entries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id TEXT NOT NULL,
				step_number INTEGER NOT NULL,
				step_name TEXT NOT NULL,
				owner TEXT NOT NULL,
				timestamp TIMESTAMP NOT NULL,
				duration_seconds REAL NOT NULL DEFAULT 0,
				summary TEXT NOT NULL DEFAULT '',
				human_action TEXT NOT NULL DEFAULT '',
				skipped INTEGER NOT NULL DEFAULT 0,
				skip_reason TEXT NOT NULL DEFAULT '',
				FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_audit_entries_session_id ON audit_entries(session_id);
		`,
	},
	{
		Version: 4,
		Name:    "create_user_inputs_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS user_inputs (
				session_id TEXT PRIMARY KEY,
				workflow_kind TEXT NOT NULL,
				primary_keyword TEXT NOT NULL,
				inputs TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				indexed_at TIMESTAMP NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_user_inputs_created_at ON user_inputs(created_at);
		`,
	},
}

// Migrate runs all pending migrations
func (db *DB) Migrate() error {
	// Ensure schema_version table exists
	if _, err := db.conn.Exec(migrations[0].SQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// Get current version
	var currentVersion int
	err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	// Run pending migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("applying migration", "version", migration.Version, "name", migration.Name)
		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
