package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; the schema_migrations table records the
// highest applied version so reruns are no-ops.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS slots (
		id TEXT PRIMARY KEY,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		available INTEGER NOT NULL DEFAULT 1,
		occupant TEXT,
		location TEXT,
		recurring INTEGER NOT NULL DEFAULT 0,
		series_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_slots_start_end ON slots (start_time, end_time)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at)`,
}

// Migrate creates or upgrades the database schema.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.DB().ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	var current int
	err := pool.DB().QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	return pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for version := current; version < len(migrations); version++ {
			if _, err := tx.ExecContext(ctx, migrations[version]); err != nil {
				return fmt.Errorf("sqlite: apply migration %d: %w", version+1, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`, version+1); err != nil {
				return fmt.Errorf("sqlite: record migration %d: %w", version+1, err)
			}
		}
		return nil
	})
}
