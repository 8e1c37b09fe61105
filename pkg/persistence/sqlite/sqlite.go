// Package sqlite provides a SQLite-backed persistence implementation using
// the pure-Go modernc.org/sqlite driver. The at-most-one-active-progress
// invariant is enforced in the schema with a partial unique index, and
// waiting claims are single-statement compare-and-transition updates.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

type SQLitePersistence struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLitePersistence(dsn string, logger *slog.Logger) (*SQLitePersistence, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// One writer at a time keeps the claim/create guards trivially serial.
	db.SetMaxOpenConns(1)

	p := &SQLitePersistence{db: db, logger: logger.With("module", "sqlite_persistence")}
	if err := p.migrate(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *SQLitePersistence) migrate() error {
	statements := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS series (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			entry_kind TEXT NOT NULL,
			entry_event_name TEXT NOT NULL DEFAULT '',
			entry_attribute_key TEXT NOT NULL DEFAULT '',
			entry_block_id TEXT NOT NULL DEFAULT '',
			blocks TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_series_workspace_status
			ON series (workspace_id, status)`,
		`CREATE TABLE IF NOT EXISTS series_progress (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			visitor_id TEXT NOT NULL,
			series_id TEXT NOT NULL,
			status TEXT NOT NULL,
			current_block_id TEXT,
			wait_until TIMESTAMP,
			wait_event_name TEXT,
			attempt_count INTEGER NOT NULL DEFAULT 0,
			last_execution_error TEXT NOT NULL DEFAULT '',
			enrolled_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		// Enrollment idempotency: one non-terminal progress per pair.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_progress_live_pair
			ON series_progress (visitor_id, series_id)
			WHERE status IN ('active', 'waiting')`,
		`CREATE INDEX IF NOT EXISTS idx_progress_status_event
			ON series_progress (status, wait_event_name)`,
		`CREATE INDEX IF NOT EXISTS idx_progress_status_deadline
			ON series_progress (status, wait_until)`,
	}

	for _, stmt := range statements {
		if _, err := p.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

func (p *SQLitePersistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *SQLitePersistence) Close(_ context.Context) error {
	return p.db.Close()
}
