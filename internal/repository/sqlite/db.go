// Package sqlite provides a SQLite-backed payment store for local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		transaction_reference TEXT PRIMARY KEY,
		status                TEXT NOT NULL DEFAULT 'pending',
		amount                TEXT NOT NULL,
		currency              TEXT NOT NULL DEFAULT 'UGX',
		name                  TEXT,
		email                 TEXT,
		phone_number          TEXT,
		payment_method        TEXT,
		project               TEXT DEFAULT '',
		provider_response     TEXT,
		created_at            DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS payments_status_idx ON payments (status);`,
}

// Open opens the SQLite database at path. Use ":memory:" for an ephemeral store.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// SQLite serializes writers; a single connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	return db, nil
}

// Migrate creates the payments table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
