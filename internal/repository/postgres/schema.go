package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		transaction_reference VARCHAR(255) PRIMARY KEY,
		status                VARCHAR(20)   NOT NULL DEFAULT 'pending',
		amount                NUMERIC(10,2) NOT NULL CHECK (amount > 0),
		currency              VARCHAR(10)   NOT NULL DEFAULT 'UGX',
		name                  VARCHAR(255),
		email                 VARCHAR(254),
		phone_number          VARCHAR(20),
		payment_method        VARCHAR(255),
		project               VARCHAR(255)  DEFAULT '',
		provider_response     JSONB,
		created_at            TIMESTAMPTZ   NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS payments_status_idx ON payments (status)`,
}

// Migrate creates the payments table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	return withTx(ctx, db, func(q Querier) error {
		for _, stmt := range schema {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}
