package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements bootstrap the product and notification tables. The
// watcher owns this schema; nothing here is shared with other services.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		product_link VARCHAR(500) PRIMARY KEY,
		product_name VARCHAR(255) NOT NULL,
		product_price NUMERIC(12, 2) NOT NULL,
		first_seen_date TIMESTAMPTZ NOT NULL,
		last_update_date TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_name ON products (product_name)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the watcher's tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
