package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/yourusername/paddock/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// Initialize creates a database connection pool and applies the round record schema
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the round record and cursor tables when missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Truncate removes every cached round and cursor
func (db *DB) Truncate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, "TRUNCATE round_records, sync_cursors"); err != nil {
		return fmt.Errorf("failed to truncate cache tables: %w", err)
	}
	return nil
}
