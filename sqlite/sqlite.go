// Package sqlite provides SQLite-based storage implementations for
// restocked services: products and variants, their observation history,
// tracking subscriptions, notifications and check runs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	conn.SetMaxOpenConns(1)

	// Verify connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set busy timeout to wait 5 seconds before failing on lock contention.
	// This prevents immediate "database is locked" errors.
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Enable WAL mode for file-based databases for better write performance.
	// Note: WAL mode is not supported for in-memory databases.
	if db.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Enable foreign key constraints
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.db = conn

	// Create schema
	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// Stats returns database statistics.
func (db *DB) Stats() sql.DBStats {
	return db.db.Stats()
}

// createSchema creates the database tables if they don't exist.
func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			main_image_url TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS variants (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			attributes TEXT NOT NULL DEFAULT '[]',
			fingerprint TEXT NOT NULL,
			price_cents INTEGER,
			stock_status TEXT NOT NULL DEFAULT 'unknown',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (product_id, fingerprint)
		);

		CREATE TABLE IF NOT EXISTS variant_price_history (
			id TEXT PRIMARY KEY,
			variant_id TEXT NOT NULL REFERENCES variants(id) ON DELETE CASCADE,
			price_cents INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_price_history_variant
			ON variant_price_history(variant_id, recorded_at);

		CREATE TABLE IF NOT EXISTS variant_stock_history (
			id TEXT PRIMARY KEY,
			variant_id TEXT NOT NULL REFERENCES variants(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_stock_history_variant
			ON variant_stock_history(variant_id, recorded_at);

		CREATE TABLE IF NOT EXISTS tracked_items (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			variant_id TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_checked_at TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_tracked_items_url ON tracked_items(url);

		CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			product_id TEXT NOT NULL,
			variant_id TEXT NOT NULL,
			old_price_cents INTEGER,
			new_price_cents INTEGER,
			old_status TEXT NOT NULL DEFAULT '',
			new_status TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			read INTEGER NOT NULL DEFAULT 0,
			sent INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_notifications_variant ON notifications(variant_id);

		CREATE TABLE IF NOT EXISTS check_runs (
			id TEXT PRIMARY KEY,
			tracked_item_id TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			success INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			checked_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_check_runs_checked_at ON check_runs(checked_at);
	`

	_, err := db.db.Exec(schema)
	return err
}
