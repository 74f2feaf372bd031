// Package data manages the database connection and schema migrations.
package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ncobase/docport/config"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Data holds the database connection.
type Data struct {
	db *sql.DB
}

// New opens a database connection using the provided configuration.
//
// Example connection strings:
//
//	"file:docport.db?cache=shared&mode=rwc"
//	"file::memory:?cache=shared"
func New(ctx context.Context, cfg *config.Data) (*Data, error) {
	if cfg.Source == "" {
		return nil, fmt.Errorf("data: connection source is empty")
	}

	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite3"
	}

	db, err := sql.Open(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("data: failed to open connection: %w", err)
	}

	// SQLite works best with a single writer connection.
	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("data: failed to ping database: %w", err)
	}

	return &Data{db: db}, nil
}

// DB returns the underlying connection.
func (d *Data) DB() *sql.DB {
	return d.db
}

// Ping verifies the connection is alive.
func (d *Data) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("data: ping failed: %w", err)
	}
	return nil
}

// Close terminates the connection.
func (d *Data) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("data: failed to close connection: %w", err)
	}
	return nil
}
