// Package db opens the optional PostgreSQL store backing the zoning cache
// and the run audit trail.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/propmerge/internal/config"
)

// Connection wraps the shared database handle.
type Connection struct {
	DB *sql.DB
}

// Connect opens and pings the configured database.
func Connect(cfg config.DatabaseConfig) (*Connection, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)

	return &Connection{DB: db}, nil
}

func (c *Connection) Close() error {
	return c.DB.Close()
}
