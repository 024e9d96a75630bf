// Package ledger records one row per pipeline run in a Postgres
// run_history table: an additive audit trail, never a dependency of the
// filesystem artifact set's atomicity guarantee.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
	postgresDriver         = "postgres"
	pingTimeout            = 5 * time.Second
)

// ErrDSNEmpty is returned when NewConnection is given an empty DSN.
var ErrDSNEmpty = errors.New("ledger: database DSN cannot be empty")

// Config holds the Postgres connection settings for the ledger store.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Connection wraps a pooled *sql.DB opened with the lib/pq Postgres driver.
type Connection struct {
	*sql.DB
}

// NewConnection opens and health-checks a pooled connection to dsn.
func NewConnection(cfg Config) (*Connection, error) {
	if cfg.DSN == "" {
		return nil, ErrDSNEmpty
	}

	db, err := sql.Open(postgresDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = defaultMaxOpenConns
	}

	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = defaultMaxIdleConns
	}

	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime == 0 {
		connMaxLifetime = defaultConnMaxLifetime
	}

	connMaxIdleTime := cfg.ConnMaxIdleTime
	if connMaxIdleTime == 0 {
		connMaxIdleTime = defaultConnMaxIdleTime
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: health check failed: %w", err)
	}

	return &Connection{db}, nil
}

// Close closes the underlying connection pool. Safe to call multiple times.
func (c *Connection) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}

	return c.DB.Close()
}

// HealthCheck reports whether the connection is still reachable.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if ctx == nil {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
	}

	return c.PingContext(ctx)
}
