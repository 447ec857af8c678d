package datasource

import (
	"context"
	"database/sql"
	"time"
)

// Config describes one datasource. Adapters read the fields they need and
// ignore the rest.
type Config struct {
	Type     string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
	Path     string // file path for sqlite; ":memory:" for an in-memory database

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration

	// Options are driver-specific connection parameters appended to the DSN.
	Options map[string]string
}

// Opener opens a *sql.DB for one datasource type without contacting the
// server. release, when not nil, frees resources the *sql.DB does not own,
// such as a pgx pool.
type Opener func(ctx context.Context, cfg Config) (db *sql.DB, release func(), err error)

// Conn is an open, verified datasource.
type Conn struct {
	DB      *sql.DB
	Type    string
	Dialect string
	release func()
}

// Close closes the database handle and any resources behind it.
func (c *Conn) Close() error {
	err := c.DB.Close()
	if c.release != nil {
		c.release()
	}
	return err
}

// ConnectionTester verifies that a database is reachable.
type ConnectionTester interface {
	PingContext(ctx context.Context) error
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ ConnectionTester = (*sql.DB)(nil)

// ApplyPoolSettings copies the pool limits of cfg onto db. Zero values keep
// the database/sql defaults.
func ApplyPoolSettings(db *sql.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}
