// Package postgres opens PostgreSQL datasources through a pgx pool exposed as
// a *sql.DB.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-query/pkg/logging"
)

// Open creates a pgx pool and wraps it in a *sql.DB. The pool connects
// lazily; datasource.Open verifies connectivity. release closes the pool,
// which closing the *sql.DB does not do.
func Open(ctx context.Context, cfg datasource.Config) (*sql.DB, func(), error) {
	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("parse postgres config %s: %w", logging.SanitizeConnectionString(connStr), err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 && cfg.MaxIdleConns <= cfg.MaxOpenConns {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return stdlib.OpenDBFromPool(pool), pool.Close, nil
}
