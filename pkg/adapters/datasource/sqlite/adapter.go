// Package sqlite opens SQLite database files through the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

// defaultPragmas apply to every pooled connection.
var defaultPragmas = []string{"busy_timeout(5000)", "foreign_keys(1)"}

func buildDSN(cfg datasource.Config) (string, error) {
	if cfg.Path == "" {
		return "", fmt.Errorf("path is required")
	}
	if cfg.Path == Memory {
		return Memory, nil
	}

	query := url.Values{}
	for _, p := range defaultPragmas {
		query.Add("_pragma", p)
	}
	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		query.Add(k, cfg.Options[k])
	}
	return "file:" + cfg.Path + "?" + query.Encode(), nil
}

// Open opens a SQLite database. An in-memory database is limited to a single
// connection so every statement sees the same data.
func Open(_ context.Context, cfg datasource.Config) (*sql.DB, func(), error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite database: %w", err)
	}
	datasource.ApplyPoolSettings(db, cfg)
	if cfg.Path == Memory {
		db.SetMaxOpenConns(1)
	}
	return db, nil, nil
}
