// Package mysql opens MySQL and MariaDB datasources.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-query/pkg/config"
)

// DefaultPort is the default MySQL port.
const DefaultPort = 3306

// tlsModes maps datasource SSL modes onto the driver's tls parameter.
var tlsModes = map[string]string{
	"disable":     "false",
	"require":     "skip-verify",
	"verify-ca":   "true",
	"verify-full": "true",
}

func buildDSN(cfg datasource.Config) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	if cfg.User == "" {
		return "", fmt.Errorf("user is required")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("database is required")
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(config.ResolveHostForDocker(cfg.Host), strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Timeout = cfg.ConnectTimeout

	mc.TLSConfig = "preferred"
	if mode, ok := tlsModes[cfg.SSLMode]; ok {
		mc.TLSConfig = mode
	}
	if len(cfg.Options) > 0 {
		mc.Params = make(map[string]string, len(cfg.Options))
		for k, v := range cfg.Options {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN(), nil
}

// Open opens a MySQL connection pool without contacting the server.
func Open(_ context.Context, cfg datasource.Config) (*sql.DB, func(), error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open mysql connection: %w", err)
	}
	datasource.ApplyPoolSettings(db, cfg)
	return db, nil, nil
}
