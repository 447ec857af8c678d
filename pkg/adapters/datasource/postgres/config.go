package postgres

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-query/pkg/config"
)

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "require"
}

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// All user-provided fields are URL-escaped so passwords containing @, /, #
// or ? do not break URL parsing. When running in Docker, localhost is
// resolved to host.docker.internal.
func buildConnectionString(cfg datasource.Config) (string, error) {
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
		port = DefaultPort()
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	if cfg.ConnectTimeout > 0 {
		query.Set("connect_timeout", fmt.Sprintf("%d", int(cfg.ConnectTimeout.Seconds())))
	}
	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		query.Set(k, cfg.Options[k])
	}

	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", config.ResolveHostForDocker(cfg.Host), port),
		Path:     "/" + cfg.Database,
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}
