package mssql

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-query/pkg/config"
)

// Authentication methods.
const (
	AuthSQL              = "sql"
	AuthServicePrincipal = "service_principal"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string

	// AuthMethod is AuthSQL (username/password) or AuthServicePrincipal (Azure AD).
	AuthMethod string

	Username string
	Password string

	TenantID     string
	ClientID     string
	ClientSecret string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromDatasource maps a generic datasource config onto SQL Server options.
// Service principal credentials come from the tenant_id and client_id
// options, with the password as client secret.
func FromDatasource(ds datasource.Config) (*Config, error) {
	cfg := &Config{
		Host:              ds.Host,
		Port:              ds.Port,
		Database:          ds.Database,
		AuthMethod:        ds.Options["auth_method"],
		Encrypt:           ds.SSLMode != "disable",
		ConnectionTimeout: DefaultConnectionTimeout(),
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	if ds.ConnectTimeout > 0 {
		cfg.ConnectionTimeout = int(ds.ConnectTimeout / time.Second)
	}
	if trust, err := strconv.ParseBool(ds.Options["trust_server_certificate"]); err == nil {
		cfg.TrustServerCertificate = trust
	}

	if cfg.AuthMethod == "" {
		if ds.Options["client_id"] != "" {
			cfg.AuthMethod = AuthServicePrincipal
		} else {
			cfg.AuthMethod = AuthSQL
		}
	}
	switch cfg.AuthMethod {
	case AuthSQL:
		cfg.Username = ds.User
		cfg.Password = ds.Password
	case AuthServicePrincipal:
		cfg.TenantID = ds.Options["tenant_id"]
		cfg.ClientID = ds.Options["client_id"]
		cfg.ClientSecret = ds.Password
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the config has all required fields for the selected auth method.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.AuthMethod {
	case AuthSQL:
		if c.Username == "" {
			return fmt.Errorf("username is required for SQL authentication")
		}
	case AuthServicePrincipal:
		if c.TenantID == "" {
			return fmt.Errorf("tenant_id is required for service principal")
		}
		if c.ClientID == "" {
			return fmt.Errorf("client_id is required for service principal")
		}
		if c.ClientSecret == "" {
			return fmt.Errorf("client_secret is required for service principal")
		}
	default:
		return fmt.Errorf("invalid auth method: %s (must be %s or %s)", c.AuthMethod, AuthSQL, AuthServicePrincipal)
	}
	return nil
}

func (c *Config) baseQuery() url.Values {
	query := url.Values{}
	query.Add("database", c.Database)
	if c.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", c.ConnectionTimeout))
	}
	return query
}

// connectionString returns the driver name and DSN for the auth method.
func (c *Config) connectionString() (driver, dsn string) {
	host := config.ResolveHostForDocker(c.Host)
	query := c.baseQuery()

	if c.AuthMethod == AuthServicePrincipal {
		query.Add("fedauth", "ActiveDirectoryServicePrincipal")
		query.Add("user id", c.ClientID+"@"+c.TenantID)
		query.Add("password", c.ClientSecret)
		return "azuresql", fmt.Sprintf("sqlserver://%s:%d?%s", host, c.Port, query.Encode())
	}

	return "sqlserver", fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		host,
		c.Port,
		query.Encode(),
	)
}
