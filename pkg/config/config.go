// Package config loads ekaya-query settings from config.yaml with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-query/pkg/crypto"
)

// DefaultPath is read when no config file is named explicitly.
const DefaultPath = "config.yaml"

// Config holds all configuration for ekaya-query.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"console"`
	// Version is set at load time, not from config.
	Version string `yaml:"-"`
	// CredentialsKey decrypts "enc:" secrets. Secret - not in YAML.
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"`

	Datasource DatasourceConfig `yaml:"datasource"`
	Engine     EngineConfig     `yaml:"engine"`
	Auth       AuthConfig       `yaml:"auth"`
}

// DatasourceConfig describes the database the catalog queries run against.
type DatasourceConfig struct {
	Type     string `yaml:"type" env:"DATASOURCE_TYPE" env-default:"postgres"`
	Host     string `yaml:"host" env:"DATASOURCE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DATASOURCE_PORT"` // 0 uses the adapter default
	User     string `yaml:"user" env:"DATASOURCE_USER"`
	Password string `yaml:"-" env:"DATASOURCE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DATASOURCE_DATABASE"`
	SSLMode  string `yaml:"ssl_mode" env:"DATASOURCE_SSL_MODE"`
	// Path is the database file for sqlite.
	Path string `yaml:"path" env:"DATASOURCE_PATH"`

	MaxOpenConns    int           `yaml:"max_open_conns" env:"DATASOURCE_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DATASOURCE_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATASOURCE_CONN_MAX_LIFETIME" env-default:"30m"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"DATASOURCE_CONNECT_TIMEOUT" env-default:"10s"`

	// Options are driver-specific DSN parameters.
	Options map[string]string `yaml:"options"`
}

// EngineConfig tunes query registration and execution.
type EngineConfig struct {
	CatalogPath        string        `yaml:"catalog_path" env:"ENGINE_CATALOG_PATH" env-default:"queries.yaml"`
	DefaultMaxPageSize int           `yaml:"default_max_page_size" env:"ENGINE_DEFAULT_MAX_PAGE_SIZE" env-default:"1000"`
	DefaultFetchSize   int           `yaml:"default_fetch_size" env:"ENGINE_DEFAULT_FETCH_SIZE" env-default:"100"`
	StatementTimeout   time.Duration `yaml:"statement_timeout" env:"ENGINE_STATEMENT_TIMEOUT" env-default:"30s"`
	// Prewarm probes result metadata when queries are registered.
	Prewarm         bool `yaml:"prewarm" env:"ENGINE_PREWARM" env-default:"true"`
	WarmConcurrency int  `yaml:"warm_concurrency" env:"ENGINE_WARM_CONCURRENCY" env-default:"4"`
	InjectionCheck  bool `yaml:"injection_check" env:"ENGINE_INJECTION_CHECK" env-default:"true"`
	// AuditExecutions writes a security audit event for every successful execution.
	AuditExecutions bool `yaml:"audit_executions" env:"ENGINE_AUDIT_EXECUTIONS"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT signatures are checked.
	// Set to false for local development.
	EnableVerification bool   `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`
	JWTSecret          string `yaml:"-" env:"JWT_SECRET"` // Secret - not in YAML
	Audience           string `yaml:"audience" env:"AUTH_AUDIENCE" env-default:"ekaya-query"`
}

// Load reads configuration from path with environment variable overrides.
// An empty path reads DefaultPath when it exists and the environment alone
// otherwise. The version parameter is injected at build time.
func Load(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		path = ""
	}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.revealSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// revealSecrets decrypts secrets stored as "enc:" values.
func (c *Config) revealSecrets() error {
	secrets := []struct {
		name  string
		value *string
	}{
		{"DATASOURCE_PASSWORD", &c.Datasource.Password},
		{"JWT_SECRET", &c.Auth.JWTSecret},
	}
	for _, s := range secrets {
		plain, err := crypto.Reveal(*s.value, c.CredentialsKey)
		if err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", s.name, err)
		}
		*s.value = plain
	}
	return nil
}

// Validate checks values cleanenv cannot express as tags.
func (c *Config) Validate() error {
	if c.Datasource.Type == "" {
		return fmt.Errorf("datasource.type is required")
	}
	if c.Datasource.Type == "sqlite" && c.Datasource.Path == "" {
		return fmt.Errorf("datasource.path is required for sqlite")
	}
	if c.Datasource.Port < 0 || c.Datasource.Port > 65535 {
		return fmt.Errorf("invalid datasource.port: %d", c.Datasource.Port)
	}
	if c.Engine.DefaultMaxPageSize <= 0 {
		return fmt.Errorf("engine.default_max_page_size must be positive")
	}
	if c.Engine.DefaultFetchSize <= 0 {
		return fmt.Errorf("engine.default_fetch_size must be positive")
	}
	if c.Engine.WarmConcurrency <= 0 {
		return fmt.Errorf("engine.warm_concurrency must be positive")
	}
	if c.Engine.StatementTimeout < 0 {
		return fmt.Errorf("engine.statement_timeout must not be negative")
	}
	return nil
}
