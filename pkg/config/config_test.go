package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ekaya-inc/ekaya-query/pkg/crypto"
)

var configEnvVars = []string{
	"ENVIRONMENT", "LOG_LEVEL", "LOG_FORMAT",
	"DATASOURCE_TYPE", "DATASOURCE_HOST", "DATASOURCE_PORT", "DATASOURCE_USER", "DATASOURCE_PASSWORD",
	"DATASOURCE_DATABASE", "DATASOURCE_SSL_MODE", "DATASOURCE_PATH", "DATASOURCE_MAX_OPEN_CONNS",
	"DATASOURCE_MAX_IDLE_CONNS", "DATASOURCE_CONN_MAX_LIFETIME", "DATASOURCE_CONNECT_TIMEOUT",
	"ENGINE_CATALOG_PATH", "ENGINE_DEFAULT_MAX_PAGE_SIZE", "ENGINE_DEFAULT_FETCH_SIZE",
	"ENGINE_STATEMENT_TIMEOUT", "ENGINE_PREWARM", "ENGINE_WARM_CONCURRENCY", "ENGINE_INJECTION_CHECK", "ENGINE_AUDIT_EXECUTIONS",
	"AUTH_ENABLE_VERIFICATION", "JWT_SECRET", "AUTH_AUDIENCE", "CREDENTIALS_KEY",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		if old, ok := os.LookupEnv(key); ok {
			t.Setenv(key, old)
			os.Unsetenv(key)
		}
	}
}

// chdirTemp moves the test into an empty directory so Load does not pick up
// a stray config.yaml.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
	return tmpDir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	tmpDir := chdirTemp(t)
	writeConfig(t, tmpDir, `
env: "test"
log_level: "debug"
datasource:
  type: "postgres"
  host: "db.example.com"
  port: 5433
  user: "report"
  database: "hr"
  password: "ignored-from-yaml"
  options:
    application_name: "ekaya-query"
engine:
  catalog_path: "catalog/hr.yaml"
  statement_timeout: "5s"
`)

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATASOURCE_PASSWORD", "from-env")
	t.Setenv("ENGINE_WARM_CONCURRENCY", "8")

	cfg, err := Load("", "test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel=debug (from yaml), got %s", cfg.LogLevel)
	}
	if cfg.Datasource.Host != "db.example.com" || cfg.Datasource.Port != 5433 {
		t.Errorf("expected db.example.com:5433 (from yaml), got %s:%d", cfg.Datasource.Host, cfg.Datasource.Port)
	}
	if cfg.Datasource.Password != "from-env" {
		t.Errorf("expected password from env only, got %q", cfg.Datasource.Password)
	}
	if cfg.Datasource.Options["application_name"] != "ekaya-query" {
		t.Errorf("expected datasource option from yaml, got %v", cfg.Datasource.Options)
	}
	if cfg.Engine.CatalogPath != "catalog/hr.yaml" {
		t.Errorf("expected CatalogPath from yaml, got %s", cfg.Engine.CatalogPath)
	}
	if cfg.Engine.StatementTimeout != 5*time.Second {
		t.Errorf("expected StatementTimeout=5s, got %s", cfg.Engine.StatementTimeout)
	}
	if cfg.Engine.WarmConcurrency != 8 {
		t.Errorf("expected WarmConcurrency=8 (from env), got %d", cfg.Engine.WarmConcurrency)
	}
}

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	clearEnv(t)
	chdirTemp(t)

	cfg, err := Load("", "dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Env != "local" {
		t.Errorf("expected Env=local, got %s", cfg.Env)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("expected LogFormat=console, got %s", cfg.LogFormat)
	}
	if cfg.Datasource.Type != "postgres" {
		t.Errorf("expected Datasource.Type=postgres, got %s", cfg.Datasource.Type)
	}
	if cfg.Datasource.MaxOpenConns != 10 || cfg.Datasource.MaxIdleConns != 5 {
		t.Errorf("expected pool sizes 10/5, got %d/%d", cfg.Datasource.MaxOpenConns, cfg.Datasource.MaxIdleConns)
	}
	if cfg.Datasource.ConnMaxLifetime != 30*time.Minute {
		t.Errorf("expected ConnMaxLifetime=30m, got %s", cfg.Datasource.ConnMaxLifetime)
	}
	if cfg.Engine.DefaultMaxPageSize != 1000 || cfg.Engine.DefaultFetchSize != 100 {
		t.Errorf("expected page/fetch defaults 1000/100, got %d/%d", cfg.Engine.DefaultMaxPageSize, cfg.Engine.DefaultFetchSize)
	}
	if !cfg.Engine.Prewarm || !cfg.Engine.InjectionCheck {
		t.Errorf("expected prewarm and injection check enabled by default")
	}
	if !cfg.Auth.EnableVerification {
		t.Errorf("expected auth verification enabled by default")
	}
	if cfg.Auth.Audience != "ekaya-query" {
		t.Errorf("expected Audience=ekaya-query, got %s", cfg.Auth.Audience)
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	clearEnv(t)
	tmpDir := chdirTemp(t)

	_, err := Load(filepath.Join(tmpDir, "missing.yaml"), "dev")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "missing.yaml") {
		t.Errorf("expected error to name the file, got %v", err)
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	clearEnv(t)
	tmpDir := chdirTemp(t)
	path := writeConfig(t, tmpDir, `
datasource:
  type: "sqlite"
`)

	_, err := Load(path, "dev")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "datasource.path is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_EncryptedSecrets(t *testing.T) {
	clearEnv(t)
	chdirTemp(t)

	box, err := crypto.NewSecretBox("local-credentials-key")
	if err != nil {
		t.Fatalf("NewSecretBox() failed: %v", err)
	}
	sealed, err := box.Seal("s3cret")
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}

	t.Setenv("DATASOURCE_PASSWORD", sealed)
	t.Setenv("JWT_SECRET", "plain-jwt-secret")
	t.Setenv("CREDENTIALS_KEY", "local-credentials-key")

	cfg, err := Load("", "dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Datasource.Password != "s3cret" {
		t.Errorf("expected decrypted password, got %q", cfg.Datasource.Password)
	}
	if cfg.Auth.JWTSecret != "plain-jwt-secret" {
		t.Errorf("expected plain JWT secret unchanged, got %q", cfg.Auth.JWTSecret)
	}

	os.Unsetenv("CREDENTIALS_KEY")
	_, err = Load("", "dev")
	if err == nil || !strings.Contains(err.Error(), "DATASOURCE_PASSWORD") {
		t.Fatalf("expected decrypt error naming DATASOURCE_PASSWORD without a key, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Datasource: DatasourceConfig{Type: "postgres"},
			Engine:     EngineConfig{DefaultMaxPageSize: 1000, DefaultFetchSize: 100, WarmConcurrency: 4},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing type", func(c *Config) { c.Datasource.Type = "" }, "datasource.type is required"},
		{"bad port", func(c *Config) { c.Datasource.Port = 70000 }, "invalid datasource.port"},
		{"zero page size", func(c *Config) { c.Engine.DefaultMaxPageSize = 0 }, "default_max_page_size"},
		{"zero fetch size", func(c *Config) { c.Engine.DefaultFetchSize = 0 }, "default_fetch_size"},
		{"zero concurrency", func(c *Config) { c.Engine.WarmConcurrency = 0 }, "warm_concurrency"},
		{"negative timeout", func(c *Config) { c.Engine.StatementTimeout = -time.Second }, "statement_timeout"},
		{"sqlite with path", func(c *Config) { c.Datasource.Type = "sqlite"; c.Datasource.Path = "hr.db" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
