package datasource

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-query/pkg/logging"
	"github.com/ekaya-inc/ekaya-query/pkg/retry"
)

// Open opens the datasource described by cfg and verifies it with
// TestConnection, retrying transient failures with retryCfg. A nil retryCfg
// uses retry.DefaultConfig.
func Open(ctx context.Context, cfg Config, retryCfg *retry.Config, logger *zap.Logger) (*Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg, ok := GetRegistration(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("unsupported datasource type: %s (available: %s)", cfg.Type, strings.Join(availableTypes(), ", "))
	}

	db, release, err := reg.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s datasource: %w", cfg.Type, err)
	}
	conn := &Conn{DB: db, Type: cfg.Type, Dialect: reg.Info.Dialect, release: release}

	attempt := 0
	err = retry.DoIfRetryable(ctx, retryCfg, func() error {
		attempt++
		err := TestConnection(ctx, db)
		if err != nil {
			logger.Warn("Datasource connection check failed",
				zap.String("type", cfg.Type),
				zap.Int("attempt", attempt),
				zap.String("error", logging.SanitizeError(err)))
		}
		return err
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect to %s datasource: %w", cfg.Type, err)
	}

	logger.Info("Datasource connected",
		zap.String("type", cfg.Type),
		zap.String("dialect", conn.Dialect),
		zap.Int("attempts", attempt))
	return conn, nil
}

// TestConnection verifies the database is reachable with valid credentials
// by pinging it and running a trivial query.
func TestConnection(ctx context.Context, db ConnectionTester) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

func availableTypes() []string {
	adapters := RegisteredAdapters()
	types := make([]string, len(adapters))
	for i, a := range adapters {
		types[i] = a.Type
	}
	return types
}
