package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-query/pkg/audit"
	"github.com/ekaya-inc/ekaya-query/pkg/catalog"
	"github.com/ekaya-inc/ekaya-query/pkg/config"
	"github.com/ekaya-inc/ekaya-query/pkg/engine"
	"github.com/ekaya-inc/ekaya-query/pkg/logging"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
	"github.com/ekaya-inc/ekaya-query/pkg/retry"
)

// session is the configuration, logger, catalog and engine shared by the
// commands. conn is nil unless the command connects to the datasource.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	conn    *datasource.Conn
	engine  *engine.Engine
	queries []*models.QueryDefinition
}

// openSession loads configuration and the catalog and registers every query.
// With connect set the datasource is opened and metadata is prewarmed.
func openSession(ctx context.Context, opts *RootOptions, connect bool) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.Version)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create logger", err)
	}
	s := &session{cfg: cfg, logger: logger}

	reg, ok := datasource.GetRegistration(cfg.Datasource.Type)
	if !ok {
		s.Close()
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unsupported datasource type %q", cfg.Datasource.Type))
	}

	catalogPath := opts.CatalogPath
	if catalogPath == "" {
		catalogPath = cfg.Engine.CatalogPath
	}
	s.queries, err = catalog.Load(catalogPath, catalog.Defaults{
		Dialect:     reg.Info.Dialect,
		MaxPageSize: cfg.Engine.DefaultMaxPageSize,
		FetchSize:   cfg.Engine.DefaultFetchSize,
	})
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "invalid catalog", err)
	}

	var db engine.DB
	if connect {
		s.conn, err = datasource.Open(ctx, datasourceConfig(cfg.Datasource), retry.DefaultConfig(), logger)
		if err != nil {
			s.Close()
			return nil, WrapExitError(ExitCommandError, "failed to connect", err)
		}
		db = s.conn.DB
	}

	engineOpts := engine.DefaultOptions()
	engineOpts.DefaultTimeout = cfg.Engine.StatementTimeout
	engineOpts.Prewarm = connect && cfg.Engine.Prewarm
	engineOpts.WarmConcurrency = cfg.Engine.WarmConcurrency
	engineOpts.InjectionCheck = cfg.Engine.InjectionCheck
	engineOpts.Auditor = audit.NewSecurityAuditor(logger)
	engineOpts.AuditExecutions = cfg.Engine.AuditExecutions
	s.engine = engine.New(db, logger, engineOpts)
	if err := s.engine.RegisterAll(ctx, s.queries...); err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "failed to register queries", err)
	}

	logger.Debug("Session ready",
		zap.String("catalog", catalogPath),
		zap.String("datasource", cfg.Datasource.Type),
		zap.String("dialect", reg.Info.Dialect),
		zap.Int("queries", len(s.queries)),
		zap.Bool("connected", connect))
	return s, nil
}

func (s *session) Close() {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("Failed to close datasource", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}

func datasourceConfig(c config.DatasourceConfig) datasource.Config {
	return datasource.Config{
		Type:            c.Type,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		SSLMode:         c.SSLMode,
		Path:            c.Path,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnectTimeout:  c.ConnectTimeout,
		Options:         c.Options,
	}
}
