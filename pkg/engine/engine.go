// Package engine executes registered query definitions: it assembles SQL for
// each request, runs it, maps rows through the attribute pipeline and wraps
// every failure in a typed error.
package engine

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-query/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-query/pkg/audit"
	"github.com/ekaya-inc/ekaya-query/pkg/dialect"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
	"github.com/ekaya-inc/ekaya-query/pkg/retry"
	qsql "github.com/ekaya-inc/ekaya-query/pkg/sql"
)

// DB is the subset of *sql.DB the engine needs.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var _ DB = (*sql.DB)(nil)

// Options tune engine behavior. The zero value disables prewarming, the
// injection guard and the default statement timeout.
type Options struct {
	// DefaultTimeout applies to definitions that declare no timeout.
	DefaultTimeout time.Duration
	// Prewarm runs the metadata probe when a definition is registered.
	Prewarm bool
	// WarmConcurrency bounds concurrent probes in RegisterAll.
	WarmConcurrency int
	// InjectionCheck runs libinjection over textual parameters.
	InjectionCheck bool
	// WarmRetry retries transient probe failures. Nil uses retry.DefaultConfig.
	WarmRetry *retry.Config
	// Auditor receives injection attempts and rejected requests. Nil discards them.
	Auditor *audit.SecurityAuditor
	// AuditExecutions also audits every successful execution.
	AuditExecutions bool
}

// DefaultOptions returns production defaults: a 30s statement timeout,
// prewarming with four concurrent probes and the injection guard.
func DefaultOptions() Options {
	return Options{
		DefaultTimeout:  30 * time.Second,
		Prewarm:         true,
		WarmConcurrency: 4,
		InjectionCheck:  true,
		WarmRetry:       retry.DefaultConfig(),
	}
}

// entry pairs a definition with its resolved dialect and metadata cache.
// It is never modified after registration.
type entry struct {
	def     *models.QueryDefinition
	dialect dialect.Dialect
	cache   *MetadataCache
}

// Engine is a registry of query definitions bound to one database.
// It is safe for concurrent use.
type Engine struct {
	db     DB
	logger *zap.Logger
	opts   Options

	mu      sync.RWMutex
	queries map[string]*entry
}

// New creates an engine. db may be nil for an engine that only assembles SQL.
func New(db DB, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WarmConcurrency <= 0 {
		opts.WarmConcurrency = 1
	}
	return &Engine{
		db:      db,
		logger:  logger.Named("engine"),
		opts:    opts,
		queries: make(map[string]*entry),
	}
}

// Register adds one definition. See RegisterAll.
func (e *Engine) Register(ctx context.Context, def *models.QueryDefinition) error {
	return e.RegisterAll(ctx, def)
}

// RegisterAll adds a batch of definitions atomically: either all are
// registered or none. When prewarming is enabled the metadata probes run
// concurrently before the batch becomes visible to executions.
func (e *Engine) RegisterAll(ctx context.Context, defs ...*models.QueryDefinition) error {
	entries := make([]*entry, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def == nil {
			return apperrors.NewDefinitionError("", "nil query definition")
		}
		d, err := dialect.Get(def.Dialect())
		if err != nil {
			return apperrors.NewDefinitionError(def.Name(), "%s", err.Error())
		}
		if seen[def.Name()] || e.has(def.Name()) {
			return apperrors.NewDefinitionError(def.Name(), "query is already registered")
		}
		seen[def.Name()] = true
		e.crossCheck(def)
		entries = append(entries, &entry{def: def, dialect: d})
	}

	if e.opts.Prewarm && e.db != nil {
		var g errgroup.Group
		g.SetLimit(e.opts.WarmConcurrency)
		for _, ent := range entries {
			ent := ent
			g.Go(func() error {
				ent.cache = e.warm(ctx, ent)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ent := range entries {
		if _, dup := e.queries[ent.def.Name()]; dup {
			return apperrors.NewDefinitionError(ent.def.Name(), "query is already registered")
		}
	}
	for _, ent := range entries {
		e.queries[ent.def.Name()] = ent
		e.logger.Info("Registered query",
			zap.String("query", ent.def.Name()),
			zap.String("dialect", ent.dialect.Name),
			zap.Bool("metadata_cached", ent.cache.IsInitialized()))
	}
	return nil
}

func (e *Engine) warm(ctx context.Context, ent *entry) *MetadataCache {
	var cache *MetadataCache
	err := retry.DoIfRetryable(ctx, e.opts.WarmRetry, func() error {
		c, err := Warm(ctx, e.db, ent.def, ent.dialect, e.logger)
		if err != nil {
			return err
		}
		cache = c
		return nil
	})
	if err != nil {
		e.logger.Warn("Metadata warm-up failed, falling back to live metadata",
			zap.String("query", ent.def.Name()),
			zap.Error(err))
		return nil
	}
	return cache
}

// crossCheck logs attributes whose column is missing from an explicit SELECT
// list and bind tokens written inside string literals.
func (e *Engine) crossCheck(def *models.QueryDefinition) {
	if inLiterals := qsql.FindParametersInStringLiterals(def.SQL()); len(inLiterals) > 0 {
		e.logger.Warn("Bind tokens inside string literals are never bound",
			zap.String("query", def.Name()),
			zap.Strings("tokens", inLiterals))
	}

	columns := qsql.ParseSelectList(def.SQL())
	if columns == nil {
		return
	}
	selected := make(map[string]bool, len(columns))
	for _, c := range columns {
		selected[c.Name] = true
	}
	for _, a := range def.Attributes() {
		if a.Virtual || selected[strings.ToLower(unqualified(a.Column))] {
			continue
		}
		e.logger.Warn("Attribute column not found in SELECT list",
			zap.String("query", def.Name()),
			zap.String("attribute", a.Name),
			zap.String("column", a.Column))
	}
}

func (e *Engine) has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.queries[name]
	return ok
}

func (e *Engine) lookup(name string) (*entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ent, ok := e.queries[name]
	if !ok {
		return nil, apperrors.NewNotFoundError(name)
	}
	return ent, nil
}

// Definition returns a registered definition.
func (e *Engine) Definition(name string) (*models.QueryDefinition, bool) {
	ent, err := e.lookup(name)
	if err != nil {
		return nil, false
	}
	return ent.def, true
}

// Cache returns the metadata cache of a registered definition, or nil.
func (e *Engine) Cache(name string) *MetadataCache {
	ent, err := e.lookup(name)
	if err != nil {
		return nil
	}
	return ent.cache
}

// Names returns the registered query names, sorted.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.queries))
	for name := range e.queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Plan is the dry-run output of Assemble.
type Plan struct {
	Query           string                   `json:"query"`
	Dialect         string                   `json:"dialect"`
	SQL             string                   `json:"sql"`
	Params          map[string]any           `json:"params"`
	BoundSQL        string                   `json:"bound_sql"`
	Args            []any                    `json:"args"`
	CountSQL        string                   `json:"count_sql,omitempty"`
	CountParams     map[string]any           `json:"count_params,omitempty"`
	BoundCountSQL   string                   `json:"bound_count_sql,omitempty"`
	CountArgs       []any                    `json:"count_args,omitempty"`
	AppliedCriteria []models.AppliedCriteria `json:"applied_criteria"`
	AppliedFilters  []models.AppliedFilter   `json:"applied_filters"`
}

// Assemble runs pre-processing and SQL assembly for a request without
// touching the database.
func (e *Engine) Assemble(ctx context.Context, name string, req models.Request) (*Plan, error) {
	ent, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	x := e.newExecution(ent, req)
	if err := x.preProcess(ctx); err != nil {
		return nil, x.fail(StagePreProcessed, err)
	}
	asm, err := Assemble(ent.def, ent.dialect, x.qc, x.qc.Paginated())
	if err != nil {
		return nil, x.fail(StageSQLBuilt, err)
	}

	plan := &Plan{
		Query:           name,
		Dialect:         ent.dialect.Name,
		SQL:             asm.SQL,
		Params:          asm.Params,
		CountSQL:        asm.CountSQL,
		CountParams:     asm.CountParams,
		AppliedCriteria: x.qc.AppliedCriteria,
		AppliedFilters:  x.qc.AppliedFilters,
	}
	if plan.BoundSQL, plan.Args, err = qsql.Bind(asm.SQL, asm.Params, ent.dialect.Placeholder); err != nil {
		return nil, x.fail(StageSQLBuilt, err)
	}
	if asm.CountSQL != "" {
		if plan.BoundCountSQL, plan.CountArgs, err = qsql.Bind(asm.CountSQL, asm.CountParams, ent.dialect.Placeholder); err != nil {
			return nil, x.fail(StageSQLBuilt, err)
		}
	}
	return plan, nil
}
