package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-query/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-query/pkg/logging"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
	qsql "github.com/ekaya-inc/ekaya-query/pkg/sql"
)

// Stage is a step of the execution state machine.
type Stage string

const (
	StageCreated          Stage = "created"
	StagePreProcessed     Stage = "pre-processed"
	StageSQLBuilt         Stage = "sql-built"
	StageCountExecuted    Stage = "count-executed"
	StageMainExecuted     Stage = "main-executed"
	StageRowPipeline      Stage = "row-pipeline-applied"
	StagePostProcessed    Stage = "post-processed"
	StageMetadataAttached Stage = "metadata-attached"
	StageCompleted        Stage = "completed"
	StageFailed           Stage = "failed"
)

// execution is the state of one Execute call. It is owned by the calling goroutine.
type execution struct {
	engine  *Engine
	ent     *entry
	qc      *models.QueryContext
	id      uuid.UUID
	stage   Stage
	logger  *zap.Logger
	timings models.Timings
}

func (e *Engine) newExecution(ent *entry, req models.Request) *execution {
	id := uuid.New()
	return &execution{
		engine: e,
		ent:    ent,
		qc:     models.NewQueryContext(ent.def, req),
		id:     id,
		stage:  StageCreated,
		logger: e.logger.With(zap.String("query", ent.def.Name()), zap.String("execution_id", id.String())),
	}
}

// Execute runs a registered query. The request either succeeds as a whole,
// possibly with nulls for attributes that failed to convert, or fails with a
// *apperrors.QueryError.
func (e *Engine) Execute(ctx context.Context, name string, req models.Request) (*models.Result, error) {
	ent, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	if e.db == nil {
		return nil, apperrors.NewExecutionError(name, string(StageCreated), errors.New("engine has no database"))
	}
	return e.newExecution(ent, req).run(ctx)
}

func (x *execution) run(ctx context.Context) (*models.Result, error) {
	start := time.Now()
	def := x.ent.def

	if err := x.preProcess(ctx); err != nil {
		return nil, x.fail(StagePreProcessed, err)
	}
	x.advance(StagePreProcessed)

	withCount := x.qc.Paginated() && x.qc.IncludeMetadata
	asmStart := time.Now()
	asm, err := Assemble(def, x.ent.dialect, x.qc, withCount)
	if err != nil {
		return nil, x.fail(StageSQLBuilt, err)
	}
	x.timings.Assemble = time.Since(asmStart)
	x.advance(StageSQLBuilt)

	if timeout := x.timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var total *int64
	if asm.CountSQL != "" {
		countStart := time.Now()
		n, err := x.count(ctx, asm)
		if err != nil {
			return nil, x.fail(StageCountExecuted, withDeadline(ctx, err))
		}
		total = &n
		x.timings.Count = time.Since(countStart)
		x.advance(StageCountExecuted)
	}

	rows, cacheUsed, err := x.query(ctx, asm)
	if err != nil {
		return nil, x.fail(x.nextStage(), withDeadline(ctx, err))
	}
	x.advance(StageRowPipeline)

	result := &models.Result{Rows: rows, TotalCount: total, Success: true}
	for _, p := range def.PostProcessors() {
		if err := p.PostProcess(ctx, result, x.qc); err != nil {
			return nil, x.fail(StagePostProcessed, err)
		}
	}
	x.advance(StagePostProcessed)

	x.timings.Total = time.Since(start)
	if x.qc.IncludeMetadata {
		result.Metadata = x.metadata(result, cacheUsed)
		x.advance(StageMetadataAttached)
	}
	x.advance(StageCompleted)
	if result.Metadata != nil {
		result.Metadata.Stage = string(x.stage)
	}

	x.logger.Info("Query executed",
		zap.Int("rows", len(rows)),
		zap.Bool("cache_used", cacheUsed),
		zap.Duration("duration", x.timings.Total))
	if x.engine.opts.AuditExecutions {
		x.engine.opts.Auditor.LogQueryExecution(def.Name(), x.id, x.qc.Security, len(rows))
	}
	return result, nil
}

// preProcess runs the built-in pre-processors around the definition's own:
// defaults and parameter processors first, then the definition's
// pre-processors, then required checks, the injection guard, attribute
// visibility and request validation.
func (x *execution) preProcess(ctx context.Context) error {
	steps := []models.PreProcessor{
		models.PreProcessorFunc(applyDefaults),
		models.PreProcessorFunc(runParamProcessors),
	}
	steps = append(steps, x.ent.def.PreProcessors()...)
	steps = append(steps, models.PreProcessorFunc(checkRequired))
	if x.engine.opts.InjectionCheck {
		steps = append(steps, models.PreProcessorFunc(x.checkInjection))
	}
	steps = append(steps, models.PreProcessorFunc(resolveVisibility))

	for _, step := range steps {
		if err := step.PreProcess(ctx, x.qc); err != nil {
			return err
		}
	}
	return validateRequest(x.ent.def, x.qc)
}

func (x *execution) timeout() time.Duration {
	if t := x.ent.def.Timeout(); t > 0 {
		return t
	}
	return x.engine.opts.DefaultTimeout
}

func (x *execution) count(ctx context.Context, asm *Assembly) (int64, error) {
	bound, args, err := qsql.Bind(asm.CountSQL, asm.CountParams, x.ent.dialect.Placeholder)
	if err != nil {
		return 0, err
	}
	x.logger.Debug("Executing count query", zap.String("sql", logging.SanitizeQuery(bound)))

	rows, err := x.engine.db.QueryContext(ctx, bound, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute count query: %w", err)
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("failed to scan count: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read count: %w", err)
	}
	return n, nil
}

// query runs the main statement and maps every row through the attribute
// pipeline and the definition's row processors. Rows are sealed afterwards.
func (x *execution) query(ctx context.Context, asm *Assembly) ([]*models.Row, bool, error) {
	def := x.ent.def
	bound, args, err := qsql.Bind(asm.SQL, asm.Params, x.ent.dialect.Placeholder)
	if err != nil {
		return nil, false, err
	}
	x.logger.Debug("Executing query",
		zap.String("sql", logging.SanitizeQuery(bound)),
		zap.Any("params", logging.RedactParams(asm.Params)))

	mainStart := time.Now()
	sqlRows, err := x.engine.db.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to execute query: %w", err)
	}
	defer sqlRows.Close()
	x.advance(StageMainExecuted)

	extractor, err := NewExtractor(sqlRows, x.ent.cache)
	if err != nil {
		return nil, false, err
	}

	capacity := def.FetchSize()
	if x.qc.Page != nil && x.qc.Page.Size() < capacity {
		capacity = x.qc.Page.Size()
	}
	rows := make([]*models.Row, 0, capacity)
	pl := newPipeline(def, x.ent.cache, x.qc, x.logger)
	rowProcessors := def.RowProcessors()

	var pipelineTime time.Duration
	for sqlRows.Next() {
		raw, err := extractor.ExtractRaw(sqlRows)
		if err != nil {
			return nil, false, err
		}
		t := time.Now()
		row := pl.apply(raw)
		for _, p := range rowProcessors {
			if err := p.ProcessRow(ctx, row, x.qc); err != nil {
				return nil, false, fmt.Errorf("row processor failed: %w", err)
			}
		}
		row.Seal()
		pipelineTime += time.Since(t)
		rows = append(rows, row)
	}
	if err := sqlRows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read rows: %w", err)
	}

	x.timings.Pipeline = pipelineTime
	x.timings.Main = time.Since(mainStart) - pipelineTime
	if pl.failures > 0 {
		x.logger.Warn("Some attributes could not be processed", zap.Int("failures", pl.failures))
	}
	return rows, extractor.CacheUsed(), nil
}

func (x *execution) metadata(result *models.Result, cacheUsed bool) *models.Metadata {
	def := x.ent.def
	attrs := def.Attributes()
	info := make([]models.AttributeInfo, len(attrs))
	for i, a := range attrs {
		info[i] = models.AttributeInfo{
			Name:       a.Name,
			Type:       a.Type,
			Virtual:    a.Virtual,
			Visible:    x.qc.IsVisible(a),
			Filterable: a.Filterable,
			Sortable:   a.SortColumn() != "",
		}
	}
	return &models.Metadata{
		ExecutionID:     x.id,
		Query:           def.Name(),
		Dialect:         x.ent.dialect.Name,
		AppliedCriteria: x.qc.AppliedCriteria,
		AppliedFilters:  x.qc.AppliedFilters,
		Sorts:           x.qc.Sorts,
		Page:            x.qc.Page,
		TotalCount:      result.TotalCount,
		RowCount:        len(result.Rows),
		Attributes:      info,
		CacheUsed:       cacheUsed,
		Stage:           string(x.stage),
		Timings:         x.timings,
	}
}

// withDeadline marks err as a deadline failure when the statement timeout
// expired, whatever error the driver reported for the cancellation.
func withDeadline(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

func (x *execution) advance(s Stage) {
	x.stage = s
}

// nextStage names the stage the main query was working towards when it failed.
func (x *execution) nextStage() Stage {
	if x.stage == StageMainExecuted {
		return StageRowPipeline
	}
	return StageMainExecuted
}

// fail moves the execution to the failed state and returns the typed error.
// Errors raised before any SQL ran become validation errors; later ones are
// execution errors, flagged as timeouts when the deadline expired.
func (x *execution) fail(stage Stage, err error) error {
	x.stage = StageFailed
	name := x.ent.def.Name()

	var qe *apperrors.QueryError
	if !errors.As(err, &qe) {
		switch stage {
		case StagePreProcessed, StageSQLBuilt:
			qe = &apperrors.QueryError{Query: name, Code: apperrors.CodeValidation, Stage: string(stage), Message: err.Error(), Cause: err}
		default:
			qe = apperrors.NewExecutionError(name, string(stage), err)
			qe.Timeout = errors.Is(err, context.DeadlineExceeded)
		}
	} else if qe.Stage == "" {
		qe.Stage = string(stage)
	}
	if qe.Code == apperrors.CodeValidation {
		x.engine.opts.Auditor.LogRequestRejected(name, x.id, x.qc.Security, qe.Message)
	}

	x.logger.Error("Query failed",
		zap.String("stage", string(stage)),
		zap.String("code", string(qe.Code)),
		zap.Bool("timeout", qe.Timeout),
		zap.String("error", logging.SanitizeError(err)))
	return qe
}
