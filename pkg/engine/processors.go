package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/ekaya-inc/ekaya-query/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-query/pkg/audit"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
	qsql "github.com/ekaya-inc/ekaya-query/pkg/sql"
)

// applyDefaults fills in declared defaults for parameters the caller omitted.
func applyDefaults(_ context.Context, qc *models.QueryContext) error {
	for _, p := range qc.Definition.Params() {
		if _, ok := qc.Params[p.Name]; !ok && p.Default != nil {
			qc.SetParam(p.Name, p.Default)
		}
	}
	return nil
}

// runParamProcessors passes present parameters through their processors.
func runParamProcessors(_ context.Context, qc *models.QueryContext) error {
	for _, p := range qc.Definition.Params() {
		if p.Processor == nil || !qc.HasParam(p.Name) {
			continue
		}
		v, err := p.Processor(qc.Params[p.Name])
		if err != nil {
			return apperrors.NewValidationError(qc.Definition.Name(), "parameter %q rejected: %s", p.Name, err.Error())
		}
		qc.SetParam(p.Name, v)
	}
	return nil
}

// checkRequired rejects requests missing a required parameter.
func checkRequired(_ context.Context, qc *models.QueryContext) error {
	for _, p := range qc.Definition.Params() {
		if p.Required && !qc.HasParam(p.Name) {
			return apperrors.NewValidationError(qc.Definition.Name(), "missing required parameter %q", p.Name)
		}
	}
	return nil
}

// checkInjection runs libinjection over textual parameters and filter values.
// Rejected values are reported to the security audit log.
func (x *execution) checkInjection(_ context.Context, qc *models.QueryContext) error {
	injErr := findInjection(qc)
	if injErr == nil {
		return nil
	}
	details := make([]audit.SQLInjectionDetails, len(injErr.Results))
	for i, r := range injErr.Results {
		details[i] = audit.SQLInjectionDetails{
			ParamName:   r.ParamName,
			ParamValue:  cast.ToString(r.ParamValue),
			Fingerprint: r.Fingerprint,
		}
	}
	x.engine.opts.Auditor.LogInjectionAttempt(qc.Definition.Name(), x.id, qc.Security, details)
	return apperrors.NewValidationError(qc.Definition.Name(), "%s", injErr.Error())
}

func findInjection(qc *models.QueryContext) *qsql.InjectionError {
	values := make(map[string]any, len(qc.Params)+len(qc.Filters))
	for k, v := range qc.Params {
		values[k] = v
	}
	for i, f := range qc.Filters {
		values[fmt.Sprintf("filter[%d].%s", i, f.Attribute)] = f.Values
	}

	var injErr *qsql.InjectionError
	if errors.As(qsql.GuardParameters(values), &injErr) {
		return injErr
	}
	return nil
}

// resolveVisibility evaluates every attribute's security rule once per
// execution. The pipeline and request validation read the result.
func resolveVisibility(_ context.Context, qc *models.QueryContext) error {
	attrs := qc.Definition.Attributes()
	qc.Visibility = make(map[string]bool, len(attrs))
	for _, a := range attrs {
		qc.Visibility[a.Name] = a.Visible(qc.Security)
	}
	return nil
}

// SumAggregator returns a post-processor that totals numeric attributes into
// Result.Aggregates under "sum_<attribute>". Nil and masked values are skipped.
func SumAggregator(attributes ...string) models.PostProcessor {
	return models.PostProcessorFunc(func(_ context.Context, result *models.Result, _ *models.QueryContext) error {
		if result.Aggregates == nil {
			result.Aggregates = make(map[string]any, len(attributes))
		}
		for _, name := range attributes {
			sum := decimal.Zero
			for _, row := range result.Rows {
				v := row.Value(name)
				if v == nil {
					continue
				}
				d, err := toDecimal(v)
				if err != nil {
					return fmt.Errorf("failed to sum %q: %w", name, err)
				}
				sum = sum.Add(d)
			}
			result.Aggregates["sum_"+name] = sum
		}
		return nil
	})
}
