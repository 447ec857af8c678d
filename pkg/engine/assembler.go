package engine

import (
	"maps"
	"strings"

	"github.com/ekaya-inc/ekaya-query/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-query/pkg/dialect"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
	qsql "github.com/ekaya-inc/ekaya-query/pkg/sql"
)

// Assembly is the SQL produced for one execution, in named (:token) form.
type Assembly struct {
	SQL         string
	Params      map[string]any
	CountSQL    string // empty when no count query is needed
	CountParams map[string]any
	Ordered     bool
}

// Assemble builds the final SQL for a validated request:
//  1. criteria fragments are substituted or elided
//  2. filters are rendered at --filters, or by wrapping the query
//  3. sorts become ORDER BY at --orderBy, or appended
//  4. the dialect paginates the query
//
// Applied criteria and filters are recorded on qc. The returned parameter
// maps contain exactly the tokens that remain in each statement.
func Assemble(def *models.QueryDefinition, d dialect.Dialect, qc *models.QueryContext, withCount bool) (*Assembly, error) {
	sqlText := def.SQL()

	qc.AppliedCriteria = qc.AppliedCriteria[:0]
	for _, c := range def.Criteria() {
		applies, reason := criteriaApplies(c, qc)
		if !applies {
			sqlText = qsql.ReplacePlaceholder(sqlText, c.Name, "")
			continue
		}
		sqlText = qsql.ReplacePlaceholder(sqlText, c.Name, c.SQL)
		qc.AppliedCriteria = append(qc.AppliedCriteria, models.AppliedCriteria{
			Name:   c.Name,
			SQL:    c.SQL,
			Params: paramSubset(c.SQL, qc.Params),
			Reason: reason,
		})
	}

	// Without a --filters placeholder the query is wrapped, and the outer
	// query only sees the unqualified column names of the inner select list.
	wrapped := len(qc.Filters) > 0 && qsql.CountPlaceholder(sqlText, qsql.PlaceholderFilters) == 0
	column := func(c string) string { return c }
	if wrapped {
		column = unqualified
	}

	conds, filterParams, err := renderFilters(def, qc, column)
	if err != nil {
		return nil, err
	}
	var body string
	if wrapped {
		inner := trimSQL(qsql.BlankPlaceholders(sqlText))
		sqlText = wrapFilters(inner, conds)
		body = wrapFilters(qsql.StripOrderBy(inner), conds)
	} else {
		if len(conds) > 0 {
			sqlText = qsql.ReplacePlaceholder(sqlText, qsql.PlaceholderFilters, "AND "+strings.Join(conds, " AND "))
		}
		body = trimSQL(qsql.BlankPlaceholders(sqlText))
	}

	mainSQL := sqlText
	orderBy, err := orderByClause(def, qc.Sorts, column)
	if err != nil {
		return nil, err
	}
	if orderBy != "" {
		if !wrapped && qsql.CountPlaceholder(mainSQL, qsql.PlaceholderOrderBy) > 0 {
			mainSQL = qsql.ReplacePlaceholder(mainSQL, qsql.PlaceholderOrderBy, orderBy)
		} else {
			mainSQL = trimSQL(qsql.BlankPlaceholders(mainSQL)) + "\n" + orderBy
		}
	}
	mainSQL = trimSQL(qsql.BlankPlaceholders(mainSQL))
	ordered := orderBy != "" || qsql.HasOrderBy(mainSQL)

	values := make(map[string]any, len(filterParams))
	maps.Copy(values, filterParams)
	if qc.Page != nil {
		var pageParams map[string]any
		mainSQL, pageParams = d.Pagination.Paginate(mainSQL, *qc.Page, ordered)
		maps.Copy(values, pageParams)
	}

	out := &Assembly{SQL: mainSQL, Ordered: ordered}
	if out.Params, err = resolveParams(def, qc, mainSQL, values); err != nil {
		return nil, err
	}
	if withCount {
		out.CountSQL = CountSQL(body)
		if out.CountParams, err = resolveParams(def, qc, out.CountSQL, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func wrapFilters(inner string, conds []string) string {
	return "SELECT * FROM (\n" + inner + "\n) f_ WHERE " + strings.Join(conds, " AND ")
}

// CountSQL wraps an assembled query body in a row count. A trailing ORDER BY
// is dropped from the body; SQL Server rejects one inside a subquery.
func CountSQL(body string) string {
	return "SELECT COUNT(*) FROM (\n" + qsql.StripOrderBy(body) + "\n) count_q"
}

// criteriaApplies evaluates the custom condition, or else requires every
// non-reserved token of the fragment to be present in the runtime parameters.
func criteriaApplies(c models.CriteriaDef, qc *models.QueryContext) (bool, string) {
	if c.Condition != nil {
		return c.Condition(qc), models.ReasonCondition
	}
	for _, name := range qsql.ExtractParameters(c.SQL) {
		if qsql.IsReservedToken(name) {
			continue
		}
		if !qc.HasParam(name) {
			return false, ""
		}
	}
	return true, models.ReasonParamsPresent
}

func paramSubset(fragment string, params map[string]any) map[string]any {
	subset := make(map[string]any)
	for _, name := range qsql.ExtractParameters(fragment) {
		if v, ok := params[name]; ok {
			subset[name] = v
		}
	}
	return subset
}

func renderFilters(def *models.QueryDefinition, qc *models.QueryContext, column func(string) string) ([]string, map[string]any, error) {
	if len(qc.Filters) == 0 {
		qc.AppliedFilters = nil
		return nil, nil, nil
	}

	reserved := append(qsql.ReservedTokens(), qsql.ExtractParameters(def.SQL())...)
	for _, p := range def.Params() {
		reserved = append(reserved, p.Name)
	}
	namer := newParamNamer(reserved)

	conds := make([]string, 0, len(qc.Filters))
	params := make(map[string]any)
	applied := make([]models.AppliedFilter, 0, len(qc.Filters))
	for _, f := range qc.Filters {
		attr, ok := def.Attribute(f.Attribute)
		if !ok || !attr.Filterable {
			return nil, nil, apperrors.NewValidationError(def.Name(), "attribute %q is not filterable", f.Attribute)
		}
		af, fp, err := renderFilter(attr, column(attr.Column), f, namer)
		if err != nil {
			return nil, nil, apperrors.NewValidationError(def.Name(), "%s", err.Error())
		}
		conds = append(conds, af.SQL)
		maps.Copy(params, fp)
		applied = append(applied, af)
	}
	qc.AppliedFilters = applied
	return conds, params, nil
}

func orderByClause(def *models.QueryDefinition, sorts []models.Sort, column func(string) string) (string, error) {
	if len(sorts) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(sorts))
	for _, s := range sorts {
		attr, ok := def.Attribute(s.Attribute)
		if !ok {
			return "", apperrors.NewValidationError(def.Name(), "unknown sort attribute %q", s.Attribute)
		}
		col := attr.SortColumn()
		if col == "" {
			return "", apperrors.NewValidationError(def.Name(), "attribute %q is not sortable", s.Attribute)
		}
		dir := s.Direction
		if dir == "" {
			dir = models.Asc
		}
		parts = append(parts, column(col)+" "+string(dir))
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

// resolveParams collects the value of every token in sqlText: generated
// filter and pagination values first, then runtime parameters, then defaults.
func resolveParams(def *models.QueryDefinition, qc *models.QueryContext, sqlText string, generated map[string]any) (map[string]any, error) {
	params := make(map[string]any)
	for _, name := range qsql.ExtractParameters(sqlText) {
		if v, ok := generated[name]; ok {
			params[name] = v
			continue
		}
		if v, ok := qc.Params[name]; ok {
			params[name] = v
			continue
		}
		if p, ok := def.Param(name); ok {
			params[name] = p.Default
			continue
		}
		return nil, apperrors.NewValidationError(def.Name(), "no value for token :%s", name)
	}
	return params, nil
}

func trimSQL(s string) string {
	return strings.TrimRight(s, " \t\r\n")
}
