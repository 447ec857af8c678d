package engine

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// filterSqlizer maps an operator onto its squirrel expression.
func filterSqlizer(column string, f models.Filter) (sq.Sqlizer, error) {
	switch f.Operator {
	case models.OpEquals:
		return sq.Eq{column: f.Values[0]}, nil
	case models.OpNotEquals:
		return sq.NotEq{column: f.Values[0]}, nil
	case models.OpLike:
		return sq.Like{column: f.Values[0]}, nil
	case models.OpIn:
		return sq.Eq{column: f.Values}, nil
	case models.OpNotIn:
		return sq.NotEq{column: f.Values}, nil
	case models.OpGT:
		return sq.Gt{column: f.Values[0]}, nil
	case models.OpGTE:
		return sq.GtOrEq{column: f.Values[0]}, nil
	case models.OpLT:
		return sq.Lt{column: f.Values[0]}, nil
	case models.OpLTE:
		return sq.LtOrEq{column: f.Values[0]}, nil
	case models.OpBetween:
		return sq.Expr(column+" BETWEEN ? AND ?", f.Values[0], f.Values[1]), nil
	case models.OpIsNull:
		return sq.Eq{column: nil}, nil
	case models.OpIsNotNull:
		return sq.NotEq{column: nil}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", f.Operator)
}

// paramNamer hands out bind names that never collide with declared
// parameters, reserved tokens or earlier filter parameters.
type paramNamer struct {
	taken map[string]bool
}

func newParamNamer(reserved []string) *paramNamer {
	n := &paramNamer{taken: make(map[string]bool, len(reserved))}
	for _, r := range reserved {
		n.taken[r] = true
	}
	return n
}

func (n *paramNamer) next(base string) string {
	name := base
	for i := 2; n.taken[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	n.taken[name] = true
	return name
}

// renderFilter turns one filter on column into a named SQL condition. Bind
// names are derived from the attribute and operator (salary_gt, deptId_in_0, ...).
func renderFilter(attr models.AttributeDef, column string, f models.Filter, namer *paramNamer) (models.AppliedFilter, map[string]any, error) {
	sqlizer, err := filterSqlizer(column, f)
	if err != nil {
		return models.AppliedFilter{}, nil, err
	}
	cond, args, err := sqlizer.ToSql()
	if err != nil {
		return models.AppliedFilter{}, nil, fmt.Errorf("failed to render filter on %q: %w", attr.Name, err)
	}

	base := attr.Name + "_" + strings.ToLower(string(f.Operator))
	params := make(map[string]any, len(args))
	names := make([]string, 0, len(args))

	var buf strings.Builder
	argIdx := 0
	for i := 0; i < len(cond); i++ {
		if cond[i] != '?' {
			buf.WriteByte(cond[i])
			continue
		}
		name := base
		if len(args) > 1 {
			name = fmt.Sprintf("%s_%d", base, argIdx)
		}
		name = namer.next(name)
		buf.WriteString(":" + name)
		params[name] = args[argIdx]
		names = append(names, name)
		argIdx++
	}

	return models.AppliedFilter{
		Attribute: attr.Name,
		Column:    column,
		Operator:  f.Operator,
		SQL:       buf.String(),
		Params:    names,
	}, params, nil
}
