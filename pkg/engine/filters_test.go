package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

func TestRenderFilter(t *testing.T) {
	attr := models.AttributeDef{Name: "salary", Column: "e.salary", Filterable: true}

	tests := []struct {
		name       string
		op         models.Operator
		values     []any
		wantSQL    string
		wantParams map[string]any
	}{
		{name: "equals", op: models.OpEquals, values: []any{100}, wantSQL: "e.salary = :salary_equals", wantParams: map[string]any{"salary_equals": 100}},
		{name: "not equals", op: models.OpNotEquals, values: []any{100}, wantSQL: "e.salary <> :salary_not_equals", wantParams: map[string]any{"salary_not_equals": 100}},
		{name: "like", op: models.OpLike, values: []any{"4%"}, wantSQL: "e.salary LIKE :salary_like", wantParams: map[string]any{"salary_like": "4%"}},
		{name: "in", op: models.OpIn, values: []any{1, 2, 3}, wantSQL: "e.salary IN (:salary_in_0,:salary_in_1,:salary_in_2)", wantParams: map[string]any{"salary_in_0": 1, "salary_in_1": 2, "salary_in_2": 3}},
		{name: "not in", op: models.OpNotIn, values: []any{1, 2}, wantSQL: "e.salary NOT IN (:salary_not_in_0,:salary_not_in_1)", wantParams: map[string]any{"salary_not_in_0": 1, "salary_not_in_1": 2}},
		{name: "gt", op: models.OpGT, values: []any{1}, wantSQL: "e.salary > :salary_gt", wantParams: map[string]any{"salary_gt": 1}},
		{name: "gte", op: models.OpGTE, values: []any{1}, wantSQL: "e.salary >= :salary_gte", wantParams: map[string]any{"salary_gte": 1}},
		{name: "lt", op: models.OpLT, values: []any{1}, wantSQL: "e.salary < :salary_lt", wantParams: map[string]any{"salary_lt": 1}},
		{name: "lte", op: models.OpLTE, values: []any{1}, wantSQL: "e.salary <= :salary_lte", wantParams: map[string]any{"salary_lte": 1}},
		{name: "between", op: models.OpBetween, values: []any{1, 9}, wantSQL: "e.salary BETWEEN :salary_between_0 AND :salary_between_1", wantParams: map[string]any{"salary_between_0": 1, "salary_between_1": 9}},
		{name: "is null", op: models.OpIsNull, wantSQL: "e.salary IS NULL", wantParams: map[string]any{}},
		{name: "is not null", op: models.OpIsNotNull, wantSQL: "e.salary IS NOT NULL", wantParams: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			af, params, err := renderFilter(attr, attr.Column, models.Filter{Attribute: "salary", Operator: tt.op, Values: tt.values}, newParamNamer(nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, af.SQL)
			assert.Equal(t, tt.wantParams, params)
			assert.Equal(t, "e.salary", af.Column)
			assert.Equal(t, tt.op, af.Operator)
			assert.Len(t, af.Params, len(tt.wantParams))
		})
	}
}

func TestRenderFilter_UnsupportedOperator(t *testing.T) {
	attr := models.AttributeDef{Name: "salary", Column: "salary"}
	_, _, err := renderFilter(attr, attr.Column, models.Filter{Attribute: "salary", Operator: "NEAR", Values: []any{1}}, newParamNamer(nil))
	assert.EqualError(t, err, `unsupported operator "NEAR"`)
}

func TestParamNamer(t *testing.T) {
	n := newParamNamer([]string{"limit", "deptId_gt"})
	assert.Equal(t, "deptId_gt_2", n.next("deptId_gt"))
	assert.Equal(t, "deptId_gt_3", n.next("deptId_gt"))
	assert.Equal(t, "limit_2", n.next("limit"))
	assert.Equal(t, "name_like", n.next("name_like"))
}
