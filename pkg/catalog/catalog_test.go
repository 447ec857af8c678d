package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-query/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-query/pkg/auth"
	"github.com/ekaya-inc/ekaya-query/pkg/engine"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
	"github.com/ekaya-inc/ekaya-query/pkg/testhelpers"
)

func principal(sub string, roles ...string) *auth.Principal {
	return auth.NewPrincipal(&auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
		Roles:            roles,
	})
}

func TestLoad_HRCatalog(t *testing.T) {
	defs, err := Load("testdata/hr.yaml", Defaults{Dialect: "sqlite", FetchSize: 25})
	require.NoError(t, err)
	require.Len(t, defs, 2)

	employees := defs[0]
	assert.Equal(t, "employees", employees.Name())
	assert.Equal(t, "sqlite", employees.Dialect())
	assert.Equal(t, 50, employees.MaxPageSize())
	assert.Equal(t, 25, employees.FetchSize())
	assert.Equal(t, 5*time.Second, employees.Timeout())
	assert.Len(t, employees.PostProcessors(), 1)

	active, ok := employees.Param("active")
	require.True(t, ok)
	assert.Equal(t, models.TypeBool, active.Type)
	assert.Equal(t, true, active.Default)

	name, ok := employees.Param("name")
	require.True(t, ok)
	assert.NotNil(t, name.Processor)

	salary, ok := employees.Attribute("salary")
	require.True(t, ok)
	assert.Equal(t, models.TypeDecimal, salary.Type)
	assert.False(t, salary.Visible(principal("bob", "sales")))
	assert.True(t, salary.Visible(principal("alice", "hr")))

	display, ok := employees.Attribute("displayName")
	require.True(t, ok)
	assert.True(t, display.Virtual)
	assert.Equal(t, "e.first_name", display.SortColumn())
	assert.Equal(t, []string{"firstName", "lastName"}, display.DependsOn)

	departments := defs[1]
	assert.Equal(t, "sqlite", departments.Dialect())
	assert.Equal(t, 10, departments.MaxPageSize())
	assert.Empty(t, departments.PostProcessors())
}

func TestParse_Errors(t *testing.T) {
	const query = `
queries:
  - name: q
    dialect: postgres
    sql: SELECT id FROM t
    attributes:
      - name: id
`

	tests := []struct {
		name       string
		yaml       string
		wantErr    string
		definition bool
	}{
		{
			name:    "malformed yaml",
			yaml:    "queries: [",
			wantErr: "failed to parse catalog",
		},
		{
			name:    "no queries",
			yaml:    "defaults:\n  dialect: postgres\n",
			wantErr: "declares no queries",
		},
		{
			name:    "duplicate names",
			yaml:    query + "  - name: q\n    sql: SELECT 1\n",
			wantErr: `duplicate query name "q"`,
		},
		{
			name:    "unknown attribute type",
			yaml:    "queries:\n  - name: q\n    sql: SELECT id FROM t\n    attributes:\n      - name: id\n        type: money\n",
			wantErr: `attribute "id": unknown data type "money"`,
		},
		{
			name:    "unknown formatter",
			yaml:    "queries:\n  - name: q\n    sql: SELECT id FROM t\n    attributes:\n      - name: id\n        format: shout\n",
			wantErr: `unknown formatter "shout"`,
		},
		{
			name:    "unknown processor",
			yaml:    "queries:\n  - name: q\n    sql: SELECT id FROM t WHERE x = :x\n    params:\n      - name: x\n        processor: reverse\n    attributes:\n      - name: id\n",
			wantErr: `unknown parameter processor "reverse"`,
		},
		{
			name:    "bad default",
			yaml:    "queries:\n  - name: q\n    sql: SELECT id FROM t WHERE x = :x\n    params:\n      - name: x\n        type: int\n        default: lots\n    attributes:\n      - name: id\n",
			wantErr: `parameter "x" default`,
		},
		{
			name:    "bad template",
			yaml:    "queries:\n  - name: q\n    sql: SELECT id FROM t\n    attributes:\n      - name: id\n      - name: label\n        template: \"{{.id\"\n",
			wantErr: `attribute "label": template`,
		},
		{
			name:       "missing dialect",
			yaml:       "queries:\n  - name: q\n    sql: SELECT id FROM t\n    attributes:\n      - name: id\n",
			wantErr:    "dialect is required",
			definition: true,
		},
		{
			name:       "criteria without placeholder",
			yaml:       "queries:\n  - name: q\n    dialect: postgres\n    sql: SELECT id FROM t\n    criteria:\n      - name: c\n        sql: AND id = 1\n    attributes:\n      - name: id\n",
			wantErr:    "has no --c placeholder",
			definition: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), Defaults{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.definition, errors.Is(err, apperrors.ErrDefinition))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/missing.yaml", Defaults{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read catalog")
}

func newCatalogEngine(t *testing.T) *engine.Engine {
	t.Helper()
	defs, err := Load("testdata/hr.yaml", Defaults{Dialect: "sqlite"})
	require.NoError(t, err)

	e := engine.New(testhelpers.NewSQLiteHRDB(t), zaptest.NewLogger(t), engine.Options{Prewarm: true, WarmConcurrency: 2})
	require.NoError(t, e.RegisterAll(context.Background(), defs...))
	return e
}

func TestCatalog_ExecutesAgainstSQLite(t *testing.T) {
	e := newCatalogEngine(t)
	ctx := context.Background()

	req := models.Request{
		Params:   map[string]any{"deptId": 10},
		Sorts:    []models.Sort{{Attribute: "id", Direction: models.Asc}},
		Page:     &models.Page{Start: 0, End: 3},
		Security: principal("alice", "hr"),
	}
	result, err := e.Execute(ctx, "employees", req)
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)

	first := result.Rows[0]
	assert.Equal(t, 1, first.Value("id"))
	assert.Equal(t, "ADAMS", first.Value("lastName"))
	assert.Equal(t, "ann@example.com", first.Value("email"))
	assert.Equal(t, "Engineering", first.Value("department"))
	assert.Equal(t, "01 Jan 2020", first.Value("hired"))
	assert.Equal(t, "Ann A.", first.Value("displayName"))
	assert.Equal(t, "Engineering/41500", first.Value("salaryBand"))

	var ids []any
	for _, row := range result.Rows {
		ids = append(ids, row.Value("id"))
	}
	assert.Equal(t, []any{1, 4, 7}, ids)

	sum, ok := result.Aggregates["sum_salary"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, sum.Equal(decimal.NewFromInt(138000)), sum.String())
}

func TestCatalog_MasksByRole(t *testing.T) {
	e := newCatalogEngine(t)

	req := models.Request{
		Params:   map[string]any{"deptId": 10},
		Sorts:    []models.Sort{{Attribute: "id", Direction: models.Asc}},
		Page:     &models.Page{Start: 0, End: 1},
		Security: principal("bob", "sales"),
	}
	result, err := e.Execute(context.Background(), "employees", req)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Nil(t, row.Value("email"))
	assert.Nil(t, row.Value("salary"))
	assert.Nil(t, row.Value("salaryBand"))
	assert.Equal(t, "Ann A.", row.Value("displayName"))
}

func TestCatalog_ParamProcessorBuildsPattern(t *testing.T) {
	e := newCatalogEngine(t)

	result, err := e.Execute(context.Background(), "employees", models.Request{
		Params:   map[string]any{"name": "Cl"},
		Security: principal("alice", "hr"),
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, 3, result.Rows[0].Value("id"))
	assert.Equal(t, "CLARK", result.Rows[0].Value("lastName"))
}

func TestCatalog_Departments(t *testing.T) {
	e := newCatalogEngine(t)

	result, err := e.Execute(context.Background(), "departments", models.Request{
		Sorts: []models.Sort{{Attribute: "id", Direction: models.Desc}},
		Page:  &models.Page{Start: 0, End: 10},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, "Support", result.Rows[0].Value("name"))
	assert.Equal(t, "Engineering", result.Rows[2].Value("name"))
}
