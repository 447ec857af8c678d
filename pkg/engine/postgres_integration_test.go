//go:build integration

package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-query/pkg/dialect"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
	"github.com/ekaya-inc/ekaya-query/pkg/testhelpers"
)

func TestEngine_Postgres(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	require.Equal(t, dialect.Postgres, testDB.Conn.Dialect)

	e := New(testDB.DB, zaptest.NewLogger(t), Options{Prewarm: true, WarmConcurrency: 2, InjectionCheck: true})
	require.NoError(t, e.RegisterAll(context.Background(),
		employeesDefinition(t, dialect.Postgres),
		plainEmployeesDefinition(t, dialect.Postgres)))
	require.True(t, e.Cache("employees").IsInitialized())

	t.Run("pages are contiguous", func(t *testing.T) {
		first := execute(t, e, "employees", models.Request{Sorts: byID(), Page: page(0, 10), IncludeMetadata: true})
		second := execute(t, e, "employees", models.Request{Sorts: byID(), Page: page(10, 20), IncludeMetadata: true})
		all := execute(t, e, "employees", models.Request{Sorts: byID(), Page: page(0, 20)})

		assert.Equal(t, rowIDs(all.Rows), append(rowIDs(first.Rows), rowIDs(second.Rows)...))
		require.NotNil(t, first.TotalCount)
		assert.Equal(t, int64(testhelpers.HRActiveEmployees), *first.TotalCount)
		assert.True(t, first.Metadata.CacheUsed)
	})

	t.Run("criteria and masking", func(t *testing.T) {
		result := execute(t, e, "employees", models.Request{
			Params:   map[string]any{"deptId": 10},
			Sorts:    byID(),
			Page:     page(0, 3),
			Security: hrUser,
		})
		require.Len(t, result.Rows, 3)
		assert.Equal(t, []int{1, 4, 7}, rowIDs(result.Rows))
		salary, ok := result.Rows[0].Value("salary").(decimal.Decimal)
		require.True(t, ok, "salary is %T", result.Rows[0].Value("salary"))
		assert.True(t, decimal.RequireFromString("41500").Equal(salary))

		masked := execute(t, e, "employees", models.Request{Sorts: byID(), Page: page(0, 1), Security: salesUser})
		assert.Nil(t, masked.Rows[0].Value("salary"))
	})

	t.Run("filters wrap a query without placeholders", func(t *testing.T) {
		result := execute(t, e, "employees_plain", models.Request{
			Filters: []models.Filter{{Attribute: "lastName", Operator: models.OpEquals, Values: []any{"Adams"}}},
		})
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "Ann Adams", result.Rows[0].Value("fullName"))
	})
}
