//go:build integration

package testhelpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresHRFixture(t *testing.T) {
	testDB := GetTestDB(t)
	ctx := context.Background()

	assert.Equal(t, "postgres", testDB.Conn.Dialect)

	tests := []struct {
		query    string
		expected int
	}{
		{"SELECT COUNT(*) FROM emp", HREmployees},
		{"SELECT COUNT(*) FROM emp WHERE active", HRActiveEmployees},
		{"SELECT COUNT(*) FROM dept", HRDepartments},
	}

	for _, tt := range tests {
		var count int
		require.NoError(t, testDB.DB.QueryRowContext(ctx, tt.query).Scan(&count))
		assert.Equal(t, tt.expected, count, tt.query)
	}
}
