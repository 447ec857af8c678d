package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSQLiteHRDB(t *testing.T) {
	db := NewSQLiteHRDB(t)

	var total, active int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM emp").Scan(&total))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM emp WHERE active = 1").Scan(&active))

	assert.Equal(t, HREmployees, total)
	assert.Equal(t, HRActiveEmployees, active)
}

func TestRunHRMigrations_UnknownEngine(t *testing.T) {
	err := RunHRMigrations(nil, "oracle", zap.NewNop())
	assert.ErrorContains(t, err, `no HR fixture for engine "oracle"`)
}
