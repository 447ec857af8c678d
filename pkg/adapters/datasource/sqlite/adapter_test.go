package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-query/pkg/retry"
)

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN(datasource.Config{Path: "/data/hr.db"})
	require.NoError(t, err)
	assert.Equal(t, "file:/data/hr.db?_pragma=busy_timeout%285000%29&_pragma=foreign_keys%281%29", dsn)

	dsn, err = buildDSN(datasource.Config{Path: Memory})
	require.NoError(t, err)
	assert.Equal(t, Memory, dsn)

	_, err = buildDSN(datasource.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestOpen_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hr.db")

	conn, err := datasource.Open(ctx, datasource.Config{Type: "sqlite", Path: path}, retry.DefaultConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "sqlite", conn.Dialect)

	_, err = conn.DB.ExecContext(ctx, "CREATE TABLE dept (dept_id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	_, err = conn.DB.ExecContext(ctx, "INSERT INTO dept VALUES (10, 'Engineering')")
	require.NoError(t, err)

	var name string
	require.NoError(t, conn.DB.QueryRowContext(ctx, "SELECT name FROM dept WHERE dept_id = ?", 10).Scan(&name))
	assert.Equal(t, "Engineering", name)

	var fk int
	require.NoError(t, conn.DB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	conn, err := datasource.Open(ctx, datasource.Config{Type: "sqlite", Path: Memory, MaxOpenConns: 8}, nil, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, 1, conn.DB.Stats().MaxOpenConnections)

	_, err = conn.DB.ExecContext(ctx, "CREATE TABLE t (x INTEGER)")
	require.NoError(t, err)
	var n int
	require.NoError(t, conn.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
	assert.Equal(t, 0, n)
}
