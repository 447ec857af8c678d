package datasource

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-query/pkg/retry"
)

var fastRetry = &retry.Config{
	MaxRetries:   3,
	InitialDelay: time.Millisecond,
	MaxDelay:     5 * time.Millisecond,
	Multiplier:   2.0,
}

// registerMock registers an adapter type whose opener hands out db.
func registerMock(t *testing.T, dsType string, db *sql.DB) *bool {
	t.Helper()
	released := false
	Register(AdapterRegistration{
		Info: AdapterInfo{Type: dsType, DisplayName: dsType, Dialect: "postgres"},
		Open: func(context.Context, Config) (*sql.DB, func(), error) {
			return db, func() { released = true }, nil
		},
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, dsType)
		registryMu.Unlock()
	})
	return &released
}

func TestOpen_Success(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	released := registerMock(t, "mock-ok", db)

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectClose()

	core, logs := observer.New(zapcore.InfoLevel)
	conn, err := Open(context.Background(), Config{Type: "mock-ok"}, fastRetry, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, "postgres", conn.Dialect)
	assert.Equal(t, 1, logs.FilterMessage("Datasource connected").Len())

	require.NoError(t, conn.Close())
	assert.True(t, *released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_RetriesTransientFailures(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	registerMock(t, "mock-flaky", db)

	mock.ExpectPing().WillReturnError(errors.New("dial tcp: connection refused"))
	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))

	core, logs := observer.New(zapcore.WarnLevel)
	conn, err := Open(context.Background(), Config{Type: "mock-flaky"}, fastRetry, zap.New(core))
	require.NoError(t, err)
	defer conn.Close()

	warnings := logs.FilterMessage("Datasource connection check failed").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(1), warnings[0].ContextMap()["attempt"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_PermanentFailureReleases(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	released := registerMock(t, "mock-denied", db)

	mock.ExpectPing().WillReturnError(errors.New("password authentication failed"))

	_, err = Open(context.Background(), Config{Type: "mock-denied"}, fastRetry, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to mock-denied datasource")
	assert.Contains(t, err.Error(), "ping failed")
	assert.True(t, *released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(context.Background(), Config{Type: "db2"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported datasource type: db2")
	assert.Contains(t, err.Error(), "available: ")
}

func TestOpen_OpenerError(t *testing.T) {
	Register(AdapterRegistration{
		Info: AdapterInfo{Type: "mock-broken"},
		Open: func(context.Context, Config) (*sql.DB, func(), error) {
			return nil, nil, errors.New("host is required")
		},
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, "mock-broken")
		registryMu.Unlock()
	})

	_, err := Open(context.Background(), Config{Type: "mock-broken"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")
}

func TestRegistry(t *testing.T) {
	registerMock(t, "aaa-mock", nil)

	assert.True(t, IsRegistered("aaa-mock"))
	assert.False(t, IsRegistered("db2"))

	adapters := RegisteredAdapters()
	require.NotEmpty(t, adapters)
	assert.Equal(t, "aaa-mock", adapters[0].Type)
	for i := 1; i < len(adapters); i++ {
		assert.Less(t, adapters[i-1].Type, adapters[i].Type)
	}
}

func TestTestConnection_QueryFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("permission denied"))

	err = TestConnection(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test query failed")
}

func TestApplyPoolSettings(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ApplyPoolSettings(db, Config{MaxOpenConns: 7})
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}
