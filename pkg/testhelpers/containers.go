package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-query/pkg/retry"
)

// PostgresImage is the image used for PostgreSQL integration tests.
const PostgresImage = "postgres:16-alpine"

// TestDB is a PostgreSQL container loaded with the HR fixture and opened
// through the postgres datasource adapter.
type TestDB struct {
	Container testcontainers.Container
	Config    datasource.Config
	Conn      *datasource.Conn
	DB        *sql.DB
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns the PostgreSQL HR fixture shared by every integration
// test in the run. It skips in short mode since it needs Docker.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = startPostgres(context.Background())
	})
	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}
	return sharedTestDB
}

func startPostgres(ctx context.Context) (*TestDB, error) {
	const user, password, database = "hr", "test_password", "hr"

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       database,
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return nil, fmt.Errorf("invalid container port %q: %w", mapped.Port(), err)
	}

	cfg := datasource.Config{
		Type:         "postgres",
		Host:         host,
		Port:         port,
		User:         user,
		Password:     password,
		Database:     database,
		SSLMode:      "disable",
		MaxOpenConns: 4,
	}

	// The migration driver closes its handle, so it gets a connection of its own.
	migrationConn, err := datasource.Open(ctx, cfg, retry.DefaultConfig(), zap.NewNop())
	if err != nil {
		return nil, err
	}
	err = RunHRMigrations(migrationConn.DB, "postgres", zap.NewNop())
	_ = migrationConn.Close()
	if err != nil {
		return nil, err
	}

	conn, err := datasource.Open(ctx, cfg, retry.DefaultConfig(), zap.NewNop())
	if err != nil {
		return nil, err
	}
	return &TestDB{Container: container, Config: cfg, Conn: conn, DB: conn.DB}, nil
}
