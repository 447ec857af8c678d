package testhelpers

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

//go:embed migrations
var migrationsFS embed.FS

// Shape of the HR fixture.
const (
	HREmployees       = 25
	HRActiveEmployees = 20
	HRDepartments     = 3
)

// RunHRMigrations loads the HR fixture schema and rows. engine is "sqlite" or
// "postgres". The handle is closed when the migration finishes, so callers
// pass a dedicated one.
func RunHRMigrations(db *sql.DB, engine string, logger *zap.Logger) error {
	var (
		driver database.Driver
		err    error
	)
	switch engine {
	case "sqlite":
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case "postgres":
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return fmt.Errorf("no HR fixture for engine %q", engine)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+engine)
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, engine, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Debug("Applied HR fixture", zap.String("engine", engine), zap.Uint("version", version))
	return nil
}

// NewSQLiteHRFile creates a SQLite database file in t.TempDir loaded with
// the HR fixture and returns its path.
func NewSQLiteHRFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hr.db")
	migrationDB, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, RunHRMigrations(migrationDB, "sqlite", zap.NewNop()))
	return path
}

// NewSQLiteHRDB opens a fresh HR fixture database. It is closed when the
// test ends.
func NewSQLiteHRDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", NewSQLiteHRFile(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
