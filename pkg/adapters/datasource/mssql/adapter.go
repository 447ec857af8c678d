// Package mssql opens Microsoft SQL Server datasources with SQL or Azure AD
// service principal authentication.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support

	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
)

// Open opens a SQL Server connection pool without contacting the server.
func Open(_ context.Context, ds datasource.Config) (*sql.DB, func(), error) {
	cfg, err := FromDatasource(ds)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	driver, dsn := cfg.connectionString()
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s connection: %w", cfg.AuthMethod, err)
	}
	datasource.ApplyPoolSettings(db, ds)
	return db, nil, nil
}
