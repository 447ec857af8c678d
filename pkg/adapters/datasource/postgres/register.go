package postgres

import (
	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-query/pkg/dialect"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Dialect:     dialect.Postgres,
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		Open: Open,
	})
}
