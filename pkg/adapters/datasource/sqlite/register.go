package sqlite

import (
	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-query/pkg/dialect"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "sqlite",
			DisplayName: "SQLite",
			Dialect:     dialect.SQLite,
			Description: "Open a local SQLite database file",
		},
		Open: Open,
	})
}
