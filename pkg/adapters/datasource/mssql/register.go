package mssql

import (
	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-query/pkg/dialect"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Dialect:     dialect.MSSQL,
			Description: "Connect to SQL Server 2012+ and Azure SQL Database",
		},
		Open: Open,
	})
}
