package mysql

import (
	"github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-query/pkg/dialect"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "mysql",
			DisplayName: "MySQL",
			Dialect:     dialect.MySQL,
			Description: "Connect to MySQL 5.7+ and MariaDB",
		},
		Open: Open,
	})
}
