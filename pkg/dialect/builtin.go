package dialect

import sq "github.com/Masterminds/squirrel"

// Built-in dialect names.
const (
	Postgres  = "postgres"
	MySQL     = "mysql"
	SQLite    = "sqlite"
	MSSQL     = "mssql"
	Oracle    = "oracle"
	Oracle12c = "oracle12c"
)

func init() {
	Register(Dialect{Name: Postgres, DisplayName: "PostgreSQL", Placeholder: sq.Dollar, Pagination: LimitOffset{}})
	Register(Dialect{Name: MySQL, DisplayName: "MySQL", Placeholder: sq.Question, Pagination: LimitOffset{}})
	Register(Dialect{Name: SQLite, DisplayName: "SQLite", Placeholder: sq.Question, Pagination: LimitOffset{}})
	Register(Dialect{Name: MSSQL, DisplayName: "Microsoft SQL Server", Placeholder: sq.AtP, Pagination: OffsetFetch{RequireOrderBy: true}})
	Register(Dialect{Name: Oracle, DisplayName: "Oracle (ROWNUM)", Placeholder: sq.Colon, Pagination: RowNum{}})
	Register(Dialect{Name: Oracle12c, DisplayName: "Oracle 12c+", Placeholder: sq.Colon, Pagination: OffsetFetch{}})
}
