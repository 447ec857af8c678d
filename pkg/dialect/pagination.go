package dialect

import (
	"github.com/ekaya-inc/ekaya-query/pkg/models"
	qsql "github.com/ekaya-inc/ekaya-query/pkg/sql"
)

// LimitOffset appends LIMIT/OFFSET (PostgreSQL, MySQL, SQLite).
type LimitOffset struct{}

func (LimitOffset) Paginate(sqlText string, page models.Page, _ bool) (string, map[string]any) {
	return sqlText + "\nLIMIT :" + qsql.TokenLimit + " OFFSET :" + qsql.TokenOffset,
		map[string]any{qsql.TokenLimit: page.Size(), qsql.TokenOffset: page.Start}
}

// OffsetFetch appends the SQL:2008 OFFSET ... FETCH NEXT clause (SQL Server,
// Oracle 12c+). SQL Server rejects OFFSET without ORDER BY, so RequireOrderBy
// adds a neutral ordering when the query has none.
type OffsetFetch struct {
	RequireOrderBy bool
}

func (p OffsetFetch) Paginate(sqlText string, page models.Page, ordered bool) (string, map[string]any) {
	if p.RequireOrderBy && !ordered {
		sqlText += "\nORDER BY (SELECT NULL)"
	}
	return sqlText + "\nOFFSET :" + qsql.TokenOffset + " ROWS FETCH NEXT :" + qsql.TokenLimit + " ROWS ONLY",
		map[string]any{qsql.TokenOffset: page.Start, qsql.TokenLimit: page.Size()}
}

// RowNum emulates pagination with a double ROWNUM wrap (Oracle before 12c).
type RowNum struct{}

func (RowNum) Paginate(sqlText string, page models.Page, _ bool) (string, map[string]any) {
	wrapped := "SELECT * FROM (\nSELECT q_.*, ROWNUM rnum FROM (\n" + sqlText +
		"\n) q_ WHERE ROWNUM <= :" + qsql.TokenEndRow +
		"\n) WHERE rnum > :" + qsql.TokenStartRow
	return wrapped, map[string]any{qsql.TokenStartRow: page.Start, qsql.TokenEndRow: page.End}
}
