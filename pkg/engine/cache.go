package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-query/pkg/dialect"
	"github.com/ekaya-inc/ekaya-query/pkg/logging"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
	qsql "github.com/ekaya-inc/ekaya-query/pkg/sql"
)

// ColumnMeta describes one result column as reported by the driver.
type ColumnMeta struct {
	Name         string // lowercased
	DatabaseType string
	Type         SQLType
}

// MetadataCache holds the result shape of a query definition. It is built
// once by Warm and never modified afterwards. A nil or uninitialized cache
// makes the extractor fall back to live result metadata.
type MetadataCache struct {
	columns []ColumnMeta
	index   map[string]int
}

// NewMetadataCache builds a cache from column descriptions.
func NewMetadataCache(columns []ColumnMeta) *MetadataCache {
	c := &MetadataCache{
		columns: make([]ColumnMeta, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		col.Name = strings.ToLower(col.Name)
		c.columns[i] = col
		if _, dup := c.index[col.Name]; !dup {
			c.index[col.Name] = i
		}
	}
	return c
}

// IsInitialized reports whether the cache holds a usable column layout.
func (c *MetadataCache) IsInitialized() bool {
	return c != nil && len(c.columns) > 0
}

// ColumnIndex returns the ordinal of a column, matched case-insensitively.
func (c *MetadataCache) ColumnIndex(name string) (int, bool) {
	if !c.IsInitialized() {
		return 0, false
	}
	i, ok := c.index[strings.ToLower(name)]
	return i, ok
}

// ColumnType returns the SQL type of the column at ordinal i.
func (c *MetadataCache) ColumnType(i int) (SQLType, bool) {
	if !c.IsInitialized() || i < 0 || i >= len(c.columns) {
		return SQLUnknown, false
	}
	return c.columns[i].Type, true
}

// ColumnName returns the lowercased name of the column at ordinal i.
func (c *MetadataCache) ColumnName(i int) string {
	if !c.IsInitialized() || i < 0 || i >= len(c.columns) {
		return ""
	}
	return c.columns[i].Name
}

// ColumnCount returns the number of cached columns.
func (c *MetadataCache) ColumnCount() int {
	if c == nil {
		return 0
	}
	return len(c.columns)
}

// Columns returns a copy of the cached layout.
func (c *MetadataCache) Columns() []ColumnMeta {
	if c == nil {
		return nil
	}
	return append([]ColumnMeta(nil), c.columns...)
}

// ProbeSQL returns the metadata probe for a definition: the base SQL with all
// placeholders removed, wrapped in a predicate that matches no rows.
func ProbeSQL(def *models.QueryDefinition) string {
	return "SELECT * FROM (\n" + strings.TrimRight(qsql.BlankPlaceholders(def.SQL()), " \t\n") + "\n) probe_q WHERE 1=0"
}

// probeParams binds every token of the probe to the parameter default, or to
// zero for pagination tokens.
func probeParams(def *models.QueryDefinition, probe string) map[string]any {
	params := make(map[string]any)
	for _, name := range qsql.ExtractParameters(probe) {
		if qsql.IsReservedToken(name) {
			params[name] = 0
			continue
		}
		p, _ := def.Param(name)
		params[name] = p.Default
	}
	return params
}

// Warm runs the metadata probe and returns the resulting cache. When it fails
// the definition is still usable: executions read column types from the live
// result instead.
func Warm(ctx context.Context, db DB, def *models.QueryDefinition, d dialect.Dialect, logger *zap.Logger) (*MetadataCache, error) {
	probe := ProbeSQL(def)
	bound, args, err := qsql.Bind(probe, probeParams(def, probe), d.Placeholder)
	if err != nil {
		return nil, fmt.Errorf("failed to bind metadata probe: %w", err)
	}

	rows, err := db.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run metadata probe: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read probe column types: %w", err)
	}

	cache := NewMetadataCache(columnsFromTypes(types))
	logger.Debug("Metadata cache warmed",
		zap.String("query", def.Name()),
		zap.String("probe", logging.SanitizeQuery(bound)),
		zap.Int("columns", cache.ColumnCount()))
	return cache, nil
}

func columnsFromTypes(types []*sql.ColumnType) []ColumnMeta {
	cols := make([]ColumnMeta, len(types))
	for i, ct := range types {
		cols[i] = ColumnMeta{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
			Type:         MapDatabaseType(ct.DatabaseTypeName()),
		}
	}
	return cols
}
