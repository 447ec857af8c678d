package engine

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// scanTarget is a typed destination for one column of one row.
type scanTarget interface {
	dest() any
	value() any
}

type stringTarget struct{ v sql.NullString }

func (t *stringTarget) dest() any { return &t.v }
func (t *stringTarget) value() any {
	if !t.v.Valid {
		return nil
	}
	return t.v.String
}

type intTarget struct{ v sql.NullInt64 }

func (t *intTarget) dest() any { return &t.v }
func (t *intTarget) value() any {
	if !t.v.Valid {
		return nil
	}
	return int(t.v.Int64)
}

type longTarget struct{ v sql.NullInt64 }

func (t *longTarget) dest() any { return &t.v }
func (t *longTarget) value() any {
	if !t.v.Valid {
		return nil
	}
	return t.v.Int64
}

type decimalTarget struct{ v decimal.NullDecimal }

func (t *decimalTarget) dest() any { return &t.v }
func (t *decimalTarget) value() any {
	if !t.v.Valid {
		return nil
	}
	return t.v.Decimal
}

type floatTarget struct{ v sql.NullFloat64 }

func (t *floatTarget) dest() any { return &t.v }
func (t *floatTarget) value() any {
	if !t.v.Valid {
		return nil
	}
	return t.v.Float64
}

type boolTarget struct{ v sql.NullBool }

func (t *boolTarget) dest() any { return &t.v }
func (t *boolTarget) value() any {
	if !t.v.Valid {
		return nil
	}
	return t.v.Bool
}

// timeTarget accepts native times and the textual forms some drivers return
// (SQLite, MySQL without parseTime). Text it cannot parse is kept as a string.
type timeTarget struct{ v any }

func (t *timeTarget) dest() any { return &t.v }
func (t *timeTarget) value() any {
	switch v := t.v.(type) {
	case nil:
		return nil
	case time.Time:
		return v
	case []byte:
		return parseTimeOrKeep(string(v))
	case string:
		return parseTimeOrKeep(v)
	default:
		return v
	}
}

func parseTimeOrKeep(s string) any {
	if ts, err := cast.ToTimeE(s); err == nil {
		return ts
	}
	return s
}

type bytesTarget struct{ v []byte }

func (t *bytesTarget) dest() any { return &t.v }
func (t *bytesTarget) value() any {
	if t.v == nil {
		return nil
	}
	return t.v
}

// anyTarget reads whatever the driver produces. Valid UTF-8 byte slices are
// returned as strings.
type anyTarget struct{ v any }

func (t *anyTarget) dest() any { return &t.v }
func (t *anyTarget) value() any {
	if b, ok := t.v.([]byte); ok {
		if utf8.Valid(b) {
			return string(b)
		}
		return append([]byte(nil), b...)
	}
	return t.v
}

// getters is the dispatch table from column kind to typed reader.
var getters = map[SQLType]func() scanTarget{
	SQLString:    func() scanTarget { return &stringTarget{} },
	SQLClob:      func() scanTarget { return &stringTarget{} },
	SQLInt:       func() scanTarget { return &intTarget{} },
	SQLLong:      func() scanTarget { return &longTarget{} },
	SQLDecimal:   func() scanTarget { return &decimalTarget{} },
	SQLFloat:     func() scanTarget { return &floatTarget{} },
	SQLDouble:    func() scanTarget { return &floatTarget{} },
	SQLBoolean:   func() scanTarget { return &boolTarget{} },
	SQLDate:      func() scanTarget { return &timeTarget{} },
	SQLTime:      func() scanTarget { return &timeTarget{} },
	SQLTimestamp: func() scanTarget { return &timeTarget{} },
	SQLBlob:      func() scanTarget { return &bytesTarget{} },
	SQLBinary:    func() scanTarget { return &bytesTarget{} },
	SQLArray:     func() scanTarget { return &anyTarget{} },
	SQLUnknown:   func() scanTarget { return &anyTarget{} },
}

func getterFor(t SQLType) func() scanTarget {
	if g, ok := getters[t]; ok {
		return g
	}
	return getters[SQLUnknown]
}

// RawRow is one database row keyed by lowercased column name.
type RawRow struct {
	names  []string
	values []any
	index  map[string]int
}

// Get returns the value of a column, matched case-insensitively.
func (r *RawRow) Get(name string) (any, bool) {
	i, ok := r.index[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// At returns the value at ordinal i.
func (r *RawRow) At(i int) (any, bool) {
	if i < 0 || i >= len(r.values) {
		return nil, false
	}
	return r.values[i], true
}

// Map returns the row as lowercased column name to value.
func (r *RawRow) Map() map[string]any {
	m := make(map[string]any, len(r.names))
	for i, n := range r.names {
		m[n] = r.values[i]
	}
	return m
}

// Extractor reads rows of one result set. The scan plan is fixed when the
// extractor is created: columns whose name and position match the metadata
// cache use the cached type, the rest use the live column type.
type Extractor struct {
	names     []string
	index     map[string]int
	getters   []func() scanTarget
	cacheUsed bool
}

// NewExtractor builds the scan plan for rows.
func NewExtractor(rows *sql.Rows, cache *MetadataCache) (*Extractor, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	x := &Extractor{
		names:     make([]string, len(types)),
		index:     make(map[string]int, len(types)),
		getters:   make([]func() scanTarget, len(types)),
		cacheUsed: cache.IsInitialized() && len(types) > 0,
	}
	for i, ct := range types {
		name := strings.ToLower(ct.Name())
		x.names[i] = name
		if _, dup := x.index[name]; !dup {
			x.index[name] = i
		}

		if cache.IsInitialized() && cache.ColumnName(i) == name {
			t, _ := cache.ColumnType(i)
			x.getters[i] = getterFor(t)
			continue
		}
		x.cacheUsed = false
		x.getters[i] = getterFor(MapDatabaseType(ct.DatabaseTypeName()))
	}
	return x, nil
}

// CacheUsed reports whether every column was read with a cached type.
func (x *Extractor) CacheUsed() bool {
	return x.cacheUsed
}

// ExtractRaw scans the current row. When a typed getter rejects the driver
// value the row is rescanned untyped, so a schema drift never fails a request.
func (x *Extractor) ExtractRaw(rows *sql.Rows) (*RawRow, error) {
	targets := make([]scanTarget, len(x.getters))
	dests := make([]any, len(x.getters))
	for i, g := range x.getters {
		targets[i] = g()
		dests[i] = targets[i].dest()
	}

	if err := rows.Scan(dests...); err != nil {
		for i := range targets {
			targets[i] = &anyTarget{}
			dests[i] = targets[i].dest()
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
	}

	values := make([]any, len(targets))
	for i, t := range targets {
		values[i] = t.value()
	}
	return &RawRow{names: x.names, values: values, index: x.index}, nil
}

// ExtractFor resolves the raw value of a non-virtual attribute. Resolution
// order: column alias in the raw row, cached ordinal of the attribute name,
// cached ordinal of the alias, then the attribute name in the raw row.
// A qualified column (e.salary) is looked up by its last part.
func ExtractFor(attr models.AttributeDef, cache *MetadataCache, raw *RawRow) (any, bool) {
	column := unqualified(attr.Column)
	if column != "" {
		if v, ok := raw.Get(column); ok {
			return v, true
		}
	}
	if i, ok := cache.ColumnIndex(attr.Name); ok {
		if v, ok := raw.At(i); ok {
			return v, true
		}
	}
	if column != "" {
		if i, ok := cache.ColumnIndex(column); ok {
			if v, ok := raw.At(i); ok {
				return v, true
			}
		}
	}
	return raw.Get(attr.Name)
}

func unqualified(column string) string {
	if i := strings.LastIndexByte(column, '.'); i >= 0 {
		return column[i+1:]
	}
	return column
}
