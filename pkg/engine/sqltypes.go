package engine

import "strings"

// SQLType is the closed set of column kinds the row extractor knows how to read.
type SQLType int

const (
	SQLUnknown SQLType = iota
	SQLString
	SQLClob
	SQLInt
	SQLLong
	SQLDecimal
	SQLFloat
	SQLDouble
	SQLBoolean
	SQLDate
	SQLTime
	SQLTimestamp
	SQLBlob
	SQLBinary
	SQLArray
)

var sqlTypeNames = map[SQLType]string{
	SQLUnknown:   "unknown",
	SQLString:    "string",
	SQLClob:      "clob",
	SQLInt:       "int",
	SQLLong:      "long",
	SQLDecimal:   "decimal",
	SQLFloat:     "float",
	SQLDouble:    "double",
	SQLBoolean:   "boolean",
	SQLDate:      "date",
	SQLTime:      "time",
	SQLTimestamp: "timestamp",
	SQLBlob:      "blob",
	SQLBinary:    "binary",
	SQLArray:     "array",
}

func (t SQLType) String() string {
	if s, ok := sqlTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// databaseTypes maps driver type names (sql.ColumnType.DatabaseTypeName) of the
// supported drivers onto SQLType.
var databaseTypes = map[string]SQLType{
	// character
	"VARCHAR":    SQLString,
	"CHAR":       SQLString,
	"BPCHAR":     SQLString,
	"NVARCHAR":   SQLString,
	"NCHAR":      SQLString,
	"VARCHAR2":   SQLString,
	"NVARCHAR2":  SQLString,
	"NAME":       SQLString,
	"CITEXT":     SQLString,
	"UUID":       SQLString,
	"JSON":       SQLString,
	"JSONB":      SQLString,
	"XML":        SQLString,
	"ENUM":       SQLString,
	"TEXT":       SQLClob,
	"NTEXT":      SQLClob,
	"CLOB":       SQLClob,
	"NCLOB":      SQLClob,
	"TINYTEXT":   SQLClob,
	"MEDIUMTEXT": SQLClob,
	"LONGTEXT":   SQLClob,
	// integer
	"INT2":      SQLInt,
	"INT4":      SQLInt,
	"INT":       SQLInt,
	"INTEGER":   SQLInt,
	"SMALLINT":  SQLInt,
	"TINYINT":   SQLInt,
	"MEDIUMINT": SQLInt,
	"SERIAL":    SQLInt,
	"INT8":      SQLLong,
	"BIGINT":    SQLLong,
	"BIGSERIAL": SQLLong,
	// exact and approximate numeric
	"NUMERIC":          SQLDecimal,
	"DECIMAL":          SQLDecimal,
	"NUMBER":           SQLDecimal,
	"MONEY":            SQLDecimal,
	"SMALLMONEY":       SQLDecimal,
	"FLOAT4":           SQLFloat,
	"REAL":             SQLFloat,
	"FLOAT8":           SQLDouble,
	"FLOAT":            SQLDouble,
	"DOUBLE":           SQLDouble,
	"DOUBLE PRECISION": SQLDouble,
	// boolean
	"BOOL":    SQLBoolean,
	"BOOLEAN": SQLBoolean,
	"BIT":     SQLBoolean,
	// temporal
	"DATE":           SQLDate,
	"TIME":           SQLTime,
	"TIMETZ":         SQLTime,
	"TIMESTAMP":      SQLTimestamp,
	"TIMESTAMPTZ":    SQLTimestamp,
	"DATETIME":       SQLTimestamp,
	"DATETIME2":      SQLTimestamp,
	"SMALLDATETIME":  SQLTimestamp,
	"DATETIMEOFFSET": SQLTimestamp,
	// binary
	"BYTEA":      SQLBlob,
	"BLOB":       SQLBlob,
	"TINYBLOB":   SQLBlob,
	"MEDIUMBLOB": SQLBlob,
	"LONGBLOB":   SQLBlob,
	"IMAGE":      SQLBlob,
	"BINARY":     SQLBinary,
	"VARBINARY":  SQLBinary,
}

// MapDatabaseType resolves a driver type name. PostgreSQL array types are
// reported with a leading underscore (_INT4) and map to SQLArray.
func MapDatabaseType(name string) SQLType {
	name = strings.ToUpper(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "UNSIGNED ")
	if strings.HasPrefix(name, "_") {
		return SQLArray
	}
	if i := strings.IndexByte(name, '('); i > 0 {
		name = strings.TrimSpace(name[:i])
	}
	if t, ok := databaseTypes[name]; ok {
		return t
	}
	return SQLUnknown
}
