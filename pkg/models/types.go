package models

import (
	"fmt"
	"strings"
)

// DataType is the declared type of an attribute or parameter.
type DataType string

const (
	TypeAny       DataType = "any"
	TypeString    DataType = "string"
	TypeInt       DataType = "int"
	TypeInt64     DataType = "int64"
	TypeFloat64   DataType = "float64"
	TypeDecimal   DataType = "decimal"
	TypeBool      DataType = "bool"
	TypeDate      DataType = "date"
	TypeTime      DataType = "time"
	TypeTimestamp DataType = "timestamp"
	TypeBytes     DataType = "bytes"
	TypeUUID      DataType = "uuid"
)

var dataTypeAliases = map[string]DataType{
	"":          TypeAny,
	"any":       TypeAny,
	"string":    TypeString,
	"text":      TypeString,
	"varchar":   TypeString,
	"clob":      TypeString,
	"int":       TypeInt,
	"integer":   TypeInt,
	"int64":     TypeInt64,
	"long":      TypeInt64,
	"bigint":    TypeInt64,
	"float":     TypeFloat64,
	"float64":   TypeFloat64,
	"double":    TypeFloat64,
	"decimal":   TypeDecimal,
	"numeric":   TypeDecimal,
	"bool":      TypeBool,
	"boolean":   TypeBool,
	"date":      TypeDate,
	"time":      TypeTime,
	"timestamp": TypeTimestamp,
	"datetime":  TypeTimestamp,
	"bytes":     TypeBytes,
	"binary":    TypeBytes,
	"blob":      TypeBytes,
	"uuid":      TypeUUID,
}

// ParseDataType resolves a type name, accepting common SQL and Java-style aliases.
func ParseDataType(name string) (DataType, error) {
	if t, ok := dataTypeAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown data type %q", name)
}

// Valid reports whether t is one of the declared type constants.
func (t DataType) Valid() bool {
	switch t {
	case TypeAny, TypeString, TypeInt, TypeInt64, TypeFloat64, TypeDecimal, TypeBool,
		TypeDate, TypeTime, TypeTimestamp, TypeBytes, TypeUUID:
		return true
	}
	return false
}

func (t DataType) String() string {
	return string(t)
}
