package models

import (
	"fmt"
	"strings"
)

// Operator is a filter comparison.
type Operator string

const (
	OpEquals    Operator = "EQUALS"
	OpNotEquals Operator = "NOT_EQUALS"
	OpLike      Operator = "LIKE"
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT_IN"
	OpGT        Operator = "GT"
	OpGTE       Operator = "GTE"
	OpLT        Operator = "LT"
	OpLTE       Operator = "LTE"
	OpBetween   Operator = "BETWEEN"
	OpIsNull    Operator = "IS_NULL"
	OpIsNotNull Operator = "IS_NOT_NULL"
)

var operatorAliases = map[string]Operator{
	"equals":      OpEquals,
	"eq":          OpEquals,
	"=":           OpEquals,
	"not_equals":  OpNotEquals,
	"ne":          OpNotEquals,
	"!=":          OpNotEquals,
	"<>":          OpNotEquals,
	"like":        OpLike,
	"in":          OpIn,
	"not_in":      OpNotIn,
	"nin":         OpNotIn,
	"gt":          OpGT,
	">":           OpGT,
	"gte":         OpGTE,
	">=":          OpGTE,
	"lt":          OpLT,
	"<":           OpLT,
	"lte":         OpLTE,
	"<=":          OpLTE,
	"between":     OpBetween,
	"is_null":     OpIsNull,
	"isnull":      OpIsNull,
	"is_not_null": OpIsNotNull,
	"notnull":     OpIsNotNull,
}

// ParseOperator resolves an operator name case-insensitively. Short forms
// such as "eq", "gte" and "nin" are accepted.
func ParseOperator(s string) (Operator, error) {
	if op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op, nil
	}
	return "", fmt.Errorf("unknown filter operator %q", s)
}

// Arity returns the number of operands the operator takes, or -1 for a
// non-empty list.
func (o Operator) Arity() int {
	switch o {
	case OpIsNull, OpIsNotNull:
		return 0
	case OpBetween:
		return 2
	case OpIn, OpNotIn:
		return -1
	case OpEquals, OpNotEquals, OpLike, OpGT, OpGTE, OpLT, OpLTE:
		return 1
	}
	return -2
}

// Filter is a runtime condition on one filterable attribute.
type Filter struct {
	Attribute string   `json:"attribute"`
	Operator  Operator `json:"operator"`
	Values    []any    `json:"values,omitempty"`
}

// Validate checks the operand count against the operator.
func (f Filter) Validate() error {
	switch arity := f.Operator.Arity(); {
	case arity == -2:
		return fmt.Errorf("filter on %q: unknown operator %q", f.Attribute, f.Operator)
	case arity == -1:
		if len(f.Values) == 0 {
			return fmt.Errorf("filter on %q: %s needs at least one value", f.Attribute, f.Operator)
		}
	case len(f.Values) != arity:
		return fmt.Errorf("filter on %q: %s takes %d value(s), got %d", f.Attribute, f.Operator, arity, len(f.Values))
	}
	return nil
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection accepts asc/desc in any case; empty means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return Asc, nil
	case "DESC":
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// Sort orders results by one sortable attribute.
type Sort struct {
	Attribute string    `json:"attribute"`
	Direction Direction `json:"direction"`
}

// Page is a half-open row window [Start, End).
type Page struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Size returns the number of rows the window can hold.
func (p Page) Size() int {
	return p.End - p.Start
}

// Validate checks the window bounds against the maximum page size.
func (p Page) Validate(maxSize int) error {
	if p.Start < 0 {
		return fmt.Errorf("page start must be >= 0, got %d", p.Start)
	}
	if p.End <= p.Start {
		return fmt.Errorf("page end (%d) must be greater than start (%d)", p.End, p.Start)
	}
	if maxSize > 0 && p.Size() > maxSize {
		return fmt.Errorf("page size %d exceeds maximum of %d", p.Size(), maxSize)
	}
	return nil
}

// Request is one execution request against a registered query.
type Request struct {
	Params          map[string]any
	Filters         []Filter
	Sorts           []Sort
	Page            *Page
	Security        SecurityContext
	IncludeMetadata bool
}
