package sql

import (
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Reserved bind tokens filled in by dialect pagination.
const (
	TokenOffset   = "offset"
	TokenLimit    = "limit"
	TokenStartRow = "startRow"
	TokenEndRow   = "endRow"
)

var reservedTokens = []string{TokenOffset, TokenLimit, TokenStartRow, TokenEndRow}

// ReservedTokens returns the bind tokens a definition may use without declaring them.
func ReservedTokens() []string {
	return slices.Clone(reservedTokens)
}

// IsReservedToken reports whether name is a pagination token.
func IsReservedToken(name string) bool {
	return slices.Contains(reservedTokens, name)
}

// ExtractParameters finds all :name bind tokens in SQL and returns a
// deduplicated list of names in order of first appearance.
//
// Example:
//
//	sql := "SELECT * FROM emp WHERE dept_id = :deptId AND hired > :since::date"
//	params := ExtractParameters(sql)
//	// params == []string{"deptId", "since"}
func ExtractParameters(sqlQuery string) []string {
	seen := make(map[string]bool)
	var params []string

	for _, seg := range scan(sqlQuery) {
		if seg.kind != segCode {
			continue
		}
		for _, tok := range codeTokens(seg.text) {
			if !seen[tok.name] {
				seen[tok.name] = true
				params = append(params, tok.name)
			}
		}
	}

	return params
}

// ValidateParameterDefinitions checks that every bind token used in SQL is
// either declared or reserved. Declared parameters that the SQL never mentions
// are allowed: criteria fragments and processors may consume them.
func ValidateParameterDefinitions(sqlQuery string, declared []string) error {
	for _, name := range ExtractParameters(sqlQuery) {
		if IsReservedToken(name) {
			continue
		}
		if !slices.Contains(declared, name) {
			return fmt.Errorf("parameter :%s used in SQL but not defined", name)
		}
	}
	return nil
}

// FindParametersInStringLiterals returns the :name tokens that appear inside
// single-quoted literals. Such tokens are never bound and usually indicate a
// quoting mistake in the template.
//
//	sql := "SELECT 'Hello :name' FROM users"
//	problems := FindParametersInStringLiterals(sql)
//	// problems == []string{"name"}
func FindParametersInStringLiterals(sqlQuery string) []string {
	var problems []string
	seen := make(map[string]bool)

	for _, seg := range scan(sqlQuery) {
		if seg.kind != segString {
			continue
		}
		for _, tok := range codeTokens(seg.text) {
			if !seen[tok.name] {
				seen[tok.name] = true
				problems = append(problems, tok.name)
			}
		}
	}

	return problems
}

// Bind rewrites every :name token into the positional placeholder of format and
// returns the values in placeholder order. A token used twice is bound twice.
// Literal question marks are preserved for every placeholder format.
//
//	sql, args, err := Bind("SELECT * FROM emp WHERE dept_id = :deptId LIMIT :limit",
//	    map[string]any{"deptId": 10, "limit": 20}, sq.Dollar)
//	// sql == "SELECT * FROM emp WHERE dept_id = $1 LIMIT $2"
//	// args == []any{10, 20}
func Bind(namedSQL string, params map[string]any, format sq.PlaceholderFormat) (string, []any, error) {
	if format == nil {
		format = sq.Question
	}
	escape := format != sq.Question

	var buf strings.Builder
	var args []any

	writeEscaped := func(s string) {
		if escape {
			s = strings.ReplaceAll(s, "?", "??")
		}
		buf.WriteString(s)
	}

	for _, seg := range scan(namedSQL) {
		if seg.kind != segCode {
			writeEscaped(seg.text)
			continue
		}

		pos := 0
		for _, tok := range codeTokens(seg.text) {
			value, ok := params[tok.name]
			if !ok {
				return "", nil, fmt.Errorf("no value bound for parameter :%s", tok.name)
			}
			writeEscaped(seg.text[pos:tok.start])
			buf.WriteByte('?')
			args = append(args, value)
			pos = tok.end
		}
		writeEscaped(seg.text[pos:])
	}

	bound, err := format.ReplacePlaceholders(buf.String())
	if err != nil {
		return "", nil, fmt.Errorf("failed to replace placeholders: %w", err)
	}
	return bound, args, nil
}
