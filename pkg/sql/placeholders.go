package sql

import "strings"

// Reserved placeholder names.
const (
	PlaceholderFilters = "filters"
	PlaceholderOrderBy = "orderBy"
)

// IsReservedPlaceholder reports whether name is handled by the engine itself
// rather than by a criteria definition.
func IsReservedPlaceholder(name string) bool {
	return name == PlaceholderFilters || name == PlaceholderOrderBy
}

// FindPlaceholders returns the names of all --name placeholders in order of
// appearance, including repeats.
func FindPlaceholders(sqlQuery string) []string {
	var names []string
	for _, seg := range scan(sqlQuery) {
		if seg.kind == segPlaceholder {
			names = append(names, seg.text[2:])
		}
	}
	return names
}

// CountPlaceholder returns how many times --name occurs outside literals and comments.
func CountPlaceholder(sqlQuery, name string) int {
	n := 0
	for _, seg := range scan(sqlQuery) {
		if seg.kind == segPlaceholder && seg.text[2:] == name {
			n++
		}
	}
	return n
}

// ReplacePlaceholder substitutes every --name placeholder with replacement.
// Placeholders with a longer name sharing the prefix are left alone.
func ReplacePlaceholder(sqlQuery, name, replacement string) string {
	return rewritePlaceholders(sqlQuery, func(n string) (string, bool) {
		if n == name {
			return replacement, true
		}
		return "", false
	})
}

// BlankPlaceholders removes every placeholder still present in the SQL.
func BlankPlaceholders(sqlQuery string) string {
	return rewritePlaceholders(sqlQuery, func(string) (string, bool) {
		return "", true
	})
}

func rewritePlaceholders(sqlQuery string, fn func(name string) (string, bool)) string {
	var buf strings.Builder
	buf.Grow(len(sqlQuery))
	for _, seg := range scan(sqlQuery) {
		if seg.kind == segPlaceholder {
			if repl, ok := fn(seg.text[2:]); ok {
				buf.WriteString(repl)
				continue
			}
		}
		buf.WriteString(seg.text)
	}
	return buf.String()
}
