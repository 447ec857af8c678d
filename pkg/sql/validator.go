package sql

import (
	"errors"
	"strings"
)

// ErrMultipleStatements is returned for SQL with more than one statement.
var ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

// Normalize trims sqlQuery and drops one trailing semicolon. Any other
// semicolon outside literals, quoted identifiers and comments is rejected
// with ErrMultipleStatements.
func Normalize(sqlQuery string) (string, error) {
	normalized := strings.TrimSpace(sqlQuery)
	if trimmed, ok := strings.CutSuffix(normalized, ";"); ok {
		normalized = strings.TrimSpace(trimmed)
	}
	for _, seg := range scan(normalized) {
		if seg.kind == segCode && strings.ContainsRune(seg.text, ';') {
			return "", ErrMultipleStatements
		}
	}
	return normalized, nil
}
