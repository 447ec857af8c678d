package sql

import (
	"regexp"
	"strings"
)

// SelectColumn is one entry of the outermost SELECT list.
type SelectColumn struct {
	Name string // column name or alias, lowercased
	Expr string // full expression as written
}

var (
	aliasPattern     = regexp.MustCompile(`(?i)\s+as\s+("?)(\w+)("?)\s*$`)
	funcNamePattern  = regexp.MustCompile(`^(\w+)\s*\(`)
	nonWordPattern   = regexp.MustCompile(`[^\w]`)
	selectListEnders = []string{"from", "where", "group", "order", "limit", "union", "intersect", "except"}
	implicitAliasNot = map[string]bool{"from": true, "where": true, "group": true, "order": true, "limit": true, "and": true, "or": true, "as": true, "end": true}
)

// ParseSelectList extracts the column names of the outermost SELECT list.
// It returns nil for SELECT * and for statements it cannot read, in which
// case callers fall back to driver metadata.
func ParseSelectList(sqlQuery string) []SelectColumn {
	code := codeOnly(sqlQuery)
	lower := strings.ToLower(code)

	start := keywordIndex(lower, "select", 0)
	if start == -1 {
		return nil
	}
	start += len("select")
	if next := strings.TrimSpace(lower[start:]); strings.HasPrefix(next, "distinct ") {
		start = strings.Index(lower[start:], "distinct") + start + len("distinct")
	}

	end := len(code)
	for _, kw := range selectListEnders {
		if idx := keywordIndex(lower, kw, start); idx != -1 && idx < end {
			end = idx
		}
	}

	list := strings.TrimSpace(code[start:end])
	if list == "" || strings.HasPrefix(list, "*") {
		return nil
	}

	var columns []SelectColumn
	for _, expr := range splitTopLevel(list) {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		columns = append(columns, SelectColumn{Name: columnNameOf(expr), Expr: expr})
	}
	return columns
}

// codeOnly blanks literals, comments and placeholders so keyword searches only
// see SQL code. String literals are kept as empty quotes so expressions stay readable.
func codeOnly(sqlQuery string) string {
	var buf strings.Builder
	for _, seg := range scan(sqlQuery) {
		switch seg.kind {
		case segCode, segQuotedIdent:
			buf.WriteString(seg.text)
		case segString:
			buf.WriteString("''")
		default:
			buf.WriteByte(' ')
		}
	}
	return buf.String()
}

// keywordIndex finds kw as a whole word at parenthesis depth zero, starting at from.
func keywordIndex(lower, kw string, from int) int {
	depth := 0
	for i := from; i < len(lower); i++ {
		switch lower[i] {
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if depth != 0 || !strings.HasPrefix(lower[i:], kw) {
			continue
		}
		if i > 0 && isIdentPart(lower[i-1]) {
			continue
		}
		if j := i + len(kw); j < len(lower) && isIdentPart(lower[j]) {
			continue
		}
		return i
	}
	return -1
}

// splitTopLevel splits a SELECT list by commas, respecting parentheses.
func splitTopLevel(list string) []string {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, ch := range list {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, current.String())
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// columnNameOf derives the result column name of one select expression:
//   - "e.name" → name
//   - "salary AS pay" → pay
//   - "COUNT(*) total" → total
//   - "SUM(amount)" → sum
func columnNameOf(expr string) string {
	if m := aliasPattern.FindStringSubmatch(expr); m != nil {
		return strings.ToLower(m[2])
	}

	if strings.Count(expr, "(") == strings.Count(expr, ")") {
		parts := strings.Fields(expr)
		if len(parts) > 1 {
			last := parts[len(parts)-1]
			if !strings.ContainsAny(last, "()'") && !implicitAliasNot[strings.ToLower(last)] {
				return strings.ToLower(strings.Trim(last, "`\""))
			}
		}
	}

	if dot := strings.LastIndex(expr, "."); dot != -1 && !strings.Contains(expr, "(") {
		expr = expr[dot+1:]
	}
	if m := funcNamePattern.FindStringSubmatch(expr); m != nil {
		return strings.ToLower(m[1])
	}
	if strings.HasPrefix(strings.ToLower(expr), "case") {
		return "case_result"
	}
	return strings.ToLower(nonWordPattern.ReplaceAllString(expr, ""))
}

// HasOrderBy reports whether the statement carries its own ORDER BY clause
// at the outermost level.
func HasOrderBy(sqlQuery string) bool {
	lower := strings.ToLower(codeOnly(sqlQuery))
	return keywordIndex(lower, "order", 0) != -1
}

// StripOrderBy removes a trailing ORDER BY clause at the outermost level. The
// statement is returned unchanged when the clause is followed by a row limit,
// since LIMIT and OFFSET/FETCH depend on it.
func StripOrderBy(sqlQuery string) string {
	lower := lowerCodeMask(sqlQuery)
	at := -1
	for i := keywordIndex(lower, "order", 0); i != -1; i = keywordIndex(lower, "order", i+1) {
		rest := strings.TrimLeft(lower[i+len("order"):], " \t\r\n")
		if strings.HasPrefix(rest, "by") && (len(rest) == 2 || !isIdentPart(rest[2])) {
			at = i
		}
	}
	if at == -1 {
		return sqlQuery
	}
	for _, kw := range []string{"limit", "offset", "fetch"} {
		if keywordIndex(lower, kw, at) != -1 {
			return sqlQuery
		}
	}
	return strings.TrimRight(sqlQuery[:at], " \t\r\n")
}

// lowerCodeMask lowercases ASCII code and blanks everything else byte for
// byte, so offsets into the result are offsets into sqlQuery.
func lowerCodeMask(sqlQuery string) string {
	buf := make([]byte, 0, len(sqlQuery))
	for _, seg := range scan(sqlQuery) {
		if seg.kind != segCode {
			buf = append(buf, strings.Repeat(" ", len(seg.text))...)
			continue
		}
		for i := 0; i < len(seg.text); i++ {
			c := seg.text[i]
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			buf = append(buf, c)
		}
	}
	return string(buf)
}
