package sql

import "strings"

type segmentKind int

const (
	segCode segmentKind = iota
	segString
	segQuotedIdent
	segComment
	segPlaceholder
)

// segment is a lexical slice of a SQL template. Concatenating the text of all
// segments returned by scan yields the original input.
type segment struct {
	kind segmentKind
	text string
}

// scan splits a SQL template into code, literal, comment and placeholder
// segments. It is not a SQL parser: it only knows enough to keep bind tokens and
// placeholders out of string literals and comments.
func scan(sqlQuery string) []segment {
	var segments []segment
	var code strings.Builder

	flushCode := func() {
		if code.Len() > 0 {
			segments = append(segments, segment{kind: segCode, text: code.String()})
			code.Reset()
		}
	}

	i := 0
	for i < len(sqlQuery) {
		ch := sqlQuery[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			flushCode()
			end := closingQuote(sqlQuery, i+1, ch)
			kind := segString
			if ch != '\'' {
				kind = segQuotedIdent
			}
			segments = append(segments, segment{kind: kind, text: sqlQuery[i:end]})
			i = end

		case ch == '-' && i+1 < len(sqlQuery) && sqlQuery[i+1] == '-':
			flushCode()
			lineEnd := strings.IndexByte(sqlQuery[i:], '\n')
			if lineEnd == -1 {
				lineEnd = len(sqlQuery)
			} else {
				lineEnd += i
			}
			if isPlaceholderTail(sqlQuery[i:lineEnd]) {
				end := i + 3
				for end < len(sqlQuery) && isIdentPart(sqlQuery[end]) {
					end++
				}
				segments = append(segments, segment{kind: segPlaceholder, text: sqlQuery[i:end]})
				i = end
				continue
			}
			segments = append(segments, segment{kind: segComment, text: sqlQuery[i:lineEnd]})
			i = lineEnd

		case ch == '/' && i+1 < len(sqlQuery) && sqlQuery[i+1] == '*':
			flushCode()
			end := strings.Index(sqlQuery[i+2:], "*/")
			if end == -1 {
				end = len(sqlQuery)
			} else {
				end += i + 4
			}
			segments = append(segments, segment{kind: segComment, text: sqlQuery[i:end]})
			i = end

		default:
			code.WriteByte(ch)
			i++
		}
	}
	flushCode()

	return segments
}

// isPlaceholderTail reports whether a line tail starting at "--" holds only
// --name placeholders separated by whitespace. Anything else on the line makes
// the whole tail an ordinary comment.
func isPlaceholderTail(tail string) bool {
	for {
		tail = strings.TrimLeft(tail, " \t\r")
		if tail == "" {
			return true
		}
		if !strings.HasPrefix(tail, "--") || len(tail) < 3 || !isIdentStart(tail[2]) {
			return false
		}
		end := 3
		for end < len(tail) && isIdentPart(tail[end]) {
			end++
		}
		tail = tail[end:]
		if tail != "" && !strings.ContainsRune(" \t\r", rune(tail[0])) {
			return false
		}
	}
}

// closingQuote returns the index just past the quote that closes a literal
// opened at start-1. Unterminated literals run to the end of the input.
func closingQuote(s string, start int, quote byte) int {
	for j := start; j < len(s); j++ {
		if s[j] == quote {
			return j + 1
		}
	}
	return len(s)
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

// tokenSpan locates a :name bind token inside a code segment.
type tokenSpan struct {
	start, end int // byte offsets of ":name" within the segment text
	name       string
}

// codeTokens returns the bind tokens of one code segment in order.
func codeTokens(code string) []tokenSpan {
	var spans []tokenSpan
	i := 0
	for i < len(code) {
		if code[i] != ':' {
			i++
			continue
		}
		if i+1 < len(code) && code[i+1] == ':' {
			// cast operator, skip both colons and the type name that follows
			i += 2
			for i < len(code) && isIdentPart(code[i]) {
				i++
			}
			continue
		}
		if i+1 < len(code) && isIdentStart(code[i+1]) {
			end := i + 2
			for end < len(code) && isIdentPart(code[end]) {
				end++
			}
			spans = append(spans, tokenSpan{start: i, end: end, name: code[i+1 : end]})
			i = end
			continue
		}
		i++
	}
	return spans
}
