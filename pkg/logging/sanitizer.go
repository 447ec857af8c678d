package logging

import (
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

const (
	// MaxQueryLogLength is the maximum length of a query to log
	MaxQueryLogLength = 200
	// MaxParamLogLength bounds each parameter value in logs
	MaxParamLogLength = 32
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Pattern to match JWT tokens (three base64 segments separated by dots)
	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// user:pass@host format
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)

	// Single-quoted SQL string literals, with '' escapes.
	literalPattern = regexp.MustCompile(`'(?:[^']|'')*'`)

	sensitiveParamNames = []string{"password", "passwd", "pwd", "secret", "token", "apikey", "api_key", "ssn", "credential"}
)

// SanitizeConnectionString removes sensitive data from connection strings.
// Use this before logging any DSN.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Driver errors frequently echo the DSN or a failing literal.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = jwtPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeQuery masks string literals and truncates a SQL statement for logging.
// Bound values never appear in assembled SQL, but literals written into a
// definition or criteria fragment do.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := literalPattern.ReplaceAllString(query, "'***'")
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)

	return TruncateString(sanitized, MaxQueryLogLength)
}

// RedactParams returns a copy of bind parameters that is safe to log.
// Values of sensitive-looking names are replaced, long strings are truncated.
func RedactParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for name, v := range params {
		if isSensitiveName(name) {
			out[name] = RedactedText
			continue
		}
		switch val := v.(type) {
		case nil:
			out[name] = nil
		case string:
			out[name] = TruncateString(val, MaxParamLogLength)
		case []byte:
			out[name] = "<" + cast.ToString(len(val)) + " bytes>"
		default:
			out[name] = v
		}
	}
	return out
}

func isSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveParamNames {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
