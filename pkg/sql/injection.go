package sql

import (
	"fmt"
	"sort"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
	"github.com/spf13/cast"
)

// InjectionCheckResult contains the result of an injection check on a parameter value.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamName   string // Name of the parameter that failed the check
	ParamValue  any    // The value that was checked
}

// CheckParameterForInjection uses libinjection to detect SQL injection patterns
// in a parameter value. Strings are checked directly; slices (IN and BETWEEN
// operands) are checked element by element. Other types return nil.
//
//	result := CheckParameterForInjection("search", "'; DROP TABLE users--")
//	// result.IsSQLi == true
//	// result.ParamName == "search"
func CheckParameterForInjection(paramName string, value any) *InjectionCheckResult {
	switch v := value.(type) {
	case string:
		return checkString(paramName, v)
	case []string:
		for i, s := range v {
			if r := checkString(fmt.Sprintf("%s[%d]", paramName, i), s); r != nil {
				return r
			}
		}
	case []any:
		for i, item := range v {
			if r := CheckParameterForInjection(fmt.Sprintf("%s[%d]", paramName, i), item); r != nil {
				return r
			}
		}
	}
	return nil
}

func checkString(paramName, value string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		ParamName:   paramName,
		ParamValue:  value,
	}
}

// CheckAllParameters validates all parameter values for SQL injection attempts.
// Results are ordered by parameter name.
func CheckAllParameters(params map[string]any) []*InjectionCheckResult {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []*InjectionCheckResult
	for _, name := range names {
		if result := CheckParameterForInjection(name, params[name]); result != nil {
			results = append(results, result)
		}
	}
	return results
}

// InjectionError reports the parameters rejected by CheckAllParameters.
type InjectionError struct {
	Results []*InjectionCheckResult
}

func (e *InjectionError) Error() string {
	names := make([]string, len(e.Results))
	for i, r := range e.Results {
		names[i] = fmt.Sprintf("%s (fingerprint %s)", r.ParamName, r.Fingerprint)
	}
	return "potential SQL injection detected in parameters: " + strings.Join(names, ", ")
}

// GuardParameters returns an *InjectionError when any value looks like SQL
// injection. Values are stringified with cast only when they are already
// textual, so numeric parameters never trip the guard.
func GuardParameters(params map[string]any) error {
	textual := make(map[string]any, len(params))
	for name, v := range params {
		switch v.(type) {
		case string, []string, []any:
			textual[name] = v
		case fmt.Stringer:
			textual[name] = cast.ToString(v)
		}
	}
	if results := CheckAllParameters(textual); len(results) > 0 {
		return &InjectionError{Results: results}
	}
	return nil
}
