package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ekaya-inc/ekaya-query/pkg/engine"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// Formatter names accepted in a catalog. decimal, number and date take an
// argument after a colon, e.g. "decimal:2" or "date:2006-01-02".
const (
	FormatUpper   = "upper"
	FormatLower   = "lower"
	FormatTitle   = "title"
	FormatTrim    = "trim"
	FormatDecimal = "decimal"
	FormatNumber  = "number"
	FormatDate    = "date"
)

var printer = message.NewPrinter(language.English)

// ParseFormatter resolves a formatter spec such as "upper" or "decimal:2".
func ParseFormatter(spec string) (models.Formatter, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(spec), ":")
	switch name {
	case FormatUpper:
		return stringFormatter(strings.ToUpper), nil
	case FormatLower:
		return stringFormatter(strings.ToLower), nil
	case FormatTrim:
		return stringFormatter(strings.TrimSpace), nil
	case FormatTitle:
		caser := cases.Title(language.English)
		return stringFormatter(caser.String), nil
	case FormatDecimal:
		places, err := placesArg(arg, hasArg, 2)
		if err != nil {
			return nil, fmt.Errorf("formatter %q: %w", spec, err)
		}
		return func(v any) (string, error) {
			d, err := asDecimal(v)
			if err != nil {
				return "", err
			}
			return d.StringFixed(places), nil
		}, nil
	case FormatNumber:
		places, err := placesArg(arg, hasArg, -1)
		if err != nil {
			return nil, fmt.Errorf("formatter %q: %w", spec, err)
		}
		return func(v any) (string, error) {
			d, err := asDecimal(v)
			if err != nil {
				return "", err
			}
			n := places
			if n < 0 {
				if d.IsInteger() {
					return printer.Sprintf("%d", d.IntPart()), nil
				}
				n = -d.Exponent()
			}
			return printer.Sprintf(fmt.Sprintf("%%.%df", n), d.Round(n).InexactFloat64()), nil
		}, nil
	case FormatDate:
		layout := time.DateOnly
		if hasArg && arg != "" {
			layout = arg
		}
		return func(v any) (string, error) {
			t, err := cast.ToTimeE(v)
			if err != nil {
				return "", err
			}
			return t.Format(layout), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown formatter %q", spec)
}

func stringFormatter(fn func(string) string) models.Formatter {
	return func(v any) (string, error) {
		s, err := cast.ToStringE(v)
		if err != nil {
			return "", err
		}
		return fn(s), nil
	}
}

func placesArg(arg string, hasArg bool, def int32) (int32, error) {
	if !hasArg || arg == "" {
		return def, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 || n > 18 {
		return 0, fmt.Errorf("decimal places must be between 0 and 18, got %q", arg)
	}
	return int32(n), nil
}

func asDecimal(v any) (decimal.Decimal, error) {
	d, err := engine.Convert(v, models.TypeDecimal)
	if err != nil {
		return decimal.Zero, err
	}
	return d.(decimal.Decimal), nil
}

// Param processor names accepted in a catalog. contains, prefix and suffix
// turn a search term into a LIKE pattern.
const (
	ProcessTrim     = "trim"
	ProcessUpper    = "upper"
	ProcessLower    = "lower"
	ProcessContains = "contains"
	ProcessPrefix   = "prefix"
	ProcessSuffix   = "suffix"
)

// ParseParamProcessor resolves a parameter processor by name.
func ParseParamProcessor(name string) (models.ParamProcessor, error) {
	var fn func(string) string
	switch strings.TrimSpace(name) {
	case ProcessTrim:
		fn = strings.TrimSpace
	case ProcessUpper:
		fn = strings.ToUpper
	case ProcessLower:
		fn = strings.ToLower
	case ProcessContains:
		fn = func(s string) string { return "%" + s + "%" }
	case ProcessPrefix:
		fn = func(s string) string { return s + "%" }
	case ProcessSuffix:
		fn = func(s string) string { return "%" + s }
	default:
		return nil, fmt.Errorf("unknown parameter processor %q", name)
	}
	return func(v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}, nil
}
