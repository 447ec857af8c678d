package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-query/pkg/engine"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// requestFlags collect a models.Request from the command line.
type requestFlags struct {
	params   []string
	filters  []string
	sorts    []string
	page     string
	metadata bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.params, "param", "p", nil, "runtime parameter as name=value (repeatable)")
	flags.StringArrayVarP(&f.filters, "filter", "f", nil, "filter as attribute:operator[:value[,value...]] (repeatable)")
	flags.StringArrayVarP(&f.sorts, "sort", "s", nil, "sort as attribute[:asc|desc] (repeatable)")
	flags.StringVar(&f.page, "page", "", "row window as start:end, end exclusive")
	flags.BoolVar(&f.metadata, "metadata", false, "include execution metadata")
}

// build converts the flags into a request for def. Parameter and filter
// values are converted to the declared types.
func (f *requestFlags) build(def *models.QueryDefinition) (models.Request, error) {
	req := models.Request{IncludeMetadata: f.metadata}

	if len(f.params) > 0 {
		req.Params = make(map[string]any, len(f.params))
	}
	for _, raw := range f.params {
		name, value, err := parseParam(def, raw)
		if err != nil {
			return models.Request{}, err
		}
		req.Params[name] = value
	}

	for _, raw := range f.filters {
		filter, err := parseFilter(def, raw)
		if err != nil {
			return models.Request{}, err
		}
		req.Filters = append(req.Filters, filter)
	}

	for _, raw := range f.sorts {
		sort, err := parseSort(raw)
		if err != nil {
			return models.Request{}, err
		}
		req.Sorts = append(req.Sorts, sort)
	}

	if f.page != "" {
		page, err := parsePage(f.page)
		if err != nil {
			return models.Request{}, err
		}
		req.Page = &page
	}
	return req, nil
}

func parseParam(def *models.QueryDefinition, raw string) (string, any, error) {
	name, value, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid --param %q: expected name=value", raw)
	}
	p, ok := def.Param(name)
	if !ok {
		return "", nil, fmt.Errorf("query %q has no parameter %q", def.Name(), name)
	}
	converted, err := engine.Convert(value, p.Type)
	if err != nil {
		return "", nil, fmt.Errorf("parameter %q: %w", name, err)
	}
	return name, converted, nil
}

// parseFilter reads attribute:operator[:values]. List operators split their
// values on commas; single-value operators take the rest of the flag verbatim.
func parseFilter(def *models.QueryDefinition, raw string) (models.Filter, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 {
		return models.Filter{}, fmt.Errorf("invalid --filter %q: expected attribute:operator[:value]", raw)
	}
	op, err := models.ParseOperator(parts[1])
	if err != nil {
		return models.Filter{}, err
	}
	filter := models.Filter{Attribute: strings.TrimSpace(parts[0]), Operator: op}

	var values []string
	if len(parts) == 3 {
		switch op.Arity() {
		case 0:
			return models.Filter{}, fmt.Errorf("invalid --filter %q: %s takes no value", raw, op)
		case 1:
			values = []string{parts[2]}
		default:
			values = strings.Split(parts[2], ",")
		}
	}

	attrType := models.TypeAny
	if attr, ok := def.Attribute(filter.Attribute); ok {
		attrType = attr.Type
	}
	for _, v := range values {
		var converted any = v
		if op != models.OpLike {
			if converted, err = engine.Convert(strings.TrimSpace(v), attrType); err != nil {
				return models.Filter{}, fmt.Errorf("filter on %q: %w", filter.Attribute, err)
			}
		}
		filter.Values = append(filter.Values, converted)
	}
	return filter, filter.Validate()
}

func parseSort(raw string) (models.Sort, error) {
	attr, dir, _ := strings.Cut(raw, ":")
	direction, err := models.ParseDirection(dir)
	if err != nil {
		return models.Sort{}, err
	}
	return models.Sort{Attribute: strings.TrimSpace(attr), Direction: direction}, nil
}

func parsePage(raw string) (models.Page, error) {
	startText, endText, ok := strings.Cut(raw, ":")
	if !ok {
		return models.Page{}, fmt.Errorf("invalid --page %q: expected start:end", raw)
	}
	start, err := strconv.Atoi(strings.TrimSpace(startText))
	if err != nil {
		return models.Page{}, fmt.Errorf("invalid page start %q", startText)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endText))
	if err != nil {
		return models.Page{}, fmt.Errorf("invalid page end %q", endText)
	}
	return models.Page{Start: start, End: end}, nil
}
