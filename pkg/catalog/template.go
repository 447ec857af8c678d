package catalog

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

var templateFuncs = template.FuncMap{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"trim":  strings.TrimSpace,
	"initial": func(s string) string {
		for _, r := range s {
			return string(r)
		}
		return ""
	},
}

// templateCalculator compiles a text/template rendered over the attribute
// values computed so far. Nil values render as empty strings. A template that
// renders only whitespace yields nil.
func templateCalculator(name, text string) (models.Calculator, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	return func(row *models.Row, _ *models.QueryContext) (any, error) {
		data := row.Map()
		for k, v := range data {
			if v == nil {
				data[k] = ""
			}
		}
		var buf strings.Builder
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, err
		}
		out := strings.TrimSpace(buf.String())
		if out == "" {
			return nil, nil
		}
		return out, nil
	}, nil
}
