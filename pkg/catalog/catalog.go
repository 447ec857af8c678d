// Package catalog loads query definitions from YAML files.
//
// A catalog declares queries with their parameters, criteria and attributes.
// Attribute presentation and security are expressed by name: formatters such
// as "decimal:2", role lists, and text/template expressions for virtual
// attributes.
package catalog

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-query/pkg/engine"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// File is the YAML layout of a catalog.
type File struct {
	Defaults Defaults    `yaml:"defaults"`
	Queries  []QuerySpec `yaml:"queries"`
}

// Defaults apply to every query that does not override them.
type Defaults struct {
	Dialect     string        `yaml:"dialect"`
	MaxPageSize int           `yaml:"max_page_size"`
	FetchSize   int           `yaml:"fetch_size"`
	Timeout     time.Duration `yaml:"timeout"`
}

// QuerySpec declares one query.
type QuerySpec struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Dialect     string          `yaml:"dialect"`
	SQL         string          `yaml:"sql"`
	MaxPageSize int             `yaml:"max_page_size"`
	FetchSize   int             `yaml:"fetch_size"`
	Timeout     time.Duration   `yaml:"timeout"`
	Params      []ParamSpec     `yaml:"params"`
	Criteria    []CriteriaSpec  `yaml:"criteria"`
	Attributes  []AttributeSpec `yaml:"attributes"`
	// Sum lists attributes totalled into the result aggregates.
	Sum []string `yaml:"sum"`
}

type ParamSpec struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Required    bool   `yaml:"required"`
	Default     any    `yaml:"default"`
	Processor   string `yaml:"processor"`
	Description string `yaml:"description"`
}

type CriteriaSpec struct {
	Name        string `yaml:"name"`
	SQL         string `yaml:"sql"`
	Description string `yaml:"description"`
}

type AttributeSpec struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	Column       string   `yaml:"column"`
	Filterable   bool     `yaml:"filterable"`
	Sortable     bool     `yaml:"sortable"`
	SortProperty string   `yaml:"sort_property"`
	Format       string   `yaml:"format"`
	Roles        []string `yaml:"roles"`
	Template     string   `yaml:"template"`
	DependsOn    []string `yaml:"depends_on"`
	Description  string   `yaml:"description"`
}

// Load reads and builds every query of a catalog file. fallback supplies
// defaults the file leaves unset, typically the connected datasource's dialect.
func Load(path string, fallback Defaults) ([]*models.QueryDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	defs, err := Parse(data, fallback)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Parse builds the queries of a catalog document. Query names must be unique.
func Parse(data []byte, fallback Defaults) ([]*models.QueryDefinition, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Queries) == 0 {
		return nil, fmt.Errorf("catalog declares no queries")
	}
	defaults := f.Defaults.merge(fallback)

	defs := make([]*models.QueryDefinition, 0, len(f.Queries))
	seen := make(map[string]bool, len(f.Queries))
	for i, q := range f.Queries {
		if seen[q.Name] {
			return nil, fmt.Errorf("query %d: duplicate query name %q", i, q.Name)
		}
		seen[q.Name] = true

		def, err := q.Build(defaults)
		if err != nil {
			return nil, fmt.Errorf("query %d (%s): %w", i, q.Name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (d Defaults) merge(fallback Defaults) Defaults {
	if d.Dialect == "" {
		d.Dialect = fallback.Dialect
	}
	if d.MaxPageSize == 0 {
		d.MaxPageSize = fallback.MaxPageSize
	}
	if d.FetchSize == 0 {
		d.FetchSize = fallback.FetchSize
	}
	if d.Timeout == 0 {
		d.Timeout = fallback.Timeout
	}
	return d
}

// Build converts the catalog entry into a validated definition.
func (q QuerySpec) Build(defaults Defaults) (*models.QueryDefinition, error) {
	b := models.NewBuilder(q.Name).
		Description(q.Description).
		SQL(q.SQL).
		Dialect(firstNonEmpty(q.Dialect, defaults.Dialect))

	if n := firstPositive(q.MaxPageSize, defaults.MaxPageSize); n > 0 {
		b.MaxPageSize(n)
	}
	if n := firstPositive(q.FetchSize, defaults.FetchSize); n > 0 {
		b.FetchSize(n)
	}
	if q.Timeout > 0 {
		b.Timeout(q.Timeout)
	} else if defaults.Timeout > 0 {
		b.Timeout(defaults.Timeout)
	}

	for _, p := range q.Params {
		param, err := p.build()
		if err != nil {
			return nil, err
		}
		b.Param(param)
	}
	for _, c := range q.Criteria {
		b.Criteria(models.CriteriaDef{Name: c.Name, SQL: c.SQL, Description: c.Description})
	}
	for _, a := range q.Attributes {
		attr, err := a.build()
		if err != nil {
			return nil, err
		}
		b.Attribute(attr)
	}
	if len(q.Sum) > 0 {
		b.PostProcessor(engine.SumAggregator(q.Sum...))
	}
	return b.Build()
}

func (p ParamSpec) build() (models.ParamDef, error) {
	t, err := models.ParseDataType(p.Type)
	if err != nil {
		return models.ParamDef{}, fmt.Errorf("parameter %q: %w", p.Name, err)
	}
	def := models.ParamDef{
		Name:        p.Name,
		Type:        t,
		Required:    p.Required,
		Description: p.Description,
	}
	if p.Default != nil {
		if def.Default, err = engine.Convert(p.Default, t); err != nil {
			return models.ParamDef{}, fmt.Errorf("parameter %q default: %w", p.Name, err)
		}
	}
	if p.Processor != "" {
		if def.Processor, err = ParseParamProcessor(p.Processor); err != nil {
			return models.ParamDef{}, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
	}
	return def, nil
}

func (a AttributeSpec) build() (models.AttributeDef, error) {
	t, err := models.ParseDataType(a.Type)
	if err != nil {
		return models.AttributeDef{}, fmt.Errorf("attribute %q: %w", a.Name, err)
	}
	def := models.AttributeDef{
		Name:         a.Name,
		Type:         t,
		Column:       a.Column,
		Filterable:   a.Filterable,
		Sortable:     a.Sortable,
		SortProperty: a.SortProperty,
		DependsOn:    a.DependsOn,
		Description:  a.Description,
	}
	if a.Template != "" {
		def.Virtual = true
		if def.Calculator, err = templateCalculator(a.Name, a.Template); err != nil {
			return models.AttributeDef{}, fmt.Errorf("attribute %q: %w", a.Name, err)
		}
	}
	if a.Format != "" {
		if def.Formatter, err = ParseFormatter(a.Format); err != nil {
			return models.AttributeDef{}, fmt.Errorf("attribute %q: %w", a.Name, err)
		}
	}
	if len(a.Roles) > 0 {
		def.Security = models.RequireRole(a.Roles...)
	}
	return def, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
