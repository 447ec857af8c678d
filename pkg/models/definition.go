package models

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-query/pkg/apperrors"
	qsql "github.com/ekaya-inc/ekaya-query/pkg/sql"
)

const (
	DefaultMaxPageSize = 1000
	DefaultFetchSize   = 100
)

var (
	namePattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#.]*$`)
)

// QueryDefinition is the immutable declaration of a parameterized query.
// Instances are created with Builder and are safe for concurrent use.
type QueryDefinition struct {
	name        string
	description string
	sql         string
	dialect     string
	params      []ParamDef
	criteria    []CriteriaDef
	attributes  []AttributeDef
	attrIndex   map[string]int
	maxPageSize int
	fetchSize   int
	timeout     time.Duration

	preProcessors  []PreProcessor
	rowProcessors  []RowProcessor
	postProcessors []PostProcessor
}

func (d *QueryDefinition) Name() string           { return d.name }
func (d *QueryDefinition) Description() string    { return d.description }
func (d *QueryDefinition) SQL() string            { return d.sql }
func (d *QueryDefinition) Dialect() string        { return d.dialect }
func (d *QueryDefinition) MaxPageSize() int       { return d.maxPageSize }
func (d *QueryDefinition) FetchSize() int         { return d.fetchSize }
func (d *QueryDefinition) Timeout() time.Duration { return d.timeout }

// Params returns a copy of the declared parameters.
func (d *QueryDefinition) Params() []ParamDef {
	return slices.Clone(d.params)
}

// Param looks up a declared parameter by name.
func (d *QueryDefinition) Param(name string) (ParamDef, bool) {
	for _, p := range d.params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamDef{}, false
}

// Criteria returns a copy of the criteria definitions.
func (d *QueryDefinition) Criteria() []CriteriaDef {
	return slices.Clone(d.criteria)
}

// Attributes returns a copy of the attributes in declaration order.
func (d *QueryDefinition) Attributes() []AttributeDef {
	out := make([]AttributeDef, len(d.attributes))
	for i, a := range d.attributes {
		out[i] = a.clone()
	}
	return out
}

// Attribute looks up an attribute by name.
func (d *QueryDefinition) Attribute(name string) (AttributeDef, bool) {
	i, ok := d.attrIndex[name]
	if !ok {
		return AttributeDef{}, false
	}
	return d.attributes[i].clone(), true
}

// AttributeNames returns the attribute names in declaration order.
func (d *QueryDefinition) AttributeNames() []string {
	names := make([]string, len(d.attributes))
	for i, a := range d.attributes {
		names[i] = a.Name
	}
	return names
}

func (d *QueryDefinition) PreProcessors() []PreProcessor   { return slices.Clone(d.preProcessors) }
func (d *QueryDefinition) RowProcessors() []RowProcessor   { return slices.Clone(d.rowProcessors) }
func (d *QueryDefinition) PostProcessors() []PostProcessor { return slices.Clone(d.postProcessors) }

// Builder assembles a QueryDefinition. Setter errors are collected and the
// first one is reported by Build.
type Builder struct {
	def  QueryDefinition
	errs []string
}

// NewBuilder starts a definition with the given unique query name.
func NewBuilder(name string) *Builder {
	return &Builder{def: QueryDefinition{
		name:        name,
		maxPageSize: DefaultMaxPageSize,
		fetchSize:   DefaultFetchSize,
	}}
}

func (b *Builder) fail(format string, args ...any) *Builder {
	b.errs = append(b.errs, fmt.Sprintf(format, args...))
	return b
}

func (b *Builder) Description(text string) *Builder {
	b.def.description = text
	return b
}

// SQL sets the base SQL template.
func (b *Builder) SQL(sqlText string) *Builder {
	b.def.sql = sqlText
	return b
}

// Dialect names the SQL dialect used for pagination and binding.
func (b *Builder) Dialect(name string) *Builder {
	b.def.dialect = name
	return b
}

func (b *Builder) Param(p ParamDef) *Builder {
	b.def.params = append(b.def.params, p)
	return b
}

func (b *Builder) Criteria(c CriteriaDef) *Builder {
	b.def.criteria = append(b.def.criteria, c)
	return b
}

func (b *Builder) Attribute(a AttributeDef) *Builder {
	b.def.attributes = append(b.def.attributes, a.clone())
	return b
}

func (b *Builder) MaxPageSize(n int) *Builder {
	if n <= 0 {
		return b.fail("max page size must be positive, got %d", n)
	}
	b.def.maxPageSize = n
	return b
}

func (b *Builder) FetchSize(n int) *Builder {
	if n <= 0 {
		return b.fail("fetch size must be positive, got %d", n)
	}
	b.def.fetchSize = n
	return b
}

// Timeout sets the statement timeout. Zero disables it.
func (b *Builder) Timeout(d time.Duration) *Builder {
	if d < 0 {
		return b.fail("timeout must not be negative, got %s", d)
	}
	b.def.timeout = d
	return b
}

func (b *Builder) PreProcessor(p PreProcessor) *Builder {
	b.def.preProcessors = append(b.def.preProcessors, p)
	return b
}

func (b *Builder) RowProcessor(p RowProcessor) *Builder {
	b.def.rowProcessors = append(b.def.rowProcessors, p)
	return b
}

func (b *Builder) PostProcessor(p PostProcessor) *Builder {
	b.def.postProcessors = append(b.def.postProcessors, p)
	return b
}

// Build validates the declaration and returns the immutable definition.
// All failures are definition errors.
func (b *Builder) Build() (*QueryDefinition, error) {
	d := b.def
	if len(b.errs) > 0 {
		return nil, apperrors.NewDefinitionError(d.name, "%s", b.errs[0])
	}
	if err := validateDefinition(&d); err != nil {
		return nil, apperrors.NewDefinitionError(d.name, "%s", err.Error())
	}

	d.params = slices.Clone(d.params)
	d.criteria = slices.Clone(d.criteria)
	d.attributes = slices.Clone(d.attributes)
	d.preProcessors = slices.Clone(d.preProcessors)
	d.rowProcessors = slices.Clone(d.rowProcessors)
	d.postProcessors = slices.Clone(d.postProcessors)
	d.attrIndex = make(map[string]int, len(d.attributes))
	for i, a := range d.attributes {
		d.attrIndex[a.Name] = i
	}
	return &d, nil
}

func validateDefinition(d *QueryDefinition) error {
	if strings.TrimSpace(d.name) == "" {
		return fmt.Errorf("query name is required")
	}
	if strings.TrimSpace(d.dialect) == "" {
		return fmt.Errorf("dialect is required")
	}
	normalized, err := qsql.Normalize(d.sql)
	if err != nil {
		return err
	}
	if normalized == "" {
		return fmt.Errorf("base SQL is required")
	}
	d.sql = normalized

	if err := validateParams(d); err != nil {
		return err
	}
	if err := validateCriteria(d); err != nil {
		return err
	}
	return validateAttributes(d)
}

func validateParams(d *QueryDefinition) error {
	seen := make(map[string]bool)
	for i := range d.params {
		p := &d.params[i]
		if !namePattern.MatchString(p.Name) {
			return fmt.Errorf("parameter name %q is not a valid identifier", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		if qsql.IsReservedToken(p.Name) {
			return fmt.Errorf("parameter %q collides with a reserved pagination token", p.Name)
		}
		if p.Type == "" {
			p.Type = TypeAny
		}
		if !p.Type.Valid() {
			return fmt.Errorf("parameter %q has unknown type %q", p.Name, p.Type)
		}
	}

	if err := qsql.ValidateParameterDefinitions(d.sql, paramNames(d.params)); err != nil {
		return fmt.Errorf("base SQL: %w", err)
	}
	return nil
}

func validateCriteria(d *QueryDefinition) error {
	declared := paramNames(d.params)
	seen := make(map[string]bool)
	for _, c := range d.criteria {
		if !namePattern.MatchString(c.Name) {
			return fmt.Errorf("criteria name %q is not a valid identifier", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate criteria %q", c.Name)
		}
		seen[c.Name] = true
		if qsql.IsReservedPlaceholder(c.Name) {
			return fmt.Errorf("criteria name %q is reserved", c.Name)
		}
		switch n := qsql.CountPlaceholder(d.sql, c.Name); n {
		case 1:
		case 0:
			return fmt.Errorf("criteria %q has no --%s placeholder in the base SQL", c.Name, c.Name)
		default:
			return fmt.Errorf("criteria %q placeholder --%s appears %d times", c.Name, c.Name, n)
		}
		if strings.TrimSpace(c.SQL) == "" {
			return fmt.Errorf("criteria %q has an empty SQL fragment", c.Name)
		}
		if err := qsql.ValidateParameterDefinitions(c.SQL, declared); err != nil {
			return fmt.Errorf("criteria %q: %w", c.Name, err)
		}
	}

	for _, reserved := range []string{qsql.PlaceholderFilters, qsql.PlaceholderOrderBy} {
		if n := qsql.CountPlaceholder(d.sql, reserved); n > 1 {
			return fmt.Errorf("placeholder --%s appears %d times", reserved, n)
		}
	}
	return nil
}

func validateAttributes(d *QueryDefinition) error {
	if len(d.attributes) == 0 {
		return fmt.Errorf("at least one attribute is required")
	}

	position := make(map[string]int, len(d.attributes))
	for i := range d.attributes {
		a := &d.attributes[i]
		if !namePattern.MatchString(a.Name) {
			return fmt.Errorf("attribute name %q is not a valid identifier", a.Name)
		}
		if _, dup := position[a.Name]; dup {
			return fmt.Errorf("duplicate attribute %q", a.Name)
		}
		position[a.Name] = i

		if a.Type == "" {
			a.Type = TypeAny
		}
		if !a.Type.Valid() {
			return fmt.Errorf("attribute %q has unknown type %q", a.Name, a.Type)
		}

		if a.Virtual {
			if a.Calculator == nil {
				return fmt.Errorf("virtual attribute %q needs a calculator", a.Name)
			}
			if a.Column != "" {
				return fmt.Errorf("virtual attribute %q must not map a column", a.Name)
			}
			if a.Filterable {
				return fmt.Errorf("virtual attribute %q cannot be filterable", a.Name)
			}
			if a.Sortable && a.SortProperty == "" {
				return fmt.Errorf("virtual attribute %q is sortable but has no sort property", a.Name)
			}
			if a.SortProperty != "" && !columnPattern.MatchString(a.SortProperty) {
				return fmt.Errorf("attribute %q has invalid sort property %q", a.Name, a.SortProperty)
			}
		} else {
			if a.Calculator != nil {
				return fmt.Errorf("attribute %q has a calculator but is not virtual", a.Name)
			}
			if a.Column == "" {
				a.Column = a.Name
			}
			if !columnPattern.MatchString(a.Column) {
				return fmt.Errorf("attribute %q has invalid column %q", a.Name, a.Column)
			}
		}
	}

	for i, a := range d.attributes {
		for _, dep := range a.DependsOn {
			j, ok := position[dep]
			if !ok {
				return fmt.Errorf("attribute %q depends on unknown attribute %q", a.Name, dep)
			}
			if d.attributes[j].Virtual && j >= i {
				return fmt.Errorf("attribute %q depends on virtual attribute %q declared after it", a.Name, dep)
			}
		}
	}
	return nil
}

func paramNames(params []ParamDef) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}
