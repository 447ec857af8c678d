package models

import "slices"

// Calculator derives the value of a virtual attribute from the row built so far.
type Calculator func(row *Row, qc *QueryContext) (any, error)

// Formatter renders an attribute value for presentation.
type Formatter func(value any) (string, error)

// SecurityRule decides whether the caller may see an attribute.
type SecurityRule func(sc SecurityContext) bool

// AttributeDef describes one column of the query result.
type AttributeDef struct {
	Name         string
	Type         DataType
	Column       string // result column alias; empty for virtual attributes
	Filterable   bool
	Sortable     bool
	Virtual      bool
	Calculator   Calculator
	Formatter    Formatter
	Security     SecurityRule
	SortProperty string   // column a virtual attribute sorts by
	DependsOn    []string // attributes a calculator reads from the row
	Description  string
}

// Visible evaluates the security rule. Attributes without a rule are always visible.
func (a AttributeDef) Visible(sc SecurityContext) bool {
	if a.Security == nil {
		return true
	}
	return a.Security(sc)
}

// SortColumn returns the column used in ORDER BY, or "" when the attribute cannot be sorted.
func (a AttributeDef) SortColumn() string {
	if !a.Sortable {
		return ""
	}
	if a.Virtual {
		return a.SortProperty
	}
	return a.Column
}

func (a AttributeDef) clone() AttributeDef {
	a.DependsOn = slices.Clone(a.DependsOn)
	return a
}

// RequireRole returns a rule granting access to callers holding any of roles.
// A missing security context is denied.
func RequireRole(roles ...string) SecurityRule {
	return func(sc SecurityContext) bool {
		if sc == nil {
			return false
		}
		for _, r := range roles {
			if sc.HasRole(r) {
				return true
			}
		}
		return false
	}
}
