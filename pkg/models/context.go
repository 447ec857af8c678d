package models

import (
	"maps"
	"time"
)

// SecurityContext is the caller identity handed to security rules.
type SecurityContext interface {
	Subject() string
	HasRole(role string) bool
}

// AppliedCriteria records a criteria fragment that was substituted into the SQL.
type AppliedCriteria struct {
	Name   string         `json:"name"`
	SQL    string         `json:"sql"`
	Params map[string]any `json:"params,omitempty"`
	Reason string         `json:"reason"` // "condition" or "params-present"
}

// Reasons a criteria fragment was applied.
const (
	ReasonCondition     = "condition"
	ReasonParamsPresent = "params-present"
)

// AppliedFilter records a runtime filter rendered into the SQL.
type AppliedFilter struct {
	Attribute string   `json:"attribute"`
	Column    string   `json:"column"`
	Operator  Operator `json:"operator"`
	SQL       string   `json:"sql"`
	Params    []string `json:"params,omitempty"`
}

// QueryContext carries the state of a single execution. It is owned by one
// goroutine and must not be shared between executions.
type QueryContext struct {
	Definition      *QueryDefinition
	Params          map[string]any
	Filters         []Filter
	Sorts           []Sort
	Page            *Page
	Security        SecurityContext
	IncludeMetadata bool
	StartedAt       time.Time

	// Visibility caches the outcome of attribute security rules. It is filled
	// during pre-processing and consulted by the row pipeline.
	Visibility map[string]bool

	AppliedCriteria []AppliedCriteria
	AppliedFilters  []AppliedFilter
}

// NewQueryContext builds the execution state for req. The parameter map is
// copied so processors never mutate caller data.
func NewQueryContext(def *QueryDefinition, req Request) *QueryContext {
	params := make(map[string]any, len(req.Params))
	maps.Copy(params, req.Params)

	qc := &QueryContext{
		Definition:      def,
		Params:          params,
		Filters:         append([]Filter(nil), req.Filters...),
		Sorts:           append([]Sort(nil), req.Sorts...),
		Security:        req.Security,
		IncludeMetadata: req.IncludeMetadata,
		StartedAt:       time.Now(),
	}
	if req.Page != nil {
		p := *req.Page
		qc.Page = &p
	}
	return qc
}

// Param returns a runtime parameter.
func (qc *QueryContext) Param(name string) (any, bool) {
	v, ok := qc.Params[name]
	return v, ok
}

// HasParam reports whether name is present with a non-nil value.
func (qc *QueryContext) HasParam(name string) bool {
	v, ok := qc.Params[name]
	return ok && v != nil
}

// SetParam stores a runtime parameter value.
func (qc *QueryContext) SetParam(name string, value any) {
	if qc.Params == nil {
		qc.Params = make(map[string]any)
	}
	qc.Params[name] = value
}

// IsVisible reports whether the caller may see attribute name. Without a
// precomputed visibility map the attribute's rule is evaluated directly.
func (qc *QueryContext) IsVisible(attr AttributeDef) bool {
	if v, ok := qc.Visibility[attr.Name]; ok {
		return v
	}
	return attr.Visible(qc.Security)
}

// Paginated reports whether a page window was requested.
func (qc *QueryContext) Paginated() bool {
	return qc.Page != nil
}
