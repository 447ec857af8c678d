package models

import (
	"time"

	"github.com/google/uuid"
)

// AttributeInfo describes an attribute as seen by the caller of one execution.
type AttributeInfo struct {
	Name       string   `json:"name"`
	Type       DataType `json:"type"`
	Virtual    bool     `json:"virtual"`
	Visible    bool     `json:"visible"`
	Filterable bool     `json:"filterable"`
	Sortable   bool     `json:"sortable"`
}

// Timings records how long each execution phase took.
type Timings struct {
	Assemble time.Duration `json:"assemble"`
	Count    time.Duration `json:"count"`
	Main     time.Duration `json:"main"`
	Pipeline time.Duration `json:"pipeline"`
	Total    time.Duration `json:"total"`
}

// Metadata describes how a result was produced.
type Metadata struct {
	ExecutionID     uuid.UUID         `json:"execution_id"`
	Query           string            `json:"query"`
	Dialect         string            `json:"dialect"`
	AppliedCriteria []AppliedCriteria `json:"applied_criteria"`
	AppliedFilters  []AppliedFilter   `json:"applied_filters"`
	Sorts           []Sort            `json:"sorts"`
	Page            *Page             `json:"page,omitempty"`
	TotalCount      *int64            `json:"total_count,omitempty"`
	RowCount        int               `json:"row_count"`
	Attributes      []AttributeInfo   `json:"attributes"`
	CacheUsed       bool              `json:"cache_used"`
	Stage           string            `json:"stage"`
	Timings         Timings           `json:"timings"`
}

// Result is the outcome of a successful execution.
type Result struct {
	Rows       []*Row         `json:"rows"`
	TotalCount *int64         `json:"total_count,omitempty"`
	Metadata   *Metadata      `json:"metadata,omitempty"`
	Aggregates map[string]any `json:"aggregates,omitempty"`
	Success    bool           `json:"success"`
	Message    string         `json:"message,omitempty"`
}
