package models

// ParamProcessor transforms or rejects a runtime parameter value.
type ParamProcessor func(value any) (any, error)

// ParamDef declares a bind parameter.
type ParamDef struct {
	Name        string
	Type        DataType
	Required    bool
	Default     any
	Processor   ParamProcessor
	Description string
}

// Condition decides whether a criteria fragment applies to an execution.
type Condition func(qc *QueryContext) bool

// CriteriaDef is an optional SQL fragment substituted at its --name placeholder.
type CriteriaDef struct {
	Name        string
	SQL         string
	Condition   Condition
	Description string
}
