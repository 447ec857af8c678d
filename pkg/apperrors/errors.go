package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrDefinition = errors.New("invalid query definition")
	ErrValidation = errors.New("invalid query request")
	ErrExecution  = errors.New("query execution failed")
	ErrRowSealed  = errors.New("row is read-only after processing")
)

// Code classifies a QueryError for callers.
type Code string

const (
	CodeDefinition Code = "definition-error"
	CodeValidation Code = "validation-error"
	CodeNotFound   Code = "not-found"
	CodeExecution  Code = "execution-error"
)

// QueryError is the typed error returned by the engine. It carries the
// originating query name, a code, the execution stage that failed and the cause.
type QueryError struct {
	Query   string
	Code    Code
	Stage   string
	Message string
	Timeout bool
	Cause   error
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("query %q: %s", e.Query, e.Code)
	if e.Stage != "" {
		msg += " at " + e.Stage
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel that corresponds to the error code.
func (e *QueryError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == CodeNotFound
	case ErrDefinition:
		return e.Code == CodeDefinition
	case ErrValidation:
		return e.Code == CodeValidation
	case ErrExecution:
		return e.Code == CodeExecution
	}
	return false
}

// NewDefinitionError reports a query definition that failed to build.
func NewDefinitionError(query, format string, args ...any) *QueryError {
	return &QueryError{Query: query, Code: CodeDefinition, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports a request rejected before any SQL ran.
func NewValidationError(query, format string, args ...any) *QueryError {
	return &QueryError{Query: query, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports an unknown query name.
func NewNotFoundError(query string) *QueryError {
	return &QueryError{Query: query, Code: CodeNotFound, Message: "query is not registered", Cause: ErrNotFound}
}

// NewExecutionError wraps a failure that happened while talking to the database.
func NewExecutionError(query, stage string, cause error) *QueryError {
	return &QueryError{Query: query, Code: CodeExecution, Stage: stage, Cause: cause}
}

// CodeOf returns the code of err if it is (or wraps) a QueryError.
func CodeOf(err error) (Code, bool) {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code, true
	}
	return "", false
}
