// Package audit provides security audit logging for SIEM consumption.
// Security-relevant query events are logged as structured JSON under the
// "security_audit" logger name.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-query/pkg/logging"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a parameter or filter value.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventRequestRejected is logged when a request fails validation before any SQL runs.
	EventRequestRejected SecurityEventType = "request_rejected"
	// EventQueryExecution is logged for successful executions (high volume, opt-in).
	EventQueryExecution SecurityEventType = "query_execution"
)

// maxValueLength bounds parameter values copied into audit events.
const maxValueLength = 200

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	Timestamp   time.Time         `json:"timestamp"`
	EventType   SecurityEventType `json:"event_type"`
	Query       string            `json:"query"`
	ExecutionID uuid.UUID         `json:"execution_id"`
	Subject     string            `json:"subject,omitempty"`
	Details     any               `json:"details"`
	Severity    string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails describes a value rejected by the injection guard.
type SQLInjectionDetails struct {
	ParamName   string `json:"param_name"`
	ParamValue  string `json:"param_value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// SecurityAuditor logs security events. A nil *SecurityAuditor discards them.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates an auditor logging under the "security_audit" name.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

func subjectOf(sc models.SecurityContext) string {
	if sc == nil {
		return ""
	}
	return sc.Subject()
}

func (a *SecurityAuditor) event(eventType SecurityEventType, query string, executionID uuid.UUID, sc models.SecurityContext, severity string, details any) (SecurityEvent, string) {
	event := SecurityEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		Query:       query,
		ExecutionID: executionID,
		Subject:     subjectOf(sc),
		Details:     details,
		Severity:    severity,
	}
	// Known types only; marshaling cannot fail.
	eventJSON, _ := json.Marshal(event)
	return event, string(eventJSON)
}

// LogInjectionAttempt records every value the injection guard rejected.
// Logged at ERROR with "critical" severity for immediate alerting.
func (a *SecurityAuditor) LogInjectionAttempt(query string, executionID uuid.UUID, sc models.SecurityContext, details []SQLInjectionDetails) {
	if a == nil {
		return
	}
	for _, d := range details {
		d.ParamValue = logging.TruncateString(d.ParamValue, maxValueLength)
		event, eventJSON := a.event(EventSQLInjectionAttempt, query, executionID, sc, "critical", d)
		a.logger.Error("SQL injection attempt detected",
			zap.String("event_json", eventJSON),
			zap.String("query", query),
			zap.String("execution_id", executionID.String()),
			zap.String("param_name", d.ParamName),
			zap.String("fingerprint", d.Fingerprint),
			zap.String("subject", event.Subject),
			zap.String("severity", event.Severity),
		)
	}
}

// LogRequestRejected records a validation failure. These are usually caller
// mistakes, so the level is WARN.
func (a *SecurityAuditor) LogRequestRejected(query string, executionID uuid.UUID, sc models.SecurityContext, reason string) {
	if a == nil {
		return
	}
	event, eventJSON := a.event(EventRequestRejected, query, executionID, sc, "warning", map[string]string{"error": reason})
	a.logger.Warn("Query request rejected",
		zap.String("event_json", eventJSON),
		zap.String("query", query),
		zap.String("execution_id", executionID.String()),
		zap.String("error", reason),
		zap.String("subject", event.Subject),
		zap.String("severity", event.Severity),
	)
}

// LogQueryExecution records a successful execution.
func (a *SecurityAuditor) LogQueryExecution(query string, executionID uuid.UUID, sc models.SecurityContext, rows int) {
	if a == nil {
		return
	}
	event, eventJSON := a.event(EventQueryExecution, query, executionID, sc, "info", map[string]int{"rows": rows})
	a.logger.Info("Query executed",
		zap.String("event_json", eventJSON),
		zap.String("query", query),
		zap.String("execution_id", executionID.String()),
		zap.Int("rows", rows),
		zap.String("subject", event.Subject),
		zap.String("severity", event.Severity),
	)
}
