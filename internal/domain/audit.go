package domain

import (
	"context"
	"time"
)

// AuditResult classifies an authorization decision in the audit trail.
// "blocked" denotes a lockout-caused denial, distinct from a plain
// permission or rate denial.
type AuditResult string

const (
	AuditAllowed AuditResult = "allowed"
	AuditDenied  AuditResult = "denied"
	AuditBlocked AuditResult = "blocked"
)

// AuditEntry is an immutable record of one authorization decision.
// Appended, never mutated or deleted.
type AuditEntry struct {
	ID        string      `json:"id"` // ULID, assigned by the audit log
	Timestamp time.Time   `json:"timestamp"`
	Identity  Identity    `json:"identity"`
	Action    string      `json:"action"`
	Result    AuditResult `json:"result"`
	Detail    string      `json:"detail,omitempty"`
}

// AuditSink is a durable append-only store for audit entries. Best-effort:
// append failures are logged by the caller, never propagated to the request.
type AuditSink interface {
	Append(ctx context.Context, entry AuditEntry) error
	Close() error
}

// AlertSeverity ranks security alerts raised from audit decisions.
type AlertSeverity string

const (
	AlertMedium AlertSeverity = "medium" // plain denials
	AlertHigh   AlertSeverity = "high"   // lockout-caused (blocked) denials
)

// Alert is a security notification derived from an audit decision.
type Alert struct {
	Severity AlertSeverity
	Identity Identity
	Message  string
	At       time.Time
}

// Alerter dispatches a security alert to one notification channel.
// Fire-and-forget: dispatch failures never affect the audit record.
type Alerter interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}
