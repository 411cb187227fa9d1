package models

import "time"

type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
	AuditOutcomeError   AuditOutcome = "error"
)

// OutcomeForStatus classifies an HTTP status into an audit outcome.
func OutcomeForStatus(status int) AuditOutcome {
	switch {
	case status < 400:
		return AuditOutcomeSuccess
	case status < 500:
		return AuditOutcomeFailure
	default:
		return AuditOutcomeError
	}
}

// AuditEntry is append-only: written once per audited request, never
// updated or deleted by the application.
type AuditEntry struct {
	ID            string
	ActorUserID   string
	ActorUsername string
	Action        string
	ResourceType  string
	ResourceID    string
	Details       string
	ClientIP      string
	UserAgent     string
	DurationMs    int64
	Outcome       AuditOutcome
	CreatedAt     time.Time
}
