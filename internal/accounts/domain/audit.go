package domain

import "time"

// Audit event actions. Impersonation events are a required side effect of
// the impersonation manager, not optional telemetry.
const (
	AuditImpersonateStart = "impersonate_start"
	AuditImpersonateStop  = "impersonate_stop"
)

// AuditEvent records who did what to whom.
type AuditEvent struct {
	ID        string
	ActorID   string // the user performing the action
	SubjectID string // the user acted upon
	Action    string

	CreatedAt time.Time
}
