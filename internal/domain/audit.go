package domain

import "time"

// ActorType distinguishes who initiated a checkout action.
type ActorType string

const (
	// ActorAgent marks actions performed by an AI agent on behalf of a user.
	ActorAgent ActorType = "agent"
	// ActorUser marks actions performed directly by a human.
	ActorUser ActorType = "user"
	// ActorSystem marks internally triggered actions.
	ActorSystem ActorType = "system"
)

// ExecutionStatus records the outcome of an audited action.
type ExecutionStatus string

const (
	// ExecutionSucceeded indicates the action completed and state was committed.
	ExecutionSucceeded ExecutionStatus = "succeeded"
	// ExecutionFailed indicates the action errored before producing its effect.
	ExecutionFailed ExecutionStatus = "failed"
	// ExecutionRejected indicates the action was refused (validation, payment decline).
	ExecutionRejected ExecutionStatus = "rejected"
)

// AuditActor identifies the initiator of an audited action.
type AuditActor struct {
	Type ActorType
	ID   string
}

// AuditIntent captures the stated purpose behind an action.
type AuditIntent struct {
	Type          string
	Confidence    float64
	UserUtterance string
}

// AuditAction describes the operation performed and its sanitized input.
type AuditAction struct {
	Type           string
	Input          map[string]any
	IdempotencyKey string
}

// AuditVerification records pre-execution checks.
type AuditVerification struct {
	SchemaValid bool
	Approved    bool
	FailReasons []string
}

// AuditExecution records how the action ran.
type AuditExecution struct {
	Status    ExecutionStatus
	Service   string
	LatencyMS int64
	ResultRef string
	Error     string
}

// AuditEvent is one append-only entry in a session's action log.
type AuditEvent struct {
	ActionID     string
	SessionID    string
	Timestamp    time.Time
	Actor        AuditActor
	Intent       AuditIntent
	Action       AuditAction
	Verification AuditVerification
	Execution    AuditExecution
}
