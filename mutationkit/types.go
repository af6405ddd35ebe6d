// Package mutationkit provides a generic optimistic-mutation controller for
// client-side entity collections. A mutation is applied to the local store
// synchronously, dispatched to a remote collaborator asynchronously, and the
// store is reconciled or rolled back when the outcome arrives. Supports
// pluggable stores, transports, audit sinks and per-kind resolution policies.
package mutationkit

import (
	"context"
	"time"
)

// Entity is a mutable record with a stable identifier. Implementations must
// provide deep copies via Clone; the controller captures clones as rollback
// snapshots and restores them verbatim on rejection.
type Entity interface {
	// ID returns the stable identifier of this entity
	ID() string

	// Clone returns a deep copy that shares no mutable state with the receiver
	Clone() Entity
}

// MutationKind identifies a registered mutation type (e.g., "toggle_status",
// "create_user"). Each kind carries its own payload shape and transform.
type MutationKind string

// MutationRequest describes a change being attempted against one entity.
type MutationRequest struct {
	// EntityID is the target entity. For create kinds it may be empty, in
	// which case the controller assigns a temporary id before the transform
	// runs.
	EntityID string `json:"entity_id"`

	// Kind selects the registered transform and resolution policy.
	Kind MutationKind `json:"kind"`

	// Payload is the kind-specific payload. Transforms assert it to their
	// own concrete type.
	Payload any `json:"payload,omitempty"`

	// Actor identifies who initiated the mutation, for audit trails.
	Actor string `json:"actor,omitempty"`
}

// OutcomeStatus classifies the remote collaborator's answer.
type OutcomeStatus string

const (
	// OutcomeConfirmed means the server accepted the mutation.
	OutcomeConfirmed OutcomeStatus = "confirmed"

	// OutcomeRejected means the server explicitly declined the mutation.
	OutcomeRejected OutcomeStatus = "rejected"

	// OutcomeUnknown means the request was sent but no definitive
	// confirmation arrived (transport failure, timeout, ambiguous response).
	OutcomeUnknown OutcomeStatus = "unknown"
)

// Outcome is the remote collaborator's eventual answer to a mutation.
type Outcome struct {
	Status OutcomeStatus

	// Entity holds the canonical server value for confirmed outcomes.
	// May be nil when the server confirms without echoing a body.
	Entity Entity

	// Reason describes why a mutation was rejected or why the outcome
	// is unknown.
	Reason string
}

// Confirmed builds a confirmed outcome carrying the canonical server entity.
func Confirmed(entity Entity) Outcome {
	return Outcome{Status: OutcomeConfirmed, Entity: entity}
}

// Rejected builds a rejected outcome with the server's reason.
func Rejected(reason string) Outcome {
	return Outcome{Status: OutcomeRejected, Reason: reason}
}

// Unknown builds an unknown outcome with a best-effort description.
func Unknown(reason string) Outcome {
	return Outcome{Status: OutcomeUnknown, Reason: reason}
}

// ResultStatus is the terminal state of a mutation from the store's
// perspective.
type ResultStatus string

const (
	// ResultReconciled means the tentative value was replaced with the
	// canonical server value.
	ResultReconciled ResultStatus = "reconciled"

	// ResultTrustedLocal means the mutation was confirmed and the tentative
	// value was kept as-is.
	ResultTrustedLocal ResultStatus = "trusted_local"

	// ResultRolledBack means the store was restored to the pre-mutation
	// snapshot.
	ResultRolledBack ResultStatus = "rolled_back"

	// ResultKeptOptimistic means the outcome was unknown and the tentative
	// value was kept with a soft warning.
	ResultKeptOptimistic ResultStatus = "kept_optimistic"

	// ResultSuperseded means a newer mutation on the same entity was issued
	// before this one resolved; the stale resolution did not touch the store.
	ResultSuperseded ResultStatus = "superseded"
)

// Result reports how a single mutation resolved.
type Result struct {
	Request  MutationRequest
	Status   ResultStatus
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Remote abstracts the collaborator a mutation is dispatched to. Transport
// implementations translate their own failure modes into outcomes; Submit
// should return an error only when the request could not be classified at
// all, which the controller treats as Unknown.
type Remote interface {
	// Submit dispatches the mutation and returns its eventual outcome
	Submit(ctx context.Context, req MutationRequest) (Outcome, error)

	// Close closes the remote connection
	Close() error
}

// RemoteFunc adapts a plain function to the Remote interface.
type RemoteFunc func(ctx context.Context, req MutationRequest) (Outcome, error)

func (f RemoteFunc) Submit(ctx context.Context, req MutationRequest) (Outcome, error) {
	return f(ctx, req)
}

func (f RemoteFunc) Close() error { return nil }

// AuditEntry describes one mutation for the audit trail.
type AuditEntry struct {
	ID        string       `json:"id"`
	EntityID  string       `json:"entity_id"`
	Kind      MutationKind `json:"kind"`
	Payload   any          `json:"payload,omitempty"`
	Actor     string       `json:"actor,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Auditor receives a description of every mutation. Emission is
// fire-and-forget: the controller never awaits it and discards failures by
// policy.
type Auditor interface {
	Emit(ctx context.Context, entry AuditEntry) error
	Close() error
}

// Severity grades user-facing notifications.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier surfaces mutation outcomes to the user. Calls are synchronous
// and must not block.
type Notifier interface {
	Notify(message string, severity Severity)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(message string, severity Severity)

func (f NotifierFunc) Notify(message string, severity Severity) { f(message, severity) }
