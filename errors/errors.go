// Package errors provides custom error types for the mutation kit
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the failure mode of a mutation operation
type Kind string

const (
	// KindInvalid means the requested transform cannot be applied to the
	// current entity state. This is the only kind surfaced directly to the
	// caller of Apply.
	KindInvalid Kind = "INVALID"

	// KindRejected means the remote collaborator explicitly declined the
	// mutation. Triggers rollback.
	KindRejected Kind = "REJECTED"

	// KindUnknown means the request was dispatched but no definitive
	// confirmation arrived (transport failure, timeout, ambiguous response).
	KindUnknown Kind = "UNKNOWN"

	// KindStorage means the entity store failed an operation.
	KindStorage Kind = "STORAGE"

	// KindTransport means the transport layer failed before a response
	// could be classified as rejected or unknown.
	KindTransport Kind = "TRANSPORT"

	// KindAudit marks audit emission failures. Swallowed by policy,
	// never surfaced, never retried.
	KindAudit Kind = "AUDIT"

	// KindConflict means a resolution arrived for a superseded mutation.
	KindConflict Kind = "CONFLICT"
)

// Operation represents the type of mutation operation
type Operation string

const (
	OpApply     Operation = "apply"
	OpTransform Operation = "transform"
	OpSnapshot  Operation = "snapshot"
	OpSubmit    Operation = "submit"
	OpReconcile Operation = "reconcile"
	OpRollback  Operation = "rollback"
	OpAudit     Operation = "audit"
	OpStore     Operation = "store"
	OpLoad      Operation = "load"
	OpClose     Operation = "close"
)

// Component identifies the subsystem an error originated in
type Component string

// MutationError represents an error that occurred during the optimistic
// mutation protocol
type MutationError struct {
	// Operation during which the error occurred
	Op Operation

	// Component that generated the error (e.g., "store", "remote")
	Component Component

	// Kind classifies the failure mode
	Kind Kind

	// Underlying error
	Err error

	// Whether the operation can be retried
	Retryable bool

	// Metadata for additional context
	Metadata map[string]interface{}
}

func (e *MutationError) Error() string {
	var b strings.Builder
	if e.Component != "" {
		fmt.Fprintf(&b, "%s operation failed in %s component", e.Op, e.Component)
	} else {
		fmt.Fprintf(&b, "%s operation failed", e.Op)
	}

	if e.Kind != "" {
		fmt.Fprintf(&b, " [%s]", e.Kind)
	}

	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// E builds a MutationError from a variable list of arguments. Recognized
// types: Operation, Component, Kind, error, string (collected into Metadata
// notes), map[string]interface{} (merged into Metadata), bool (Retryable).
// Arguments of other types are ignored.
func E(args ...interface{}) *MutationError {
	e := &MutationError{}
	var notes []string
	for _, arg := range args {
		switch a := arg.(type) {
		case Operation:
			e.Op = a
		case Component:
			e.Component = a
		case Kind:
			e.Kind = a
		case *MutationError:
			e.Err = a
			if e.Kind == "" {
				e.Kind = a.Kind
			}
			e.Retryable = e.Retryable || a.Retryable
		case error:
			e.Err = a
		case string:
			notes = append(notes, a)
		case map[string]interface{}:
			if e.Metadata == nil {
				e.Metadata = make(map[string]interface{}, len(a))
			}
			for k, v := range a {
				e.Metadata[k] = v
			}
		case bool:
			e.Retryable = a
		}
	}
	if len(notes) > 0 {
		if e.Metadata == nil {
			e.Metadata = make(map[string]interface{}, 1)
		}
		e.Metadata["notes"] = strings.Join(notes, "; ")
	}
	if e.Err == nil {
		e.Err = errors.New("unknown error")
	}
	return e
}

// Op converts a string into an Operation for use with E
func Op(s string) Operation { return Operation(s) }

// New creates a new MutationError
func New(op Operation, err error) *MutationError {
	return &MutationError{
		Op:  op,
		Err: err,
	}
}

// NewWithComponent creates a new MutationError with component information
func NewWithComponent(op Operation, component Component, err error) *MutationError {
	return &MutationError{
		Op:        op,
		Component: component,
		Err:       err,
	}
}

// NewInvalidMutation creates the error returned when a transform cannot be
// applied to the entity's current state
func NewInvalidMutation(op Operation, cause error) *MutationError {
	return &MutationError{
		Kind:      KindInvalid,
		Op:        op,
		Component: "controller",
		Err:       cause,
		Retryable: false,
	}
}

// NewStorageError creates a new store-related MutationError
func NewStorageError(op Operation, cause error) *MutationError {
	return &MutationError{
		Kind:      KindStorage,
		Op:        op,
		Component: "store",
		Err:       cause,
		Retryable: true,
	}
}

// NewTransportError creates a new transport-related MutationError
func NewTransportError(op Operation, cause error) *MutationError {
	return &MutationError{
		Kind:      KindTransport,
		Op:        op,
		Component: "remote",
		Err:       cause,
		Retryable: true,
	}
}

// NewAuditError creates a new audit MutationError. Callers discard it by
// policy; the type exists so the discard is explicit rather than accidental.
func NewAuditError(cause error) *MutationError {
	return &MutationError{
		Kind:      KindAudit,
		Op:        OpAudit,
		Component: "auditor",
		Err:       cause,
		Retryable: false,
	}
}

// IsRetryable checks if an error is a retryable MutationError
func IsRetryable(err error) bool {
	var mErr *MutationError
	if errors.As(err, &mErr) {
		return mErr.Retryable
	}
	return false
}

// KindOf extracts the Kind from an error chain, or "" if none is present
func KindOf(err error) Kind {
	var mErr *MutationError
	if errors.As(err, &mErr) {
		return mErr.Kind
	}
	return ""
}

// IsInvalidMutation reports whether err classifies as an invalid mutation
func IsInvalidMutation(err error) bool {
	return KindOf(err) == KindInvalid
}
