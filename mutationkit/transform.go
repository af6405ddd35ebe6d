package mutationkit

import (
	"fmt"
	"sync"
)

// TransformFunc is a pure function producing the next entity value from the
// current one and a mutation request. Returning a nil next value means the
// entity is deleted. For create kinds, current is nil and the transform must
// synthesize a placeholder using req.EntityID as its id.
//
// Transforms should be absolute ("set status to inactive") rather than
// relative ("flip status"): re-applying a confirmed absolute mutation leaves
// the store unchanged, which is what makes confirmation idempotent.
type TransformFunc func(current Entity, req MutationRequest) (Entity, error)

// ReconcileMode decides what happens to the tentative value when the remote
// confirms a mutation.
type ReconcileMode string

const (
	// ReconcileServer replaces the tentative value with the canonical
	// server entity (strict consistency).
	ReconcileServer ReconcileMode = "server"

	// TrustLocal keeps the tentative value and ignores the server echo
	// (responsiveness over strict consistency).
	TrustLocal ReconcileMode = "local"
)

// UnknownMode decides what happens to the tentative value when the outcome
// is unknown. The choice is made per mutation kind, explicitly, at
// registration time.
type UnknownMode string

const (
	// RollbackOnUnknown restores the pre-mutation snapshot and surfaces an
	// error notification.
	RollbackOnUnknown UnknownMode = "rollback"

	// KeepAndWarn keeps the tentative value and surfaces a soft warning
	// that the change may not have persisted.
	KeepAndWarn UnknownMode = "keep"
)

// KindSpec describes one registered mutation kind: its transform, whether it
// may create entities, and its resolution policies.
type KindSpec struct {
	Kind      MutationKind
	Transform TransformFunc

	// Creates marks kinds that synthesize a new entity; the target entity
	// is allowed to be absent from the store.
	Creates bool

	// Reconcile selects the confirmed-outcome policy. Defaults to
	// ReconcileServer.
	Reconcile ReconcileMode

	// OnUnknown selects the unknown-outcome policy. Defaults to
	// RollbackOnUnknown.
	OnUnknown UnknownMode
}

// Registry holds the mutation kinds a controller can dispatch. Lookup is
// thread safe; registration normally happens once at startup.
type Registry struct {
	mu    sync.RWMutex
	specs map[MutationKind]KindSpec
}

// NewRegistry creates an empty mutation kind registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[MutationKind]KindSpec),
	}
}

// Register adds a kind spec, applying policy defaults. Registering an empty
// kind or a nil transform is an error; re-registering a kind replaces it.
func (r *Registry) Register(spec KindSpec) error {
	if spec.Kind == "" {
		return fmt.Errorf("mutation kind cannot be empty")
	}
	if spec.Transform == nil {
		return fmt.Errorf("mutation kind %q has no transform", spec.Kind)
	}

	if spec.Reconcile == "" {
		spec.Reconcile = ReconcileServer
	}
	if spec.OnUnknown == "" {
		spec.OnUnknown = RollbackOnUnknown
	}

	switch spec.Reconcile {
	case ReconcileServer, TrustLocal:
	default:
		return fmt.Errorf("mutation kind %q has invalid reconcile mode %q", spec.Kind, spec.Reconcile)
	}
	switch spec.OnUnknown {
	case RollbackOnUnknown, KeepAndWarn:
	default:
		return fmt.Errorf("mutation kind %q has invalid unknown mode %q", spec.Kind, spec.OnUnknown)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Kind] = spec
	return nil
}

// Get retrieves the spec for a kind.
func (r *Registry) Get(kind MutationKind) (KindSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[kind]
	return spec, ok
}

// Kinds returns all registered kinds for debugging/introspection.
func (r *Registry) Kinds() []MutationKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]MutationKind, 0, len(r.specs))
	for k := range r.specs {
		kinds = append(kinds, k)
	}
	return kinds
}

// SetPolicy overrides the resolution policies of an already registered kind.
// Used by the policy config loader.
func (r *Registry) SetPolicy(kind MutationKind, reconcile ReconcileMode, onUnknown UnknownMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	spec, ok := r.specs[kind]
	if !ok {
		return fmt.Errorf("mutation kind %q is not registered", kind)
	}
	if reconcile != "" {
		if reconcile != ReconcileServer && reconcile != TrustLocal {
			return fmt.Errorf("invalid reconcile mode %q for kind %q", reconcile, kind)
		}
		spec.Reconcile = reconcile
	}
	if onUnknown != "" {
		if onUnknown != RollbackOnUnknown && onUnknown != KeepAndWarn {
			return fmt.Errorf("invalid unknown mode %q for kind %q", onUnknown, kind)
		}
		spec.OnUnknown = onUnknown
	}
	r.specs[kind] = spec
	return nil
}
