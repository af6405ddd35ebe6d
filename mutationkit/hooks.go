package mutationkit

// Hooks provides callbacks for observing the mutation lifecycle. All fields
// are optional. Callbacks run synchronously on the resolving goroutine and
// must not call back into the controller.
type Hooks struct {
	// OnTentative fires right after the tentative value is written.
	OnTentative func(req MutationRequest, tentative Entity)

	// OnReconciled fires after the canonical server value replaced the
	// tentative one.
	OnReconciled func(req MutationRequest, canonical Entity)

	// OnRolledBack fires after the pre-mutation snapshot was restored.
	OnRolledBack func(req MutationRequest, reason string)

	// OnKeptOptimistic fires when an unknown outcome kept the tentative value.
	OnKeptOptimistic func(req MutationRequest, reason string)

	// OnSuperseded fires when a stale resolution was dropped.
	OnSuperseded func(req MutationRequest)
}

func (h *Hooks) tentative(req MutationRequest, e Entity) {
	if h != nil && h.OnTentative != nil {
		h.OnTentative(req, e)
	}
}

func (h *Hooks) reconciled(req MutationRequest, e Entity) {
	if h != nil && h.OnReconciled != nil {
		h.OnReconciled(req, e)
	}
}

func (h *Hooks) rolledBack(req MutationRequest, reason string) {
	if h != nil && h.OnRolledBack != nil {
		h.OnRolledBack(req, reason)
	}
}

func (h *Hooks) keptOptimistic(req MutationRequest, reason string) {
	if h != nil && h.OnKeptOptimistic != nil {
		h.OnKeptOptimistic(req, reason)
	}
}

func (h *Hooks) superseded(req MutationRequest) {
	if h != nil && h.OnSuperseded != nil {
		h.OnSuperseded(req)
	}
}
