package mutationkit

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	mutErrors "github.com/c0deZ3R0/go-mutation-kit/errors"
	"github.com/c0deZ3R0/go-mutation-kit/logging"
)

// Controller executes the optimistic-update protocol: tentative store write,
// asynchronous remote dispatch, reconciliation or rollback on the outcome.
//
// At most one resolution per entity can win: each Apply bumps a per-entity
// sequence number and a resolution arriving for a stale sequence is dropped
// (ResultSuperseded). This prevents a slow first mutation's rollback from
// clobbering a faster second mutation on the same entity. Mutations on
// different entities are fully independent.
type Controller struct {
	store    EntityStore
	remote   Remote
	registry *Registry
	auditor  Auditor
	notifier Notifier
	metrics  MetricsCollector
	logger   *logging.Logger
	hooks    *Hooks
	timeout  time.Duration

	// mu guards seq, closed, and makes each store resolution atomic with
	// respect to its staleness check.
	mu     sync.Mutex
	seq    map[string]uint64
	closed bool
	wg     sync.WaitGroup
}

// Pending tracks one in-flight mutation. The tentative store write has
// already happened by the time Apply returns a Pending.
type Pending struct {
	request   MutationRequest
	tentative Entity

	done chan struct{}

	mu     sync.Mutex
	result Result
}

// Request returns the request as dispatched, including any controller
// assigned temporary id.
func (p *Pending) Request() MutationRequest { return p.request }

// Tentative returns the value written optimistically, or nil for deletes.
func (p *Pending) Tentative() Entity { return p.tentative }

// Done returns a channel closed when the mutation resolves.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Result returns the resolution and true once the mutation has settled.
func (p *Pending) Result() (Result, bool) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the mutation resolves or ctx is done.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (p *Pending) settle(result Result) {
	p.mu.Lock()
	p.result = result
	p.mu.Unlock()
	close(p.done)
}

// Apply executes one mutation request. The tentative value is written to the
// store synchronously before Apply returns; dispatch, audit and resolution
// happen asynchronously.
//
// Apply returns an error only when no tentative write occurred: an invalid
// mutation (unregistered kind, absent entity, transform failure) or a store
// failure. Remote rejections and transport failures never surface here; they
// resolve the returned Pending with a rolled-back or kept-optimistic result.
func (c *Controller) Apply(ctx context.Context, req MutationRequest) (*Pending, error) {
	const op = mutErrors.OpApply

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, mutErrors.New(op, fmt.Errorf("controller is closed"))
	}
	c.mu.Unlock()

	spec, ok := c.registry.Get(req.Kind)
	if !ok {
		return nil, mutErrors.NewInvalidMutation(op, fmt.Errorf("unregistered mutation kind %q", req.Kind))
	}

	if req.EntityID == "" {
		if !spec.Creates {
			return nil, mutErrors.NewInvalidMutation(op, fmt.Errorf("mutation kind %q requires an entity id", req.Kind))
		}
		req.EntityID = "tmp-" + uuid.NewString()
	}

	// Load the current value; absence is only legal for create kinds.
	var current Entity
	cur, err := c.store.Get(ctx, req.EntityID)
	switch {
	case err == nil:
		current = cur
	case stdErrors.Is(err, ErrEntityNotFound):
		if !spec.Creates {
			return nil, mutErrors.NewInvalidMutation(op,
				fmt.Errorf("entity %q not found for mutation kind %q", req.EntityID, req.Kind))
		}
	default:
		return nil, mutErrors.NewStorageError(mutErrors.OpLoad, err)
	}

	// Capture the exact rollback state before anything changes.
	var snapshot Entity
	if current != nil {
		snapshot, err = c.store.Snapshot(ctx, req.EntityID)
		if err != nil {
			return nil, mutErrors.NewStorageError(mutErrors.OpSnapshot, err)
		}
	}

	next, err := spec.Transform(current, req)
	if err != nil {
		return nil, mutErrors.NewInvalidMutation(mutErrors.OpTransform, err)
	}
	if next == nil && current == nil {
		return nil, mutErrors.NewInvalidMutation(mutErrors.OpTransform,
			fmt.Errorf("mutation kind %q deleted an absent entity", req.Kind))
	}

	// Tentative apply, atomic with the sequence bump so a concurrent
	// resolution cannot interleave between them.
	c.mu.Lock()
	if next == nil {
		err = c.store.Remove(ctx, req.EntityID)
	} else {
		err = c.store.Set(ctx, req.EntityID, next)
	}
	if err != nil {
		c.mu.Unlock()
		return nil, mutErrors.NewStorageError(mutErrors.OpStore, err)
	}
	c.seq[req.EntityID]++
	seq := c.seq[req.EntityID]
	c.mu.Unlock()

	c.metrics.RecordApply(string(req.Kind))
	c.hooks.tentative(req, next)
	c.logger.DebugContext(ctx, "tentative mutation applied",
		slog.String("entity_id", req.EntityID),
		slog.String("kind", string(req.Kind)),
	)

	c.emitAudit(ctx, req)

	p := &Pending{
		request:   req,
		tentative: next,
		done:      make(chan struct{}),
	}

	c.wg.Add(1)
	go c.resolve(ctx, spec, req, snapshot, seq, p)

	return p, nil
}

// ApplyAndWait is a convenience wrapper that applies the mutation and blocks
// until it resolves.
func (c *Controller) ApplyAndWait(ctx context.Context, req MutationRequest) (Result, error) {
	p, err := c.Apply(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return p.Wait(ctx)
}

// emitAudit dispatches the audit entry fire-and-forget. Failures are
// discarded by policy: logged at debug, counted, never surfaced or retried.
func (c *Controller) emitAudit(ctx context.Context, req MutationRequest) {
	if c.auditor == nil {
		return
	}

	entry := AuditEntry{
		ID:        uuid.NewString(),
		EntityID:  req.EntityID,
		Kind:      req.Kind,
		Payload:   req.Payload,
		Actor:     req.Actor,
		Timestamp: time.Now().UTC(),
	}

	// Detached from the caller's context: cancelling the originating
	// request must not lose the audit record.
	auditCtx := context.WithoutCancel(ctx)
	go func() {
		if err := c.auditor.Emit(auditCtx, entry); err != nil {
			auditErr := mutErrors.NewAuditError(err)
			c.metrics.RecordAuditFailure()
			c.logger.Debug("audit emit failed",
				slog.Any("mutation_error", logging.MutationErrorValuer{MutationError: auditErr}),
				slog.String("entity_id", entry.EntityID),
			)
		}
	}()
}

// resolve dispatches the mutation to the remote and reconciles or rolls back
// the store based on the outcome.
func (c *Controller) resolve(ctx context.Context, spec KindSpec, req MutationRequest, snapshot Entity, seq uint64, p *Pending) {
	defer c.wg.Done()
	start := time.Now()

	// Once dispatched, a mutation cannot be cancelled; the submit runs on
	// its own timeout regardless of the caller's context.
	subCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	outcome, err := c.remote.Submit(subCtx, req)
	if err != nil {
		outcome = Unknown(err.Error())
	}
	if outcome.Status == "" {
		outcome = Unknown("remote returned no outcome status")
	}

	result := Result{Request: req, Outcome: outcome}

	// Store resolution must not fail just because the originating request's
	// context ended while the mutation was in flight.
	storeCtx := context.WithoutCancel(ctx)

	c.mu.Lock()
	if c.closed || c.seq[req.EntityID] != seq {
		c.mu.Unlock()
		result.Status = ResultSuperseded
		result.Duration = time.Since(start)
		c.metrics.RecordSuperseded(string(req.Kind))
		c.hooks.superseded(req)
		p.settle(result)
		return
	}

	switch outcome.Status {
	case OutcomeConfirmed:
		result.Status, result.Err = c.reconcileLocked(storeCtx, spec, req, outcome)
	case OutcomeRejected:
		result.Status = ResultRolledBack
		result.Err = c.rollbackLocked(storeCtx, req, snapshot)
	default: // OutcomeUnknown
		if spec.OnUnknown == KeepAndWarn {
			result.Status = ResultKeptOptimistic
		} else {
			result.Status = ResultRolledBack
			result.Err = c.rollbackLocked(storeCtx, req, snapshot)
		}
	}
	c.mu.Unlock()

	result.Duration = time.Since(start)
	c.metrics.RecordResolution(string(req.Kind), string(result.Status), result.Duration)
	c.report(ctx, req, result)
	p.settle(result)
}

// reconcileLocked applies a confirmed outcome. Caller holds c.mu.
func (c *Controller) reconcileLocked(ctx context.Context, spec KindSpec, req MutationRequest, outcome Outcome) (ResultStatus, error) {
	if spec.Reconcile != ReconcileServer || outcome.Entity == nil {
		return ResultTrustedLocal, nil
	}

	canonicalID := outcome.Entity.ID()
	if canonicalID == "" {
		canonicalID = req.EntityID
	}

	// A create confirmed under a server-assigned id replaces the temporary
	// placeholder; the store must not end up with both entries.
	if canonicalID != req.EntityID {
		if err := c.store.Remove(ctx, req.EntityID); err != nil {
			return ResultReconciled, mutErrors.NewStorageError(mutErrors.OpReconcile, err)
		}
	}
	if err := c.store.Set(ctx, canonicalID, outcome.Entity); err != nil {
		return ResultReconciled, mutErrors.NewStorageError(mutErrors.OpReconcile, err)
	}
	c.hooks.reconciled(req, outcome.Entity)
	return ResultReconciled, nil
}

// rollbackLocked restores the exact pre-mutation snapshot. Caller holds c.mu.
func (c *Controller) rollbackLocked(ctx context.Context, req MutationRequest, snapshot Entity) error {
	var err error
	if snapshot == nil {
		// Rejected create: drop the placeholder.
		err = c.store.Remove(ctx, req.EntityID)
	} else {
		// Covers both modified and deleted entities: the captured snapshot
		// is restored verbatim, never recomputed.
		err = c.store.Set(ctx, req.EntityID, snapshot)
	}
	if err != nil {
		return mutErrors.NewStorageError(mutErrors.OpRollback, err)
	}
	c.metrics.RecordRollback(string(req.Kind))
	return nil
}

// report surfaces the resolution to the notifier and log.
func (c *Controller) report(ctx context.Context, req MutationRequest, result Result) {
	if result.Err != nil {
		c.logger.LogError(ctx, result.Err, "mutation resolution failed",
			slog.String("entity_id", req.EntityID),
			slog.String("kind", string(req.Kind)),
			slog.String("status", string(result.Status)),
		)
	}

	switch result.Status {
	case ResultRolledBack:
		if c.notifier != nil {
			reason := result.Outcome.Reason
			if reason == "" {
				reason = "request failed"
			}
			c.notifier.Notify(
				fmt.Sprintf("%s on %s was not applied: %s; change reverted", req.Kind, req.EntityID, reason),
				SeverityError,
			)
		}
		c.hooks.rolledBack(req, result.Outcome.Reason)
	case ResultKeptOptimistic:
		if c.notifier != nil {
			c.notifier.Notify(
				fmt.Sprintf("%s on %s may not have persisted: %s", req.Kind, req.EntityID, result.Outcome.Reason),
				SeverityWarning,
			)
		}
		c.hooks.keptOptimistic(req, result.Outcome.Reason)
	case ResultReconciled, ResultTrustedLocal:
		c.logger.DebugContext(ctx, "mutation confirmed",
			slog.String("entity_id", req.EntityID),
			slog.String("kind", string(req.Kind)),
			slog.String("status", string(result.Status)),
			slog.Duration("duration", result.Duration),
		)
	}
}

// Close waits for in-flight resolutions and shuts down the remote, auditor
// and store. Resolutions still in flight when Close is called settle as
// superseded without touching the store.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	var errs []error
	if err := c.remote.Close(); err != nil {
		errs = append(errs, mutErrors.NewWithComponent(mutErrors.OpClose, "remote", err))
	}
	if c.auditor != nil {
		if err := c.auditor.Close(); err != nil {
			errs = append(errs, mutErrors.NewWithComponent(mutErrors.OpClose, "auditor", err))
		}
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, mutErrors.NewWithComponent(mutErrors.OpClose, "store", err))
	}

	if len(errs) > 0 {
		return mutErrors.New(mutErrors.OpClose, fmt.Errorf("multiple close errors: %v", errs))
	}
	return nil
}
