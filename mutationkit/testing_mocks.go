package mutationkit

import (
	"context"
	"sync"
)

// Mock types for testing

// TestEntity implements Entity with a status field and a metadata map, which
// gives rollback tests a nested mutable structure to verify deep copies.
type TestEntity struct {
	EntityID string            `json:"id"`
	Status   string            `json:"status"`
	Enabled  bool              `json:"enabled"`
	Labels   map[string]string `json:"labels,omitempty"`
}

func (e *TestEntity) ID() string { return e.EntityID }

func (e *TestEntity) Clone() Entity {
	clone := *e
	if e.Labels != nil {
		clone.Labels = make(map[string]string, len(e.Labels))
		for k, v := range e.Labels {
			clone.Labels[k] = v
		}
	}
	return &clone
}

// TestRemote is a scriptable Remote. Each Submit consumes the next queued
// outcome, optionally gated on a release channel to simulate slow requests.
type TestRemote struct {
	mu       sync.Mutex
	queue    []queuedOutcome
	requests []MutationRequest
}

type queuedOutcome struct {
	outcome Outcome
	err     error
	gate    <-chan struct{}
}

// Queue appends an outcome returned by the next Submit.
func (r *TestRemote) Queue(outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, queuedOutcome{outcome: outcome})
}

// QueueErr appends a transport-level error returned by the next Submit.
func (r *TestRemote) QueueErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, queuedOutcome{err: err})
}

// QueueGated appends an outcome that is not returned until gate is closed.
func (r *TestRemote) QueueGated(outcome Outcome, gate <-chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, queuedOutcome{outcome: outcome, gate: gate})
}

// Requests returns every request submitted so far.
func (r *TestRemote) Requests() []MutationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MutationRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

func (r *TestRemote) Submit(ctx context.Context, req MutationRequest) (Outcome, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	var q queuedOutcome
	if len(r.queue) > 0 {
		q = r.queue[0]
		r.queue = r.queue[1:]
	} else {
		q = queuedOutcome{outcome: Confirmed(nil)}
	}
	r.mu.Unlock()

	if q.gate != nil {
		select {
		case <-q.gate:
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
	}
	return q.outcome, q.err
}

func (r *TestRemote) Close() error { return nil }

// TestNotifier records notifications.
type TestNotifier struct {
	mu            sync.Mutex
	notifications []TestNotification
}

type TestNotification struct {
	Message  string
	Severity Severity
}

func (n *TestNotifier) Notify(message string, severity Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, TestNotification{Message: message, Severity: severity})
}

func (n *TestNotifier) Notifications() []TestNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]TestNotification, len(n.notifications))
	copy(out, n.notifications)
	return out
}

// BlockingAuditor never resolves Emit until Close. Used to verify audit
// emission cannot delay mutation resolution.
type BlockingAuditor struct {
	once    sync.Once
	release chan struct{}
}

func NewBlockingAuditor() *BlockingAuditor {
	return &BlockingAuditor{release: make(chan struct{})}
}

func (a *BlockingAuditor) Emit(ctx context.Context, _ AuditEntry) error {
	select {
	case <-a.release:
	case <-ctx.Done():
	}
	return ctx.Err()
}

func (a *BlockingAuditor) Close() error {
	a.once.Do(func() { close(a.release) })
	return nil
}

// FailingAuditor always fails Emit.
type FailingAuditor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func NewFailingAuditor(err error) *FailingAuditor { return &FailingAuditor{err: err} }

func (a *FailingAuditor) Emit(context.Context, AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.err
}

func (a *FailingAuditor) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *FailingAuditor) Close() error { return nil }
