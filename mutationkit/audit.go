package mutationkit

import (
	"context"
	"sync"
)

// MemoryAuditor is an in-memory Auditor for tests and demos. For production
// use, implement a persistent backend (see audit/sqliteaudit).
type MemoryAuditor struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewMemoryAuditor creates an empty in-memory auditor.
func NewMemoryAuditor() *MemoryAuditor {
	return &MemoryAuditor{}
}

func (a *MemoryAuditor) Emit(_ context.Context, entry AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

// Entries returns a copy of all recorded entries in emission order.
func (a *MemoryAuditor) Entries() []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// ByEntity returns the recorded entries for one entity.
func (a *MemoryAuditor) ByEntity(entityID string) []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []AuditEntry
	for _, e := range a.entries {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out
}

func (a *MemoryAuditor) Close() error { return nil }
