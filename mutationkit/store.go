package mutationkit

import (
	"context"
	"errors"
	"sync"
)

// ErrEntityNotFound is returned by stores when no entity exists for an id.
var ErrEntityNotFound = errors.New("entity not found")

// ErrStoreClosed is returned by stores after Close.
var ErrStoreClosed = errors.New("store is closed")

// EntityStore holds the current, renderable snapshot of a homogeneous
// collection of entities. The controller is the only writer; reads are
// unrestricted.
type EntityStore interface {
	// Get retrieves the entity for id, or ErrEntityNotFound
	Get(ctx context.Context, id string) (Entity, error)

	// Set replaces or inserts the entity for id
	Set(ctx context.Context, id string, entity Entity) error

	// Remove deletes the entity for id. Removing an absent id is a no-op.
	Remove(ctx context.Context, id string) error

	// Snapshot returns an independent deep copy of the entity for id,
	// suitable for capturing rollback state, or ErrEntityNotFound
	Snapshot(ctx context.Context, id string) (Entity, error)

	// List returns all entities. Implementations that track insertion order
	// return them in that order; order is display-relevant only, never
	// correctness-relevant.
	List(ctx context.Context) ([]Entity, error)

	// Close closes the store and releases resources
	Close() error
}

// ChangeOp describes the kind of store change delivered to subscribers.
type ChangeOp string

const (
	ChangeSet    ChangeOp = "set"
	ChangeRemove ChangeOp = "remove"
)

// Change describes one store write, delivered to subscribers so rendering
// consumers can react to every mutation.
type Change struct {
	Op       ChangeOp
	EntityID string
	Entity   Entity // nil for removes
}

// MemoryStore is the in-memory EntityStore used by UI-facing collections.
// It preserves insertion order for display and supports change subscription.
type MemoryStore struct {
	mu          sync.RWMutex
	entities    map[string]Entity
	order       []string
	subscribers []func(Change)
	closed      bool
}

// NewMemoryStore creates an empty in-memory entity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities: make(map[string]Entity),
	}
}

// Subscribe registers a handler invoked for every store change. Handlers
// run on their own goroutine; panics are contained.
func (s *MemoryStore) Subscribe(handler func(Change)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.subscribers = append(s.subscribers, handler)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	e, ok := s.entities[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	return e, nil
}

func (s *MemoryStore) Set(_ context.Context, id string, entity Entity) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	if _, exists := s.entities[id]; !exists {
		s.order = append(s.order, id)
	}
	s.entities[id] = entity
	s.mu.Unlock()

	s.notify(Change{Op: ChangeSet, EntityID: id, Entity: entity})
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	if _, exists := s.entities[id]; !exists {
		s.mu.Unlock()
		return nil
	}

	delete(s.entities, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify(Change{Op: ChangeRemove, EntityID: id})
	return nil
}

func (s *MemoryStore) Snapshot(ctx context.Context, id string) (Entity, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	out := make([]Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entities[id])
	}
	return out, nil
}

// Len returns the number of entities currently held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.entities = nil
	s.order = nil
	s.subscribers = nil
	return nil
}

func (s *MemoryStore) notify(change Change) {
	s.mu.RLock()
	subscribers := make([]func(Change), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.RUnlock()

	for _, handler := range subscribers {
		go func(h func(Change)) {
			defer func() {
				if r := recover(); r != nil {
					// Panic from subscriber must not crash the writer.
				}
			}()
			h(change)
		}(handler)
	}
}
