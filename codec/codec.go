// Package codec provides encoding and decoding of entity payloads with a
// registry keyed by entity type, so store and transport backends can
// round-trip concrete entity types through JSON without double-encoding.
package codec

import (
	"encoding/json"
	"sync"
)

// Codec defines an interface for encoding and decoding entity data
// with a specific type identifier for registry lookup.
type Codec interface {
	// EntityType returns the unique identifier for this codec type
	EntityType() string
	// Encode converts any value to JSON raw message
	Encode(any) (json.RawMessage, error)
	// Decode converts JSON raw message back to typed value
	Decode(json.RawMessage) (any, error)
}

// Registry manages codec registration and lookup with thread safety.
// It provides a centralized way to register domain-specific codecs
// and retrieve them by entity type.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry creates a new codec registry instance.
func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Codec),
	}
}

// Register adds a codec to the registry using its EntityType() as the key.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[c.EntityType()] = c
}

// Get retrieves a codec by its entity type identifier.
// Returns the codec and true if found, nil and false otherwise.
func (r *Registry) Get(entityType string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[entityType]
	return c, ok
}

// EntityTypes returns all registered entity types for debugging/introspection.
func (r *Registry) EntityTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.codecs))
	for t := range r.codecs {
		types = append(types, t)
	}
	return types
}

// DefaultRegistry provides a global registry instance for convenience.
// Applications can use this directly or create their own registry instances.
var DefaultRegistry = NewRegistry()

// Register is a convenience function that registers a codec with the default registry.
func Register(c Codec) {
	DefaultRegistry.Register(c)
}

// Get is a convenience function that retrieves a codec from the default registry.
func Get(entityType string) (Codec, bool) {
	return DefaultRegistry.Get(entityType)
}

// JSONCodec provides a generic JSON codec for a concrete type using a
// factory function to allocate decode targets.
type JSONCodec struct {
	Type    string
	Factory func() any
}

func (c JSONCodec) EntityType() string { return c.Type }

func (c JSONCodec) Encode(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}

func (c JSONCodec) Decode(raw json.RawMessage) (any, error) {
	v := c.Factory()
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}
