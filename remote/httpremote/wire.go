// Package httpremote implements the mutationkit Remote interface over HTTP.
// The client translates transport-level results into mutation outcomes:
// 2xx responses confirm, 4xx responses reject, and 5xx responses or
// transport failures resolve to unknown after the configured retries.
package httpremote

import (
	"encoding/json"
	"fmt"

	"github.com/c0deZ3R0/go-mutation-kit/codec"
	"github.com/c0deZ3R0/go-mutation-kit/mutationkit"
)

// WireMutation represents a mutation request optimized for wire transmission.
type WireMutation struct {
	EntityID string          `json:"entity_id"`
	Kind     string          `json:"kind"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Actor    string          `json:"actor,omitempty"`
}

// WireOutcome is the server's answer. EntityType selects the codec used to
// decode the canonical entity on the client.
type WireOutcome struct {
	Status     string          `json:"status"`
	Entity     json.RawMessage `json:"entity,omitempty"`
	EntityType string          `json:"entity_type,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// EncodeMutation converts a mutation request to its wire form.
func EncodeMutation(req mutationkit.MutationRequest) (WireMutation, error) {
	wire := WireMutation{
		EntityID: req.EntityID,
		Kind:     string(req.Kind),
		Actor:    req.Actor,
	}
	if req.Payload != nil {
		data, err := json.Marshal(req.Payload)
		if err != nil {
			return WireMutation{}, fmt.Errorf("failed to encode mutation payload: %w", err)
		}
		wire.Payload = data
	}
	return wire, nil
}

// DecodeOutcome converts a wire outcome back into a mutation outcome,
// decoding the canonical entity through the codec registry when the server
// names a registered entity type.
func DecodeOutcome(wire WireOutcome, registry *codec.Registry) (mutationkit.Outcome, error) {
	if registry == nil {
		registry = codec.DefaultRegistry
	}

	outcome := mutationkit.Outcome{Reason: wire.Reason}
	switch wire.Status {
	case string(mutationkit.OutcomeConfirmed):
		outcome.Status = mutationkit.OutcomeConfirmed
	case string(mutationkit.OutcomeRejected):
		outcome.Status = mutationkit.OutcomeRejected
	case string(mutationkit.OutcomeUnknown), "":
		outcome.Status = mutationkit.OutcomeUnknown
	default:
		return mutationkit.Outcome{}, fmt.Errorf("unrecognized outcome status %q", wire.Status)
	}

	if len(wire.Entity) > 0 && wire.EntityType != "" {
		c, ok := registry.Get(wire.EntityType)
		if !ok {
			return mutationkit.Outcome{}, fmt.Errorf("no codec registered for entity type %q", wire.EntityType)
		}
		decoded, err := c.Decode(wire.Entity)
		if err != nil {
			return mutationkit.Outcome{}, fmt.Errorf("failed to decode %q entity: %w", wire.EntityType, err)
		}
		entity, ok := decoded.(mutationkit.Entity)
		if !ok {
			return mutationkit.Outcome{}, fmt.Errorf("codec %q produced %T, which is not an Entity", wire.EntityType, decoded)
		}
		outcome.Entity = entity
	}

	return outcome, nil
}

// EncodeOutcome converts a mutation outcome to its wire form for servers.
func EncodeOutcome(outcome mutationkit.Outcome, entityType string, registry *codec.Registry) (WireOutcome, error) {
	if registry == nil {
		registry = codec.DefaultRegistry
	}

	wire := WireOutcome{
		Status: string(outcome.Status),
		Reason: outcome.Reason,
	}
	if outcome.Entity != nil {
		c, ok := registry.Get(entityType)
		if !ok {
			return WireOutcome{}, fmt.Errorf("no codec registered for entity type %q", entityType)
		}
		data, err := c.Encode(outcome.Entity)
		if err != nil {
			return WireOutcome{}, fmt.Errorf("failed to encode %q entity: %w", entityType, err)
		}
		wire.Entity = data
		wire.EntityType = entityType
	}
	return wire, nil
}
