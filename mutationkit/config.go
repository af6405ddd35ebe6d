package mutationkit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PolicyConfig declares per-kind resolution policies loadable from YAML or
// JSON, so the rollback-vs-keep choice for each mutation kind is an explicit,
// reviewable artifact rather than an implicit behavior.
type PolicyConfig struct {
	Version     string            `json:"version" yaml:"version"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Kinds       []KindPolicyEntry `json:"kinds" yaml:"kinds"`
}

// KindPolicyEntry overrides the resolution policies for one mutation kind.
type KindPolicyEntry struct {
	Kind MutationKind `json:"kind" yaml:"kind"`

	// Reconcile is "server" or "local"; empty leaves the registered mode.
	Reconcile ReconcileMode `json:"reconcile,omitempty" yaml:"reconcile,omitempty"`

	// OnUnknown is "rollback" or "keep"; empty leaves the registered mode.
	OnUnknown UnknownMode `json:"on_unknown,omitempty" yaml:"on_unknown,omitempty"`
}

// LoadPolicyConfig reads a policy config from a YAML or JSON file, picking
// the format by extension.
func LoadPolicyConfig(path string) (*PolicyConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy config: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".json") {
		return ReadPolicyConfig(f, "json")
	}
	return ReadPolicyConfig(f, "yaml")
}

// ReadPolicyConfig parses a policy config from a reader in the given format
// ("yaml" or "json") and validates it.
func ReadPolicyConfig(r io.Reader, format string) (*PolicyConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy config: %w", err)
	}

	var cfg PolicyConfig
	switch format {
	case "json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse policy config JSON: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse policy config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported policy config format %q", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for structural problems before it is applied.
func (c *PolicyConfig) Validate() error {
	if len(c.Kinds) == 0 {
		return fmt.Errorf("policy config declares no kinds")
	}

	seen := make(map[MutationKind]bool, len(c.Kinds))
	for i, entry := range c.Kinds {
		if entry.Kind == "" {
			return fmt.Errorf("policy config entry %d has an empty kind", i)
		}
		if seen[entry.Kind] {
			return fmt.Errorf("policy config declares kind %q more than once", entry.Kind)
		}
		seen[entry.Kind] = true

		switch entry.Reconcile {
		case "", ReconcileServer, TrustLocal:
		default:
			return fmt.Errorf("policy config kind %q has invalid reconcile mode %q", entry.Kind, entry.Reconcile)
		}
		switch entry.OnUnknown {
		case "", RollbackOnUnknown, KeepAndWarn:
		default:
			return fmt.Errorf("policy config kind %q has invalid unknown mode %q", entry.Kind, entry.OnUnknown)
		}
	}
	return nil
}

// ApplyTo overrides the policies of the named kinds on the registry. Every
// kind in the config must already be registered.
func (c *PolicyConfig) ApplyTo(r *Registry) error {
	for _, entry := range c.Kinds {
		if err := r.SetPolicy(entry.Kind, entry.Reconcile, entry.OnUnknown); err != nil {
			return fmt.Errorf("failed to apply policy config: %w", err)
		}
	}
	return nil
}
