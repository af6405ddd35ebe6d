package mutationkit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const policyYAML = `
version: "1"
name: secops-dashboard
kinds:
  - kind: toggle_flag
    on_unknown: keep
    reconcile: local
  - kind: set_status
    on_unknown: rollback
`

const policyJSON = `{
  "version": "1",
  "kinds": [
    {"kind": "toggle_flag", "on_unknown": "keep"}
  ]
}`

func TestReadPolicyConfigYAML(t *testing.T) {
	cfg, err := ReadPolicyConfig(strings.NewReader(policyYAML), "yaml")
	if err != nil {
		t.Fatalf("ReadPolicyConfig() error = %v", err)
	}
	if len(cfg.Kinds) != 2 {
		t.Fatalf("parsed %d kinds, want 2", len(cfg.Kinds))
	}
	if cfg.Kinds[0].Kind != "toggle_flag" || cfg.Kinds[0].OnUnknown != KeepAndWarn {
		t.Errorf("first entry = %+v, want toggle_flag/keep", cfg.Kinds[0])
	}
}

func TestReadPolicyConfigJSON(t *testing.T) {
	cfg, err := ReadPolicyConfig(strings.NewReader(policyJSON), "json")
	if err != nil {
		t.Fatalf("ReadPolicyConfig() error = %v", err)
	}
	if len(cfg.Kinds) != 1 || cfg.Kinds[0].OnUnknown != KeepAndWarn {
		t.Errorf("parsed config = %+v", cfg)
	}
}

func TestLoadPolicyConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte(policyYAML), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadPolicyConfig(path)
	if err != nil {
		t.Fatalf("LoadPolicyConfig() error = %v", err)
	}
	if len(cfg.Kinds) != 2 {
		t.Errorf("parsed %d kinds, want 2", len(cfg.Kinds))
	}
}

func TestPolicyConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no kinds",
			yaml:    `version: "1"`,
			wantErr: "declares no kinds",
		},
		{
			name: "empty kind",
			yaml: "kinds:\n  - reconcile: local\n",
			wantErr: "empty kind",
		},
		{
			name: "duplicate kind",
			yaml: "kinds:\n  - kind: x\n  - kind: x\n",
			wantErr: "more than once",
		},
		{
			name: "invalid reconcile mode",
			yaml: "kinds:\n  - kind: x\n    reconcile: sometimes\n",
			wantErr: "invalid reconcile mode",
		},
		{
			name: "invalid unknown mode",
			yaml: "kinds:\n  - kind: x\n    on_unknown: shrug\n",
			wantErr: "invalid unknown mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPolicyConfig(strings.NewReader(tt.yaml), "yaml")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ReadPolicyConfig() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPolicyConfigApplyTo(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(KindSpec{Kind: "toggle_flag", Transform: deleteTransform}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(KindSpec{Kind: "set_status", Transform: deleteTransform}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	cfg, err := ReadPolicyConfig(strings.NewReader(policyYAML), "yaml")
	if err != nil {
		t.Fatalf("ReadPolicyConfig() error = %v", err)
	}
	if err := cfg.ApplyTo(r); err != nil {
		t.Fatalf("ApplyTo() error = %v", err)
	}

	spec, _ := r.Get("toggle_flag")
	if spec.OnUnknown != KeepAndWarn || spec.Reconcile != TrustLocal {
		t.Errorf("toggle_flag policies = %q/%q, want keep/local", spec.OnUnknown, spec.Reconcile)
	}

	// Config naming an unregistered kind must fail loudly.
	bad := &PolicyConfig{Kinds: []KindPolicyEntry{{Kind: "missing"}}}
	if err := bad.ApplyTo(r); err == nil {
		t.Error("ApplyTo() with unregistered kind succeeded, want error")
	}
}
