package mutationkit

import (
	"strings"
	"testing"
)

func TestRegistryRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		spec    KindSpec
		wantErr string
	}{
		{
			name:    "empty kind",
			spec:    KindSpec{Transform: deleteTransform},
			wantErr: "cannot be empty",
		},
		{
			name:    "nil transform",
			spec:    KindSpec{Kind: "x"},
			wantErr: "no transform",
		},
		{
			name:    "invalid reconcile mode",
			spec:    KindSpec{Kind: "x", Transform: deleteTransform, Reconcile: "sometimes"},
			wantErr: "invalid reconcile mode",
		},
		{
			name:    "invalid unknown mode",
			spec:    KindSpec{Kind: "x", Transform: deleteTransform, OnUnknown: "shrug"},
			wantErr: "invalid unknown mode",
		},
		{
			name: "valid spec",
			spec: KindSpec{Kind: "x", Transform: deleteTransform},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Register(tt.spec)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Register() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Register() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRegistryDefaultsPolicies(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(KindSpec{Kind: "x", Transform: deleteTransform}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	spec, ok := r.Get("x")
	if !ok {
		t.Fatal("Get() did not find registered kind")
	}
	if spec.Reconcile != ReconcileServer {
		t.Errorf("default reconcile = %q, want %q", spec.Reconcile, ReconcileServer)
	}
	if spec.OnUnknown != RollbackOnUnknown {
		t.Errorf("default unknown mode = %q, want %q", spec.OnUnknown, RollbackOnUnknown)
	}
}

func TestRegistrySetPolicy(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(KindSpec{Kind: "x", Transform: deleteTransform}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := r.SetPolicy("x", TrustLocal, KeepAndWarn); err != nil {
		t.Fatalf("SetPolicy() error = %v", err)
	}
	spec, _ := r.Get("x")
	if spec.Reconcile != TrustLocal || spec.OnUnknown != KeepAndWarn {
		t.Errorf("policies = %q/%q, want %q/%q", spec.Reconcile, spec.OnUnknown, TrustLocal, KeepAndWarn)
	}

	// Empty fields leave existing modes intact.
	if err := r.SetPolicy("x", "", ""); err != nil {
		t.Fatalf("SetPolicy(empty) error = %v", err)
	}
	spec, _ = r.Get("x")
	if spec.Reconcile != TrustLocal || spec.OnUnknown != KeepAndWarn {
		t.Errorf("policies after empty override = %q/%q, want unchanged", spec.Reconcile, spec.OnUnknown)
	}

	if err := r.SetPolicy("missing", TrustLocal, ""); err == nil {
		t.Error("SetPolicy(unregistered) succeeded, want error")
	}
	if err := r.SetPolicy("x", "sometimes", ""); err == nil {
		t.Error("SetPolicy(invalid mode) succeeded, want error")
	}
}
