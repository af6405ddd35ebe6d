package prom

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorRecordsSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordApply("set_status")
	c.RecordApply("set_status")
	c.RecordResolution("set_status", "reconciled", 25*time.Millisecond)
	c.RecordResolution("set_status", "rolled_back", 10*time.Millisecond)
	c.RecordRollback("set_status")
	c.RecordSuperseded("toggle_flag")
	c.RecordAuditFailure()

	if got := testutil.ToFloat64(c.applies.WithLabelValues("set_status")); got != 2 {
		t.Errorf("expected 2 applies, got %v", got)
	}
	if got := testutil.ToFloat64(c.resolutions.WithLabelValues("set_status", "reconciled")); got != 1 {
		t.Errorf("expected 1 reconciled resolution, got %v", got)
	}
	if got := testutil.ToFloat64(c.rollbacks.WithLabelValues("set_status")); got != 1 {
		t.Errorf("expected 1 rollback, got %v", got)
	}
	if got := testutil.ToFloat64(c.superseded.WithLabelValues("toggle_flag")); got != 1 {
		t.Errorf("expected 1 superseded resolution, got %v", got)
	}
	if got := testutil.ToFloat64(c.auditFailures); got != 1 {
		t.Errorf("expected 1 audit failure, got %v", got)
	}
}

func TestCollectorRegistersWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	// Counters without observations are not gathered until incremented, so
	// only the non-vec counter shows up here.
	found := false
	for _, f := range families {
		if f.GetName() == "mutation_audit_failures_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected mutation_audit_failures_total to be registered")
	}
}
