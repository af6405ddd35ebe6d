// Package prom implements mutationkit.MetricsCollector on Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c0deZ3R0/go-mutation-kit/mutationkit"
)

// Collector exposes mutation controller metrics as Prometheus series.
type Collector struct {
	applies       *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	rollbacks     *prometheus.CounterVec
	superseded    *prometheus.CounterVec
	auditFailures prometheus.Counter
	latency       *prometheus.HistogramVec
}

var _ mutationkit.MetricsCollector = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
// Pass prometheus.DefaultRegisterer for the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		applies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mutation_applies_total",
			Help: "Tentative mutations applied to the local store.",
		}, []string{"kind"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mutation_resolutions_total",
			Help: "Resolved mutations by kind and final status.",
		}, []string{"kind", "status"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mutation_rollbacks_total",
			Help: "Store rollbacks performed after rejected or unknown outcomes.",
		}, []string{"kind"}),
		superseded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mutation_superseded_total",
			Help: "Stale resolutions dropped because a newer mutation won.",
		}, []string{"kind"}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mutation_audit_failures_total",
			Help: "Audit emissions that failed and were swallowed.",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mutation_resolution_duration_seconds",
			Help:    "Round-trip time from dispatch to resolution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	reg.MustRegister(c.applies, c.resolutions, c.rollbacks, c.superseded, c.auditFailures, c.latency)
	return c
}

func (c *Collector) RecordApply(kind string) {
	c.applies.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordResolution(kind string, status string, duration time.Duration) {
	c.resolutions.WithLabelValues(kind, status).Inc()
	c.latency.WithLabelValues(kind).Observe(duration.Seconds())
}

func (c *Collector) RecordRollback(kind string) {
	c.rollbacks.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordSuperseded(kind string) {
	c.superseded.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordAuditFailure() {
	c.auditFailures.Inc()
}
