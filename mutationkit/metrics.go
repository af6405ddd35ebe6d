package mutationkit

import "time"

// MetricsCollector provides hooks for collecting mutation metrics
type MetricsCollector interface {
	// RecordApply records a tentative apply for a mutation kind
	RecordApply(kind string)

	// RecordResolution records how a mutation resolved and how long the
	// round trip took
	RecordResolution(kind string, status string, duration time.Duration)

	// RecordRollback records a store rollback for a mutation kind
	RecordRollback(kind string)

	// RecordSuperseded records a stale resolution dropped by the sequence guard
	RecordSuperseded(kind string)

	// RecordAuditFailure records a swallowed audit emission failure
	RecordAuditFailure()
}

// NoOpMetricsCollector is a default implementation that does nothing
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordApply(kind string)                                        {}
func (n *NoOpMetricsCollector) RecordResolution(kind string, status string, d time.Duration)   {}
func (n *NoOpMetricsCollector) RecordRollback(kind string)                                     {}
func (n *NoOpMetricsCollector) RecordSuperseded(kind string)                                   {}
func (n *NoOpMetricsCollector) RecordAuditFailure()                                            {}
