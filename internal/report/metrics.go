package report

import (
	"time"

	"github.com/jekabolt/growth-dashboard/internal/entity"
)

// Metrics records how a run went. Implementations must be safe for concurrent use.
type Metrics interface {
	// RecordFetch records one upstream fetch. source is e.g. "memberpress", "ga4", "facebook".
	RecordFetch(source, query string, duration time.Duration, err error)

	// RecordAdSpendSource records which path produced the ad spend figure.
	RecordAdSpendSource(source entity.AdSpendSource)

	// RecordRun records the outcome of a whole run.
	RecordRun(finished time.Time, duration time.Duration, err error)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordFetch(_, _ string, _ time.Duration, _ error) {}
func (n *NoopMetrics) RecordAdSpendSource(_ entity.AdSpendSource) {}
func (n *NoopMetrics) RecordRun(_ time.Time, _ time.Duration, _ error) {}
