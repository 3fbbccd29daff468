package prommetrics

import (
	"fmt"
	"time"

	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/jekabolt/growth-dashboard/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var adSpendSources = []entity.AdSpendSource{
	entity.AdSpendFacebookAPI,
	entity.AdSpendManual,
	entity.AdSpendFallback,
	entity.AdSpendNone,
}

// Metrics implements report.Metrics using Prometheus.
type Metrics struct {
	reg prometheus.Gatherer

	fetchDuration  *prometheus.HistogramVec
	fetchErrors    *prometheus.CounterVec
	adSpendSource  *prometheus.GaugeVec
	runDuration    prometheus.Gauge
	runSuccess     prometheus.Gauge
	lastSuccessful prometheus.Gauge
}

var _ report.Metrics = (*Metrics)(nil)

// NewMetrics creates a new Prometheus metrics implementation for snapshot runs.
func NewMetrics(reg *prometheus.Registry, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Duration of upstream fetches in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"source", "query"}),

		fetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "errors_total",
			Help:      "Total number of failed upstream fetches.",
		}, []string{"source", "query"}),

		adSpendSource: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ad_spend",
			Name:      "source",
			Help:      "1 for the path that produced the ad spend figure, 0 otherwise.",
		}, []string{"source"}),

		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Duration of the last run in seconds.",
		}),

		runSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "success",
			Help:      "1 if the last run succeeded, 0 otherwise.",
		}),

		lastSuccessful: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
}

func (m *Metrics) RecordFetch(source, query string, duration time.Duration, err error) {
	m.fetchDuration.WithLabelValues(source, query).Observe(duration.Seconds())
	if err != nil {
		m.fetchErrors.WithLabelValues(source, query).Inc()
	}
}

func (m *Metrics) RecordAdSpendSource(source entity.AdSpendSource) {
	for _, s := range adSpendSources {
		v := 0.0
		if s == source {
			v = 1
		}
		m.adSpendSource.WithLabelValues(string(s)).Set(v)
	}
}

func (m *Metrics) RecordRun(finished time.Time, duration time.Duration, err error) {
	m.runDuration.Set(duration.Seconds())
	if err != nil {
		m.runSuccess.Set(0)
		return
	}
	m.runSuccess.Set(1)
	m.lastSuccessful.Set(float64(finished.Unix()))
}

// WriteTextfile writes every gathered metric to path in the text exposition
// format, for the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
