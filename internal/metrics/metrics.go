// Package metrics exposes sync run counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jachtproef"

// Record outcomes reported per run.
const (
	OutcomeDropped    = "dropped"
	OutcomeFallback   = "classified_fallback"
	OutcomeCorrected  = "corrected"
	OutcomeDuplicate  = "duplicate"
	OutcomeInserted   = "inserted"
	OutcomeUpdated    = "updated"
	OutcomeClosed     = "closed"
	OutcomeStoreError = "store_error"
)

type Metrics struct {
	registry     *prometheus.Registry
	runsTotal    *prometheus.CounterVec
	records      *prometheus.CounterVec
	runDuration  prometheus.Summary
	lastSuccess  prometheus.Gauge
	snapshotSize prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_runs_total",
		Help:      "Sync runs by final status.",
	}, []string{"status"})
	m.records = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_total",
		Help:      "Listings processed by outcome.",
	}, []string{"outcome"})
	m.runDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace:  namespace,
		Name:       "sync_duration_seconds",
		Help:       "Wall time of a sync run.",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})
	m.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last completed sync run.",
	})
	m.snapshotSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_records",
		Help:      "Listings in the last reconciled snapshot.",
	})

	m.registry.MustRegister(
		m.runsTotal,
		m.records,
		m.runDuration,
		m.lastSuccess,
		m.snapshotSize,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveRun records the final status and duration of a run.
func (m *Metrics) ObserveRun(status string, started time.Time, finished time.Time) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(finished.Sub(started).Seconds())
	if status == "completed" {
		m.lastSuccess.Set(float64(finished.Unix()))
	}
}

// AddRecords adds n to the outcome counter.
func (m *Metrics) AddRecords(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(outcome).Add(float64(n))
}

// SetSnapshotSize records how many listings the last snapshot held.
func (m *Metrics) SetSnapshotSize(n int) {
	if m == nil {
		return
	}
	m.snapshotSize.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
