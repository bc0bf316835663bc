package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis pipeline.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={completed,failed}
	PipelineRunning prometheus.Gauge
	LastRunUnits    prometheus.Gauge

	StageDuration  *prometheus.HistogramVec // labels: stage
	UnitsProcessed *prometheus.CounterVec   // labels: stage
	CoverageGaps   *prometheus.CounterVec   // labels: kind={topography,climate}

	LayerCacheResults *prometheus.CounterVec // labels: result={hit,miss}
}

// StageTimer starts a timer that records into the stage duration histogram
// when ObserveDuration is called.
func (m *Metrics) StageTimer(stage string) *prometheus.Timer {
	return prometheus.NewTimer(m.StageDuration.WithLabelValues(stage))
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.PipelineRunning,
		m.LastRunUnits,
		m.StageDuration,
		m.UnitsProcessed,
		m.CoverageGaps,
		m.LayerCacheResults,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evaqua",
			Name:      "runs_total",
			Help:      "Completed and failed analysis runs.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "evaqua",
			Name:      "pipeline_running",
			Help:      "1 while an analysis run is in progress.",
		}),
		LastRunUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "evaqua",
			Name:      "last_run_units",
			Help:      "HRU count of the most recent completed run.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "evaqua",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		UnitsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evaqua",
			Name:      "units_processed_total",
			Help:      "HRUs processed per stage across all runs.",
		}, []string{"stage"}),
		CoverageGaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evaqua",
			Name:      "coverage_gaps_total",
			Help:      "Units emitted with missing topography or climate coverage.",
		}, []string{"kind"}),
		LayerCacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evaqua",
			Name:      "layer_cache_total",
			Help:      "Layer cache lookups by result.",
		}, []string{"result"}),
	}
}
