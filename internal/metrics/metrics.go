// Package metrics exposes compiler pipeline timings as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "lucq"

// PipelineMetrics tracks pipeline and visitor runs. It implements
// pipeline.Observer.
//
// Metrics:
//   - lucq_pipeline_runs_total: pipeline runs by pipeline and outcome
//   - lucq_pipeline_duration_seconds: pipeline run duration by pipeline
//   - lucq_visitor_duration_seconds: visitor run duration by pipeline and visitor
//   - lucq_visitor_errors_total: failed visitor runs by pipeline and visitor
type PipelineMetrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	visitorDuration  *prometheus.HistogramVec
	visitorErrsTotal *prometheus.CounterVec
}

// NewPipelineMetrics creates the metrics and registers them with registry.
func NewPipelineMetrics(registry prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "pipeline_runs_total",
				Help:      "Total number of pipeline runs",
			},
			[]string{"pipeline", "status"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Pipeline run duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
			},
			[]string{"pipeline"},
		),

		visitorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "visitor_duration_seconds",
				Help:      "Visitor run duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"pipeline", "visitor"},
		),

		visitorErrsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "visitor_errors_total",
				Help:      "Total number of visitor runs that returned an error",
			},
			[]string{"pipeline", "visitor"},
		),
	}

	registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.visitorDuration,
		m.visitorErrsTotal,
	)
	return m
}

// ObserveVisitor records one visitor run.
func (m *PipelineMetrics) ObserveVisitor(pipeline, visitor string, d time.Duration, err error) {
	m.visitorDuration.WithLabelValues(pipeline, visitor).Observe(d.Seconds())
	if err != nil {
		m.visitorErrsTotal.WithLabelValues(pipeline, visitor).Inc()
	}
}

// ObserveRun records one pipeline run.
func (m *PipelineMetrics) ObserveRun(pipeline string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.runsTotal.WithLabelValues(pipeline, status).Inc()
	m.runDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}
