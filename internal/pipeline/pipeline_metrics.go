package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/ticketflow/internal/dedup"
)

// Metrics holds Prometheus metrics for the pipeline subsystem.
type Metrics struct {
	SubmissionsTotal *prometheus.CounterVec
	CompletedTotal   *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_pipeline_submissions_total",
			Help: "Ticket submissions by source and outcome.",
		}, []string{"source", "outcome"}),
		CompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_pipeline_completed_total",
			Help: "Completed pipeline runs by status and dedup action.",
		}, []string{"status", "action"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticketflow_pipeline_duration_seconds",
			Help:    "End-to-end pipeline processing duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}),
	}

	reg.MustRegister(
		m.SubmissionsTotal,
		m.CompletedTotal,
		m.PipelineDuration,
	)

	return m
}

// Hooks returns a ServiceHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() ServiceHooks {
	return ServiceHooks{
		OnSubmit: func(source, outcome string) {
			m.SubmissionsTotal.WithLabelValues(source, outcome).Inc()
		},
		OnComplete: func(status Status, action dedup.Action, duration float64) {
			m.CompletedTotal.WithLabelValues(string(status), string(action)).Inc()
			m.PipelineDuration.Observe(duration)
		},
	}
}
