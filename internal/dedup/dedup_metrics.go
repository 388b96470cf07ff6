package dedup

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the dedup subsystem.
type Metrics struct {
	ChecksTotal       *prometheus.CounterVec
	CheckDuration     *prometheus.HistogramVec
	CandidatesScanned prometheus.Histogram
	SignalsFound      prometheus.Histogram
	EmbedCallsTotal   *prometheus.CounterVec
	EmbedDuration     prometheus.Histogram
	IncidentLookups   *prometheus.CounterVec
	IncidentDuration  *prometheus.HistogramVec
}

// NewMetrics registers and returns dedup metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_dedup_checks_total",
			Help: "Total dedup checks by resolved action.",
		}, []string{"action"}),
		CheckDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ticketflow_dedup_check_duration_seconds",
			Help:    "Duration of dedup checks in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms .. ~16s
		}, []string{"action"}),
		CandidatesScanned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticketflow_dedup_candidates_scanned",
			Help:    "Candidates scanned per dedup check.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 .. 512
		}),
		SignalsFound: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticketflow_dedup_signals_found",
			Help:    "Duplicate signals discovered per dedup check.",
			Buckets: prometheus.LinearBuckets(0, 1, 11), // 0 .. 10
		}),
		EmbedCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_dedup_embed_calls_total",
			Help: "Embedding callback invocations by status.",
		}, []string{"status"}),
		EmbedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticketflow_dedup_embed_duration_seconds",
			Help:    "Duration of embedding callback invocations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms .. ~5s
		}),
		IncidentLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_dedup_incident_lookups_total",
			Help: "Incident callback invocations by mode and status.",
		}, []string{"mode", "status"}),
		IncidentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ticketflow_dedup_incident_lookup_duration_seconds",
			Help:    "Duration of incident callback invocations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms .. ~5s
		}, []string{"mode"}),
	}

	reg.MustRegister(
		m.ChecksTotal,
		m.CheckDuration,
		m.CandidatesScanned,
		m.SignalsFound,
		m.EmbedCallsTotal,
		m.EmbedDuration,
		m.IncidentLookups,
		m.IncidentDuration,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnCheck: func(action Action, duration float64, candidates, signals int) {
			m.ChecksTotal.WithLabelValues(string(action)).Inc()
			m.CheckDuration.WithLabelValues(string(action)).Observe(duration)
			m.CandidatesScanned.Observe(float64(candidates))
			m.SignalsFound.Observe(float64(signals))
		},
		OnEmbed: func(duration float64, err error) {
			status := "success"
			if err != nil {
				status = "error"
			}
			m.EmbedCallsTotal.WithLabelValues(status).Inc()
			m.EmbedDuration.Observe(duration)
		},
		OnIncidentLookup: func(mode string, duration float64, err error) {
			status := "success"
			if err != nil {
				status = "error"
			}
			m.IncidentLookups.WithLabelValues(mode, status).Inc()
			m.IncidentDuration.WithLabelValues(mode).Observe(duration)
		},
	}
}
