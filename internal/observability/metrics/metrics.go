package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the reply pipeline.
type PipelineMetrics struct {
	jobsTotal        *prometheus.CounterVec
	gateDeniedTotal  *prometheus.CounterVec
	dedupSuppressed  prometheus.Counter
	chunksSentTotal  prometheus.Counter
	generatorLatency prometheus.Histogram
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bestie",
			Subsystem: "reply",
			Name:      "jobs_total",
			Help:      "Total reply jobs processed",
		}, []string{"branch", "status"}),
		gateDeniedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bestie",
			Subsystem: "reply",
			Name:      "gate_denied_total",
			Help:      "Jobs denied by the entitlement gate",
		}, []string{"reason"}),
		dedupSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bestie",
			Subsystem: "reply",
			Name:      "dedup_suppressed_total",
			Help:      "Outbound sends suppressed by the dedup guard",
		}),
		chunksSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bestie",
			Subsystem: "reply",
			Name:      "chunks_sent_total",
			Help:      "Outbound SMS chunks sent",
		}),
		generatorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bestie",
			Subsystem: "reply",
			Name:      "generator_latency_seconds",
			Help:      "Latency of text generator calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.jobsTotal, m.gateDeniedTotal, m.dedupSuppressed, m.chunksSentTotal, m.generatorLatency)
	return m
}

func (m *PipelineMetrics) ObserveJob(branch, status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(branch, status).Inc()
}

func (m *PipelineMetrics) ObserveGateDenied(reason string) {
	if m == nil {
		return
	}
	m.gateDeniedTotal.WithLabelValues(reason).Inc()
}

func (m *PipelineMetrics) ObserveDedupSuppressed() {
	if m == nil {
		return
	}
	m.dedupSuppressed.Inc()
}

func (m *PipelineMetrics) ObserveChunkSent() {
	if m == nil {
		return
	}
	m.chunksSentTotal.Inc()
}

func (m *PipelineMetrics) ObserveGeneratorLatency(seconds float64) {
	if m == nil {
		return
	}
	m.generatorLatency.Observe(seconds)
}
