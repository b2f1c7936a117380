package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "greeting_bff"

type promMetrics struct {
	attempts *prometheus.CounterVec
	calls    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	healthy  *prometheus.GaugeVec
}

func newPromMetrics(registry prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "attempts_total",
			Help:      "Upstream attempts by outcome.",
		}, []string{"upstream", "outcome"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "retried_calls_total",
			Help:      "Forwarding calls that needed retries, by result.",
		}, []string{"upstream", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "response_seconds",
			Help:      "Latency of upstream attempts that produced a response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"upstream"}),
		healthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "healthy",
			Help:      "1 when the last health check succeeded.",
		}, []string{"upstream"}),
	}

	registry.MustRegister(m.attempts, m.calls, m.latency, m.healthy)
	return m
}
