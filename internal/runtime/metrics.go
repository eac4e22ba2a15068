package runtime

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the engine's instrumentation. A nil receiver is a no-op,
// so engines without a registered collector pay nothing.
type metrics struct {
	requests *prometheus.CounterVec
	steps    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Subsystem: "engine",
			Name:      "requests_total",
			Help:      "Requests executed, partitioned by agent and final status.",
		}, []string{"agent", "status"}),
		steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arbor",
			Subsystem: "engine",
			Name:      "node_duration_seconds",
			Help:      "Wall time spent inside each node type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
	}
	reg.MustRegister(m.requests, m.steps)
	return m
}

func (m *metrics) observeRequest(agent, status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(agent, status).Inc()
}

func (m *metrics) observeStep(node string, d time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(node).Observe(d.Seconds())
}
