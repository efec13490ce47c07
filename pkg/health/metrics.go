package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors updated by every status query.
type Metrics struct {
	queries  *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plugin_status_queries_total",
			Help: "Total number of plugin status queries.",
		}, []string{"plugin"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plugin_status_failures_total",
			Help: "Total number of failed plugin status queries by code.",
		}, []string{"plugin", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "plugin_status_duration_seconds",
			Help:    "Time spent in plugin status handlers.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"plugin"}),
	}
	for _, c := range []prometheus.Collector{m.queries, m.failures, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
