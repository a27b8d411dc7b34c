package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts publisher outcomes per event type.
type OutboxMetrics struct {
	outcomes *prometheus.CounterVec
	lag      prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox rows handled by the publisher, by outcome.",
		}, []string{"event_type", "outcome"}),
		lag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_publish_lag_seconds",
			Help:      "Time between an outbox row being written and published.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
	}
	reg.MustRegister(m.outcomes, m.lag)
	return m
}

// Observe records one row; outcome is "published", "retry" or "dead_letter".
func (m *OutboxMetrics) Observe(eventType, outcome string, lagSeconds float64) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(labelOrUnknown(eventType), labelOrUnknown(outcome)).Inc()
	if outcome == "published" && lagSeconds >= 0 {
		m.lag.Observe(lagSeconds)
	}
}
