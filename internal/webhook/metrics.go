package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Events *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Events: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credbridge_webhook_events_total",
			Help: "Webhook deliveries by category and outcome",
		}, []string{"category", "outcome"}),
	}
}

func (m *Metrics) observe(category Category, outcome string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(string(category), outcome).Inc()
}
