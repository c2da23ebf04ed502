package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks push channel population and delivery outcomes.
type Metrics struct {
	ActiveChannels prometheus.Gauge
	Deliveries     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		ActiveChannels: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "credbridge_push_channels_active",
			Help: "Push channels currently registered",
		}),
		Deliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credbridge_push_deliveries_total",
			Help: "Broadcast deliveries by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) setActive(n int) {
	if m != nil {
		m.ActiveChannels.Set(float64(n))
	}
}

func (m *Metrics) delivered(outcome string, n int) {
	if m != nil && n > 0 {
		m.Deliveries.WithLabelValues(outcome).Add(float64(n))
	}
}
