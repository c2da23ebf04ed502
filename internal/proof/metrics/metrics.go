package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for presentation requests.
type Metrics struct {
	RequestsSubmitted prometheus.Counter
	ProofsVerified    prometheus.Counter
	Transitions       *prometheus.CounterVec
	OrphanEvents      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RequestsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credbridge_proof_requests_submitted_total",
			Help: "Presentation requests accepted by the platform",
		}),
		ProofsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credbridge_proofs_verified_total",
			Help: "Presentations verified and extracted",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credbridge_proof_state_transitions_total",
			Help: "Proof state transitions applied from webhook events",
		}, []string{"status"}),
		OrphanEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credbridge_proof_orphan_events_total",
			Help: "Proof events that referenced an unknown proof id",
		}),
	}
}

func (m *Metrics) IncrementSubmitted() {
	if m != nil {
		m.RequestsSubmitted.Inc()
	}
}

func (m *Metrics) IncrementVerified() {
	if m != nil {
		m.ProofsVerified.Inc()
	}
}

func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementOrphanEvents() {
	if m != nil {
		m.OrphanEvents.Inc()
	}
}
