package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for connection sessions.
type Metrics struct {
	SessionsCreated      prometheus.Counter
	ConnectionsConfirmed prometheus.Counter
	OrphanEvents         prometheus.Counter
	ExpiredReads         prometheus.Counter
}

// New registers the connection session metrics.
func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credbridge_sessions_created_total",
			Help: "Total number of connection sessions created",
		}),
		ConnectionsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credbridge_connections_confirmed_total",
			Help: "Sessions that transitioned to connected",
		}),
		OrphanEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credbridge_connection_orphan_events_total",
			Help: "Connection events that matched no session",
		}),
		ExpiredReads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credbridge_session_expired_reads_total",
			Help: "Session reads that reported lazy expiry",
		}),
	}
}

func (m *Metrics) IncrementSessionsCreated() {
	if m != nil {
		m.SessionsCreated.Inc()
	}
}

func (m *Metrics) IncrementConnectionsConfirmed() {
	if m != nil {
		m.ConnectionsConfirmed.Inc()
	}
}

func (m *Metrics) IncrementOrphanEvents() {
	if m != nil {
		m.OrphanEvents.Inc()
	}
}

func (m *Metrics) IncrementExpiredReads() {
	if m != nil {
		m.ExpiredReads.Inc()
	}
}
