// Package events publishes normalized platform webhook events for downstream
// consumers.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// PlatformEvent is the record emitted for every accepted webhook.
type PlatformEvent struct {
	Type         string         `json:"type"`
	Category     string         `json:"category"`
	State        string         `json:"state,omitempty"`
	EventID      string         `json:"eventId,omitempty"`
	ConnectionID string         `json:"connectionId,omitempty"`
	ProofID      string         `json:"proofId,omitempty"`
	SessionID    string         `json:"sessionId,omitempty"`
	Outcome      string         `json:"outcome"`
	ReceivedAt   time.Time      `json:"receivedAt"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// Key partitions events so one connection's history stays ordered.
func (e PlatformEvent) Key() string {
	switch {
	case e.ConnectionID != "":
		return e.ConnectionID
	case e.ProofID != "":
		return e.ProofID
	default:
		return e.EventID
	}
}

type Publisher interface {
	Publish(ctx context.Context, event PlatformEvent) error
}

// LogPublisher writes events to the structured log. It is the default sink
// and the fallback while Kafka is unavailable.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event PlatformEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		payload = nil
	}
	p.logger.InfoContext(ctx, "platform event",
		"type", event.Type,
		"category", event.Category,
		"state", event.State,
		"connection_id", event.ConnectionID,
		"proof_id", event.ProofID,
		"session_id", event.SessionID,
		"outcome", event.Outcome,
		"payload", string(payload),
	)
	return nil
}
