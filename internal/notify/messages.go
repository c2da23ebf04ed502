package notify

import "time"

// Message types pushed to browsers.
const (
	TypeConnected    = "connected"
	TypeStatusUpdate = "status_update"
	TypePong         = "pong"
)

// StatusUpdate is pushed whenever a webhook changes connection, credential
// or proof state.
type StatusUpdate struct {
	Type         string    `json:"type"`
	SessionID    string    `json:"sessionId,omitempty"`
	ConnectionID string    `json:"connectionId,omitempty"`
	ProofID      string    `json:"proofId,omitempty"`
	EventType    string    `json:"eventType,omitempty"`
	Status       string    `json:"status"`
	Verified     *bool     `json:"verified,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewStatusUpdate stamps a status_update message.
func NewStatusUpdate(eventType, status string, now time.Time) StatusUpdate {
	return StatusUpdate{
		Type:      TypeStatusUpdate,
		EventType: eventType,
		Status:    status,
		Timestamp: now.UTC(),
	}
}

// ConnectedMessage acknowledges a new push channel and carries the session
// state at subscribe time.
type ConnectedMessage struct {
	Type         string    `json:"type"`
	SessionID    string    `json:"sessionId"`
	Status       string    `json:"status"`
	ConnectionID string    `json:"connectionId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ClientMessage is anything a browser sends up the channel.
type ClientMessage struct {
	Type string `json:"type"`
}

type pongMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
