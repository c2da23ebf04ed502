package models

import (
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of a pairing attempt.
type SessionStatus string

const (
	StatusInvitation SessionStatus = "invitation"
	StatusConnected  SessionStatus = "connected"
	StatusAbandoned  SessionStatus = "abandoned"
)

// Session tracks a locally initiated pairing attempt until the platform
// confirms the connection.
//
// Invariants:
//   - ConnectionID is set if and only if Status is connected
//   - SessionID is generated locally; InvitationID is always platform assigned
//   - a connected session never returns to invitation or abandoned
//   - sessions are never deleted; expiry is computed on read
type Session struct {
	SessionID     string            `json:"sessionId"`
	InvitationID  string            `json:"invitationId"`
	InvitationURL string            `json:"invitationUrl"`
	ConnectionID  string            `json:"connectionId,omitempty"`
	Status        SessionStatus     `json:"status"`
	TheirLabel    string            `json:"theirLabel,omitempty"`
	RequestType   string            `json:"requestType"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	ExpiresAt     time.Time         `json:"expiresAt"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// IsExpired reports whether an unconfirmed invitation has outlived its TTL.
func (s *Session) IsExpired(now time.Time) bool {
	return s.Status == StatusInvitation && now.After(s.ExpiresAt)
}

// View returns a copy with lazy expiry applied. The stored record is not
// touched.
func (s *Session) View(now time.Time) *Session {
	v := s.Clone()
	if v.IsExpired(now) {
		v.Status = StatusAbandoned
	}
	return v
}

// Clone copies the session including its metadata map.
func (s *Session) Clone() *Session {
	c := *s
	if s.Metadata != nil {
		c.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// ApplyConnection records a confirmed pairing. It returns true only on the
// transition into connected; repeated confirmations are no-ops.
func (s *Session) ApplyConnection(connectionID, theirLabel string, now time.Time) bool {
	if s.Status == StatusConnected {
		if theirLabel != "" && s.TheirLabel == "" {
			s.TheirLabel = theirLabel
			s.UpdatedAt = now
		}
		return false
	}
	s.ConnectionID = connectionID
	s.Status = StatusConnected
	if theirLabel != "" {
		s.TheirLabel = theirLabel
	}
	s.UpdatedAt = now
	return true
}

// ConnectionEvent is the connection-relevant slice of a normalized webhook
// event.
type ConnectionEvent struct {
	ID           string
	ConnectionID string
	InvitationID string
	State        string
	TheirLabel   string
}

// connectedStates are the platform states that mean pairing is complete.
var connectedStates = map[string]struct{}{
	"completed":     {},
	"complete":      {},
	"active":        {},
	"response-sent": {},
}

// IsConnectedState reports whether a platform connection state indicates a
// completed or active pairing.
func IsConnectedState(state string) bool {
	_, ok := connectedStates[strings.ToLower(strings.TrimSpace(state))]
	return ok
}

// ResolvedConnectionID is the platform connection id carried by the event.
// When connectionId is absent, the event's own id names the connection unless
// that id is the invitation id.
func (e ConnectionEvent) ResolvedConnectionID() string {
	if e.ConnectionID != "" {
		return e.ConnectionID
	}
	if e.ID != "" && e.ID != e.InvitationID {
		return e.ID
	}
	return ""
}

// InvitationKeys lists the ids that may name the session's invitation, in
// match order.
func (e ConnectionEvent) InvitationKeys() []string {
	keys := make([]string, 0, 2)
	if e.InvitationID != "" {
		keys = append(keys, e.InvitationID)
	}
	if e.ID != "" && e.ID != e.InvitationID {
		keys = append(keys, e.ID)
	}
	return keys
}
