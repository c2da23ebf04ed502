package models

import (
	"strings"
	"time"

	dErrors "credbridge/pkg/domain-errors"
)

const maxMetadataEntries = 32

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	RequestType string            `json:"requestType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (r *CreateSessionRequest) Validate() error {
	r.RequestType = strings.TrimSpace(r.RequestType)
	if r.RequestType == "" {
		return dErrors.New(dErrors.CodeValidation, "requestType is required")
	}
	if len(r.Metadata) > maxMetadataEntries {
		return dErrors.Newf(dErrors.CodeValidation, "metadata may hold at most %d entries", maxMetadataEntries)
	}
	return nil
}

// CreateSessionResponse is returned from POST /sessions.
type CreateSessionResponse struct {
	SessionID     string        `json:"sessionId"`
	InvitationURL string        `json:"invitationUrl"`
	Status        SessionStatus `json:"status"`
	ExpiresAt     time.Time     `json:"expiresAt"`
}

// ProofStatus summarizes the newest proof request of a session for pollers.
type ProofStatus struct {
	ProofID   string    `json:"proofId"`
	Status    string    `json:"status"`
	Verified  bool      `json:"verified"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusResponse is the fallback pull view served to polling clients.
type StatusResponse struct {
	SessionID    string        `json:"sessionId"`
	Status       SessionStatus `json:"status"`
	ConnectionID string        `json:"connectionId,omitempty"`
	TheirLabel   string        `json:"theirLabel,omitempty"`
	ExpiresAt    time.Time     `json:"expiresAt"`
	Proof        *ProofStatus  `json:"proof,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}
