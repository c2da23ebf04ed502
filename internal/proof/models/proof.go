package models

import (
	"strings"
	"time"

	"credbridge/internal/credtypes"
	dErrors "credbridge/pkg/domain-errors"
)

// Status is the lifecycle state of a presentation request.
type Status string

const (
	StatusRequested            Status = "requested"
	StatusRequestSent          Status = "request-sent"
	StatusPresentationReceived Status = "presentation-received"
	StatusDone                 Status = "done"
	StatusAbandoned            Status = "abandoned"
)

var statusRank = map[Status]int{
	StatusRequested:            0,
	StatusRequestSent:          1,
	StatusPresentationReceived: 2,
	StatusDone:                 3,
}

// ParseStatus maps a platform proof state onto Status.
func ParseStatus(state string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(state)))
	if s == StatusAbandoned {
		return s, true
	}
	_, ok := statusRank[s]
	return s, ok
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusAbandoned
}

// CanTransitionTo allows forward moves along
// requested → request-sent → presentation-received → done, and abandonment
// from any non-terminal state. Terminal states accept nothing.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusAbandoned {
		return true
	}
	from, okFrom := statusRank[s]
	to, okTo := statusRank[next]
	return okFrom && okTo && to > from
}

// ProofRequest tracks one presentation request.
//
// Invariants:
//   - ProofID is assigned by the platform
//   - PresentedAttributes is non-nil iff Verified
//   - Status only moves forward; done and abandoned are terminal
type ProofRequest struct {
	ProofID             string                          `json:"proofId"`
	SessionID           string                          `json:"sessionId"`
	ConnectionID        string                          `json:"connectionId"`
	OrgID               string                          `json:"orgId,omitempty"`
	RequestedAttributes []credtypes.AttributeConstraint `json:"requestedAttributes"`
	Comment             string                          `json:"comment,omitempty"`
	Status              Status                          `json:"status"`
	Verified            bool                            `json:"verified"`
	PresentedAttributes map[string]any                  `json:"presentedAttributes"`
	CreatedAt           time.Time                       `json:"createdAt"`
	UpdatedAt           time.Time                       `json:"updatedAt"`
	VerifiedAt          *time.Time                      `json:"verifiedAt,omitempty"`
}

// ApplyState moves the proof to next if the state machine allows it and
// reports whether anything changed.
func (p *ProofRequest) ApplyState(next Status, now time.Time) bool {
	if !p.Status.CanTransitionTo(next) {
		return false
	}
	p.Status = next
	p.UpdatedAt = now
	return true
}

// CanVerify rejects verification before the holder has disclosed anything.
func (p *ProofRequest) CanVerify() error {
	if p.Status == StatusPresentationReceived || p.Status == StatusDone {
		return nil
	}
	return dErrors.Newf(dErrors.CodeConflict, "proof %s cannot be verified in state %s", p.ProofID, p.Status)
}

// MarkVerified records the extracted attributes and closes the proof.
func (p *ProofRequest) MarkVerified(attributes map[string]any, now time.Time) {
	if attributes == nil {
		attributes = map[string]any{}
	}
	p.PresentedAttributes = attributes
	p.Verified = true
	p.Status = StatusDone
	p.UpdatedAt = now
	verifiedAt := now
	p.VerifiedAt = &verifiedAt
}

// Result is the outcome of a verify call.
func (p *ProofRequest) Result() *VerifiedResult {
	return &VerifiedResult{Verified: p.Verified, PresentedAttributes: p.PresentedAttributes}
}

// ProofEvent is the proof-relevant slice of a normalized webhook event.
type ProofEvent struct {
	ProofID      string
	ConnectionID string
	State        string
}

// VerifiedResult is returned by the verify operation.
type VerifiedResult struct {
	Verified            bool           `json:"verified"`
	PresentedAttributes map[string]any `json:"presentedAttributes"`
}
