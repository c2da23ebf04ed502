package models

import (
	"strings"

	"credbridge/internal/credtypes"
	dErrors "credbridge/pkg/domain-errors"
)

// SubmitProofRequest is the body of POST /proofs. Attributes may be omitted
// to request the configured default attribute list.
type SubmitProofRequest struct {
	SessionID    string                 `json:"sessionId"`
	ConnectionID string                 `json:"connectionId"`
	OrgID        string                 `json:"orgId,omitempty"`
	Attributes   []credtypes.Descriptor `json:"attributes,omitempty"`
	Comment      string                 `json:"comment,omitempty"`
}

func (r *SubmitProofRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	r.ConnectionID = strings.TrimSpace(r.ConnectionID)
	r.OrgID = strings.TrimSpace(r.OrgID)
	if r.SessionID == "" {
		return dErrors.New(dErrors.CodeValidation, "sessionId is required")
	}
	if r.ConnectionID == "" {
		return dErrors.New(dErrors.CodeValidation, "connectionId is required")
	}
	for i, a := range r.Attributes {
		if strings.TrimSpace(a.Name) == "" {
			return dErrors.Newf(dErrors.CodeValidation, "attributes[%d].name is required", i)
		}
	}
	return nil
}

// SubmitProofResponse is returned from POST /proofs.
type SubmitProofResponse struct {
	ProofID string `json:"proofId"`
	Status  Status `json:"status"`
}

// VerifyProofRequest is the optional body of POST /proofs/{proofId}/verify.
type VerifyProofRequest struct {
	OrgID string `json:"orgId,omitempty"`
}

func (r *VerifyProofRequest) Validate() error {
	r.OrgID = strings.TrimSpace(r.OrgID)
	return nil
}
