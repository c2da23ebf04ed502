package agency

import (
	"context"
	"net/http"
	"strings"

	"credbridge/internal/credtypes"
)

// Invitation is an out-of-band connection invitation issued by the platform.
type Invitation struct {
	InvitationID  string
	InvitationURL string
}

type invitationResponse struct {
	ID            string `json:"id"`
	InvitationID  string `json:"invitationId"`
	InvitationURL string `json:"invitationUrl"`
	URL           string `json:"url"`
}

type invitationRequest struct {
	Label                string `json:"label,omitempty"`
	MultiUseInvitation   bool   `json:"multiUseInvitation"`
	AutoAcceptConnection bool   `json:"autoAcceptConnection"`
}

// CreateInvitation asks the platform for a single-use connection invitation.
// The platform's invitation id is required; sessions never fall back to using
// their own id in its place.
func (c *Client) CreateInvitation(ctx context.Context, orgID, label string) (*Invitation, error) {
	const op = "create_invitation"
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	var resp invitationResponse
	body := invitationRequest{Label: label, AutoAcceptConnection: true}
	if err := c.do(ctx, op, http.MethodPost, orgPath(orgID, "connections", "invitation"), body, &resp); err != nil {
		return nil, err
	}

	inv := &Invitation{
		InvitationID:  firstNonEmpty(resp.InvitationID, resp.ID),
		InvitationURL: firstNonEmpty(resp.InvitationURL, resp.URL),
	}
	if inv.InvitationID == "" {
		return nil, upstreamFailure(op, http.StatusOK, "response carried no invitation id", nil)
	}
	if inv.InvitationURL == "" {
		return nil, upstreamFailure(op, http.StatusOK, "response carried no invitation url", nil)
	}
	return inv, nil
}

// ProofRequest is the presentation request submitted over a connection.
type ProofRequest struct {
	ConnectionID string
	Comment      string
	Attributes   []credtypes.AttributeConstraint
}

// ProofRequestResult is the platform's acknowledgement of a proof request.
type ProofRequestResult struct {
	ProofID string
	State   string
}

type requestedAttribute struct {
	AttributeName string  `json:"attributeName"`
	SchemaID      *string `json:"schemaId,omitempty"`
	CredDefID     *string `json:"credDefId,omitempty"`
}

type proofRequestBody struct {
	ConnectionID string `json:"connectionId"`
	Comment      string `json:"comment,omitempty"`
	ProofFormats struct {
		Indy struct {
			Attributes []requestedAttribute `json:"attributes"`
		} `json:"indy"`
	} `json:"proofFormats"`
}

type proofRecordResponse struct {
	ID         string `json:"id"`
	ProofID    string `json:"proofId"`
	State      string `json:"state"`
	IsVerified *bool  `json:"isVerified"`
}

// SendProofRequest submits a presentation request and returns the
// platform-assigned proof id.
func (c *Client) SendProofRequest(ctx context.Context, orgID string, req ProofRequest) (*ProofRequestResult, error) {
	const op = "send_proof_request"
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}

	var body proofRequestBody
	body.ConnectionID = req.ConnectionID
	body.Comment = req.Comment
	body.ProofFormats.Indy.Attributes = make([]requestedAttribute, 0, len(req.Attributes))
	for _, a := range req.Attributes {
		body.ProofFormats.Indy.Attributes = append(body.ProofFormats.Indy.Attributes, requestedAttribute{
			AttributeName: a.AttributeName,
			SchemaID:      a.SchemaID,
			CredDefID:     a.CredentialDefinitionID,
		})
	}

	var resp proofRecordResponse
	if err := c.do(ctx, op, http.MethodPost, orgPath(orgID, "proofs", "request"), body, &resp); err != nil {
		return nil, err
	}
	proofID := firstNonEmpty(resp.ProofID, resp.ID)
	if proofID == "" {
		return nil, upstreamFailure(op, http.StatusOK, "response carried no proof id", nil)
	}
	return &ProofRequestResult{ProofID: proofID, State: resp.State}, nil
}

// VerifyResult is the platform's verdict on a received presentation.
// Verified is false only when the platform explicitly says so.
type VerifyResult struct {
	ProofID  string
	State    string
	Verified bool
}

// VerifyProof asks the platform to verify a received presentation.
func (c *Client) VerifyProof(ctx context.Context, orgID, proofID string) (*VerifyResult, error) {
	const op = "verify_proof"
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	var resp proofRecordResponse
	if err := c.do(ctx, op, http.MethodPost, orgPath(orgID, "proofs", proofID, "verify"), nil, &resp); err != nil {
		return nil, err
	}
	result := &VerifyResult{
		ProofID:  firstNonEmpty(resp.ProofID, resp.ID, proofID),
		State:    resp.State,
		Verified: true,
	}
	if resp.IsVerified != nil {
		result.Verified = *resp.IsVerified
	}
	return result, nil
}

// VerifiedAttributes fetches the disclosed attribute entries of a verified
// proof. Each entry carries one attribute plus schema/definition noise keys.
func (c *Client) VerifiedAttributes(ctx context.Context, orgID, proofID string) ([]map[string]any, error) {
	const op = "verified_attributes"
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	var entries []map[string]any
	if err := c.do(ctx, op, http.MethodGet, orgPath(orgID, "verified-proofs", proofID), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
