package main

import (
	"context"

	connModels "credbridge/internal/connection/models"
	"credbridge/internal/proof"
	dErrors "credbridge/pkg/domain-errors"
)

// proofStatusReader lets the session status endpoint report the latest proof
// without the connection packages importing proof.
type proofStatusReader struct {
	proofs *proof.Service
}

func (r proofStatusReader) LatestProofStatus(ctx context.Context, sessionID string) (*connModels.ProofStatus, error) {
	p, err := r.proofs.LatestForSession(ctx, sessionID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &connModels.ProofStatus{
		ProofID:   p.ProofID,
		Status:    string(p.Status),
		Verified:  p.Verified,
		UpdatedAt: p.UpdatedAt,
	}, nil
}
