// Package store persists proof requests.
package store

import (
	"context"
	"sync"

	"credbridge/internal/credtypes"
	"credbridge/internal/proof/models"
	"credbridge/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	proofs map[string]models.ProofRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{proofs: make(map[string]models.ProofRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, proof *models.ProofRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.proofs[proof.ProofID]; exists {
		return sentinel.ErrConflict
	}
	s.proofs[proof.ProofID] = clone(proof)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, proof *models.ProofRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.proofs[proof.ProofID]; !exists {
		return sentinel.ErrNotFound
	}
	s.proofs[proof.ProofID] = clone(proof)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, proofID string) (*models.ProofRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proofs[proofID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(&p)
	return &out, nil
}

// FindLatestBySession returns the most recently created proof of a session.
func (s *InMemoryStore) FindLatestBySession(_ context.Context, sessionID string) (*models.ProofRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.ProofRequest
	for _, p := range s.proofs {
		if p.SessionID != sessionID {
			continue
		}
		c := p
		if found == nil || c.CreatedAt.After(found.CreatedAt) {
			found = &c
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	out := clone(found)
	return &out, nil
}

// clone deep-copies the slices, maps and pointers of a proof.
func clone(p *models.ProofRequest) models.ProofRequest {
	out := *p
	if p.RequestedAttributes != nil {
		out.RequestedAttributes = make([]credtypes.AttributeConstraint, len(p.RequestedAttributes))
		copy(out.RequestedAttributes, p.RequestedAttributes)
	}
	if p.PresentedAttributes != nil {
		out.PresentedAttributes = make(map[string]any, len(p.PresentedAttributes))
		for k, v := range p.PresentedAttributes {
			out.PresentedAttributes[k] = v
		}
	}
	if p.VerifiedAt != nil {
		t := *p.VerifiedAt
		out.VerifiedAt = &t
	}
	return out
}
