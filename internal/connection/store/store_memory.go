// Package store persists connection sessions. Both implementations return
// sentinel.ErrNotFound for unknown keys and hand out copies, never shared
// pointers.
package store

import (
	"context"
	"sync"

	"credbridge/internal/connection/models"
	"credbridge/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in process memory with secondary indexes on
// invitation and connection ids.
type InMemoryStore struct {
	mu           sync.RWMutex
	sessions     map[string]models.Session
	byInvitation map[string]string
	byConnection map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:     make(map[string]models.Session),
		byInvitation: make(map[string]string),
		byConnection: make(map[string]string),
	}
}

// Create inserts a new session. An existing session id is a conflict.
func (s *InMemoryStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.SessionID]; exists {
		return sentinel.ErrConflict
	}
	s.put(session)
	return nil
}

// Update replaces a stored session.
func (s *InMemoryStore) Update(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.SessionID]; !exists {
		return sentinel.ErrNotFound
	}
	s.put(session)
	return nil
}

func (s *InMemoryStore) put(session *models.Session) {
	s.sessions[session.SessionID] = *session.Clone()
	if session.InvitationID != "" {
		s.byInvitation[session.InvitationID] = session.SessionID
	}
	if session.ConnectionID != "" {
		s.byConnection[session.ConnectionID] = session.SessionID
	}
}

func (s *InMemoryStore) FindByID(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(sessionID)
}

func (s *InMemoryStore) FindByInvitationID(_ context.Context, invitationID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byInvitation[invitationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.get(id)
}

func (s *InMemoryStore) FindByConnectionID(_ context.Context, connectionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byConnection[connectionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.get(id)
}

func (s *InMemoryStore) get(sessionID string) (*models.Session, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return session.Clone(), nil
}
