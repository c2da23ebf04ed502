package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"credbridge/internal/connection/models"
	"credbridge/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix    = "credbridge:session:"
	invitationKeyPrefix = "credbridge:session:inv:"
	connectionKeyPrefix = "credbridge:session:conn:"
)

// RedisStore keeps sessions as JSON documents with string index keys for the
// invitation and connection ids. Keys carry no TTL; expiry is evaluated on
// read like the in-memory store.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	created, err := s.client.SetNX(ctx, sessionKeyPrefix+session.SessionID, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !created {
		return sentinel.ErrConflict
	}
	return s.writeIndexes(ctx, session)
}

func (s *RedisStore) Update(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	updated, err := s.client.SetXX(ctx, sessionKeyPrefix+session.SessionID, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if !updated {
		return sentinel.ErrNotFound
	}
	return s.writeIndexes(ctx, session)
}

func (s *RedisStore) writeIndexes(ctx context.Context, session *models.Session) error {
	pipe := s.client.TxPipeline()
	if session.InvitationID != "" {
		pipe.Set(ctx, invitationKeyPrefix+session.InvitationID, session.SessionID, 0)
	}
	if session.ConnectionID != "" {
		pipe.Set(ctx, connectionKeyPrefix+session.ConnectionID, session.SessionID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write session indexes: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID string) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) FindByInvitationID(ctx context.Context, invitationID string) (*models.Session, error) {
	return s.findByIndex(ctx, invitationKeyPrefix+invitationID)
}

func (s *RedisStore) FindByConnectionID(ctx context.Context, connectionID string) (*models.Session, error) {
	return s.findByIndex(ctx, connectionKeyPrefix+connectionID)
}

func (s *RedisStore) findByIndex(ctx context.Context, key string) (*models.Session, error) {
	sessionID, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session index: %w", err)
	}
	return s.FindByID(ctx, sessionID)
}
