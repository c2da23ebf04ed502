package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"credbridge/internal/agency"
	"credbridge/internal/connection/metrics"
	"credbridge/internal/connection/models"
	dErrors "credbridge/pkg/domain-errors"
	"credbridge/pkg/platform/sentinel"
	"credbridge/pkg/requestcontext"
)

// DefaultTTL bounds how long an invitation waits for the wallet.
const DefaultTTL = 30 * time.Minute

// Store persists sessions. Implementations return sentinel.ErrNotFound for
// unknown keys and sentinel.ErrConflict for duplicate ids on Create.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID string) (*models.Session, error)
	FindByInvitationID(ctx context.Context, invitationID string) (*models.Session, error)
	FindByConnectionID(ctx context.Context, connectionID string) (*models.Session, error)
}

// InvitationIssuer obtains connection invitations from the platform.
type InvitationIssuer interface {
	CreateInvitation(ctx context.Context, orgID, label string) (*agency.Invitation, error)
}

// Service owns the lifecycle of connection sessions.
type Service struct {
	store   Store
	issuer  InvitationIssuer
	orgID   string
	label   string
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	// applyMu serializes event application so concurrent duplicate
	// deliveries read and write the same record one at a time.
	applyMu sync.Mutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithInvitationIssuer enables StartSession against the given organization.
func WithInvitationIssuer(issuer InvitationIssuer, orgID, label string) Option {
	return func(s *Service) {
		s.issuer = issuer
		s.orgID = orgID
		s.label = label
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession records a new pairing attempt for an invitation the platform
// has already issued. It makes no network calls.
func (s *Service) CreateSession(ctx context.Context, invitationID, invitationURL, requestType string, clientMeta map[string]string) (*models.Session, error) {
	invitationID = strings.TrimSpace(invitationID)
	if invitationID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "invitation id is required")
	}

	now := requestcontext.Now(ctx)
	session := &models.Session{
		SessionID:     uuid.NewString(),
		InvitationID:  invitationID,
		InvitationURL: invitationURL,
		Status:        models.StatusInvitation,
		RequestType:   requestType,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
		Metadata:      copyMetadata(clientMeta),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
	}

	s.metrics.IncrementSessionsCreated()
	s.logger.InfoContext(ctx, "session created",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", session.SessionID,
		"invitation_id", session.InvitationID,
		"request_type", requestType,
	)
	return session.View(now), nil
}

// StartSession fetches a fresh invitation from the platform and records a
// session for it.
func (s *Service) StartSession(ctx context.Context, requestType string, clientMeta map[string]string) (*models.Session, error) {
	if s.issuer == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "platform client is not configured")
	}
	inv, err := s.issuer.CreateInvitation(ctx, s.orgID, s.label)
	if err != nil {
		s.logger.WarnContext(ctx, "invitation request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, err
	}
	return s.CreateSession(ctx, inv.InvitationID, inv.InvitationURL, requestType, clientMeta)
}

// GetSession returns the session view with lazy expiry applied.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, s.translateLookup(err, "session not found")
	}
	now := requestcontext.Now(ctx)
	view := session.View(now)
	if view.Status != session.Status {
		s.metrics.IncrementExpiredReads()
	}
	return view, nil
}

// FindByConnectionID resolves the session that recorded a platform
// connection id.
func (s *Service) FindByConnectionID(ctx context.Context, connectionID string) (*models.Session, error) {
	if connectionID == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	session, err := s.store.FindByConnectionID(ctx, connectionID)
	if err != nil {
		return nil, s.translateLookup(err, "session not found")
	}
	return session.View(requestcontext.Now(ctx)), nil
}

// ApplyConnectionEvent folds a connection webhook into the matching session.
// Matching tries the recorded connection id first, then the invitation id.
// An unmatched event returns an orphan_event error that callers log and
// acknowledge. connectedNow is true only on the transition into connected.
func (s *Service) ApplyConnectionEvent(ctx context.Context, event models.ConnectionEvent) (*models.Session, bool, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	session, err := s.match(ctx, event)
	if err != nil {
		return nil, false, err
	}
	now := requestcontext.Now(ctx)
	requestID := requestcontext.RequestID(ctx)

	if !models.IsConnectedState(event.State) {
		s.logger.DebugContext(ctx, "connection event without completion",
			"request_id", requestID,
			"session_id", session.SessionID,
			"state", event.State,
		)
		return session.View(now), false, nil
	}

	connectionID := event.ResolvedConnectionID()
	if connectionID == session.InvitationID {
		connectionID = ""
	}
	if connectionID == "" && session.Status != models.StatusConnected {
		s.logger.WarnContext(ctx, "completed connection event carries no connection id",
			"request_id", requestID,
			"session_id", session.SessionID,
		)
		return session.View(now), false, nil
	}

	previousLabel := session.TheirLabel
	connectedNow := session.ApplyConnection(connectionID, event.TheirLabel, now)
	if !connectedNow && session.TheirLabel == previousLabel {
		return session.View(now), false, nil
	}
	if err := s.store.Update(ctx, session); err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update session")
	}

	if connectedNow {
		s.metrics.IncrementConnectionsConfirmed()
		s.logger.InfoContext(ctx, "session connected",
			"request_id", requestID,
			"session_id", session.SessionID,
			"connection_id", session.ConnectionID,
		)
	}
	return session.View(now), connectedNow, nil
}

func (s *Service) match(ctx context.Context, event models.ConnectionEvent) (*models.Session, error) {
	if connectionID := event.ResolvedConnectionID(); connectionID != "" {
		session, err := s.store.FindByConnectionID(ctx, connectionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up session")
		}
	}
	for _, key := range event.InvitationKeys() {
		session, err := s.store.FindByInvitationID(ctx, key)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up session")
		}
	}

	s.metrics.IncrementOrphanEvents()
	s.logger.WarnContext(ctx, "orphan connection event",
		"request_id", requestcontext.RequestID(ctx),
		"event_id", event.ID,
		"connection_id", event.ConnectionID,
		"invitation_id", event.InvitationID,
		"state", event.State,
	)
	return nil, dErrors.New(dErrors.CodeOrphanEvent, "connection event matches no session")
}

func (s *Service) translateLookup(err error, notFoundMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
}

func copyMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
