package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"credbridge/internal/agency"
	"credbridge/internal/credtypes"
	"credbridge/internal/platform/config"
	"credbridge/internal/proof/metrics"
	"credbridge/internal/proof/models"
	dErrors "credbridge/pkg/domain-errors"
	"credbridge/pkg/platform/sentinel"
	"credbridge/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, proof *models.ProofRequest) error
	Update(ctx context.Context, proof *models.ProofRequest) error
	FindByID(ctx context.Context, proofID string) (*models.ProofRequest, error)
	FindLatestBySession(ctx context.Context, sessionID string) (*models.ProofRequest, error)
}

// Platform is the subset of the credential platform used for proofs.
type Platform interface {
	SendProofRequest(ctx context.Context, orgID string, req agency.ProofRequest) (*agency.ProofRequestResult, error)
	VerifyProof(ctx context.Context, orgID, proofID string) (*agency.VerifyResult, error)
	VerifiedAttributes(ctx context.Context, orgID, proofID string) ([]map[string]any, error)
}

// Service owns presentation requests from submission to verified extraction.
type Service struct {
	store      Store
	platform   Platform
	defaultOrg string
	registry   *credtypes.Registry
	defaults   []credtypes.Descriptor
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// mu serializes read-modify-write cycles on stored proofs and guards
	// early. Platform calls happen outside it.
	mu    sync.Mutex
	early map[string]earlyEvent
}

const (
	maxEarlyEvents = 256
	earlyEventTTL  = 10 * time.Minute
)

// earlyEvent is the furthest state seen for a proof id the store does not
// know yet. The platform may deliver webhooks before SendProofRequest returns.
type earlyEvent struct {
	status     models.Status
	receivedAt time.Time
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

// WithDefaultOrg sets the organization used when a caller omits orgId.
func WithDefaultOrg(orgID string) Option {
	return func(s *Service) {
		s.defaultOrg = strings.TrimSpace(orgID)
	}
}

// WithAttributeRegistry sets the credential type registry and the descriptor
// list requested when a submission names no attributes.
func WithAttributeRegistry(registry *credtypes.Registry, defaults []credtypes.Descriptor) Option {
	return func(s *Service) {
		s.registry = registry
		s.defaults = defaults
	}
}

func New(store Store, platform Platform, opts ...Option) *Service {
	s := &Service{
		store:    store,
		platform: platform,
		logger:   slog.Default(),
		early:    make(map[string]earlyEvent),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitProofRequest resolves attribute descriptors against the registry and
// submits the resulting request.
func (s *Service) SubmitProofRequest(ctx context.Context, req models.SubmitProofRequest) (*models.ProofRequest, error) {
	descriptors := req.Attributes
	if len(descriptors) == 0 {
		descriptors = s.defaults
	}
	constraints, err := credtypes.BuildProofAttributeRequests(descriptors, s.registry)
	if err != nil {
		return nil, err
	}
	return s.CreateProofRequest(ctx, req.SessionID, req.ConnectionID, req.OrgID, constraints, req.Comment)
}

// CreateProofRequest submits a presentation request to the platform and
// persists it under the platform-assigned proof id.
func (s *Service) CreateProofRequest(ctx context.Context, sessionID, connectionID, orgID string, attributes []credtypes.AttributeConstraint, comment string) (*models.ProofRequest, error) {
	requestID := requestcontext.RequestID(ctx)
	sessionID = strings.TrimSpace(sessionID)
	connectionID = strings.TrimSpace(connectionID)
	if sessionID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "sessionId is required")
	}
	if connectionID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "connectionId is required")
	}
	if len(attributes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one attribute is required")
	}
	org, err := s.resolveOrg(orgID)
	if err != nil {
		return nil, err
	}

	res, err := s.platform.SendProofRequest(ctx, org, agency.ProofRequest{
		ConnectionID: connectionID,
		Comment:      comment,
		Attributes:   attributes,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "proof request submission failed",
			"request_id", requestID,
			"session_id", sessionID,
			"connection_id", connectionID,
			"error", err,
		)
		return nil, err
	}

	now := requestcontext.Now(ctx)
	proof := &models.ProofRequest{
		ProofID:             res.ProofID,
		SessionID:           sessionID,
		ConnectionID:        connectionID,
		OrgID:               org,
		RequestedAttributes: attributes,
		Comment:             comment,
		Status:              models.StatusRequested,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if confirmed, ok := models.ParseStatus(res.State); ok && confirmed != models.StatusAbandoned {
		proof.ApplyState(confirmed, now)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ev, ok := s.early[proof.ProofID]; ok {
		delete(s.early, proof.ProofID)
		if now.Sub(ev.receivedAt) <= earlyEventTTL && proof.ApplyState(ev.status, now) {
			s.logger.InfoContext(ctx, "early proof event applied",
				"request_id", requestID,
				"proof_id", proof.ProofID,
				"status", proof.Status,
			)
		}
	}
	if err := s.store.Create(ctx, proof); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "proof %s already exists", proof.ProofID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save proof request")
	}

	s.metrics.IncrementSubmitted()
	s.logger.InfoContext(ctx, "proof request submitted",
		"request_id", requestID,
		"proof_id", proof.ProofID,
		"session_id", sessionID,
		"status", proof.Status,
		"attributes", len(attributes),
	)
	return proof, nil
}

// ApplyProofEvent folds a proof webhook into the stored request. Unknown
// proof ids return an orphan_event error and their state is held briefly in
// case the matching CreateProofRequest is still in flight; unknown or
// backward states are ignored. changed reports whether the stored record
// moved.
func (s *Service) ApplyProofEvent(ctx context.Context, event models.ProofEvent) (*models.ProofRequest, bool, error) {
	requestID := requestcontext.RequestID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	proof, err := s.store.FindByID(ctx, event.ProofID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementOrphanEvents()
			held := s.holdEarly(event, requestcontext.Now(ctx))
			s.logger.WarnContext(ctx, "orphan proof event",
				"request_id", requestID,
				"proof_id", event.ProofID,
				"state", event.State,
				"held", held,
			)
			return nil, false, dErrors.New(dErrors.CodeOrphanEvent, "proof event matches no proof request")
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proof request")
	}

	next, ok := models.ParseStatus(event.State)
	if !ok {
		s.logger.DebugContext(ctx, "proof event state not tracked",
			"request_id", requestID,
			"proof_id", proof.ProofID,
			"state", event.State,
		)
		return proof, false, nil
	}

	now := requestcontext.Now(ctx)
	if !proof.ApplyState(next, now) {
		return proof, false, nil
	}
	if proof.ConnectionID == "" && event.ConnectionID != "" {
		proof.ConnectionID = event.ConnectionID
	}
	if err := s.store.Update(ctx, proof); err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update proof request")
	}

	s.metrics.IncrementTransition(string(next))
	s.logger.InfoContext(ctx, "proof state changed",
		"request_id", requestID,
		"proof_id", proof.ProofID,
		"status", proof.Status,
	)
	return proof, true, nil
}

// VerifyProofPresentation confirms a received presentation with the platform
// and stores the extracted attributes. Verifying an already verified proof
// returns the stored result without calling the platform.
func (s *Service) VerifyProofPresentation(ctx context.Context, proofID, orgID string) (*models.VerifiedResult, error) {
	requestID := requestcontext.RequestID(ctx)

	proof, err := s.GetProof(ctx, proofID)
	if err != nil {
		return nil, err
	}
	if proof.Verified {
		return proof.Result(), nil
	}
	if err := proof.CanVerify(); err != nil {
		return nil, err
	}
	org := orgID
	if strings.TrimSpace(org) == "" {
		org = proof.OrgID
	}
	org, err = s.resolveOrg(org)
	if err != nil {
		return nil, err
	}

	verdict, err := s.platform.VerifyProof(ctx, org, proof.ProofID)
	if err != nil {
		s.logger.WarnContext(ctx, "proof verification failed",
			"request_id", requestID,
			"proof_id", proof.ProofID,
			"error", err,
		)
		return nil, err
	}
	if !verdict.Verified {
		s.logger.WarnContext(ctx, "platform rejected presentation",
			"request_id", requestID,
			"proof_id", proof.ProofID,
			"state", verdict.State,
		)
		return &models.VerifiedResult{Verified: false}, nil
	}

	entries, err := s.platform.VerifiedAttributes(ctx, org, proof.ProofID)
	if err != nil {
		s.logger.WarnContext(ctx, "fetching verified attributes failed",
			"request_id", requestID,
			"proof_id", proof.ProofID,
			"error", err,
		)
		return nil, err
	}
	attributes := ExtractPresentedAttributes(entries)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Reload: webhook events may have moved the record during the platform calls.
	current, err := s.store.FindByID(ctx, proof.ProofID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload proof request")
	}
	if current.Verified {
		return current.Result(), nil
	}
	if err := current.CanVerify(); err != nil {
		s.logger.WarnContext(ctx, "proof changed state during verification",
			"request_id", requestID,
			"proof_id", current.ProofID,
			"status", current.Status,
		)
		return nil, err
	}
	current.MarkVerified(attributes, requestcontext.Now(ctx))
	if err := s.store.Update(ctx, current); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification")
	}

	s.metrics.IncrementVerified()
	s.logger.InfoContext(ctx, "proof verified",
		"request_id", requestID,
		"proof_id", current.ProofID,
		"session_id", current.SessionID,
		"attributes", len(attributes),
	)
	return current.Result(), nil
}

// holdEarly remembers the furthest state of an event whose proof id is not
// stored yet so CreateProofRequest can fold it in. Caller holds s.mu.
func (s *Service) holdEarly(event models.ProofEvent, now time.Time) bool {
	next, ok := models.ParseStatus(event.State)
	if !ok || event.ProofID == "" {
		return false
	}
	if ev, exists := s.early[event.ProofID]; exists {
		if ev.status.CanTransitionTo(next) {
			ev.status = next
		}
		ev.receivedAt = now
		s.early[event.ProofID] = ev
		return true
	}

	var oldestID string
	var oldest time.Time
	for id, ev := range s.early {
		if now.Sub(ev.receivedAt) > earlyEventTTL {
			delete(s.early, id)
			continue
		}
		if oldestID == "" || ev.receivedAt.Before(oldest) {
			oldestID, oldest = id, ev.receivedAt
		}
	}
	if len(s.early) >= maxEarlyEvents {
		delete(s.early, oldestID)
	}
	s.early[event.ProofID] = earlyEvent{status: next, receivedAt: now}
	return true
}

func (s *Service) GetProof(ctx context.Context, proofID string) (*models.ProofRequest, error) {
	proof, err := s.store.FindByID(ctx, proofID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "proof request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proof request")
	}
	return proof, nil
}

// LatestForSession returns the newest proof request of a session.
func (s *Service) LatestForSession(ctx context.Context, sessionID string) (*models.ProofRequest, error) {
	proof, err := s.store.FindLatestBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no proof request for session")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proof request")
	}
	return proof, nil
}

func (s *Service) resolveOrg(orgID string) (string, error) {
	org := strings.TrimSpace(orgID)
	if org == "" {
		org = s.defaultOrg
	}
	if config.IsPlaceholder(org) {
		return "", dErrors.New(dErrors.CodeConfiguration, "organization id is missing or a placeholder")
	}
	return org, nil
}
