package webhook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"

	connModels "credbridge/internal/connection/models"
	"credbridge/internal/events"
	"credbridge/internal/notify"
	"credbridge/internal/platform/metrics"
	"credbridge/internal/platform/middleware"
	proofModels "credbridge/internal/proof/models"
	dErrors "credbridge/pkg/domain-errors"
	"credbridge/pkg/platform/httputil"
	"credbridge/pkg/requestcontext"
)

const maxWebhookBytes = 1 << 20

// Outcomes recorded per delivery.
const (
	OutcomeApplied   = "applied"
	OutcomeUnchanged = "unchanged"
	OutcomeOrphan    = "orphan"
	OutcomeFailed    = "failed"
	OutcomeBroadcast = "broadcast"
	OutcomeDropped   = "dropped"
	OutcomeRejected  = "rejected"
)

type ConnectionService interface {
	ApplyConnectionEvent(ctx context.Context, event connModels.ConnectionEvent) (*connModels.Session, bool, error)
	FindByConnectionID(ctx context.Context, connectionID string) (*connModels.Session, error)
}

type ProofService interface {
	ApplyProofEvent(ctx context.Context, event proofModels.ProofEvent) (*proofModels.ProofRequest, bool, error)
}

// Broadcaster is the fan-out registry.
type Broadcaster interface {
	Rekey(sessionKey, connectionKey string) int
	BroadcastKeys(ctx context.Context, payload any, keys ...string) int
}

// Response is the acknowledgement sent to the platform.
type Response struct {
	Received bool   `json:"received"`
	Type     string `json:"type,omitempty"`
	State    string `json:"state,omitempty"`
}

type Handler struct {
	connections ConnectionService
	proofs      ProofService
	broadcaster Broadcaster
	publisher   events.Publisher
	apiKey      string
	logger      *slog.Logger
	metrics     *Metrics
	httpMetrics *metrics.Metrics
}

type Option func(*Handler)

func WithMetrics(m *Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func WithHTTPMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.httpMetrics = m
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(h *Handler) {
		h.publisher = p
	}
}

func New(connections ConnectionService, proofs ProofService, broadcaster Broadcaster, apiKey string, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		connections: connections,
		proofs:      proofs,
		broadcaster: broadcaster,
		apiKey:      apiKey,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(h.apiKey, h.logger))
		r.Use(middleware.LatencyMiddleware(h.httpMetrics))
		r.Post("/webhooks", h.HandleWebhook)
	})
}

// HandleWebhook acknowledges every authenticated delivery with 200. What
// actually happened is logged and counted, never returned.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read webhook body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusOK, Response{})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.Process(ctx, body))
}

// Process runs one delivery end to end. It never panics and never fails.
func (h *Handler) Process(ctx context.Context, body []byte) (resp Response) {
	requestID := requestcontext.RequestID(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.ErrorContext(ctx, "webhook processing panicked",
				"request_id", requestID,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			h.metrics.observe(CategoryIgnored, OutcomeFailed)
		}
	}()

	ev, err := ParseEvent(body)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook payload rejected",
			"request_id", requestID,
			"error", err,
		)
		h.metrics.observe(CategoryIgnored, OutcomeRejected)
		return Response{}
	}
	resp = Response{Received: true, Type: ev.Type, State: ev.State}

	category := Classify(ev)
	var r routed
	switch category {
	case CategoryProof:
		r = h.routeProof(ctx, ev)
	case CategoryConnection:
		r = h.routeConnection(ctx, ev)
	case CategoryCredential:
		r = h.routeCredential(ctx, ev)
	default:
		h.logger.InfoContext(ctx, "webhook event type dropped",
			"request_id", requestID,
			"type", ev.Type,
			"state", ev.State,
		)
		h.metrics.observe(category, OutcomeDropped)
		return resp
	}

	delivered := h.broadcast(ctx, ev, r)
	h.metrics.observe(category, r.outcome)
	h.publish(ctx, ev, category, r)
	h.logger.InfoContext(ctx, "webhook processed",
		"request_id", requestID,
		"type", ev.Type,
		"state", ev.State,
		"category", category,
		"outcome", r.outcome,
		"session_id", r.sessionID,
		"delivered", delivered,
	)
	return resp
}

// routed carries what dispatch learned about the event.
type routed struct {
	outcome       string
	sessionID     string
	connectionKey string
	proofID       string
	verified      *bool
}

func (h *Handler) routeProof(ctx context.Context, ev Event) routed {
	out := routed{
		outcome:       OutcomeApplied,
		connectionKey: ev.ConnectionID,
		proofID:       ev.ResolvedProofID(),
	}

	proof, changed, err := h.proofs.ApplyProofEvent(ctx, proofModels.ProofEvent{
		ProofID:      out.proofID,
		ConnectionID: ev.ConnectionID,
		State:        ev.State,
	})
	switch {
	case err != nil:
		out.outcome = h.failureOutcome(ctx, err, "proof")
	case !changed:
		out.outcome = OutcomeUnchanged
	}
	if proof != nil {
		out.sessionID = proof.SessionID
		if out.connectionKey == "" {
			out.connectionKey = proof.ConnectionID
		}
		if proof.Verified {
			verified := true
			out.verified = &verified
		}
	}
	if out.connectionKey == "" {
		out.connectionKey = ev.ID
	}
	return out
}

func (h *Handler) routeConnection(ctx context.Context, ev Event) routed {
	out := routed{outcome: OutcomeApplied, connectionKey: ev.ConnectionKey()}

	session, connectedNow, err := h.connections.ApplyConnectionEvent(ctx, connModels.ConnectionEvent{
		ID:           ev.ID,
		ConnectionID: ev.ConnectionID,
		InvitationID: ev.InvitationID,
		State:        ev.State,
		TheirLabel:   ev.TheirLabel,
	})
	switch {
	case err != nil:
		out.outcome = h.failureOutcome(ctx, err, "connection")
	case !connectedNow:
		out.outcome = OutcomeUnchanged
	}
	if session == nil {
		return out
	}
	out.sessionID = session.SessionID
	if session.Status == connModels.StatusConnected && session.ConnectionID != "" && h.broadcaster != nil {
		n := h.broadcaster.Rekey(session.SessionID, session.ConnectionID)
		out.connectionKey = session.ConnectionID
		if connectedNow {
			h.logger.InfoContext(ctx, "push channels rekeyed",
				"request_id", requestcontext.RequestID(ctx),
				"session_id", session.SessionID,
				"connection_id", session.ConnectionID,
				"channels", n,
			)
		}
	}
	return out
}

// routeCredential only informs the UI; no stored state changes.
func (h *Handler) routeCredential(ctx context.Context, ev Event) routed {
	out := routed{outcome: OutcomeBroadcast, connectionKey: ev.ConnectionKey()}
	if ev.ConnectionID == "" {
		return out
	}
	session, err := h.connections.FindByConnectionID(ctx, ev.ConnectionID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.WarnContext(ctx, "credential event session lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"connection_id", ev.ConnectionID,
				"error", err,
			)
		}
		return out
	}
	out.sessionID = session.SessionID
	return out
}

func (h *Handler) failureOutcome(ctx context.Context, err error, kind string) string {
	if dErrors.HasCode(err, dErrors.CodeOrphanEvent) {
		return OutcomeOrphan
	}
	h.logger.ErrorContext(ctx, "webhook dispatch failed",
		"request_id", requestcontext.RequestID(ctx),
		"kind", kind,
		"error", err,
	)
	return OutcomeFailed
}

func (h *Handler) broadcast(ctx context.Context, ev Event, r routed) int {
	if h.broadcaster == nil {
		return 0
	}
	msg := notify.NewStatusUpdate(ev.Type, ev.State, requestcontext.Now(ctx))
	msg.SessionID = r.sessionID
	msg.ConnectionID = r.connectionKey
	msg.ProofID = r.proofID
	msg.Verified = r.verified
	return h.broadcaster.BroadcastKeys(ctx, msg, r.connectionKey, r.sessionID)
}

func (h *Handler) publish(ctx context.Context, ev Event, category Category, r routed) {
	if h.publisher == nil {
		return
	}
	err := h.publisher.Publish(ctx, events.PlatformEvent{
		Type:         ev.Type,
		Category:     string(category),
		State:        ev.State,
		EventID:      ev.ID,
		ConnectionID: r.connectionKey,
		ProofID:      r.proofID,
		SessionID:    r.sessionID,
		Outcome:      r.outcome,
		ReceivedAt:   requestcontext.Now(ctx).UTC(),
		Payload:      ev.Fields,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "platform event publish failed",
			"request_id", requestcontext.RequestID(ctx),
			"type", ev.Type,
			"error", err,
		)
	}
}
