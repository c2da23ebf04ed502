package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"
	"github.com/skip2/go-qrcode"

	"credbridge/internal/connection/models"
	"credbridge/internal/platform/metrics"
	"credbridge/internal/platform/middleware"
	dErrors "credbridge/pkg/domain-errors"
	"credbridge/pkg/platform/httputil"
	"credbridge/pkg/requestcontext"
)

const qrSize = 256

// Service defines the session operations the HTTP surface needs.
type Service interface {
	StartSession(ctx context.Context, requestType string, clientMeta map[string]string) (*models.Session, error)
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
}

// ProofReader reports the newest proof request of a session for the pull
// endpoint. A nil status with a nil error means no proof was requested yet.
type ProofReader interface {
	LatestProofStatus(ctx context.Context, sessionID string) (*models.ProofStatus, error)
}

// Handler serves the session endpoints.
type Handler struct {
	service Service
	proofs  ProofReader
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a session Handler. proofs may be nil.
func New(service Service, proofs ProofReader, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		proofs:  proofs,
		logger:  logger,
		metrics: m,
	}
}

// Register registers the session routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ClientMetadata)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.With(middleware.ContentTypeJSON).Post("/sessions", h.HandleCreateSession)
		r.Get("/sessions/{sessionId}", h.HandleGetSession)
		r.Get("/sessions/{sessionId}/status", h.HandleSessionStatus)
		r.Get("/sessions/{sessionId}/qr", h.HandleSessionQR)
	})
}

// HandleCreateSession fetches an invitation from the platform and opens a
// session for it.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.service.StartSession(ctx, req.RequestType, clientMetadata(ctx, req.Metadata))
	if err != nil {
		h.logError(ctx, "failed to start session", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &models.CreateSessionResponse{
		SessionID:     session.SessionID,
		InvitationURL: session.InvitationURL,
		Status:        session.Status,
		ExpiresAt:     session.ExpiresAt,
	})
}

// clientMetadata merges caller metadata with what the request reveals about
// the browser. Request-derived keys overwrite caller keys.
func clientMetadata(ctx context.Context, supplied map[string]string) map[string]string {
	meta := make(map[string]string, len(supplied)+5)
	for k, v := range supplied {
		meta[k] = v
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		meta["client_ip"] = ip
	}
	raw := requestcontext.UserAgent(ctx)
	if raw == "" {
		return meta
	}
	meta["user_agent"] = raw
	ua := useragent.New(raw)
	if name, version := ua.Browser(); name != "" {
		meta["browser"] = strings.TrimSpace(name + " " + version)
	}
	if osName := ua.OS(); osName != "" {
		meta["os"] = osName
	}
	meta["mobile"] = strconv.FormatBool(ua.Mobile())
	return meta
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.service.GetSession(ctx, chi.URLParam(r, "sessionId"))
	if err != nil {
		h.logError(ctx, "failed to get session", middleware.GetRequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

// HandleSessionStatus is the pull endpoint polled by clients whose push
// channel is down.
func (h *Handler) HandleSessionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	sessionID := chi.URLParam(r, "sessionId")

	session, err := h.service.GetSession(ctx, sessionID)
	if err != nil {
		h.logError(ctx, "failed to get session status", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	resp := &models.StatusResponse{
		SessionID:    session.SessionID,
		Status:       session.Status,
		ConnectionID: session.ConnectionID,
		TheirLabel:   session.TheirLabel,
		ExpiresAt:    session.ExpiresAt,
		Timestamp:    requestcontext.Now(ctx).UTC(),
	}
	if h.proofs != nil {
		proof, err := h.proofs.LatestProofStatus(ctx, sessionID)
		if err != nil {
			h.logError(ctx, "failed to read proof status", requestID, err)
			httputil.WriteError(w, err)
			return
		}
		resp.Proof = proof
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleSessionQR renders the invitation URL as a PNG QR code.
func (h *Handler) HandleSessionQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	session, err := h.service.GetSession(ctx, chi.URLParam(r, "sessionId"))
	if err != nil {
		h.logError(ctx, "failed to get session for qr", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	if session.Status == models.StatusAbandoned {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "session invitation has expired"))
		return
	}

	png, err := qrcode.Encode(session.InvitationURL, qrcode.Medium, qrSize)
	if err != nil {
		h.logError(ctx, "failed to encode invitation qr", requestID, err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render qr code"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
}
