package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credbridge/internal/platform/metrics"
	"credbridge/internal/platform/middleware"
	"credbridge/internal/proof/models"
	dErrors "credbridge/pkg/domain-errors"
	"credbridge/pkg/platform/httputil"
)

// Service defines the proof operations exposed over HTTP.
type Service interface {
	SubmitProofRequest(ctx context.Context, req models.SubmitProofRequest) (*models.ProofRequest, error)
	VerifyProofPresentation(ctx context.Context, proofID, orgID string) (*models.VerifiedResult, error)
	GetProof(ctx context.Context, proofID string) (*models.ProofRequest, error)
}

// Handler serves the proof endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(service Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{service: service, logger: logger, metrics: m}
}

// Register registers the proof routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		// Verification makes two sequential platform calls.
		r.Use(middleware.Timeout(45 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Post("/proofs", h.HandleSubmitProof)
		r.Post("/proofs/{proofId}/verify", h.HandleVerifyProof)
		r.Get("/proofs/{proofId}", h.HandleGetProof)
	})
}

func (h *Handler) HandleSubmitProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SubmitProofRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	proof, err := h.service.SubmitProofRequest(ctx, *req)
	if err != nil {
		h.logError(ctx, "failed to submit proof request", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &models.SubmitProofResponse{
		ProofID: proof.ProofID,
		Status:  proof.Status,
	})
}

func (h *Handler) HandleVerifyProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	proofID := chi.URLParam(r, "proofId")

	req, ok := httputil.DecodeAndPrepare[models.VerifyProofRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.VerifyProofPresentation(ctx, proofID, req.OrgID)
	if err != nil {
		h.logError(ctx, "failed to verify proof", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleGetProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	proof, err := h.service.GetProof(ctx, chi.URLParam(r, "proofId"))
	if err != nil {
		h.logError(ctx, "failed to get proof", middleware.GetRequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, proof)
}

func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeConfiguration:
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	default:
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
	}
}
