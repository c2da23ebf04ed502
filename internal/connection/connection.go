package connection

import (
	"log/slog"

	"credbridge/internal/connection/handler"
	"credbridge/internal/connection/service"
	"credbridge/internal/platform/metrics"
)

// Service exposes the connection session lifecycle.
type Service = service.Service

// Handler wires HTTP endpoints to the session service.
type Handler = handler.Handler

// NewService constructs the session service over the given store.
func NewService(store service.Store, opts ...service.Option) *Service {
	return service.New(store, opts...)
}

// NewHandler constructs the session HTTP handler. proofs may be nil.
func NewHandler(s *Service, proofs handler.ProofReader, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return handler.New(s, proofs, logger, m)
}
