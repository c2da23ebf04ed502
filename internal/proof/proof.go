package proof

import (
	"log/slog"

	"credbridge/internal/platform/metrics"
	"credbridge/internal/proof/handler"
	"credbridge/internal/proof/service"
)

// Service exposes the presentation request lifecycle.
type Service = service.Service

// Handler wires HTTP endpoints to the proof service.
type Handler = handler.Handler

// NewService constructs the proof service.
func NewService(store service.Store, platform service.Platform, opts ...service.Option) *Service {
	return service.New(store, platform, opts...)
}

// NewHandler constructs the proof HTTP handler.
func NewHandler(s *Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return handler.New(s, logger, m)
}
