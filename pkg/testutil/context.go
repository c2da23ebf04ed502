package testutil

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credbridge/pkg/requestcontext"
)

// WithURLParams attaches chi route parameters so handlers can be invoked
// directly without going through a router.
func WithURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// WithRequestID sets the request id the way the RequestID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
