package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HeaderAPIKey is the shared-secret header the credential platform sends on
// every webhook delivery.
const HeaderAPIKey = "X-API-Key"

// RequireAPIKey rejects requests whose X-API-Key does not match expected with
// 401 and stops the chain. An empty expected key rejects everything.
func RequireAPIKey(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ValidAPIKey(r.Header.Get(HeaderAPIKey), expected) {
				ctx := r.Context()
				logger.WarnContext(ctx, "api key mismatch",
					"request_id", GetRequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"invalid api key"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ValidAPIKey compares in constant time. expected may also be a bcrypt hash
// of the key so the plain secret never sits in configuration.
func ValidAPIKey(got, expected string) bool {
	if expected == "" || got == "" {
		return false
	}
	if isBcryptHash(expected) {
		return bcrypt.CompareHashAndPassword([]byte(expected), []byte(got)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
