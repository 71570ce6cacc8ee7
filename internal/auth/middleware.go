// Package auth guards write routes with API keys.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/leodarkseid/elkstaking/internal/storage"
)

type contextKey string

const apiKeyContextKey contextKey = "apiKey"

// ErrorWriter renders an error envelope
type ErrorWriter func(w http.ResponseWriter, status int, code, message string)

// GetAPIKeyFromContext retrieves the API key info from context.
func GetAPIKeyFromContext(ctx context.Context) *storage.APIKey {
	if key, ok := ctx.Value(apiKeyContextKey).(*storage.APIKey); ok {
		return key
	}
	return nil
}

// KeyNameFromContext returns the name of the authenticating key, or "" for
// anonymous requests.
func KeyNameFromContext(ctx context.Context) string {
	if key := GetAPIKeyFromContext(ctx); key != nil {
		return key.Name
	}
	return ""
}

// extractKey reads the key from X-API-Key or a bearer token
func extractKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Middleware rejects requests without a valid, unrevoked API key.
func Middleware(store storage.APIKeyStore, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := extractKey(r)
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key required")
				return
			}
			if !strings.HasPrefix(apiKey, storage.APIKeyPrefix) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Malformed API key")
				return
			}

			key, err := store.ValidateAPIKey(r.Context(), apiKey)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalMiddleware attaches key info when a valid key is presented and
// lets every request through.
func OptionalMiddleware(store storage.APIKeyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey := extractKey(r); apiKey != "" {
				if key, err := store.ValidateAPIKey(r.Context(), apiKey); err == nil && key != nil {
					r = r.WithContext(context.WithValue(r.Context(), apiKeyContextKey, key))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
