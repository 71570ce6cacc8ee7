// Package bodylimit caps request body sizes.
package bodylimit

import (
	"encoding/json"
	"net/http"
)

// Middleware limits request bodies to maxKB kilobytes. Requests that
// declare a larger Content-Length are rejected with 413 up front; bodies
// without a length fail when read past the limit.
func Middleware(maxKB int) func(http.Handler) http.Handler {
	maxBytes := int64(maxKB) * 1024

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{
						"code":    "PAYLOAD_TOO_LARGE",
						"message": "Request body too large",
					},
				})
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
