// Package metrics provides Prometheus instrumentation for elkstaking.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware returns HTTP middleware for request metrics.
func Middleware(next http.Handler) http.Handler {
	if !enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		// the chi wrapper keeps http.Hijacker so websocket upgrades still work
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			path := normalizePath(r.URL.Path)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(ww, r)
	})
}

// normalizePath converts dynamic path segments to placeholders to avoid
// high cardinality metrics. For example:
//
//	/api/v1/vaults/0x5FbDB2315678afecb367f032d93F642f64180aa3/claim -> /api/v1/vaults/{id}/claim
//	/api/v1/chain/blocks/42 -> /api/v1/chain/blocks/{id}
func normalizePath(path string) string {
	// Health check endpoints - keep as-is
	if path == "/health" || path == "/healthz" || path == "/readyz" {
		return path
	}
	// Metrics and JSON-RPC endpoints - keep as-is
	if path == "/metrics" || path == "/rpc" || path == "/ws" {
		return path
	}

	if !strings.HasPrefix(path, "/api/v1/") {
		return path
	}

	parts := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	normalized := []string{"/api/v1"}
	for _, part := range parts {
		if part == "" {
			continue
		}
		if isLikelyID(part) {
			normalized = append(normalized, "{id}")
		} else {
			normalized = append(normalized, part)
		}
	}
	return strings.Join(normalized, "/")
}

// isLikelyID returns true if segment looks like an identifier
func isLikelyID(segment string) bool {
	// Addresses and hashes
	if strings.HasPrefix(segment, "0x") && len(segment) >= 42 && isHex(segment[2:]) {
		return true
	}
	// UUIDs with dashes
	if strings.Count(segment, "-") >= 4 {
		return true
	}
	// Block numbers
	if isNumeric(segment) {
		return true
	}
	return false
}

// isHex returns true if string is hexadecimal (supports both upper and lowercase)
func isHex(s string) bool {
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return false
		}
	}
	return len(s) > 0
}

// isNumeric returns true if string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// RateLimited records a request rejected by the rate limiter.
func RateLimited() {
	if !enabled {
		return
	}
	httpRateLimitedTotal.Inc()
}
