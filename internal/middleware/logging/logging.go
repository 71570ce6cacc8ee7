// Package logging provides structured HTTP request logging middleware.
package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/leodarkseid/elkstaking/internal/middleware/realip"
)

// Options tune the request logger
type Options struct {
	// Quiet paths are logged at debug level
	Quiet []string
}

// DefaultQuiet are probe and scrape endpoints polled by infrastructure
var DefaultQuiet = []string{"/health", "/healthz", "/readyz", "/metrics"}

// Middleware logs one line per request. Server errors log at error level,
// client errors at warn and everything else at info.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return MiddlewareWithOptions(logger, Options{Quiet: DefaultQuiet})
}

// MiddlewareWithOptions is Middleware with explicit options
func MiddlewareWithOptions(logger *slog.Logger, opts Options) func(http.Handler) http.Handler {
	quiet := make(map[string]bool, len(opts.Quiet))
	for _, p := range opts.Quiet {
		quiet[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				logger.LogAttrs(r.Context(), level(status, quiet[r.URL.Path]), "request",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.String("duration", time.Since(start).String()),
					slog.String("client_ip", realip.GetClientIP(r)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func level(status int, quiet bool) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case quiet:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

