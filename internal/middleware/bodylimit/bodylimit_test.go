package bodylimit

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo mirrors the handlers: a body read failure is a 400
func echo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write(body)
	})
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		chunked  bool
		wantCode int
	}{
		{"small body", 10, false, http.StatusOK},
		{"exact limit", 1024, false, http.StatusOK},
		{"declared too large", 1025, false, http.StatusRequestEntityTooLarge},
		{"streamed too large", 4096, true, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/tokens", strings.NewReader(strings.Repeat("x", tt.size)))
			if tt.chunked {
				req.ContentLength = -1
			}
			rr := httptest.NewRecorder()
			Middleware(1)(echo()).ServeHTTP(rr, req)
			assert.Equal(t, tt.wantCode, rr.Code)
		})
	}
}

func TestMiddleware_Envelope(t *testing.T) {
	req := httptest.NewRequest("POST", "/rpc", strings.NewReader(strings.Repeat("x", 2048)))
	rr := httptest.NewRecorder()
	Middleware(1)(echo()).ServeHTTP(rr, req)

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "PAYLOAD_TOO_LARGE", body["error"]["code"])
}

func TestMiddleware_NoBody(t *testing.T) {
	rr := httptest.NewRecorder()
	Middleware(1)(echo()).ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/chain", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
