package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leodarkseid/elkstaking/internal/chain/chaintest"
	"github.com/leodarkseid/elkstaking/internal/storage"
)

func writeStatus(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
}

func TestMiddleware(t *testing.T) {
	store := chaintest.NewStore(t)
	ctx := context.Background()

	key, err := store.CreateAPIKey(ctx, "deployer")
	require.NoError(t, err)
	revoked, err := store.CreateAPIKey(ctx, "old")
	require.NoError(t, err)
	keys, err := store.ListAPIKeys(ctx)
	require.NoError(t, err)
	for _, k := range keys {
		if k.Name == "old" {
			require.NoError(t, store.RevokeAPIKey(ctx, k.ID))
		}
	}

	tests := []struct {
		name     string
		header   string
		value    string
		wantCode int
		wantName string
	}{
		{"x-api-key", "X-API-Key", key, http.StatusOK, "deployer"},
		{"bearer token", "Authorization", "Bearer " + key, http.StatusOK, "deployer"},
		{"missing key", "", "", http.StatusUnauthorized, ""},
		{"malformed key", "X-API-Key", "cf_key_abc", http.StatusUnauthorized, ""},
		{"unknown key", "X-API-Key", storage.APIKeyPrefix + "deadbeef", http.StatusUnauthorized, ""},
		{"revoked key", "X-API-Key", revoked, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotName string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotName = KeyNameFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("POST", "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			Middleware(store, writeStatus)(handler).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantName, gotName)
		})
	}
}

func TestOptionalMiddleware(t *testing.T) {
	store := chaintest.NewStore(t)
	key, err := store.CreateAPIKey(context.Background(), "reader")
	require.NoError(t, err)

	var got *storage.APIKey
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetAPIKeyFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	OptionalMiddleware(store)(handler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, got)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-API-Key", key)
	rec = httptest.NewRecorder()
	OptionalMiddleware(store)(handler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "reader", got.Name)
}
