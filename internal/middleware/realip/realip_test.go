package realip

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	trusted := Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8", "192.168.0.0/16", "172.20.0.7"}}

	tests := []struct {
		name       string
		cfg        Config
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "proxy trust disabled",
			cfg:        Config{TrustedProxies: []string{"10.0.0.0/8"}},
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			want:       "10.0.0.1",
		},
		{
			name:       "trusted proxy",
			cfg:        trusted,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.5"},
			want:       "203.0.113.50",
		},
		{
			name:       "untrusted peer ignores headers",
			cfg:        trusted,
			remoteAddr: "203.0.113.9:1234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1"},
			want:       "203.0.113.9",
		},
		{
			name:       "x-real-ip fallback",
			cfg:        trusted,
			remoteAddr: "192.168.1.1:1234",
			headers:    map[string]string{"X-Real-IP": " 198.51.100.7 "},
			want:       "198.51.100.7",
		},
		{
			name:       "spoofed leftmost hop",
			cfg:        trusted,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4, 198.51.100.2, 10.1.1.1"},
			want:       "198.51.100.2",
		},
		{
			name:       "all hops trusted",
			cfg:        trusted,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.3, 172.20.0.7"},
			want:       "10.0.0.3",
		},
		{
			name:       "no forwarding headers",
			cfg:        trusted,
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
		},
		{
			name:       "ipv6 peer",
			cfg:        Config{},
			remoteAddr: "[2001:db8::1]:8545",
			want:       "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := Middleware(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetClientIP(r)
			}))

			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetClientIP_WithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", GetClientIP(req))
}

func TestResolver_Trusted(t *testing.T) {
	res := NewResolver(Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8", "::1", "garbage"}})

	assert.True(t, res.Trusted("10.20.30.40"))
	assert.True(t, res.Trusted("::ffff:10.0.0.1"))
	assert.True(t, res.Trusted("::1"))
	assert.False(t, res.Trusted("11.0.0.1"))
	assert.False(t, res.Trusted("not-an-ip"))
}
