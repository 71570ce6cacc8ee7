// Package realip resolves the client address of requests that arrive
// through trusted reverse proxies.
package realip

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type contextKey string

// ClientIPKey is the context key for the resolved client IP
const ClientIPKey contextKey = "client_ip"

// Config holds the configuration for the real IP middleware
type Config struct {
	// TrustProxy enables X-Forwarded-For and X-Real-IP parsing
	TrustProxy bool
	// TrustedProxies are CIDR ranges or single addresses
	TrustedProxies []string
}

// Resolver decides which hop of a forwarded chain is the client
type Resolver struct {
	trust    bool
	prefixes []netip.Prefix
}

// NewResolver parses the trusted proxy list. Entries that are neither a
// prefix nor an address are ignored.
func NewResolver(cfg Config) *Resolver {
	res := &Resolver{trust: cfg.TrustProxy}
	if !cfg.TrustProxy {
		return res
	}
	for _, entry := range cfg.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if p, err := netip.ParsePrefix(entry); err == nil {
			res.prefixes = append(res.prefixes, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			res.prefixes = append(res.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return res
}

// Trusted reports whether ip is a trusted proxy
func (res *Resolver) Trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range res.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the client address of r. Forwarding headers are only
// honoured when the direct peer is trusted. X-Forwarded-For is walked right
// to left and the first untrusted hop wins.
func (res *Resolver) ClientIP(r *http.Request) string {
	peer := peerIP(r.RemoteAddr)
	if !res.trust || !res.Trusted(peer) {
		return peer
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
		return peer
	}

	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop != "" && !res.Trusted(hop) {
			return hop
		}
	}
	// every hop is a proxy; the leftmost one is the origin
	if first := strings.TrimSpace(hops[0]); first != "" {
		return first
	}
	return peer
}

// Middleware stores the resolved client IP in the request context.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	res := NewResolver(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ClientIPKey, res.ClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP returns the IP stored by Middleware, or the peer address when
// the middleware did not run.
func GetClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ClientIPKey).(string); ok && ip != "" {
		return ip
	}
	return peerIP(r.RemoteAddr)
}

func peerIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
