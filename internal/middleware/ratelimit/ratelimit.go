// Package ratelimit limits requests per client IP with token buckets.
package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/leodarkseid/elkstaking/internal/middleware/realip"
	"github.com/leodarkseid/elkstaking/internal/observability/metrics"
)

// Config holds the configuration for rate limiting
type Config struct {
	Enabled        bool
	RequestsPerMin int
	BurstSize      int
	// CleanupMinutes is how long an idle client keeps its bucket
	CleanupMinutes int
	// Exempt paths are never limited
	Exempt []string
}

// DefaultExempt are the probe and scrape endpoints
var DefaultExempt = []string{"/health", "/healthz", "/readyz", "/metrics"}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages per-IP token buckets
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	exempt  map[string]bool
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// New creates a RateLimiter and starts its janitor goroutine.
func New(cfg Config) *RateLimiter {
	idle := time.Duration(cfg.CleanupMinutes) * time.Minute
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	burst := cfg.BurstSize
	if burst < 1 {
		burst = 1
	}
	exempt := cfg.Exempt
	if exempt == nil {
		exempt = DefaultExempt
	}

	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(cfg.RequestsPerMin) / 60.0),
		burst:   burst,
		idle:    idle,
		exempt:  make(map[string]bool, len(exempt)),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, p := range exempt {
		rl.exempt[p] = true
	}
	go rl.janitor()
	return rl
}

// Stop ends the janitor goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stop:
			return
		}
	}
}

// evictIdle drops buckets of clients not seen within the idle window
func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	for ip, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// wait returns zero when ip may proceed, or how long it must back off.
func (rl *RateLimiter) wait(ip string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[ip] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return time.Minute
	}
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
	}
	return delay
}

// Middleware rejects clients that exceed their budget with 429.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if delay := rl.wait(realip.GetClientIP(r)); delay > 0 {
				metrics.RateLimited()
				retry := int(math.Ceil(delay.Seconds()))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{
						"code":    "RATE_LIMIT_EXCEEDED",
						"message": "Too many requests. Please try again later.",
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Middleware returns a rate limiting middleware, or a pass-through when
// disabled. The limiter lives for the rest of the process.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return New(cfg).Middleware()
}
