// Package server provides the HTTP server setup and wiring.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leodarkseid/elkstaking/internal/auth"
	"github.com/leodarkseid/elkstaking/internal/chain"
	chainTransport "github.com/leodarkseid/elkstaking/internal/chain/transport"
	"github.com/leodarkseid/elkstaking/internal/config"
	contractsDomain "github.com/leodarkseid/elkstaking/internal/contracts/domain"
	contractsTransport "github.com/leodarkseid/elkstaking/internal/contracts/transport"
	"github.com/leodarkseid/elkstaking/internal/middleware/bodylimit"
	"github.com/leodarkseid/elkstaking/internal/middleware/logging"
	"github.com/leodarkseid/elkstaking/internal/middleware/ratelimit"
	"github.com/leodarkseid/elkstaking/internal/middleware/realip"
	"github.com/leodarkseid/elkstaking/internal/observability/metrics"
	"github.com/leodarkseid/elkstaking/internal/rpcapi"
	"github.com/leodarkseid/elkstaking/internal/storage"
	tokenDomain "github.com/leodarkseid/elkstaking/internal/token/domain"
	tokenTransport "github.com/leodarkseid/elkstaking/internal/token/transport"
	vaultDomain "github.com/leodarkseid/elkstaking/internal/vault/domain"
	vaultTransport "github.com/leodarkseid/elkstaking/internal/vault/transport"
)

// Server is the HTTP server
type Server struct {
	cfg     *config.Config
	store   storage.Store
	engine  *chain.Engine
	version string
	logger  *slog.Logger
	router  *chi.Mux
	rpc     *rpc.Server

	tokensSvc    tokenDomain.Service
	vaultsSvc    vaultDomain.Service
	contractsSvc contractsDomain.Service
}

// New creates a new server around an initialized chain engine
func New(cfg *config.Config, store storage.Store, engine *chain.Engine, version string, logger *slog.Logger) (*Server, error) {
	supply, ok := new(big.Int).SetString(cfg.Token.InitialSupply, 10)
	if !ok || supply.Sign() < 0 {
		return nil, fmt.Errorf("invalid TOKEN_INITIAL_SUPPLY %q", cfg.Token.InitialSupply)
	}

	s := &Server{
		cfg:     cfg,
		store:   store,
		engine:  engine,
		version: version,
		logger:  logger,
		router:  chi.NewRouter(),
	}

	tokens := tokenDomain.NewService(engine, tokenDomain.Defaults{
		Name:          cfg.Token.Name,
		Symbol:        cfg.Token.Symbol,
		Decimals:      cfg.Token.Decimals,
		InitialSupply: supply,
	})
	vaults := vaultDomain.NewService(engine, nil, vaultDomain.Defaults{
		PeriodSeconds: cfg.Vault.PeriodSeconds,
		BurnPolicy:    vaultDomain.BurnPolicy(cfg.Vault.BurnPolicy),
	})
	s.tokensSvc = tokenDomain.LoggingMiddleware(logger)(tokens)
	s.vaultsSvc = vaultDomain.LoggingMiddleware(logger)(vaults)
	s.contractsSvc = contractsDomain.NewService(engine)

	rpcSrv, err := rpcapi.NewServer(rpcapi.Config{
		Chain:   engine,
		Tokens:  s.tokensSvc,
		Vaults:  s.vaultsSvc,
		Version: version,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	s.rpc = rpcSrv

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the JSON-RPC server and closes its websocket connections
func (s *Server) Close() {
	s.rpc.Stop()
}

func (s *Server) setupMiddleware() {
	// 1. Real IP extraction, everything below keys on the client IP
	s.router.Use(realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	}))

	// 2. Body size limit
	s.router.Use(bodylimit.Middleware(s.cfg.Security.MaxBodySizeKB))

	// 3. Rate limiting (bypasses health checks and metrics)
	s.router.Use(ratelimit.Middleware(ratelimit.Config{
		Enabled:        s.cfg.RateLimit.Enabled,
		RequestsPerMin: s.cfg.RateLimit.RequestsPerMin,
		BurstSize:      s.cfg.RateLimit.BurstSize,
		CleanupMinutes: s.cfg.RateLimit.CleanupMinutes,
	}))

	// 4. Standard middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5, "application/json"))

	// 5. CORS
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

func (s *Server) setupRoutes() {
	// Health checks
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)

	if s.cfg.Metrics.Enabled {
		s.router.Handle("/metrics", metrics.Handler())
	}

	chainHandler := chainTransport.NewHandler(s.engine)
	contractsHandler := contractsTransport.NewHandler(s.contractsSvc)
	tokensHandler := tokenTransport.NewHandler(s.tokensSvc)
	vaultsHandler := vaultTransport.NewHandler(s.vaultsSvc)

	// Auth middleware for write operations
	requireAuth := func(r chi.Router) {
		if s.cfg.Auth.Type == "api-key" {
			r.Use(auth.Middleware(s.store, writeError))
		}
	}

	// JSON-RPC carries writes, so it sits behind auth as a whole
	s.router.Group(func(r chi.Router) {
		requireAuth(r)
		r.Post("/rpc", s.rpc.ServeHTTP)
		r.Handle("/ws", s.rpc.WebsocketHandler([]string{"*"}))
	})

	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", s.handleVersion)

		for _, group := range []struct {
			prefix  string
			handler interface {
				RegisterReadRoutes(chi.Router)
				RegisterWriteRoutes(chi.Router)
			}
		}{
			{"/chain", chainHandler},
			{"/contracts", contractsHandler},
			{"/tokens", tokensHandler},
			{"/vaults", vaultsHandler},
		} {
			r.Route(group.prefix, func(r chi.Router) {
				// Read operations - no auth required
				group.handler.RegisterReadRoutes(r)

				// Write operations - auth required
				r.Group(func(r chi.Router) {
					requireAuth(r)
					group.handler.RegisterWriteRoutes(r)
				})
			})
		}
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once storage answers and the chain has a head
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "Storage unavailable")
		return
	}
	head, err := s.engine.Head(ctx)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "Chain not initialized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "blockNumber": head.Number})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version": s.version,
		"chainId": s.engine.ChainID(),
	})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
