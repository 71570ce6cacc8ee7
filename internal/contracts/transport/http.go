// Package transport provides HTTP handlers for the contracts registry.
package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/contracts/domain"
	"github.com/leodarkseid/elkstaking/internal/validation"
)

// Handler handles HTTP requests for contracts.
type Handler struct {
	svc domain.Service
}

// NewHandler creates a new contracts HTTP handler.
func NewHandler(svc domain.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only contract routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{address}", h.handleGet)
}

// RegisterWriteRoutes registers contract deployments (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/marketplace", h.handleDeployMarketplace)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	filter := domain.ListFilter{Kind: r.URL.Query().Get("kind")}
	if filter.Kind != "" && !slices.Contains(domain.Kinds, filter.Kind) {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Unknown contract kind")
		return
	}
	if d := r.URL.Query().Get("deployer"); d != "" {
		deployer, err := validation.ParseAddress(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", "deployer: "+err.Error())
			return
		}
		filter.Deployer = deployer
	}

	result, err := h.svc.List(r.Context(), filter, domain.PaginationParams{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCursor) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid cursor")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list contracts")
		return
	}

	data := make([]ContractItem, len(result.Contracts))
	for i, c := range result.Contracts {
		data[i] = toContractItem(&c)
	}

	writeJSON(w, http.StatusOK, ContractListResponse{
		Data: data,
		Pagination: Pagination{
			Limit:      limit,
			HasMore:    result.HasMore,
			NextCursor: result.NextCursor,
		},
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	address, err := validation.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	c, err := h.svc.Get(r.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Contract not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get contract")
		return
	}
	writeJSON(w, http.StatusOK, toContractItem(c))
}

func (h *Handler) handleDeployMarketplace(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return
	}
	var req DeployRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}
	from, err := validation.ParseAddress(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", "from: "+err.Error())
		return
	}

	receipt, err := h.svc.DeployMarketplace(r.Context(), from)
	if err != nil {
		if errors.Is(err, chain.ErrUnknownAccount) {
			writeError(w, http.StatusBadRequest, "UNKNOWN_ACCOUNT", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to deploy marketplace")
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
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
