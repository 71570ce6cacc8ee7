// Package transport provides HTTP handlers for the devnet chain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/storage"
	"github.com/leodarkseid/elkstaking/internal/validation"
)

// Service is the chain engine as seen by HTTP transport.
type Service interface {
	Head(ctx context.Context) (*chain.Head, error)
	Accounts(ctx context.Context) ([]chain.Account, error)
	BlockByNumber(ctx context.Context, number uint64) (*chain.Block, error)
	Receipt(ctx context.Context, hash common.Hash) (*chain.Receipt, error)
	Receipts(ctx context.Context, filter chain.ReceiptFilter, pagination storage.PaginationParams) (*chain.ReceiptList, error)
	IncreaseTime(ctx context.Context, seconds int64) (*chain.Head, error)
	Mine(ctx context.Context) (*chain.Block, error)
}

// IncreaseTimeRequest is the body of POST /chain/time/increase.
type IncreaseTimeRequest struct {
	Seconds int64 `json:"seconds"`
}

// Handler handles HTTP requests for the chain.
type Handler struct {
	svc Service
}

// NewHandler creates a new chain HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only chain routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.handleHead)
	r.Get("/accounts", h.handleAccounts)
	r.Get("/blocks/{number}", h.handleBlock)
	r.Get("/receipts", h.handleReceipts)
	r.Get("/receipts/{hash}", h.handleReceipt)
}

// RegisterWriteRoutes registers time control routes (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/time/increase", h.handleIncreaseTime)
	r.Post("/mine", h.handleMine)
}

func (h *Handler) handleHead(w http.ResponseWriter, r *http.Request) {
	head, err := h.svc.Head(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read head")
		return
	}
	writeJSON(w, http.StatusOK, head)
}

func (h *Handler) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.Accounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list accounts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": accounts})
}

func (h *Handler) handleBlock(w http.ResponseWriter, r *http.Request) {
	param := chi.URLParam(r, "number")
	var (
		block *chain.Block
		err   error
	)
	if param == "latest" {
		var head *chain.Head
		head, err = h.svc.Head(r.Context())
		if err == nil {
			block, err = h.svc.BlockByNumber(r.Context(), head.Number)
		}
	} else {
		number, perr := strconv.ParseUint(param, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Block number must be an integer or latest")
			return
		}
		block, err = h.svc.BlockByNumber(r.Context(), number)
	}
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Block not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get block")
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (h *Handler) handleReceipts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 20
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	filter := chain.ReceiptFilter{Method: q.Get("method")}
	for field, dst := range map[string]*common.Address{"from": &filter.From, "to": &filter.To} {
		if v := q.Get(field); v != "" {
			addr, err := validation.ParseAddress(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", field+": "+err.Error())
				return
			}
			*dst = addr
		}
	}
	if s := q.Get("status"); s != "" {
		status, err := strconv.ParseUint(s, 10, 64)
		if err != nil || status > 1 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "status must be 0 or 1")
			return
		}
		filter.Status = &status
	}

	list, err := h.svc.Receipts(r.Context(), filter, storage.PaginationParams{Limit: limit, Cursor: q.Get("cursor")})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCursor) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid cursor")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list receipts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": list.Receipts,
		"pagination": map[string]any{
			"limit":      limit,
			"hasMore":    list.HasMore,
			"nextCursor": list.NextCursor,
		},
	})
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "hash")
	if len(raw) != 66 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Transaction hash must be 32 bytes of hex")
		return
	}

	receipt, err := h.svc.Receipt(r.Context(), common.HexToHash(raw))
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Receipt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get receipt")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *Handler) handleIncreaseTime(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return
	}
	var req IncreaseTimeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	head, err := h.svc.IncreaseTime(r.Context(), req.Seconds)
	if err != nil {
		if errors.Is(err, chain.ErrInvalidTime) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to increase time")
		return
	}
	writeJSON(w, http.StatusOK, head)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	block, err := h.svc.Mine(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to mine block")
		return
	}
	writeJSON(w, http.StatusOK, block)
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
