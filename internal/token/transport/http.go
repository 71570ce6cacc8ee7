package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/token/domain"
	"github.com/leodarkseid/elkstaking/internal/validation"
)

// Handler handles HTTP requests for tokens.
type Handler struct {
	svc domain.Service
}

// NewHandler creates a new tokens HTTP handler.
func NewHandler(svc domain.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only token routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/{address}", h.handleGet)
	r.Get("/{address}/balances/{holder}", h.handleBalance)
}

// RegisterWriteRoutes registers token transactions (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.handleDeploy)
	r.Post("/{address}/transfer", h.handleTransfer)
}

func (h *Handler) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if !decode(w, r, &req) {
		return
	}
	from, ok := parseAddress(w, "from", req.From)
	if !ok {
		return
	}

	dr := domain.DeployRequest{Name: req.Name, Symbol: req.Symbol, Decimals: req.Decimals}
	if req.InitialSupply != "" {
		supply, err := validation.ParseAmount(req.InitialSupply)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "initialSupply: "+err.Error())
			return
		}
		dr.InitialSupply = supply
	}

	receipt, err := h.svc.Deploy(r.Context(), from, dr)
	if err != nil {
		writeTxError(w, receipt, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	token, ok := parseAddress(w, "address", chi.URLParam(r, "address"))
	if !ok {
		return
	}
	var req TransferRequest
	if !decode(w, r, &req) {
		return
	}
	from, ok := parseAddress(w, "from", req.From)
	if !ok {
		return
	}
	to, ok := parseAddress(w, "to", req.To)
	if !ok {
		return
	}
	amount, err := validation.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "amount: "+err.Error())
		return
	}

	receipt, err := h.svc.Transfer(r.Context(), from, token, to, amount)
	if err != nil {
		writeTxError(w, receipt, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	token, ok := parseAddress(w, "address", chi.URLParam(r, "address"))
	if !ok {
		return
	}

	t, err := h.svc.Metadata(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Token not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get token")
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(t))
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	token, ok := parseAddress(w, "address", chi.URLParam(r, "address"))
	if !ok {
		return
	}
	holder, ok := parseAddress(w, "holder", chi.URLParam(r, "holder"))
	if !ok {
		return
	}

	balance, err := h.svc.BalanceOf(r.Context(), token, holder)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Token not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponse(token, holder, balance))
}

// writeTxError renders a failed transaction. Reverts carry their receipt.
func writeTxError(w http.ResponseWriter, receipt *chain.Receipt, err error) {
	if re, ok := chain.IsRevert(err); ok {
		writeRevert(w, receipt, re)
		return
	}
	switch {
	case errors.Is(err, chain.ErrUnknownAccount):
		writeError(w, http.StatusBadRequest, "UNKNOWN_ACCOUNT", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Token not found")
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidMetadata):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Transaction failed")
	}
}

// Helper functions

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return false
	}
	return true
}

func parseAddress(w http.ResponseWriter, field, value string) (common.Address, bool) {
	addr, err := validation.ParseAddress(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", field+": "+err.Error())
		return common.Address{}, false
	}
	return addr, true
}

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

func writeRevert(w http.ResponseWriter, receipt *chain.Receipt, re *chain.RevertError) {
	detail := map[string]any{
		"code":    "EXECUTION_REVERTED",
		"message": re.Error(),
		"reason":  re.Reason,
	}
	if receipt != nil {
		detail["transactionHash"] = receipt.TxHash.Hex()
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": detail})
}
