package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/validation"
	"github.com/leodarkseid/elkstaking/internal/vault/domain"
)

// Handler handles HTTP requests for vaults.
type Handler struct {
	svc domain.Service
}

// NewHandler creates a new vaults HTTP handler.
func NewHandler(svc domain.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers read-only vault routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/{address}", h.handleGet)
}

// RegisterWriteRoutes registers vault transactions (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.handleDeploy)
	r.Post("/{address}/recipient", h.handleSetRecipient)
	r.Post("/{address}/claim", h.handleClaim)
	r.Post("/{address}/claim-all", h.handleClaimAll)
	r.Post("/{address}/burn", h.handleBurn)
	r.Post("/{address}/update-time", h.handleUpdateTime)
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
	token, ok := parseAddress(w, "token", req.Token)
	if !ok {
		return
	}
	claimAmount, err := validation.ParseAmount(req.ClaimAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "claimAmount: "+err.Error())
		return
	}

	receipt, err := h.svc.Deploy(r.Context(), from, domain.DeployRequest{
		Token:         token,
		ClaimAmount:   claimAmount,
		PeriodSeconds: req.PeriodSeconds,
		BurnPolicy:    domain.BurnPolicy(req.BurnPolicy),
	})
	if err != nil {
		writeTxError(w, receipt, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleSetRecipient(w http.ResponseWriter, r *http.Request) {
	vault, ok := parseAddress(w, "address", chi.URLParam(r, "address"))
	if !ok {
		return
	}
	var req RecipientRequest
	if !decode(w, r, &req) {
		return
	}
	from, ok := parseAddress(w, "from", req.From)
	if !ok {
		return
	}
	recipient, ok := parseAddress(w, "recipient", req.Recipient)
	if !ok {
		return
	}

	receipt, err := h.svc.SetRecipient(r.Context(), from, vault, recipient)
	writeTxResult(w, receipt, err)
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	h.handleAmount(w, r, h.svc.Claim)
}

func (h *Handler) handleBurn(w http.ResponseWriter, r *http.Request) {
	h.handleAmount(w, r, h.svc.Burn)
}

func (h *Handler) handleClaimAll(w http.ResponseWriter, r *http.Request) {
	h.handleNoArgs(w, r, h.svc.ClaimAll)
}

func (h *Handler) handleUpdateTime(w http.ResponseWriter, r *http.Request) {
	h.handleNoArgs(w, r, h.svc.UpdateVaultTime)
}

type amountTx func(ctx context.Context, from, vault common.Address, amount *big.Int) (*chain.Receipt, error)

func (h *Handler) handleAmount(w http.ResponseWriter, r *http.Request, fn amountTx) {
	vault, ok := parseAddress(w, "address", chi.URLParam(r, "address"))
	if !ok {
		return
	}
	var req AmountRequest
	if !decode(w, r, &req) {
		return
	}
	from, ok := parseAddress(w, "from", req.From)
	if !ok {
		return
	}
	amount, err := validation.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "amount: "+err.Error())
		return
	}

	receipt, err := fn(r.Context(), from, vault, amount)
	writeTxResult(w, receipt, err)
}

type noArgsTx func(ctx context.Context, from, vault common.Address) (*chain.Receipt, error)

func (h *Handler) handleNoArgs(w http.ResponseWriter, r *http.Request, fn noArgsTx) {
	vault, ok := parseAddress(w, "address", chi.URLParam(r, "address"))
	if !ok {
		return
	}
	var req TxRequest
	if !decode(w, r, &req) {
		return
	}
	from, ok := parseAddress(w, "from", req.From)
	if !ok {
		return
	}

	receipt, err := fn(r.Context(), from, vault)
	writeTxResult(w, receipt, err)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	vault, ok := parseAddress(w, "address", chi.URLParam(r, "address"))
	if !ok {
		return
	}

	info, err := h.svc.Info(r.Context(), vault)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Vault not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get vault")
		return
	}
	writeJSON(w, http.StatusOK, toVaultResponse(info))
}

func writeTxResult(w http.ResponseWriter, receipt *chain.Receipt, err error) {
	if err != nil {
		writeTxError(w, receipt, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
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
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Vault not found")
	case errors.Is(err, domain.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Token not found")
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidPeriod),
		errors.Is(err, domain.ErrInvalidBurnPolicy):
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
