// Package transport provides HTTP handlers for the vault domain.
package transport

import (
	"github.com/leodarkseid/elkstaking/internal/vault/domain"
)

// DeployRequest is the HTTP request body for deploying a vault.
type DeployRequest struct {
	From          string `json:"from"`
	Token         string `json:"token"`
	ClaimAmount   string `json:"claimAmount"`
	PeriodSeconds int64  `json:"periodSeconds,omitempty"`
	BurnPolicy    string `json:"burnPolicy,omitempty"`
}

// TxRequest is the body of vault transactions without arguments.
type TxRequest struct {
	From string `json:"from"`
}

// AmountRequest is the body of claim and burn.
type AmountRequest struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

// RecipientRequest is the body of setRecipient.
type RecipientRequest struct {
	From      string `json:"from"`
	Recipient string `json:"recipient"`
}

// VaultResponse is the response for getting a vault.
type VaultResponse struct {
	Address             string `json:"address"`
	Token               string `json:"token"`
	Owner               string `json:"owner"`
	Recipient           string `json:"recipient,omitempty"`
	ClaimAmount         string `json:"claimAmount"`
	AvailableAmount     string `json:"availableAmount"`
	ClaimedThisPeriod   string `json:"claimedThisPeriod"`
	BurnedThisPeriod    string `json:"burnedThisPeriod"`
	BurnedTokens        string `json:"burnedTokens"`
	Balance             string `json:"balance"`
	WithdrawableBalance string `json:"withdrawableBalance"`
	VaultYear           int64  `json:"vaultYear"`
	InitialYear         int64  `json:"initialYear"`
	PeriodSeconds       int64  `json:"periodSeconds"`
	PeriodStart         int64  `json:"periodStart"`
	NextPeriodAt        int64  `json:"nextPeriodAt"`
	BurnPolicy          string `json:"burnPolicy"`
	Status              string `json:"status"`
}

func toVaultResponse(info *domain.Info) VaultResponse {
	resp := VaultResponse{
		Address:             info.Address.Hex(),
		Token:               info.Token.Hex(),
		Owner:               info.Owner.Hex(),
		ClaimAmount:         info.ClaimAmount.String(),
		AvailableAmount:     info.AvailableAmount.String(),
		ClaimedThisPeriod:   info.ClaimedThisPeriod.String(),
		BurnedThisPeriod:    info.BurnedThisPeriod.String(),
		BurnedTokens:        info.BurnedTokens.String(),
		Balance:             info.Balance.String(),
		WithdrawableBalance: info.WithdrawableBalance.String(),
		VaultYear:           info.VaultYear,
		InitialYear:         info.InitialYear,
		PeriodSeconds:       info.PeriodSeconds,
		PeriodStart:         info.PeriodStart,
		NextPeriodAt:        info.NextPeriodAt,
		BurnPolicy:          string(info.BurnPolicy),
		Status:              string(info.Status),
	}
	if info.Recipient != nil {
		resp.Recipient = info.Recipient.Hex()
	}
	return resp
}
