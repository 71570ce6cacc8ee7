// Package transport provides HTTP request/response types for the token domain.
package transport

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/leodarkseid/elkstaking/internal/token/domain"
)

// DeployRequest is the HTTP request body for deploying a token.
type DeployRequest struct {
	From          string `json:"from"`
	Name          string `json:"name,omitempty"`
	Symbol        string `json:"symbol,omitempty"`
	Decimals      *int   `json:"decimals,omitempty"`
	InitialSupply string `json:"initialSupply,omitempty"`
}

// TransferRequest is the HTTP request body for a transfer.
type TransferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// TokenResponse is the response for getting a token.
type TokenResponse struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
	Deployer    string `json:"deployer"`
	BlockNumber uint64 `json:"blockNumber"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Token   string `json:"token"`
	Holder  string `json:"holder"`
	Balance string `json:"balance"`
}

func toTokenResponse(t *domain.Token) TokenResponse {
	return TokenResponse{
		Address:     t.Address.Hex(),
		Name:        t.Name,
		Symbol:      t.Symbol,
		Decimals:    t.Decimals,
		TotalSupply: t.TotalSupply.String(),
		Deployer:    t.Deployer.Hex(),
		BlockNumber: t.BlockNumber,
	}
}

func toBalanceResponse(token, holder common.Address, balance *big.Int) BalanceResponse {
	return BalanceResponse{
		Token:   token.Hex(),
		Holder:  holder.Hex(),
		Balance: balance.String(),
	}
}
