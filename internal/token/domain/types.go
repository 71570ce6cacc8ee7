// Package domain contains the business logic of the ERC20-like token ledger.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Kind is the contract kind of tokens
const Kind = "token"

// Events emitted by tokens
const (
	EventTransfer = "Transfer"
)

// Token is a deployed token
type Token struct {
	Address     common.Address
	Name        string
	Symbol      string
	Decimals    int
	TotalSupply *big.Int
	Deployer    common.Address
	BlockNumber uint64
}

// DeployRequest configures a new token. Zero fields take the service defaults.
type DeployRequest struct {
	Name          string
	Symbol        string
	Decimals      *int
	InitialSupply *big.Int
}

// Defaults are applied to deploy requests that leave fields unset
type Defaults struct {
	Name          string
	Symbol        string
	Decimals      int
	InitialSupply *big.Int
}
