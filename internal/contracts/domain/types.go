// Package domain contains the registry of contracts deployed on the devnet.
package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// KindMarketplace is the contract kind of marketplaces. They carry no state.
const KindMarketplace = "marketplace"

// Contract represents a deployed contract.
type Contract struct {
	Address     common.Address
	Kind        string
	Deployer    common.Address
	TxHash      common.Hash
	BlockNumber uint64
	Params      map[string]string
	DeployedAt  uint64 // block timestamp
}

// ListFilter contains filter options for listing contracts.
type ListFilter struct {
	Kind     string
	Deployer common.Address
}

// PaginationParams contains pagination options.
type PaginationParams struct {
	Limit  int
	Cursor string
}

// ListResult contains paginated list results.
type ListResult struct {
	Contracts  []Contract
	HasMore    bool
	NextCursor string
}
