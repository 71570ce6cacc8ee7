package transport

import "github.com/leodarkseid/elkstaking/internal/contracts/domain"

// DeployRequest is the HTTP request body for deploying a stateless contract.
type DeployRequest struct {
	From string `json:"from"`
}

// ContractListResponse is the response for listing contracts.
type ContractListResponse struct {
	Data       []ContractItem `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// ContractItem is a deployed contract.
type ContractItem struct {
	Address     string            `json:"address"`
	Kind        string            `json:"kind"`
	Deployer    string            `json:"deployer"`
	TxHash      string            `json:"txHash"`
	BlockNumber uint64            `json:"blockNumber"`
	DeployedAt  uint64            `json:"deployedAt"`
	Params      map[string]string `json:"params,omitempty"`
}

// Pagination provides pagination metadata.
type Pagination struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor"`
}

func toContractItem(c *domain.Contract) ContractItem {
	return ContractItem{
		Address:     c.Address.Hex(),
		Kind:        c.Kind,
		Deployer:    c.Deployer.Hex(),
		TxHash:      c.TxHash.Hex(),
		BlockNumber: c.BlockNumber,
		DeployedAt:  c.DeployedAt,
		Params:      c.Params,
	}
}
