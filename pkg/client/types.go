package client

// Head is the latest block and the chain clock
type Head struct {
	ChainID    uint64 `json:"chainId"`
	Number     uint64 `json:"number"`
	Hash       string `json:"hash"`
	Timestamp  uint64 `json:"timestamp"`
	TimeOffset int64  `json:"timeOffset"`
}

// Block is a mined block
type Block struct {
	Number     uint64 `json:"number"`
	Hash       string `json:"hash"`
	ParentHash string `json:"parentHash"`
	Timestamp  uint64 `json:"timestamp"`
	TxHash     string `json:"transactionHash,omitempty"`
}

// Account is an unlocked dev account
type Account struct {
	Address string `json:"address"`
	Index   int    `json:"index"`
	Label   string `json:"label"`
	Nonce   uint64 `json:"nonce"`
}

// Log is a contract event
type Log struct {
	Address string            `json:"address"`
	Event   string            `json:"event"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Receipt is the outcome of a transaction
type Receipt struct {
	TxHash          string            `json:"transactionHash"`
	From            string            `json:"from"`
	To              string            `json:"to,omitempty"`
	Nonce           uint64            `json:"nonce"`
	Method          string            `json:"method"`
	Args            map[string]string `json:"args,omitempty"`
	Status          uint64            `json:"status"`
	RevertReason    string            `json:"revertReason,omitempty"`
	Error           string            `json:"error,omitempty"`
	BlockNumber     uint64            `json:"blockNumber"`
	BlockHash       string            `json:"blockHash"`
	Timestamp       uint64            `json:"timestamp"`
	ContractAddress string            `json:"contractAddress,omitempty"`
	Logs            []Log             `json:"logs"`
}

// Token is a deployed token
type Token struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
	Deployer    string `json:"deployer"`
	BlockNumber uint64 `json:"blockNumber"`
}

// Vault is an insurance vault with its derived values
type Vault struct {
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

// Contract is an entry of the deployment registry
type Contract struct {
	Address     string            `json:"address"`
	Kind        string            `json:"kind"`
	Deployer    string            `json:"deployer"`
	TxHash      string            `json:"txHash"`
	BlockNumber uint64            `json:"blockNumber"`
	DeployedAt  uint64            `json:"deployedAt"`
	Params      map[string]string `json:"params,omitempty"`
}

// Pagination contains pagination info
type Pagination struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// ListContractsResponse is a page of contracts
type ListContractsResponse struct {
	Data       []Contract `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ListReceiptsResponse is a page of receipts
type ListReceiptsResponse struct {
	Data       []Receipt  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ContractFilter narrows ListContracts
type ContractFilter struct {
	Kind     string
	Deployer string
	Limit    int
	Cursor   string
}

// ReceiptFilter narrows ListReceipts. Status is "0", "1" or empty.
type ReceiptFilter struct {
	From   string
	To     string
	Method string
	Status string
	Limit  int
	Cursor string
}

// VersionInfo is the node build and chain id
type VersionInfo struct {
	Version string `json:"version"`
	ChainID uint64 `json:"chainId"`
}

// DeployTokenRequest deploys a token. Empty fields take the node defaults.
type DeployTokenRequest struct {
	From          string `json:"from"`
	Name          string `json:"name,omitempty"`
	Symbol        string `json:"symbol,omitempty"`
	Decimals      *int   `json:"decimals,omitempty"`
	InitialSupply string `json:"initialSupply,omitempty"`
}

// DeployVaultRequest deploys an insurance vault
type DeployVaultRequest struct {
	From          string `json:"from"`
	Token         string `json:"token"`
	ClaimAmount   string `json:"claimAmount"`
	PeriodSeconds int64  `json:"periodSeconds,omitempty"`
	BurnPolicy    string `json:"burnPolicy,omitempty"`
}
