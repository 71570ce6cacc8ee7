package storage

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/leodarkseid/elkstaking/internal/config"
)

// Tx is the set of reads and writes available inside one storage transaction.
// Every chain state mutation happens through a Tx opened by Store.Update.
type Tx interface {
	ChainStore
	ContractStore
	TokenStore
	VaultStore
	ReceiptStore
}

// ChainStore handles blocks, accounts and chain metadata
type ChainStore interface {
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
	GetHead(ctx context.Context) (*Block, error)
	GetBlock(ctx context.Context, number int64) (*Block, error)
	InsertBlock(ctx context.Context, b *Block) error
	GetAccount(ctx context.Context, address string) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	PutAccount(ctx context.Context, a *Account) error
}

// ContractStore handles deployed contract records
type ContractStore interface {
	CreateContract(ctx context.Context, c *Contract) error
	GetContract(ctx context.Context, address string) (*Contract, error)
	ListContracts(ctx context.Context, filter ContractFilter, pagination PaginationParams) (*PaginatedResult[Contract], error)
}

// TokenStore handles token metadata and balances
type TokenStore interface {
	CreateToken(ctx context.Context, t *Token) error
	GetToken(ctx context.Context, address string) (*Token, error)
	GetBalance(ctx context.Context, token, holder string) (*big.Int, error)
	SetBalance(ctx context.Context, token, holder string, amount *big.Int) error
}

// VaultStore handles vault state
type VaultStore interface {
	GetVault(ctx context.Context, address string) (*Vault, error)
	PutVault(ctx context.Context, v *Vault) error
}

// ReceiptStore handles transaction receipts
type ReceiptStore interface {
	InsertReceipt(ctx context.Context, r *Receipt) error
	GetReceipt(ctx context.Context, hash string) (*Receipt, error)
	ListReceipts(ctx context.Context, filter ReceiptFilter, pagination PaginationParams) (*PaginatedResult[Receipt], error)
}

// APIKeyStore handles API key operations
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, name string) (key string, err error)
	ValidateAPIKey(ctx context.Context, key string) (*APIKey, error)
	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// Store combines transactional chain state access with API keys and lifecycle methods.
// Domain services define their own minimal interfaces based on their actual usage.
type Store interface {
	APIKeyStore

	// Update runs fn in a read-write transaction. fn returning an error rolls back.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
}

// Block is a mined block. Every transaction mines exactly one block.
type Block struct {
	Number     int64
	Hash       string
	ParentHash string
	Timestamp  int64
	TxHash     string // empty for blocks mined without a transaction
}

// Account is an unlocked dev account
type Account struct {
	Address string
	Index   int
	Label   string
	Nonce   int64
}

// Contract represents a deployed contract
type Contract struct {
	Address     string
	Kind        string
	Deployer    string
	TxHash      string
	BlockNumber int64
	Params      map[string]string
	CreatedAt   int64 // block timestamp
}

// Token holds ERC20 metadata
type Token struct {
	Address     string
	Name        string
	Symbol      string
	Decimals    int
	TotalSupply *big.Int
}

// Vault holds the persisted state of an insurance vault
type Vault struct {
	Address           string
	Token             string
	Owner             string
	Recipient         string // empty until set
	ClaimAmount       *big.Int
	PeriodSeconds     int64
	PeriodStart       int64
	InitialYear       int64
	VaultYear         int64
	BurnedTokens      *big.Int
	ClaimedThisPeriod *big.Int
	BurnedThisPeriod  *big.Int
	BurnPolicy        string
}

// Receipt records the outcome of a transaction
type Receipt struct {
	TxHash          string
	From            string
	To              string // empty for contract creation
	Nonce           int64
	Method          string
	Args            map[string]string
	Status          int // 1 success, 0 reverted
	RevertReason    string
	Error           string
	BlockNumber     int64
	BlockHash       string
	Timestamp       int64
	ContractAddress string
	Logs            []Log
}

// Log is an event emitted during a transaction
type Log struct {
	Address string            `json:"address"`
	Event   string            `json:"event"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// APIKey represents an API key
type APIKey struct {
	ID         string
	Name       string
	KeyHash    string
	CreatedAt  string
	LastUsedAt string
	RevokedAt  string
}

// ContractFilter contains filter options for listing contracts
type ContractFilter struct {
	Kind     string
	Deployer string
}

// ReceiptFilter contains filter options for listing receipts
type ReceiptFilter struct {
	From   string
	To     string
	Method string
	Status *int
}

// PaginationParams contains pagination options
type PaginationParams struct {
	Limit  int
	Cursor string
}

// Page size bounds
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (p PaginationParams) limit() int {
	switch {
	case p.Limit <= 0:
		return DefaultPageSize
	case p.Limit > MaxPageSize:
		return MaxPageSize
	default:
		return p.Limit
	}
}

// PaginatedResult contains paginated results
type PaginatedResult[T any] struct {
	Data       []T
	HasMore    bool
	NextCursor string
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
