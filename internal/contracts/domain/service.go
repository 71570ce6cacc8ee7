package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/observability/metrics"
	"github.com/leodarkseid/elkstaking/internal/storage"
)

// Common errors returned by the contracts service.
var (
	ErrNotFound      = errors.New("contract not found")
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Known contract kinds
var Kinds = []string{"token", "vault", KindMarketplace}

// Chain is the part of the chain engine the contracts service uses
type Chain interface {
	Deploy(ctx context.Context, from common.Address, kind string, params map[string]string, fn chain.TxFunc) (*chain.Receipt, error)
	View(ctx context.Context, fn func(storage.Tx) error) error
}

// Service defines the contracts service interface.
type Service interface {
	// Get retrieves a deployed contract by address.
	Get(ctx context.Context, address common.Address) (*Contract, error)

	// List lists deployed contracts newest first.
	List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error)

	// DeployMarketplace deploys a marketplace contract from from.
	DeployMarketplace(ctx context.Context, from common.Address) (*chain.Receipt, error)
}

// service implements the Service interface.
type service struct {
	chain Chain
}

// NewService creates a new contracts service.
func NewService(c Chain) Service {
	return &service{chain: c}
}

// Get retrieves a deployed contract by address.
func (s *service) Get(ctx context.Context, address common.Address) (*Contract, error) {
	var out *Contract
	err := s.chain.View(ctx, func(tx storage.Tx) error {
		c, err := tx.GetContract(ctx, address.Hex())
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("getting contract: %w", err)
		}
		out = toContract(c)
		return nil
	})
	return out, err
}

// List lists deployed contracts newest first.
func (s *service) List(ctx context.Context, filter ListFilter, pagination PaginationParams) (*ListResult, error) {
	sf := storage.ContractFilter{Kind: filter.Kind}
	if filter.Deployer != (common.Address{}) {
		sf.Deployer = filter.Deployer.Hex()
	}

	var out *ListResult
	err := s.chain.View(ctx, func(tx storage.Tx) error {
		result, err := tx.ListContracts(ctx, sf, storage.PaginationParams{
			Limit:  pagination.Limit,
			Cursor: pagination.Cursor,
		})
		if err != nil {
			if errors.Is(err, storage.ErrInvalidCursor) {
				return ErrInvalidCursor
			}
			return fmt.Errorf("listing contracts: %w", err)
		}
		contracts := make([]Contract, len(result.Data))
		for i := range result.Data {
			contracts[i] = *toContract(&result.Data[i])
		}
		out = &ListResult{
			Contracts:  contracts,
			HasMore:    result.HasMore,
			NextCursor: result.NextCursor,
		}
		return nil
	})
	return out, err
}

// DeployMarketplace deploys a marketplace contract from from.
func (s *service) DeployMarketplace(ctx context.Context, from common.Address) (*chain.Receipt, error) {
	r, err := s.chain.Deploy(ctx, from, KindMarketplace, nil, func(*chain.Context) error { return nil })
	metrics.ContractDeploy(KindMarketplace, chain.Outcome(err))
	return r, err
}

func toContract(c *storage.Contract) *Contract {
	params := make(map[string]string, len(c.Params))
	for k, v := range c.Params {
		// kind is stored with the deploy args but is already a field
		if k != "kind" {
			params[k] = v
		}
	}
	return &Contract{
		Address:     common.HexToAddress(c.Address),
		Kind:        c.Kind,
		Deployer:    common.HexToAddress(c.Deployer),
		TxHash:      common.HexToHash(c.TxHash),
		BlockNumber: uint64(c.BlockNumber),
		Params:      params,
		DeployedAt:  uint64(c.CreatedAt),
	}
}
