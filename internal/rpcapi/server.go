// Package rpcapi serves the devnet over Ethereum-style JSON-RPC.
package rpcapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/leodarkseid/elkstaking/internal/chain"
	tokendomain "github.com/leodarkseid/elkstaking/internal/token/domain"
	vaultdomain "github.com/leodarkseid/elkstaking/internal/vault/domain"
)

// Chain is the chain engine as seen by the JSON-RPC API
type Chain interface {
	ChainID() uint64
	Head(ctx context.Context) (*chain.Head, error)
	Accounts(ctx context.Context) ([]chain.Account, error)
	BlockByNumber(ctx context.Context, number uint64) (*chain.Block, error)
	Receipt(ctx context.Context, hash common.Hash) (*chain.Receipt, error)
	AdjustTime(ctx context.Context, seconds int64) (int64, error)
	Mine(ctx context.Context) (*chain.Block, error)
}

// Config holds the services behind the API
type Config struct {
	Chain   Chain
	Tokens  tokendomain.Service
	Vaults  vaultdomain.Service
	Version string
	Logger  *slog.Logger
}

// NewServer returns a JSON-RPC server with the eth, evm, web3, token and
// vault namespaces registered.
func NewServer(cfg Config) (*rpc.Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	srv := rpc.NewServer()
	apis := []struct {
		namespace string
		receiver  any
	}{
		{"eth", &EthAPI{chain: cfg.Chain}},
		{"evm", &EvmAPI{chain: cfg.Chain}},
		{"web3", &Web3API{version: cfg.Version}},
		{"token", &TokenAPI{tokens: cfg.Tokens}},
		{"vault", &VaultAPI{vaults: cfg.Vaults}},
	}
	for _, api := range apis {
		if err := srv.RegisterName(api.namespace, api.receiver); err != nil {
			srv.Stop()
			return nil, fmt.Errorf("failed to register %s namespace: %w", api.namespace, err)
		}
		cfg.Logger.Debug("registered rpc namespace", "namespace", api.namespace)
	}
	return srv, nil
}
