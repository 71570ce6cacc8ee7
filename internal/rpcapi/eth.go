package rpcapi

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/leodarkseid/elkstaking/internal/chain"
)

// EthAPI serves the eth namespace
type EthAPI struct {
	chain Chain
}

// ChainId returns the chain id
func (api *EthAPI) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(api.chain.ChainID())
}

// BlockNumber returns the latest block number
func (api *EthAPI) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	head, err := api.chain.Head(ctx)
	if err != nil {
		return 0, classify(nil, err)
	}
	return hexutil.Uint64(head.Number), nil
}

// Accounts returns the unlocked dev accounts
func (api *EthAPI) Accounts(ctx context.Context) ([]common.Address, error) {
	accounts, err := api.chain.Accounts(ctx)
	if err != nil {
		return nil, classify(nil, err)
	}
	out := make([]common.Address, len(accounts))
	for i, a := range accounts {
		out[i] = a.Address
	}
	return out, nil
}

// GetBlockByNumber returns a block, or null when it does not exist. Every
// tag other than earliest resolves to the latest block.
func (api *EthAPI) GetBlockByNumber(ctx context.Context, number rpc.BlockNumber, fullTx bool) (*RPCBlock, error) {
	var n uint64
	if number < 0 {
		head, err := api.chain.Head(ctx)
		if err != nil {
			return nil, classify(nil, err)
		}
		n = head.Number
	} else {
		n = uint64(number)
	}

	block, err := api.chain.BlockByNumber(ctx, n)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			return nil, nil
		}
		return nil, classify(nil, err)
	}
	return toRPCBlock(block), nil
}

// GetTransactionReceipt returns a receipt, or null when it does not exist
func (api *EthAPI) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*RPCReceipt, error) {
	receipt, err := api.chain.Receipt(ctx, hash)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			return nil, nil
		}
		return nil, classify(nil, err)
	}
	return toRPCReceipt(receipt), nil
}

// EvmAPI serves the hardhat-style evm namespace
type EvmAPI struct {
	chain Chain
}

// IncreaseTime moves the chain clock forward without mining and returns the
// total offset in seconds.
func (api *EvmAPI) IncreaseTime(ctx context.Context, seconds int64) (int64, error) {
	offset, err := api.chain.AdjustTime(ctx, seconds)
	if err != nil {
		return 0, classify(nil, err)
	}
	return offset, nil
}

// Mine mines an empty block
func (api *EvmAPI) Mine(ctx context.Context) (string, error) {
	if _, err := api.chain.Mine(ctx); err != nil {
		return "", classify(nil, err)
	}
	return "0x0", nil
}

// Web3API serves the web3 namespace
type Web3API struct {
	version string
}

// ClientVersion returns the node name and version
func (api *Web3API) ClientVersion() string {
	return "elkstaking-node/" + api.version
}
