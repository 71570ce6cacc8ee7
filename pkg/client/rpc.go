package client

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// RPC is a JSON-RPC client for the node's hardhat-style helpers
type RPC struct {
	c *rpc.Client
}

// DialRPC connects to a JSON-RPC endpoint over HTTP or websocket
func DialRPC(ctx context.Context, endpoint, apiKey string) (*RPC, error) {
	var opts []rpc.ClientOption
	if apiKey != "" {
		opts = append(opts, rpc.WithHeader("X-API-Key", apiKey))
	}
	c, err := rpc.DialOptions(ctx, endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &RPC{c: c}, nil
}

// Close closes the connection
func (r *RPC) Close() {
	r.c.Close()
}

// ChainID returns the chain id
func (r *RPC) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := r.c.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// BlockNumber returns the latest block number
func (r *RPC) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := r.c.CallContext(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// IncreaseTime moves the clock forward without mining and returns the total
// offset in seconds.
func (r *RPC) IncreaseTime(ctx context.Context, seconds int64) (int64, error) {
	var offset int64
	if err := r.c.CallContext(ctx, &offset, "evm_increaseTime", seconds); err != nil {
		return 0, err
	}
	return offset, nil
}

// Mine mines an empty block
func (r *RPC) Mine(ctx context.Context) error {
	return r.c.CallContext(ctx, nil, "evm_mine")
}

// ClientVersion returns the node's version string
func (r *RPC) ClientVersion(ctx context.Context) (string, error) {
	var v string
	err := r.c.CallContext(ctx, &v, "web3_clientVersion")
	return v, err
}
