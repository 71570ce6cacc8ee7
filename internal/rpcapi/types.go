package rpcapi

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/leodarkseid/elkstaking/internal/chain"
)

// RPCBlock is a block in eth_getBlockByNumber form
type RPCBlock struct {
	Number       hexutil.Uint64 `json:"number"`
	Hash         common.Hash    `json:"hash"`
	ParentHash   common.Hash    `json:"parentHash"`
	Timestamp    hexutil.Uint64 `json:"timestamp"`
	Transactions []common.Hash  `json:"transactions"`
}

// RPCLog is an event in a receipt
type RPCLog struct {
	Address common.Address    `json:"address"`
	Event   string            `json:"event"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// RPCReceipt is a receipt in eth_getTransactionReceipt form
type RPCReceipt struct {
	TransactionHash common.Hash       `json:"transactionHash"`
	From            common.Address    `json:"from"`
	To              *common.Address   `json:"to"`
	Nonce           hexutil.Uint64    `json:"nonce"`
	Method          string            `json:"method"`
	Args            map[string]string `json:"args,omitempty"`
	Status          hexutil.Uint64    `json:"status"`
	RevertReason    string            `json:"revertReason,omitempty"`
	BlockNumber     hexutil.Uint64    `json:"blockNumber"`
	BlockHash       common.Hash       `json:"blockHash"`
	ContractAddress *common.Address   `json:"contractAddress"`
	Logs            []RPCLog          `json:"logs"`
}

// TokenDeployArgs are the arguments of token_deploy
type TokenDeployArgs struct {
	Name          string       `json:"name"`
	Symbol        string       `json:"symbol"`
	Decimals      *int         `json:"decimals"`
	InitialSupply *hexutil.Big `json:"initialSupply"`
}

// TokenMetadata is the result of token_metadata
type TokenMetadata struct {
	Address     common.Address `json:"address"`
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Decimals    int            `json:"decimals"`
	TotalSupply *hexutil.Big   `json:"totalSupply"`
}

// VaultDeployArgs are the arguments of vault_deploy
type VaultDeployArgs struct {
	Token         common.Address  `json:"token"`
	ClaimAmount   *hexutil.Big    `json:"claimAmount"`
	PeriodSeconds *hexutil.Uint64 `json:"periodSeconds"`
	BurnPolicy    string          `json:"burnPolicy"`
}

func toRPCBlock(b *chain.Block) *RPCBlock {
	out := &RPCBlock{
		Number:       hexutil.Uint64(b.Number),
		Hash:         b.Hash,
		ParentHash:   b.ParentHash,
		Timestamp:    hexutil.Uint64(b.Timestamp),
		Transactions: []common.Hash{},
	}
	if b.TxHash != nil {
		out.Transactions = append(out.Transactions, *b.TxHash)
	}
	return out
}

func toRPCReceipt(r *chain.Receipt) *RPCReceipt {
	out := &RPCReceipt{
		TransactionHash: r.TxHash,
		From:            r.From,
		To:              r.To,
		Nonce:           hexutil.Uint64(r.Nonce),
		Method:          r.Method,
		Args:            r.Args,
		Status:          hexutil.Uint64(r.Status),
		RevertReason:    r.RevertReason,
		BlockNumber:     hexutil.Uint64(r.BlockNumber),
		BlockHash:       r.BlockHash,
		ContractAddress: r.ContractAddress,
		Logs:            make([]RPCLog, len(r.Logs)),
	}
	for i, l := range r.Logs {
		out.Logs[i] = RPCLog{Address: l.Address, Event: l.Event, Fields: l.Fields}
	}
	return out
}
