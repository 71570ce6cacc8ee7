package chain

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/leodarkseid/elkstaking/internal/storage"
)

// Receipt statuses, matching Ethereum receipts
const (
	StatusFailed     = types.ReceiptStatusFailed
	StatusSuccessful = types.ReceiptStatusSuccessful
)

// Head describes the latest block and the chain clock
type Head struct {
	ChainID    uint64      `json:"chainId"`
	Number     uint64      `json:"number"`
	Hash       common.Hash `json:"hash"`
	Timestamp  uint64      `json:"timestamp"`
	TimeOffset int64       `json:"timeOffset"`
}

// Block is a mined block
type Block struct {
	Number     uint64       `json:"number"`
	Hash       common.Hash  `json:"hash"`
	ParentHash common.Hash  `json:"parentHash"`
	Timestamp  uint64       `json:"timestamp"`
	TxHash     *common.Hash `json:"transactionHash,omitempty"`
}

// Account is an unlocked dev account
type Account struct {
	Address common.Address `json:"address"`
	Index   int            `json:"index"`
	Label   string         `json:"label"`
	Nonce   uint64         `json:"nonce"`
}

// Log is an event emitted by a contract
type Log struct {
	Address common.Address    `json:"address"`
	Event   string            `json:"event"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Receipt is the outcome of a transaction
type Receipt struct {
	TxHash          common.Hash       `json:"transactionHash"`
	From            common.Address    `json:"from"`
	To              *common.Address   `json:"to,omitempty"`
	Nonce           uint64            `json:"nonce"`
	Method          string            `json:"method"`
	Args            map[string]string `json:"args,omitempty"`
	Status          uint64            `json:"status"`
	RevertReason    string            `json:"revertReason,omitempty"`
	Error           string            `json:"error,omitempty"`
	BlockNumber     uint64            `json:"blockNumber"`
	BlockHash       common.Hash       `json:"blockHash"`
	Timestamp       uint64            `json:"timestamp"`
	ContractAddress *common.Address   `json:"contractAddress,omitempty"`
	Logs            []Log             `json:"logs"`
}

// Succeeded reports whether the transaction committed
func (r *Receipt) Succeeded() bool {
	return r.Status == StatusSuccessful
}

// Call describes a transaction against an existing contract
type Call struct {
	From   common.Address
	To     common.Address
	Method string
	Args   map[string]string
}

// ReceiptFilter narrows receipt listings. Zero values match everything.
type ReceiptFilter struct {
	From   common.Address
	To     common.Address
	Method string
	Status *uint64
}

// ReceiptList is a page of receipts
type ReceiptList struct {
	Receipts   []Receipt `json:"receipts"`
	HasMore    bool      `json:"hasMore"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

func blockFromStorage(b *storage.Block) *Block {
	out := &Block{
		Number:     uint64(b.Number),
		Hash:       common.HexToHash(b.Hash),
		ParentHash: common.HexToHash(b.ParentHash),
		Timestamp:  uint64(b.Timestamp),
	}
	if b.TxHash != "" {
		h := common.HexToHash(b.TxHash)
		out.TxHash = &h
	}
	return out
}

func receiptFromStorage(r *storage.Receipt) *Receipt {
	out := &Receipt{
		TxHash:       common.HexToHash(r.TxHash),
		From:         common.HexToAddress(r.From),
		Nonce:        uint64(r.Nonce),
		Method:       r.Method,
		Args:         r.Args,
		Status:       uint64(r.Status),
		RevertReason: r.RevertReason,
		Error:        r.Error,
		BlockNumber:  uint64(r.BlockNumber),
		BlockHash:    common.HexToHash(r.BlockHash),
		Timestamp:    uint64(r.Timestamp),
		Logs:         make([]Log, 0, len(r.Logs)),
	}
	if r.To != "" {
		to := common.HexToAddress(r.To)
		out.To = &to
	}
	if r.ContractAddress != "" {
		addr := common.HexToAddress(r.ContractAddress)
		out.ContractAddress = &addr
	}
	for _, l := range r.Logs {
		out.Logs = append(out.Logs, Log{Address: common.HexToAddress(l.Address), Event: l.Event, Fields: l.Fields})
	}
	return out
}

func receiptToStorage(r *Receipt) *storage.Receipt {
	out := &storage.Receipt{
		TxHash:       r.TxHash.Hex(),
		From:         r.From.Hex(),
		Nonce:        int64(r.Nonce),
		Method:       r.Method,
		Args:         r.Args,
		Status:       int(r.Status),
		RevertReason: r.RevertReason,
		Error:        r.Error,
		BlockNumber:  int64(r.BlockNumber),
		BlockHash:    r.BlockHash.Hex(),
		Timestamp:    int64(r.Timestamp),
	}
	if r.To != nil {
		out.To = r.To.Hex()
	}
	if r.ContractAddress != nil {
		out.ContractAddress = r.ContractAddress.Hex()
	}
	for _, l := range r.Logs {
		out.Logs = append(out.Logs, storage.Log{Address: l.Address.Hex(), Event: l.Event, Fields: l.Fields})
	}
	return out
}

func uint64Bytes(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}
