package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/leodarkseid/elkstaking/internal/observability/metrics"
	"github.com/leodarkseid/elkstaking/internal/storage"
)

// MethodDeploy is the receipt method of contract creations
const MethodDeploy = "deploy"

// TxFunc is the body of a transaction. Returning a *RevertError rolls back
// its writes and records a failed receipt. Any other error rolls back without
// a receipt.
type TxFunc func(c *Context) error

// Context is handed to a TxFunc
type Context struct {
	Ctx   context.Context
	Tx    storage.Tx
	From  common.Address
	To    common.Address // contract being called, or the address being created
	Block Block

	logs []Log
}

// Emit records an event emitted by address
func (c *Context) Emit(address common.Address, event string, fields map[string]string) {
	c.logs = append(c.logs, Log{Address: address, Event: event, Fields: fields})
}

// pending carries what a transaction needs to be recorded
type pending struct {
	call    Call
	kind    string
	account *storage.Account
	block   Block
	hash    common.Hash
	target  common.Address
}

// Transact executes fn as a transaction from call.From to call.To
func (e *Engine) Transact(ctx context.Context, call Call, fn TxFunc) (*Receipt, error) {
	return e.execute(ctx, call, "", fn)
}

// Deploy creates a contract of the given kind at crypto.CreateAddress(from, nonce)
// and runs fn to initialize its state. The receipt carries the new address.
func (e *Engine) Deploy(ctx context.Context, from common.Address, kind string, params map[string]string, fn TxFunc) (*Receipt, error) {
	args := maps.Clone(params)
	if args == nil {
		args = map[string]string{}
	}
	args["kind"] = kind
	return e.execute(ctx, Call{From: from, Method: MethodDeploy, Args: args}, kind, fn)
}

func (e *Engine) execute(ctx context.Context, call Call, kind string, fn TxFunc) (*Receipt, error) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	var receipt *Receipt
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		p, err := e.prepare(ctx, tx, call, kind)
		if err != nil {
			return err
		}

		if kind != "" {
			if err := tx.CreateContract(ctx, &storage.Contract{
				Address:     p.target.Hex(),
				Kind:        kind,
				Deployer:    call.From.Hex(),
				TxHash:      p.hash.Hex(),
				BlockNumber: int64(p.block.Number),
				Params:      call.Args,
				CreatedAt:   int64(p.block.Timestamp),
			}); err != nil {
				return fmt.Errorf("creating contract: %w", err)
			}
		}

		c := &Context{Ctx: ctx, Tx: tx, From: call.From, To: p.target, Block: p.block}
		if err := fn(c); err != nil {
			return err
		}

		receipt, err = e.record(ctx, tx, p, StatusSuccessful, c.logs, nil)
		return err
	})
	if err == nil {
		metrics.Transaction(call.Method, "success", time.Since(start))
		metrics.BlockMined(receipt.BlockNumber)
		e.logger.Debug("transaction mined",
			"hash", receipt.TxHash.Hex(),
			"method", call.Method,
			"block", receipt.BlockNumber,
		)
		return receipt, nil
	}

	re, ok := IsRevert(err)
	if !ok {
		metrics.Transaction(call.Method, "error", time.Since(start))
		return nil, err
	}

	// The failed transaction still consumes its nonce and mines its block
	recErr := e.store.Update(ctx, func(tx storage.Tx) error {
		p, err := e.prepare(ctx, tx, call, kind)
		if err != nil {
			return err
		}
		receipt, err = e.record(ctx, tx, p, StatusFailed, nil, re)
		return err
	})
	if recErr != nil {
		metrics.Transaction(call.Method, "error", time.Since(start))
		return nil, fmt.Errorf("recording reverted transaction: %w", recErr)
	}

	metrics.Transaction(call.Method, "reverted", time.Since(start))
	metrics.BlockMined(receipt.BlockNumber)
	e.logger.Debug("transaction reverted",
		"hash", receipt.TxHash.Hex(),
		"method", call.Method,
		"reason", re.Reason,
	)
	return receipt, err
}

func (e *Engine) prepare(ctx context.Context, tx storage.Tx, call Call, kind string) (*pending, error) {
	account, err := tx.GetAccount(ctx, call.From.Hex())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, call.From.Hex())
	}
	if err != nil {
		return nil, err
	}

	parent, err := tx.GetHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading head: %w", err)
	}
	offset, err := timeOffset(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("reading time offset: %w", err)
	}

	target := call.To
	if kind != "" {
		target = crypto.CreateAddress(call.From, uint64(account.Nonce))
	}

	p := &pending{call: call, kind: kind, account: account, target: target}
	p.hash = e.txHash(call.From, uint64(account.Nonce), target, call.Method, call.Args)
	p.block = e.nextBlock(parent, offset, &p.hash)
	return p, nil
}

// record bumps the sender nonce, stores the block and inserts the receipt
func (e *Engine) record(ctx context.Context, tx storage.Tx, p *pending, status uint64, logs []Log, re *RevertError) (*Receipt, error) {
	p.account.Nonce++
	if err := tx.PutAccount(ctx, p.account); err != nil {
		return nil, fmt.Errorf("updating nonce: %w", err)
	}
	if err := e.insertBlock(ctx, tx, p.block); err != nil {
		return nil, err
	}

	r := &Receipt{
		TxHash:      p.hash,
		From:        p.call.From,
		Nonce:       uint64(p.account.Nonce - 1),
		Method:      p.call.Method,
		Args:        p.call.Args,
		Status:      status,
		BlockNumber: p.block.Number,
		BlockHash:   p.block.Hash,
		Timestamp:   p.block.Timestamp,
		Logs:        logs,
	}
	if r.Logs == nil {
		r.Logs = []Log{}
	}
	if p.kind == "" {
		to := p.target
		r.To = &to
	} else if status == StatusSuccessful {
		addr := p.target
		r.ContractAddress = &addr
	}
	if re != nil {
		r.RevertReason = re.Reason
		r.Error = re.Error()
	}

	if err := tx.InsertReceipt(ctx, receiptToStorage(r)); err != nil {
		return nil, fmt.Errorf("inserting receipt: %w", err)
	}
	return r, nil
}

// nextBlock builds the child of parent. Its timestamp is the chain clock,
// never earlier than one second after the parent.
func (e *Engine) nextBlock(parent *storage.Block, offset int64, txHash *common.Hash) Block {
	ts := e.now().Unix() + offset
	if ts <= parent.Timestamp {
		ts = parent.Timestamp + 1
	}
	b := Block{
		Number:     uint64(parent.Number) + 1,
		ParentHash: common.HexToHash(parent.Hash),
		Timestamp:  uint64(ts),
		TxHash:     txHash,
	}
	var txBytes []byte
	if txHash != nil {
		txBytes = txHash.Bytes()
	}
	b.Hash = crypto.Keccak256Hash(b.ParentHash.Bytes(), uint64Bytes(b.Number), uint64Bytes(b.Timestamp), txBytes)
	return b
}

func (e *Engine) insertBlock(ctx context.Context, tx storage.Tx, b Block) error {
	sb := &storage.Block{
		Number:     int64(b.Number),
		Hash:       b.Hash.Hex(),
		ParentHash: b.ParentHash.Hex(),
		Timestamp:  int64(b.Timestamp),
	}
	if b.TxHash != nil {
		sb.TxHash = b.TxHash.Hex()
	}
	if err := tx.InsertBlock(ctx, sb); err != nil {
		return fmt.Errorf("inserting block %d: %w", b.Number, err)
	}
	return nil
}

// txHash is keccak256(chainID, from, nonce, to, method, args)
func (e *Engine) txHash(from common.Address, nonce uint64, to common.Address, method string, args map[string]string) common.Hash {
	// encoding/json sorts map keys, so the encoding is deterministic
	encoded, _ := json.Marshal(args)
	return crypto.Keccak256Hash(
		uint64Bytes(e.cfg.ChainID),
		from.Bytes(),
		uint64Bytes(nonce),
		to.Bytes(),
		[]byte(method),
		encoded,
	)
}

// Mine mines an empty block at the current chain time
func (e *Engine) Mine(ctx context.Context) (*Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var block Block
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		block, err = e.mineEmpty(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.BlockMined(block.Number)
	return &block, nil
}

// AdjustTime moves the chain clock forward by seconds without mining,
// like hardhat's evm_increaseTime. It returns the total offset.
func (e *Engine) AdjustTime(ctx context.Context, seconds int64) (int64, error) {
	if seconds < 0 {
		return 0, fmt.Errorf("%w: %d seconds", ErrInvalidTime, seconds)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var offset int64
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		offset, err = e.addOffset(ctx, tx, seconds)
		return err
	})
	if err != nil {
		return 0, err
	}
	return offset, nil
}

// IncreaseTime moves the chain clock forward by seconds and mines a block
// so the new time is observable. It returns the new head.
func (e *Engine) IncreaseTime(ctx context.Context, seconds int64) (*Head, error) {
	if seconds < 0 {
		return nil, fmt.Errorf("%w: %d seconds", ErrInvalidTime, seconds)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var head Head
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		offset, err := e.addOffset(ctx, tx, seconds)
		if err != nil {
			return err
		}
		block, err := e.mineEmpty(ctx, tx)
		if err != nil {
			return err
		}
		head = Head{
			ChainID:    e.cfg.ChainID,
			Number:     block.Number,
			Hash:       block.Hash,
			Timestamp:  block.Timestamp,
			TimeOffset: offset,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BlockMined(head.Number)
	e.logger.Info("chain time increased", "seconds", seconds, "offset", head.TimeOffset, "timestamp", head.Timestamp)
	return &head, nil
}

func (e *Engine) addOffset(ctx context.Context, tx storage.Tx, seconds int64) (int64, error) {
	offset, err := timeOffset(ctx, tx)
	if err != nil {
		return 0, err
	}
	if seconds > math.MaxInt64-offset || e.now().Unix() > math.MaxInt64-(offset+seconds) {
		return 0, fmt.Errorf("%w: %d seconds overflows the chain clock (offset %d)", ErrInvalidTime, seconds, offset)
	}
	offset += seconds
	if err := tx.SetMeta(ctx, metaTimeOffset, strconv.FormatInt(offset, 10)); err != nil {
		return 0, err
	}
	metrics.TimeOffset(offset)
	return offset, nil
}

func (e *Engine) mineEmpty(ctx context.Context, tx storage.Tx) (Block, error) {
	parent, err := tx.GetHead(ctx)
	if err != nil {
		return Block{}, fmt.Errorf("reading head: %w", err)
	}
	offset, err := timeOffset(ctx, tx)
	if err != nil {
		return Block{}, err
	}
	b := e.nextBlock(parent, offset, nil)
	if err := e.insertBlock(ctx, tx, b); err != nil {
		return Block{}, err
	}
	return b, nil
}
