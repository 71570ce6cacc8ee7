// Package chain implements the local development chain that hosts the token
// and vault contracts. Every state change runs inside Transact, which
// serializes transactions, mines one block per transaction and either commits
// all writes or records a reverted receipt.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/leodarkseid/elkstaking/internal/storage"
)

const (
	metaChainID    = "chain_id"
	metaTimeOffset = "time_offset"
)

// Store is the storage the engine needs
type Store interface {
	Update(ctx context.Context, fn func(storage.Tx) error) error
	View(ctx context.Context, fn func(storage.Tx) error) error
}

// Config configures the engine
type Config struct {
	ChainID          uint64
	GenesisTimestamp int64 // 0 starts the chain clock at the wall clock
	DevAccounts      int
	DevSeed          string
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine is the devnet host ledger
type Engine struct {
	store  Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	// mu serializes every state-changing operation
	mu       sync.Mutex
	accounts []DevAccount
}

// New creates a new engine. Call Init before use.
func New(store Store, cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ChainID returns the configured chain id
func (e *Engine) ChainID() uint64 {
	return e.cfg.ChainID
}

// DevAccounts returns the derived dev accounts including their private keys
func (e *Engine) DevAccounts() []DevAccount {
	return e.accounts
}

// Init creates the genesis block and dev accounts on an empty store.
// On an existing store it checks the chain id and adds missing accounts.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := DeriveAccounts(e.cfg.DevSeed, e.cfg.DevAccounts)
	if err != nil {
		return fmt.Errorf("deriving dev accounts: %w", err)
	}
	e.accounts = accounts

	return e.store.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.GetHead(ctx)
		switch {
		case err == nil:
			id, err := tx.GetMeta(ctx, metaChainID)
			if err != nil {
				return fmt.Errorf("reading chain id: %w", err)
			}
			if id != strconv.FormatUint(e.cfg.ChainID, 10) {
				return fmt.Errorf("store holds chain %s, configured chain id is %d", id, e.cfg.ChainID)
			}
		case errors.Is(err, storage.ErrNotFound):
			if err := e.genesis(ctx, tx); err != nil {
				return err
			}
		default:
			return err
		}

		for _, a := range accounts {
			_, err := tx.GetAccount(ctx, a.Address.Hex())
			if err == nil {
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			if err := tx.PutAccount(ctx, &storage.Account{Address: a.Address.Hex(), Index: a.Index, Label: a.Label}); err != nil {
				return fmt.Errorf("creating account %s: %w", a.Address.Hex(), err)
			}
		}
		return nil
	})
}

func (e *Engine) genesis(ctx context.Context, tx storage.Tx) error {
	wall := e.now().Unix()
	ts := wall
	if e.cfg.GenesisTimestamp > 0 {
		ts = e.cfg.GenesisTimestamp
	}
	// The chain clock starts at the genesis timestamp and then follows the wall clock
	offset := ts - wall

	hash := crypto.Keccak256Hash(
		[]byte("genesis"),
		uint64Bytes(e.cfg.ChainID),
		uint64Bytes(uint64(ts)),
	)
	if err := tx.InsertBlock(ctx, &storage.Block{
		Number:     0,
		Hash:       hash.Hex(),
		ParentHash: common.Hash{}.Hex(),
		Timestamp:  ts,
	}); err != nil {
		return fmt.Errorf("inserting genesis block: %w", err)
	}
	if err := tx.SetMeta(ctx, metaChainID, strconv.FormatUint(e.cfg.ChainID, 10)); err != nil {
		return err
	}
	if err := tx.SetMeta(ctx, metaTimeOffset, strconv.FormatInt(offset, 10)); err != nil {
		return err
	}

	e.logger.Info("genesis block created", "chain_id", e.cfg.ChainID, "timestamp", ts, "accounts", len(e.accounts))
	return nil
}

func timeOffset(ctx context.Context, tx storage.Tx) (int64, error) {
	v, err := tx.GetMeta(ctx, metaTimeOffset)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}
