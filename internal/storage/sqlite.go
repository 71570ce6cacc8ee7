package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Pragmas are passed in the DSN so every pooled connection gets them
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &SQLiteStore{sqlStore{db: db, logger: logger}}, nil
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	-- Chain metadata (chain id, time offset)
	CREATE TABLE IF NOT EXISTS chain_meta (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Blocks
	CREATE TABLE IF NOT EXISTS blocks (
		number INTEGER PRIMARY KEY,
		hash TEXT NOT NULL UNIQUE,
		parent_hash TEXT NOT NULL,
		mined_at INTEGER NOT NULL,
		tx_hash TEXT NOT NULL DEFAULT ''
	);

	-- Dev accounts
	CREATE TABLE IF NOT EXISTS accounts (
		address TEXT PRIMARY KEY,
		idx INTEGER NOT NULL,
		label TEXT NOT NULL,
		nonce INTEGER NOT NULL DEFAULT 0
	);

	-- Deployed contracts
	CREATE TABLE IF NOT EXISTS contracts (
		address TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		deployer TEXT NOT NULL,
		tx_hash TEXT NOT NULL,
		block_number INTEGER NOT NULL,
		params TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL
	);

	-- Tokens
	CREATE TABLE IF NOT EXISTS tokens (
		address TEXT PRIMARY KEY REFERENCES contracts(address),
		name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		decimals INTEGER NOT NULL,
		total_supply TEXT NOT NULL
	);

	-- Token balances (base units, decimal text)
	CREATE TABLE IF NOT EXISTS token_balances (
		token TEXT NOT NULL REFERENCES tokens(address),
		holder TEXT NOT NULL,
		balance TEXT NOT NULL,
		PRIMARY KEY (token, holder)
	);

	-- Vaults
	CREATE TABLE IF NOT EXISTS vaults (
		address TEXT PRIMARY KEY REFERENCES contracts(address),
		token TEXT NOT NULL REFERENCES tokens(address),
		owner TEXT NOT NULL,
		recipient TEXT NOT NULL DEFAULT '',
		claim_amount TEXT NOT NULL,
		period_seconds INTEGER NOT NULL,
		period_start INTEGER NOT NULL,
		initial_year INTEGER NOT NULL,
		vault_year INTEGER NOT NULL,
		burned_tokens TEXT NOT NULL,
		claimed_this_period TEXT NOT NULL,
		burned_this_period TEXT NOT NULL,
		burn_policy TEXT NOT NULL
	);

	-- Receipts
	CREATE TABLE IF NOT EXISTS receipts (
		tx_hash TEXT PRIMARY KEY,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL DEFAULT '',
		nonce INTEGER NOT NULL,
		method TEXT NOT NULL,
		args TEXT NOT NULL DEFAULT '{}',
		status INTEGER NOT NULL,
		revert_reason TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		block_number INTEGER NOT NULL UNIQUE,
		block_hash TEXT NOT NULL,
		mined_at INTEGER NOT NULL,
		contract_address TEXT NOT NULL DEFAULT '',
		logs TEXT NOT NULL DEFAULT '[]'
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		last_used_at TEXT,
		revoked_at TEXT
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_contracts_kind ON contracts(kind);
	CREATE INDEX IF NOT EXISTS idx_contracts_deployer ON contracts(deployer);
	CREATE INDEX IF NOT EXISTS idx_receipts_from ON receipts(from_address);
	CREATE INDEX IF NOT EXISTS idx_receipts_to ON receipts(to_address);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("database migrations complete", "driver", "sqlite")
	return nil
}
