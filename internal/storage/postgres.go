package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{sqlStore{db: db, numbered: true, logger: logger}}, nil
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chain_meta (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS blocks (
		number BIGINT PRIMARY KEY,
		hash TEXT NOT NULL UNIQUE,
		parent_hash TEXT NOT NULL,
		mined_at BIGINT NOT NULL,
		tx_hash TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS accounts (
		address TEXT PRIMARY KEY,
		idx INTEGER NOT NULL,
		label TEXT NOT NULL,
		nonce BIGINT NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS contracts (
		address TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		deployer TEXT NOT NULL,
		tx_hash TEXT NOT NULL,
		block_number BIGINT NOT NULL,
		params TEXT NOT NULL DEFAULT '{}',
		created_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tokens (
		address TEXT PRIMARY KEY REFERENCES contracts(address),
		name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		decimals INTEGER NOT NULL,
		total_supply TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS token_balances (
		token TEXT NOT NULL REFERENCES tokens(address),
		holder TEXT NOT NULL,
		balance TEXT NOT NULL,
		PRIMARY KEY (token, holder)
	);

	CREATE TABLE IF NOT EXISTS vaults (
		address TEXT PRIMARY KEY REFERENCES contracts(address),
		token TEXT NOT NULL REFERENCES tokens(address),
		owner TEXT NOT NULL,
		recipient TEXT NOT NULL DEFAULT '',
		claim_amount TEXT NOT NULL,
		period_seconds BIGINT NOT NULL,
		period_start BIGINT NOT NULL,
		initial_year BIGINT NOT NULL,
		vault_year BIGINT NOT NULL,
		burned_tokens TEXT NOT NULL,
		claimed_this_period TEXT NOT NULL,
		burned_this_period TEXT NOT NULL,
		burn_policy TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS receipts (
		tx_hash TEXT PRIMARY KEY,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL DEFAULT '',
		nonce BIGINT NOT NULL,
		method TEXT NOT NULL,
		args TEXT NOT NULL DEFAULT '{}',
		status INTEGER NOT NULL,
		revert_reason TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		block_number BIGINT NOT NULL UNIQUE,
		block_hash TEXT NOT NULL,
		mined_at BIGINT NOT NULL,
		contract_address TEXT NOT NULL DEFAULT '',
		logs TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		last_used_at TEXT,
		revoked_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_kind ON contracts(kind);
	CREATE INDEX IF NOT EXISTS idx_contracts_deployer ON contracts(deployer);
	CREATE INDEX IF NOT EXISTS idx_receipts_from ON receipts(from_address);
	CREATE INDEX IF NOT EXISTS idx_receipts_to ON receipts(to_address);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("database migrations complete", "driver", "postgres")
	return nil
}
