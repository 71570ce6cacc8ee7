package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
)

// sqlStore holds the queries shared by the SQLite and Postgres stores.
// Queries are written with ? placeholders and rebound for Postgres.
type sqlStore struct {
	db       *sql.DB
	numbered bool
	logger   *slog.Logger
}

func (s *sqlStore) q(query string) string {
	return rebind(query, s.numbered)
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Update runs fn inside a read-write transaction
func (s *sqlStore) Update(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, fn)
}

// View runs fn inside a transaction that is always rolled back
func (s *sqlStore) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(&sqlTx{tx: tx, numbered: s.numbered})
}

func (s *sqlStore) run(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(&sqlTx{tx: tx, numbered: s.numbered}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CreateAPIKey creates a new API key
func (s *sqlStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key, err := generateAPIKey()
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx, s.q("INSERT INTO api_keys (id, key_hash, name, created_at) VALUES (?, ?, ?, ?)"),
		generateID(), HashAPIKey(key), name, now())
	if err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey validates an API key
func (s *sqlStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	var ak APIKey
	err := s.db.QueryRowContext(ctx, s.q("SELECT id, key_hash, name, created_at FROM api_keys WHERE key_hash = ? AND revoked_at IS NULL"), HashAPIKey(key)).Scan(
		&ak.ID, &ak.KeyHash, &ak.Name, &ak.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	// Update last used
	_, _ = s.db.ExecContext(ctx, s.q("UPDATE api_keys SET last_used_at = ? WHERE id = ?"), now(), ak.ID)
	return &ak, nil
}

// ListAPIKeys lists all active API keys
func (s *sqlStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at, last_used_at FROM api_keys WHERE revoked_at IS NULL ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		var lastUsed sql.NullString
		if err := rows.Scan(&k.ID, &k.Name, &k.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			k.LastUsedAt = lastUsed.String
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey revokes an API key
func (s *sqlStore) RevokeAPIKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q("UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL"), now(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// sqlTx implements Tx over a database/sql transaction
type sqlTx struct {
	tx       *sql.Tx
	numbered bool
}

func (t *sqlTx) q(query string) string {
	return rebind(query, t.numbered)
}

func (t *sqlTx) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := t.tx.QueryRowContext(ctx, t.q("SELECT value FROM chain_meta WHERE name = ?"), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

func (t *sqlTx) SetMeta(ctx context.Context, key, value string) error {
	_, err := t.tx.ExecContext(ctx, t.q(`
		INSERT INTO chain_meta (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`), key, value)
	return err
}

const blockColumns = "number, hash, parent_hash, mined_at, tx_hash"

func scanBlock(row interface{ Scan(...any) error }) (*Block, error) {
	var b Block
	err := row.Scan(&b.Number, &b.Hash, &b.ParentHash, &b.Timestamp, &b.TxHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *sqlTx) GetHead(ctx context.Context) (*Block, error) {
	return scanBlock(t.tx.QueryRowContext(ctx, "SELECT "+blockColumns+" FROM blocks ORDER BY number DESC LIMIT 1"))
}

func (t *sqlTx) GetBlock(ctx context.Context, number int64) (*Block, error) {
	return scanBlock(t.tx.QueryRowContext(ctx, t.q("SELECT "+blockColumns+" FROM blocks WHERE number = ?"), number))
}

func (t *sqlTx) InsertBlock(ctx context.Context, b *Block) error {
	_, err := t.tx.ExecContext(ctx, t.q("INSERT INTO blocks ("+blockColumns+") VALUES (?, ?, ?, ?, ?)"),
		b.Number, b.Hash, b.ParentHash, b.Timestamp, b.TxHash)
	return err
}

func (t *sqlTx) GetAccount(ctx context.Context, address string) (*Account, error) {
	var a Account
	err := t.tx.QueryRowContext(ctx, t.q("SELECT address, idx, label, nonce FROM accounts WHERE address = ?"), address).Scan(
		&a.Address, &a.Index, &a.Label, &a.Nonce,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *sqlTx) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := t.tx.QueryContext(ctx, "SELECT address, idx, label, nonce FROM accounts ORDER BY idx")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.Address, &a.Index, &a.Label, &a.Nonce); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (t *sqlTx) PutAccount(ctx context.Context, a *Account) error {
	_, err := t.tx.ExecContext(ctx, t.q(`
		INSERT INTO accounts (address, idx, label, nonce) VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET label = excluded.label, nonce = excluded.nonce
	`), a.Address, a.Index, a.Label, a.Nonce)
	return err
}

const contractColumns = "address, kind, deployer, tx_hash, block_number, params, created_at"

func scanContract(row interface{ Scan(...any) error }) (*Contract, error) {
	var c Contract
	var params string
	if err := row.Scan(&c.Address, &c.Kind, &c.Deployer, &c.TxHash, &c.BlockNumber, &params, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Params = unmarshalMap(params)
	return &c, nil
}

func (t *sqlTx) CreateContract(ctx context.Context, c *Contract) error {
	if _, err := t.GetContract(ctx, c.Address); err == nil {
		return fmt.Errorf("contract %s: %w", c.Address, ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err := t.tx.ExecContext(ctx, t.q("INSERT INTO contracts ("+contractColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)"),
		c.Address, c.Kind, c.Deployer, c.TxHash, c.BlockNumber, marshalMap(c.Params), c.CreatedAt)
	return err
}

func (t *sqlTx) GetContract(ctx context.Context, address string) (*Contract, error) {
	c, err := scanContract(t.tx.QueryRowContext(ctx, t.q("SELECT "+contractColumns+" FROM contracts WHERE address = ?"), address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// ListContracts lists contracts newest first. The cursor is the block number
// of the last contract on the previous page.
func (t *sqlTx) ListContracts(ctx context.Context, filter ContractFilter, pagination PaginationParams) (*PaginatedResult[Contract], error) {
	var where []string
	var args []any
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Deployer != "" {
		where = append(where, "deployer = ?")
		args = append(args, filter.Deployer)
	}
	if pagination.Cursor != "" {
		cursor, err := strconv.ParseInt(pagination.Cursor, 10, 64)
		if err != nil {
			return nil, ErrInvalidCursor
		}
		where = append(where, "block_number < ?")
		args = append(args, cursor)
	}
	query := "SELECT " + contractColumns + " FROM contracts" + whereClause(where) + " ORDER BY block_number DESC LIMIT ?"
	pagination.Limit = pagination.limit()
	args = append(args, pagination.Limit+1)

	rows, err := t.tx.QueryContext(ctx, t.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &PaginatedResult[Contract]{Data: contracts}
	if len(contracts) > pagination.Limit {
		result.Data = contracts[:pagination.Limit]
		result.HasMore = true
		result.NextCursor = strconv.FormatInt(result.Data[len(result.Data)-1].BlockNumber, 10)
	}
	return result, nil
}

func (t *sqlTx) CreateToken(ctx context.Context, tk *Token) error {
	_, err := t.tx.ExecContext(ctx, t.q("INSERT INTO tokens (address, name, symbol, decimals, total_supply) VALUES (?, ?, ?, ?, ?)"),
		tk.Address, tk.Name, tk.Symbol, tk.Decimals, formatAmount(tk.TotalSupply))
	return err
}

func (t *sqlTx) GetToken(ctx context.Context, address string) (*Token, error) {
	var tk Token
	var supply string
	err := t.tx.QueryRowContext(ctx, t.q("SELECT address, name, symbol, decimals, total_supply FROM tokens WHERE address = ?"), address).Scan(
		&tk.Address, &tk.Name, &tk.Symbol, &tk.Decimals, &supply,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if tk.TotalSupply, err = parseAmount(supply); err != nil {
		return nil, err
	}
	return &tk, nil
}

// GetBalance returns the holder's balance, zero when no row exists
func (t *sqlTx) GetBalance(ctx context.Context, token, holder string) (*big.Int, error) {
	var balance string
	err := t.tx.QueryRowContext(ctx, t.q("SELECT balance FROM token_balances WHERE token = ? AND holder = ?"), token, holder).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(balance)
}

func (t *sqlTx) SetBalance(ctx context.Context, token, holder string, amount *big.Int) error {
	_, err := t.tx.ExecContext(ctx, t.q(`
		INSERT INTO token_balances (token, holder, balance) VALUES (?, ?, ?)
		ON CONFLICT(token, holder) DO UPDATE SET balance = excluded.balance
	`), token, holder, formatAmount(amount))
	return err
}

const vaultColumns = `address, token, owner, recipient, claim_amount, period_seconds, period_start,
	initial_year, vault_year, burned_tokens, claimed_this_period, burned_this_period, burn_policy`

func (t *sqlTx) GetVault(ctx context.Context, address string) (*Vault, error) {
	var v Vault
	var claimAmount, burned, claimed, burnedPeriod string
	err := t.tx.QueryRowContext(ctx, t.q("SELECT "+vaultColumns+" FROM vaults WHERE address = ?"), address).Scan(
		&v.Address, &v.Token, &v.Owner, &v.Recipient, &claimAmount, &v.PeriodSeconds, &v.PeriodStart,
		&v.InitialYear, &v.VaultYear, &burned, &claimed, &burnedPeriod, &v.BurnPolicy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		dst **big.Int
		src string
	}{
		{&v.ClaimAmount, claimAmount},
		{&v.BurnedTokens, burned},
		{&v.ClaimedThisPeriod, claimed},
		{&v.BurnedThisPeriod, burnedPeriod},
	} {
		if *f.dst, err = parseAmount(f.src); err != nil {
			return nil, err
		}
	}
	return &v, nil
}

func (t *sqlTx) PutVault(ctx context.Context, v *Vault) error {
	_, err := t.tx.ExecContext(ctx, t.q(`
		INSERT INTO vaults (`+vaultColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			recipient = excluded.recipient,
			period_start = excluded.period_start,
			vault_year = excluded.vault_year,
			burned_tokens = excluded.burned_tokens,
			claimed_this_period = excluded.claimed_this_period,
			burned_this_period = excluded.burned_this_period
	`),
		v.Address, v.Token, v.Owner, v.Recipient, formatAmount(v.ClaimAmount), v.PeriodSeconds, v.PeriodStart,
		v.InitialYear, v.VaultYear, formatAmount(v.BurnedTokens), formatAmount(v.ClaimedThisPeriod),
		formatAmount(v.BurnedThisPeriod), v.BurnPolicy,
	)
	return err
}

const receiptColumns = `tx_hash, from_address, to_address, nonce, method, args, status, revert_reason, error,
	block_number, block_hash, mined_at, contract_address, logs`

func scanReceipt(row interface{ Scan(...any) error }) (*Receipt, error) {
	var r Receipt
	var args, logs string
	if err := row.Scan(&r.TxHash, &r.From, &r.To, &r.Nonce, &r.Method, &args, &r.Status, &r.RevertReason, &r.Error,
		&r.BlockNumber, &r.BlockHash, &r.Timestamp, &r.ContractAddress, &logs); err != nil {
		return nil, err
	}
	r.Args = unmarshalMap(args)
	if logs != "" {
		if err := json.Unmarshal([]byte(logs), &r.Logs); err != nil {
			return nil, fmt.Errorf("decoding logs: %w", err)
		}
	}
	return &r, nil
}

func (t *sqlTx) InsertReceipt(ctx context.Context, r *Receipt) error {
	logs := "[]"
	if len(r.Logs) > 0 {
		b, err := json.Marshal(r.Logs)
		if err != nil {
			return fmt.Errorf("encoding logs: %w", err)
		}
		logs = string(b)
	}
	_, err := t.tx.ExecContext(ctx, t.q("INSERT INTO receipts ("+receiptColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		r.TxHash, r.From, r.To, r.Nonce, r.Method, marshalMap(r.Args), r.Status, r.RevertReason, r.Error,
		r.BlockNumber, r.BlockHash, r.Timestamp, r.ContractAddress, logs)
	return err
}

func (t *sqlTx) GetReceipt(ctx context.Context, hash string) (*Receipt, error) {
	r, err := scanReceipt(t.tx.QueryRowContext(ctx, t.q("SELECT "+receiptColumns+" FROM receipts WHERE tx_hash = ?"), hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// ListReceipts lists receipts newest first, paginated by block number
func (t *sqlTx) ListReceipts(ctx context.Context, filter ReceiptFilter, pagination PaginationParams) (*PaginatedResult[Receipt], error) {
	var where []string
	var args []any
	if filter.From != "" {
		where = append(where, "from_address = ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		where = append(where, "(to_address = ? OR contract_address = ?)")
		args = append(args, filter.To, filter.To)
	}
	if filter.Method != "" {
		where = append(where, "method = ?")
		args = append(args, filter.Method)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}
	if pagination.Cursor != "" {
		cursor, err := strconv.ParseInt(pagination.Cursor, 10, 64)
		if err != nil {
			return nil, ErrInvalidCursor
		}
		where = append(where, "block_number < ?")
		args = append(args, cursor)
	}
	query := "SELECT " + receiptColumns + " FROM receipts" + whereClause(where) + " ORDER BY block_number DESC LIMIT ?"
	pagination.Limit = pagination.limit()
	args = append(args, pagination.Limit+1)

	rows, err := t.tx.QueryContext(ctx, t.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &PaginatedResult[Receipt]{Data: receipts}
	if len(receipts) > pagination.Limit {
		result.Data = receipts[:pagination.Limit]
		result.HasMore = true
		result.NextCursor = strconv.FormatInt(result.Data[len(result.Data)-1].BlockNumber, 10)
	}
	return result, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
