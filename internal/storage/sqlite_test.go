package storage

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := NewSQLiteStore(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestSQLiteStore(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	t.Run("MigrateIsIdempotent", func(t *testing.T) {
		require.NoError(t, store.Migrate(ctx))
	})

	t.Run("MetaAndBlocks", func(t *testing.T) {
		err := store.Update(ctx, func(tx Tx) error {
			if err := tx.SetMeta(ctx, "time_offset", "10"); err != nil {
				return err
			}
			if err := tx.SetMeta(ctx, "time_offset", "20"); err != nil {
				return err
			}
			for i := int64(0); i < 3; i++ {
				if err := tx.InsertBlock(ctx, &Block{Number: i, Hash: "0xh" + string(rune('a'+i)), ParentHash: "0x0", Timestamp: 1000 + i}); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		err = store.View(ctx, func(tx Tx) error {
			v, err := tx.GetMeta(ctx, "time_offset")
			require.NoError(t, err)
			assert.Equal(t, "20", v)

			_, err = tx.GetMeta(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			head, err := tx.GetHead(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), head.Number)
			assert.Equal(t, int64(1002), head.Timestamp)

			b, err := tx.GetBlock(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, "0xhb", b.Hash)

			_, err = tx.GetBlock(ctx, 99)
			assert.ErrorIs(t, err, ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("UpdateRollsBackOnError", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.Update(ctx, func(tx Tx) error {
			if err := tx.SetMeta(ctx, "rollback", "yes"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		err = store.View(ctx, func(tx Tx) error {
			_, err := tx.GetMeta(ctx, "rollback")
			assert.ErrorIs(t, err, ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Accounts", func(t *testing.T) {
		err := store.Update(ctx, func(tx Tx) error {
			require.NoError(t, tx.PutAccount(ctx, &Account{Address: "0xB", Index: 1, Label: "account1"}))
			require.NoError(t, tx.PutAccount(ctx, &Account{Address: "0xA", Index: 0, Label: "account0"}))
			return tx.PutAccount(ctx, &Account{Address: "0xA", Index: 0, Label: "account0", Nonce: 5})
		})
		require.NoError(t, err)

		err = store.View(ctx, func(tx Tx) error {
			accounts, err := tx.ListAccounts(ctx)
			require.NoError(t, err)
			require.Len(t, accounts, 2)
			assert.Equal(t, "0xA", accounts[0].Address)
			assert.Equal(t, int64(5), accounts[0].Nonce)

			_, err = tx.GetAccount(ctx, "0xC")
			assert.ErrorIs(t, err, ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("ContractsTokensAndBalances", func(t *testing.T) {
		supply := big.NewInt(1_000_000)
		err := store.Update(ctx, func(tx Tx) error {
			require.NoError(t, tx.CreateContract(ctx, &Contract{Address: "0xT", Kind: "token", Deployer: "0xA", TxHash: "0x1", BlockNumber: 3, Params: map[string]string{"symbol": "ELK"}}))
			require.NoError(t, tx.CreateContract(ctx, &Contract{Address: "0xM", Kind: "marketplace", Deployer: "0xB", TxHash: "0x2", BlockNumber: 4}))
			require.NoError(t, tx.CreateToken(ctx, &Token{Address: "0xT", Name: "Elk", Symbol: "ELK", Decimals: 18, TotalSupply: supply}))
			return tx.SetBalance(ctx, "0xT", "0xA", supply)
		})
		require.NoError(t, err)

		err = store.Update(ctx, func(tx Tx) error {
			err := tx.CreateContract(ctx, &Contract{Address: "0xT", Kind: "token"})
			assert.ErrorIs(t, err, ErrAlreadyExists)
			return nil
		})
		require.NoError(t, err)

		err = store.View(ctx, func(tx Tx) error {
			c, err := tx.GetContract(ctx, "0xT")
			require.NoError(t, err)
			assert.Equal(t, "token", c.Kind)
			assert.Equal(t, "ELK", c.Params["symbol"])

			tk, err := tx.GetToken(ctx, "0xT")
			require.NoError(t, err)
			assert.Equal(t, "Elk", tk.Name)
			assert.Equal(t, 0, supply.Cmp(tk.TotalSupply))

			bal, err := tx.GetBalance(ctx, "0xT", "0xA")
			require.NoError(t, err)
			assert.Equal(t, "1000000", bal.String())

			zero, err := tx.GetBalance(ctx, "0xT", "0xNobody")
			require.NoError(t, err)
			assert.Equal(t, 0, zero.Sign())

			tokens, err := tx.ListContracts(ctx, ContractFilter{Kind: "token"}, PaginationParams{Limit: 10})
			require.NoError(t, err)
			require.Len(t, tokens.Data, 1)

			page, err := tx.ListContracts(ctx, ContractFilter{}, PaginationParams{Limit: 1})
			require.NoError(t, err)
			require.Len(t, page.Data, 1)
			assert.True(t, page.HasMore)
			assert.Equal(t, "0xM", page.Data[0].Address)

			next, err := tx.ListContracts(ctx, ContractFilter{}, PaginationParams{Limit: 1, Cursor: page.NextCursor})
			require.NoError(t, err)
			require.Len(t, next.Data, 1)
			assert.False(t, next.HasMore)
			assert.Equal(t, "0xT", next.Data[0].Address)

			_, err = tx.ListContracts(ctx, ContractFilter{}, PaginationParams{Limit: 1, Cursor: "abc"})
			assert.ErrorIs(t, err, ErrInvalidCursor)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Vaults", func(t *testing.T) {
		v := &Vault{
			Address:           "0xV",
			Token:             "0xT",
			Owner:             "0xA",
			ClaimAmount:       big.NewInt(1000),
			PeriodSeconds:     31557600,
			PeriodStart:       1677628800,
			InitialYear:       2023,
			VaultYear:         2023,
			BurnedTokens:      big.NewInt(0),
			ClaimedThisPeriod: big.NewInt(0),
			BurnedThisPeriod:  big.NewInt(0),
			BurnPolicy:        "independent",
		}
		err := store.Update(ctx, func(tx Tx) error {
			require.NoError(t, tx.CreateContract(ctx, &Contract{Address: "0xV", Kind: "vault", Deployer: "0xA", TxHash: "0x3", BlockNumber: 5}))
			require.NoError(t, tx.PutVault(ctx, v))
			v.Recipient = "0xB"
			v.ClaimedThisPeriod = big.NewInt(900)
			v.BurnedTokens = big.NewInt(100)
			return tx.PutVault(ctx, v)
		})
		require.NoError(t, err)

		err = store.View(ctx, func(tx Tx) error {
			got, err := tx.GetVault(ctx, "0xV")
			require.NoError(t, err)
			assert.Equal(t, "0xB", got.Recipient)
			assert.Equal(t, "900", got.ClaimedThisPeriod.String())
			assert.Equal(t, "100", got.BurnedTokens.String())
			assert.Equal(t, "1000", got.ClaimAmount.String())
			assert.Equal(t, int64(2023), got.VaultYear)

			_, err = tx.GetVault(ctx, "0xT")
			assert.ErrorIs(t, err, ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Receipts", func(t *testing.T) {
		err := store.Update(ctx, func(tx Tx) error {
			require.NoError(t, tx.InsertReceipt(ctx, &Receipt{
				TxHash: "0xr1", From: "0xB", To: "0xV", Method: "claim", Args: map[string]string{"amount": "900"},
				Status: 1, BlockNumber: 6, BlockHash: "0xb6", Timestamp: 2000,
				Logs: []Log{{Address: "0xT", Event: "Transfer", Fields: map[string]string{"value": "900"}}},
			}))
			return tx.InsertReceipt(ctx, &Receipt{
				TxHash: "0xr2", From: "0xA", To: "0xV", Method: "claim", Status: 0,
				RevertReason: "UNAUTHORIZED_CALLER", Error: "execution reverted", BlockNumber: 7, BlockHash: "0xb7", Timestamp: 2001,
			})
		})
		require.NoError(t, err)

		err = store.View(ctx, func(tx Tx) error {
			r, err := tx.GetReceipt(ctx, "0xr1")
			require.NoError(t, err)
			assert.Equal(t, "900", r.Args["amount"])
			require.Len(t, r.Logs, 1)
			assert.Equal(t, "Transfer", r.Logs[0].Event)

			failed := 0
			list, err := tx.ListReceipts(ctx, ReceiptFilter{Status: &failed}, PaginationParams{Limit: 10})
			require.NoError(t, err)
			require.Len(t, list.Data, 1)
			assert.Equal(t, "UNAUTHORIZED_CALLER", list.Data[0].RevertReason)

			byVault, err := tx.ListReceipts(ctx, ReceiptFilter{To: "0xV"}, PaginationParams{Limit: 10})
			require.NoError(t, err)
			assert.Len(t, byVault.Data, 2)
			assert.Equal(t, "0xr2", byVault.Data[0].TxHash)

			_, err = tx.GetReceipt(ctx, "0xmissing")
			assert.ErrorIs(t, err, ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("APIKeys", func(t *testing.T) {
		key, err := store.CreateAPIKey(ctx, "test-key")
		require.NoError(t, err)
		assert.Contains(t, key, APIKeyPrefix)

		ak, err := store.ValidateAPIKey(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "test-key", ak.Name)

		_, err = store.ValidateAPIKey(ctx, "invalid-key")
		assert.ErrorIs(t, err, ErrNotFound)

		keys, err := store.ListAPIKeys(ctx)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.NotEmpty(t, keys[0].LastUsedAt)

		require.NoError(t, store.RevokeAPIKey(ctx, ak.ID))
		assert.ErrorIs(t, store.RevokeAPIKey(ctx, ak.ID), ErrNotFound)

		_, err = store.ValidateAPIKey(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
