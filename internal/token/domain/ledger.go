package domain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/storage"
)

// Revert reasons
const (
	ReasonInsufficientBalance = "INSUFFICIENT_BALANCE"
	ReasonZeroAddress         = "ZERO_ADDRESS"
)

// Ledger reads and moves balances inside a running transaction, so other
// contracts can transfer tokens atomically with their own state changes.
type Ledger struct{}

// BalanceOf returns holder's balance of token
func (Ledger) BalanceOf(ctx context.Context, tx storage.TokenStore, token, holder common.Address) (*big.Int, error) {
	if _, err := tx.GetToken(ctx, token.Hex()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting token: %w", err)
	}
	return tx.GetBalance(ctx, token.Hex(), holder.Hex())
}

// Transfer moves amount of token from from to to and emits Transfer
func (l Ledger) Transfer(c *chain.Context, token, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return chain.Revert(ReasonZeroAddress, ErrZeroAddress)
	}

	fromBalance, err := l.BalanceOf(c.Ctx, c.Tx, token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return chain.Revert(ReasonInsufficientBalance, ErrInsufficientBalance)
	}
	if err := c.Tx.SetBalance(c.Ctx, token.Hex(), from.Hex(), new(big.Int).Sub(fromBalance, amount)); err != nil {
		return fmt.Errorf("debiting %s: %w", from.Hex(), err)
	}

	// Read after the debit so a self-transfer nets out
	toBalance, err := c.Tx.GetBalance(c.Ctx, token.Hex(), to.Hex())
	if err != nil {
		return err
	}
	if err := c.Tx.SetBalance(c.Ctx, token.Hex(), to.Hex(), new(big.Int).Add(toBalance, amount)); err != nil {
		return fmt.Errorf("crediting %s: %w", to.Hex(), err)
	}

	c.Emit(token, EventTransfer, map[string]string{
		"from":  from.Hex(),
		"to":    to.Hex(),
		"value": amount.String(),
	})
	return nil
}
