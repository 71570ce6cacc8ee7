package chain

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/leodarkseid/elkstaking/internal/storage"
)

// View runs fn against a consistent read-only snapshot
func (e *Engine) View(ctx context.Context, fn func(storage.Tx) error) error {
	return e.store.View(ctx, fn)
}

// Head returns the latest block and the chain clock
func (e *Engine) Head(ctx context.Context) (*Head, error) {
	var head Head
	err := e.store.View(ctx, func(tx storage.Tx) error {
		b, err := tx.GetHead(ctx)
		if err != nil {
			return mapNotFound(err)
		}
		offset, err := timeOffset(ctx, tx)
		if err != nil {
			return err
		}
		head = Head{
			ChainID:    e.cfg.ChainID,
			Number:     uint64(b.Number),
			Hash:       common.HexToHash(b.Hash),
			Timestamp:  uint64(b.Timestamp),
			TimeOffset: offset,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &head, nil
}

// BlockByNumber returns a mined block
func (e *Engine) BlockByNumber(ctx context.Context, number uint64) (*Block, error) {
	var block *Block
	err := e.store.View(ctx, func(tx storage.Tx) error {
		b, err := tx.GetBlock(ctx, int64(number))
		if err != nil {
			return mapNotFound(err)
		}
		block = blockFromStorage(b)
		return nil
	})
	return block, err
}

// Accounts returns the dev accounts in index order
func (e *Engine) Accounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := e.store.View(ctx, func(tx storage.Tx) error {
		rows, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		accounts = make([]Account, 0, len(rows))
		for _, a := range rows {
			accounts = append(accounts, Account{
				Address: common.HexToAddress(a.Address),
				Index:   a.Index,
				Label:   a.Label,
				Nonce:   uint64(a.Nonce),
			})
		}
		return nil
	})
	return accounts, err
}

// Receipt returns the receipt of a transaction
func (e *Engine) Receipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var receipt *Receipt
	err := e.store.View(ctx, func(tx storage.Tx) error {
		r, err := tx.GetReceipt(ctx, hash.Hex())
		if err != nil {
			return mapNotFound(err)
		}
		receipt = receiptFromStorage(r)
		return nil
	})
	return receipt, err
}

// Receipts lists receipts newest first
func (e *Engine) Receipts(ctx context.Context, filter ReceiptFilter, pagination storage.PaginationParams) (*ReceiptList, error) {
	sf := storage.ReceiptFilter{Method: filter.Method}
	if filter.From != (common.Address{}) {
		sf.From = filter.From.Hex()
	}
	if filter.To != (common.Address{}) {
		sf.To = filter.To.Hex()
	}
	if filter.Status != nil {
		status := int(*filter.Status)
		sf.Status = &status
	}

	var list ReceiptList
	err := e.store.View(ctx, func(tx storage.Tx) error {
		result, err := tx.ListReceipts(ctx, sf, pagination)
		if err != nil {
			return err
		}
		list.Receipts = make([]Receipt, 0, len(result.Data))
		for i := range result.Data {
			list.Receipts = append(list.Receipts, *receiptFromStorage(&result.Data[i]))
		}
		list.HasMore = result.HasMore
		list.NextCursor = result.NextCursor
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// IsAccount reports whether address is a known dev account
func (e *Engine) IsAccount(ctx context.Context, address common.Address) (bool, error) {
	var known bool
	err := e.store.View(ctx, func(tx storage.Tx) error {
		_, err := tx.GetAccount(ctx, address.Hex())
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		known = true
		return nil
	})
	return known, err
}

func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
