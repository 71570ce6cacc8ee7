package domain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/observability/metrics"
	"github.com/leodarkseid/elkstaking/internal/storage"
	"github.com/leodarkseid/elkstaking/internal/validation"
)

// Common errors returned by the token service.
var (
	ErrNotFound            = errors.New("token not found")
	ErrInsufficientBalance = errors.New("ERC20: transfer amount exceeds balance")
	ErrZeroAddress         = errors.New("ERC20: transfer to the zero address")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidMetadata     = errors.New("invalid token metadata")
)

// Chain is the part of the chain engine the token service uses
type Chain interface {
	Transact(ctx context.Context, call chain.Call, fn chain.TxFunc) (*chain.Receipt, error)
	Deploy(ctx context.Context, from common.Address, kind string, params map[string]string, fn chain.TxFunc) (*chain.Receipt, error)
	View(ctx context.Context, fn func(storage.Tx) error) error
}

// Service defines the token service interface.
type Service interface {
	// Deploy deploys a token and mints the whole supply to from.
	Deploy(ctx context.Context, from common.Address, req DeployRequest) (*chain.Receipt, error)

	// Transfer transfers amount from from to to.
	Transfer(ctx context.Context, from, token, to common.Address, amount *big.Int) (*chain.Receipt, error)

	// BalanceOf returns holder's balance.
	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)

	// TotalSupply returns the token's total supply.
	TotalSupply(ctx context.Context, token common.Address) (*big.Int, error)

	// Metadata returns the token's metadata.
	Metadata(ctx context.Context, token common.Address) (*Token, error)
}

// service implements the Service interface.
type service struct {
	chain    Chain
	ledger   Ledger
	defaults Defaults
}

// NewService creates a new token service.
func NewService(c Chain, defaults Defaults) Service {
	if defaults.InitialSupply == nil {
		defaults.InitialSupply = new(big.Int)
	}
	return &service{chain: c, defaults: defaults}
}

// Deploy deploys a token and mints the whole supply to from.
func (s *service) Deploy(ctx context.Context, from common.Address, req DeployRequest) (*chain.Receipt, error) {
	tk := storage.Token{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Decimals:    s.defaults.Decimals,
		TotalSupply: req.InitialSupply,
	}
	if tk.Name == "" {
		tk.Name = s.defaults.Name
	}
	if tk.Symbol == "" {
		tk.Symbol = s.defaults.Symbol
	}
	if req.Decimals != nil {
		tk.Decimals = *req.Decimals
	}
	if tk.TotalSupply == nil {
		tk.TotalSupply = new(big.Int).Set(s.defaults.InitialSupply)
	}

	if err := validation.ValidateTokenName(tk.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if err := validation.ValidateTokenSymbol(tk.Symbol); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if tk.Decimals < 0 || tk.Decimals > 77 {
		return nil, fmt.Errorf("%w: decimals must be between 0 and 77", ErrInvalidMetadata)
	}
	if err := validation.ValidateAmount(tk.TotalSupply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	params := map[string]string{
		"name":          tk.Name,
		"symbol":        tk.Symbol,
		"decimals":      strconv.Itoa(tk.Decimals),
		"initialSupply": tk.TotalSupply.String(),
	}
	receipt, err := s.chain.Deploy(ctx, from, Kind, params, func(c *chain.Context) error {
		tk.Address = c.To.Hex()
		if err := c.Tx.CreateToken(c.Ctx, &tk); err != nil {
			return fmt.Errorf("creating token: %w", err)
		}
		if err := c.Tx.SetBalance(c.Ctx, tk.Address, from.Hex(), tk.TotalSupply); err != nil {
			return fmt.Errorf("minting supply: %w", err)
		}
		c.Emit(c.To, EventTransfer, map[string]string{
			"from":  common.Address{}.Hex(),
			"to":    from.Hex(),
			"value": tk.TotalSupply.String(),
		})
		return nil
	})
	metrics.ContractDeploy(Kind, chain.Outcome(err))
	return receipt, err
}

// Transfer transfers amount from from to to.
func (s *service) Transfer(ctx context.Context, from, token, to common.Address, amount *big.Int) (*chain.Receipt, error) {
	if err := validation.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	call := chain.Call{
		From:   from,
		To:     token,
		Method: "transfer",
		Args:   map[string]string{"to": to.Hex(), "amount": amount.String()},
	}
	receipt, err := s.chain.Transact(ctx, call, func(c *chain.Context) error {
		return s.ledger.Transfer(c, token, from, to, amount)
	})
	metrics.TokenTransfer(chain.Outcome(err))
	return receipt, err
}

// BalanceOf returns holder's balance.
func (s *service) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	var balance *big.Int
	err := s.chain.View(ctx, func(tx storage.Tx) error {
		var err error
		balance, err = s.ledger.BalanceOf(ctx, tx, token, holder)
		return err
	})
	return balance, err
}

// TotalSupply returns the token's total supply.
func (s *service) TotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	tk, err := s.Metadata(ctx, token)
	if err != nil {
		return nil, err
	}
	return tk.TotalSupply, nil
}

// Metadata returns the token's metadata.
func (s *service) Metadata(ctx context.Context, token common.Address) (*Token, error) {
	var out *Token
	err := s.chain.View(ctx, func(tx storage.Tx) error {
		tk, err := tx.GetToken(ctx, token.Hex())
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("getting token: %w", err)
		}
		c, err := tx.GetContract(ctx, token.Hex())
		if err != nil {
			return fmt.Errorf("getting contract: %w", err)
		}
		out = &Token{
			Address:     common.HexToAddress(tk.Address),
			Name:        tk.Name,
			Symbol:      tk.Symbol,
			Decimals:    tk.Decimals,
			TotalSupply: tk.TotalSupply,
			Deployer:    common.HexToAddress(c.Deployer),
			BlockNumber: uint64(c.BlockNumber),
		}
		return nil
	})
	return out, err
}
