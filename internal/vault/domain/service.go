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
	tokendomain "github.com/leodarkseid/elkstaking/internal/token/domain"
	"github.com/leodarkseid/elkstaking/internal/validation"
)

// Vault methods as they appear in receipts
const (
	MethodSetRecipient    = "setRecipient"
	MethodClaim           = "claim"
	MethodClaimAll        = "claimAll"
	MethodBurn            = "burn"
	MethodUpdateVaultTime = "updateVaultTime"
)

// Chain is the part of the chain engine the vault service uses
type Chain interface {
	Transact(ctx context.Context, call chain.Call, fn chain.TxFunc) (*chain.Receipt, error)
	Deploy(ctx context.Context, from common.Address, kind string, params map[string]string, fn chain.TxFunc) (*chain.Receipt, error)
	View(ctx context.Context, fn func(storage.Tx) error) error
}

// Ledger moves tokens inside a running transaction
type Ledger interface {
	BalanceOf(ctx context.Context, tx storage.TokenStore, token, holder common.Address) (*big.Int, error)
	Transfer(c *chain.Context, token, from, to common.Address, amount *big.Int) error
}

// Service defines the vault service interface.
type Service interface {
	// Deploy deploys a vault owned by from. It holds no tokens until funded.
	Deploy(ctx context.Context, from common.Address, req DeployRequest) (*chain.Receipt, error)

	// SetRecipient sets the address allowed to claim and burn. Owner only.
	SetRecipient(ctx context.Context, from, vault, recipient common.Address) (*chain.Receipt, error)

	// Claim transfers amount to the recipient. Recipient only.
	Claim(ctx context.Context, from, vault common.Address, amount *big.Int) (*chain.Receipt, error)

	// ClaimAll claims everything currently claimable. Recipient only.
	ClaimAll(ctx context.Context, from, vault common.Address) (*chain.Receipt, error)

	// Burn writes amount off the withdrawable balance. Recipient only.
	Burn(ctx context.Context, from, vault common.Address, amount *big.Int) (*chain.Receipt, error)

	// UpdateVaultTime rolls the period forward once it has elapsed. Anyone may call it.
	UpdateVaultTime(ctx context.Context, from, vault common.Address) (*chain.Receipt, error)

	// Info returns the vault state with derived values.
	Info(ctx context.Context, vault common.Address) (*Info, error)

	AvailableAmount(ctx context.Context, vault common.Address) (*big.Int, error)
	WithdrawableBalance(ctx context.Context, vault common.Address) (*big.Int, error)
	BurnedTokens(ctx context.Context, vault common.Address) (*big.Int, error)
	VaultYear(ctx context.Context, vault common.Address) (int64, error)
	Recipient(ctx context.Context, vault common.Address) (common.Address, error)
}

// service implements the Service interface.
type service struct {
	chain    Chain
	ledger   Ledger
	defaults Defaults
}

// NewService creates a new vault service.
func NewService(c Chain, ledger Ledger, defaults Defaults) Service {
	if ledger == nil {
		ledger = tokendomain.Ledger{}
	}
	if defaults.BurnPolicy == "" {
		defaults.BurnPolicy = BurnIndependent
	}
	return &service{chain: c, ledger: ledger, defaults: defaults}
}

// Deploy deploys a vault owned by from.
func (s *service) Deploy(ctx context.Context, from common.Address, req DeployRequest) (*chain.Receipt, error) {
	if err := validation.ValidateAmount(req.ClaimAmount); err != nil {
		return nil, fmt.Errorf("%w: claim amount: %v", ErrInvalidAmount, err)
	}
	if req.Token == (common.Address{}) {
		return nil, ErrTokenNotFound
	}
	period := req.PeriodSeconds
	if period == 0 {
		period = s.defaults.PeriodSeconds
	}
	if period <= 0 {
		return nil, fmt.Errorf("%w: %d seconds", ErrInvalidPeriod, period)
	}
	policy := req.BurnPolicy
	if policy == "" {
		policy = s.defaults.BurnPolicy
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBurnPolicy, policy)
	}

	params := map[string]string{
		"token":         req.Token.Hex(),
		"claimAmount":   req.ClaimAmount.String(),
		"periodSeconds": strconv.FormatInt(period, 10),
		"burnPolicy":    string(policy),
	}
	receipt, err := s.chain.Deploy(ctx, from, Kind, params, func(c *chain.Context) error {
		if _, err := c.Tx.GetToken(c.Ctx, req.Token.Hex()); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrTokenNotFound, req.Token.Hex())
			}
			return fmt.Errorf("getting token: %w", err)
		}
		st := NewState(c.To, req.Token, from, req.ClaimAmount, period, int64(c.Block.Timestamp), policy)
		if err := c.Tx.PutVault(c.Ctx, st.toStorage()); err != nil {
			return fmt.Errorf("storing vault: %w", err)
		}
		return nil
	})
	metrics.ContractDeploy(Kind, chain.Outcome(err))
	return receipt, err
}

// SetRecipient sets the vault's recipient.
func (s *service) SetRecipient(ctx context.Context, from, vault, recipient common.Address) (*chain.Receipt, error) {
	args := map[string]string{"recipient": recipient.Hex()}
	return s.transact(ctx, from, vault, MethodSetRecipient, args, func(c *chain.Context, st *State) error {
		if err := st.SetRecipient(c.From, recipient); err != nil {
			return revert(err)
		}
		c.Emit(vault, EventRecipientSet, map[string]string{"recipient": recipient.Hex()})
		return nil
	})
}

// Claim transfers amount to the recipient.
func (s *service) Claim(ctx context.Context, from, vault common.Address, amount *big.Int) (*chain.Receipt, error) {
	if err := validation.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	args := map[string]string{"amount": amount.String()}
	return s.transact(ctx, from, vault, MethodClaim, args, func(c *chain.Context, st *State) error {
		balance, err := s.ledger.BalanceOf(c.Ctx, c.Tx, st.Token, vault)
		if err != nil {
			return err
		}
		if err := st.Claim(c.From, amount, balance); err != nil {
			return revert(err)
		}
		return s.payout(c, st, amount)
	})
}

// ClaimAll claims min(available, withdrawable). Claiming zero succeeds without a transfer.
func (s *service) ClaimAll(ctx context.Context, from, vault common.Address) (*chain.Receipt, error) {
	return s.transact(ctx, from, vault, MethodClaimAll, nil, func(c *chain.Context, st *State) error {
		balance, err := s.ledger.BalanceOf(c.Ctx, c.Tx, st.Token, vault)
		if err != nil {
			return err
		}
		amount := st.ClaimAllAmount(balance)
		if err := st.Claim(c.From, amount, balance); err != nil {
			return revert(err)
		}
		if amount.Sign() == 0 {
			return nil
		}
		return s.payout(c, st, amount)
	})
}

func (s *service) payout(c *chain.Context, st *State, amount *big.Int) error {
	if err := s.ledger.Transfer(c, st.Token, st.Address, st.Recipient, amount); err != nil {
		return err
	}
	c.Emit(st.Address, EventClaimed, map[string]string{
		"recipient": st.Recipient.Hex(),
		"amount":    amount.String(),
	})
	return nil
}

// Burn writes amount off the withdrawable balance.
func (s *service) Burn(ctx context.Context, from, vault common.Address, amount *big.Int) (*chain.Receipt, error) {
	if err := validation.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	args := map[string]string{"amount": amount.String()}
	return s.transact(ctx, from, vault, MethodBurn, args, func(c *chain.Context, st *State) error {
		balance, err := s.ledger.BalanceOf(c.Ctx, c.Tx, st.Token, vault)
		if err != nil {
			return err
		}
		if err := st.Burn(c.From, amount, balance); err != nil {
			return revert(err)
		}
		c.Emit(vault, EventBurned, map[string]string{
			"amount":       amount.String(),
			"burnedTokens": st.BurnedTokens.String(),
		})
		return nil
	})
}

// UpdateVaultTime advances the vault year by every elapsed period.
func (s *service) UpdateVaultTime(ctx context.Context, from, vault common.Address) (*chain.Receipt, error) {
	return s.transact(ctx, from, vault, MethodUpdateVaultTime, nil, func(c *chain.Context, st *State) error {
		periods := st.Advance(int64(c.Block.Timestamp))
		if periods > 0 {
			c.Emit(vault, EventVaultYearAdvanced, map[string]string{
				"periods":   strconv.FormatInt(periods, 10),
				"vaultYear": strconv.FormatInt(st.VaultYear, 10),
			})
		}
		return nil
	})
}

// transact loads the vault, runs fn against it and persists the result in one transaction
func (s *service) transact(ctx context.Context, from, vault common.Address, method string, args map[string]string, fn func(c *chain.Context, st *State) error) (*chain.Receipt, error) {
	if args == nil {
		args = map[string]string{}
	}
	call := chain.Call{From: from, To: vault, Method: method, Args: args}
	receipt, err := s.chain.Transact(ctx, call, func(c *chain.Context) error {
		st, err := loadState(c.Ctx, c.Tx, vault)
		if err != nil {
			return err
		}
		if err := fn(c, st); err != nil {
			return err
		}
		if err := c.Tx.PutVault(c.Ctx, st.toStorage()); err != nil {
			return fmt.Errorf("storing vault: %w", err)
		}
		return nil
	})
	metrics.VaultOperation(method, chain.Outcome(err))
	return receipt, err
}

func loadState(ctx context.Context, tx storage.VaultStore, vault common.Address) (*State, error) {
	v, err := tx.GetVault(ctx, vault.Hex())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting vault: %w", err)
	}
	return stateFromStorage(v), nil
}

// Info returns the vault state with derived values.
func (s *service) Info(ctx context.Context, vault common.Address) (*Info, error) {
	var info *Info
	err := s.chain.View(ctx, func(tx storage.Tx) error {
		st, err := loadState(ctx, tx, vault)
		if err != nil {
			return err
		}
		balance, err := s.ledger.BalanceOf(ctx, tx, st.Token, vault)
		if err != nil {
			return err
		}
		info = newInfo(st, balance)
		return nil
	})
	return info, err
}

func (s *service) AvailableAmount(ctx context.Context, vault common.Address) (*big.Int, error) {
	info, err := s.Info(ctx, vault)
	if err != nil {
		return nil, err
	}
	return info.AvailableAmount, nil
}

func (s *service) WithdrawableBalance(ctx context.Context, vault common.Address) (*big.Int, error) {
	info, err := s.Info(ctx, vault)
	if err != nil {
		return nil, err
	}
	return info.WithdrawableBalance, nil
}

func (s *service) BurnedTokens(ctx context.Context, vault common.Address) (*big.Int, error) {
	info, err := s.Info(ctx, vault)
	if err != nil {
		return nil, err
	}
	return info.BurnedTokens, nil
}

func (s *service) VaultYear(ctx context.Context, vault common.Address) (int64, error) {
	info, err := s.Info(ctx, vault)
	if err != nil {
		return 0, err
	}
	return info.VaultYear, nil
}

// Recipient returns the zero address while no recipient is set.
func (s *service) Recipient(ctx context.Context, vault common.Address) (common.Address, error) {
	info, err := s.Info(ctx, vault)
	if err != nil {
		return common.Address{}, err
	}
	if info.Recipient == nil {
		return common.Address{}, nil
	}
	return *info.Recipient, nil
}
