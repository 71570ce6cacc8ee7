// Package domain contains the insurance vault: a token custody contract that
// releases a bounded amount per period to one recipient and lets the
// recipient write tokens off through burn.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/leodarkseid/elkstaking/internal/storage"
)

// BurnPolicy decides how burns interact with the period allowance
type BurnPolicy string

const (
	// BurnIndependent bounds burns by the withdrawable balance only
	BurnIndependent BurnPolicy = "independent"
	// BurnAllowance bounds burns by the available amount and consumes it
	BurnAllowance BurnPolicy = "allowance"
)

// Valid reports whether p is a known policy
func (p BurnPolicy) Valid() bool {
	return p == BurnIndependent || p == BurnAllowance
}

// Status is the vault's position in the period state machine
type Status string

const (
	StatusFunded    Status = "Funded"
	StatusExhausted Status = "Exhausted"
)

// State is the vault's persisted state. Its methods check and apply one
// operation each; the service moves tokens and persists the result.
type State struct {
	Address           common.Address
	Token             common.Address
	Owner             common.Address
	Recipient         common.Address
	ClaimAmount       *big.Int
	PeriodSeconds     int64
	PeriodStart       int64
	InitialYear       int64
	VaultYear         int64
	BurnedTokens      *big.Int
	ClaimedThisPeriod *big.Int
	BurnedThisPeriod  *big.Int
	BurnPolicy        BurnPolicy
}

// NewState returns the state of a vault deployed at timestamp
func NewState(address, token, owner common.Address, claimAmount *big.Int, periodSeconds, timestamp int64, policy BurnPolicy) *State {
	year := int64(time.Unix(timestamp, 0).UTC().Year())
	return &State{
		Address:           address,
		Token:             token,
		Owner:             owner,
		ClaimAmount:       new(big.Int).Set(claimAmount),
		PeriodSeconds:     periodSeconds,
		PeriodStart:       timestamp,
		InitialYear:       year,
		VaultYear:         year,
		BurnedTokens:      new(big.Int),
		ClaimedThisPeriod: new(big.Int),
		BurnedThisPeriod:  new(big.Int),
		BurnPolicy:        policy,
	}
}

// AvailableAmount is what may still be claimed this period, floored at zero
func (s *State) AvailableAmount() *big.Int {
	used := new(big.Int).Set(s.ClaimedThisPeriod)
	if s.BurnPolicy == BurnAllowance {
		used.Add(used, s.BurnedThisPeriod)
	}
	avail := used.Sub(s.ClaimAmount, used)
	if avail.Sign() < 0 {
		return new(big.Int)
	}
	return avail
}

// WithdrawableBalance is the ledger balance minus lifetime burned tokens
func (s *State) WithdrawableBalance(balance *big.Int) *big.Int {
	w := new(big.Int).Sub(balance, s.BurnedTokens)
	if w.Sign() < 0 {
		return new(big.Int)
	}
	return w
}

// Status reports Funded while allowance remains in the current period
func (s *State) Status() Status {
	if s.AvailableAmount().Sign() > 0 {
		return StatusFunded
	}
	return StatusExhausted
}

// NextPeriodAt is the earliest timestamp at which the period can advance
func (s *State) NextPeriodAt() int64 {
	return s.PeriodStart + s.PeriodSeconds
}

// SetRecipient replaces the recipient. Only the owner may call it.
func (s *State) SetRecipient(caller, recipient common.Address) error {
	if caller != s.Owner {
		return ErrUnauthorized
	}
	if recipient == (common.Address{}) {
		return ErrZeroAddress
	}
	s.Recipient = recipient
	return nil
}

func (s *State) authorize(caller common.Address) error {
	if s.Recipient == (common.Address{}) || caller != s.Recipient {
		return ErrUnauthorized
	}
	return nil
}

// Claim books amount against the period allowance given the vault's ledger balance
func (s *State) Claim(caller common.Address, amount, balance *big.Int) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Cmp(s.AvailableAmount()) > 0 {
		return ErrInsufficientAllowance
	}
	if amount.Cmp(s.WithdrawableBalance(balance)) > 0 {
		return ErrInsufficientBalance
	}
	s.ClaimedThisPeriod = new(big.Int).Add(s.ClaimedThisPeriod, amount)
	return nil
}

// ClaimAllAmount is what claimAll transfers: the allowance capped by the withdrawable balance
func (s *State) ClaimAllAmount(balance *big.Int) *big.Int {
	avail := s.AvailableAmount()
	if w := s.WithdrawableBalance(balance); w.Cmp(avail) < 0 {
		return w
	}
	return avail
}

// Burn writes amount off the withdrawable balance. The ledger is untouched.
func (s *State) Burn(caller common.Address, amount, balance *big.Int) error {
	if err := s.authorize(caller); err != nil {
		return err
	}
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if s.BurnPolicy == BurnAllowance && amount.Cmp(s.AvailableAmount()) > 0 {
		return ErrInsufficientAllowance
	}
	if amount.Cmp(s.WithdrawableBalance(balance)) > 0 {
		return ErrInsufficientBalance
	}
	s.BurnedTokens = new(big.Int).Add(s.BurnedTokens, amount)
	s.BurnedThisPeriod = new(big.Int).Add(s.BurnedThisPeriod, amount)
	return nil
}

// Advance moves the period forward by every whole period elapsed at now and
// resets the period counters. It returns the number of periods advanced;
// zero leaves the state untouched.
func (s *State) Advance(now int64) int64 {
	if s.PeriodSeconds <= 0 {
		return 0
	}
	elapsed := now - s.PeriodStart
	if elapsed < s.PeriodSeconds {
		return 0
	}
	periods := elapsed / s.PeriodSeconds
	s.PeriodStart += periods * s.PeriodSeconds
	s.VaultYear += periods
	s.ClaimedThisPeriod = new(big.Int)
	s.BurnedThisPeriod = new(big.Int)
	return periods
}

func stateFromStorage(v *storage.Vault) *State {
	s := &State{
		Address:           common.HexToAddress(v.Address),
		Token:             common.HexToAddress(v.Token),
		Owner:             common.HexToAddress(v.Owner),
		ClaimAmount:       v.ClaimAmount,
		PeriodSeconds:     v.PeriodSeconds,
		PeriodStart:       v.PeriodStart,
		InitialYear:       v.InitialYear,
		VaultYear:         v.VaultYear,
		BurnedTokens:      v.BurnedTokens,
		ClaimedThisPeriod: v.ClaimedThisPeriod,
		BurnedThisPeriod:  v.BurnedThisPeriod,
		BurnPolicy:        BurnPolicy(v.BurnPolicy),
	}
	if v.Recipient != "" {
		s.Recipient = common.HexToAddress(v.Recipient)
	}
	return s
}

func (s *State) toStorage() *storage.Vault {
	v := &storage.Vault{
		Address:           s.Address.Hex(),
		Token:             s.Token.Hex(),
		Owner:             s.Owner.Hex(),
		ClaimAmount:       s.ClaimAmount,
		PeriodSeconds:     s.PeriodSeconds,
		PeriodStart:       s.PeriodStart,
		InitialYear:       s.InitialYear,
		VaultYear:         s.VaultYear,
		BurnedTokens:      s.BurnedTokens,
		ClaimedThisPeriod: s.ClaimedThisPeriod,
		BurnedThisPeriod:  s.BurnedThisPeriod,
		BurnPolicy:        string(s.BurnPolicy),
	}
	if s.Recipient != (common.Address{}) {
		v.Recipient = s.Recipient.Hex()
	}
	return v
}
