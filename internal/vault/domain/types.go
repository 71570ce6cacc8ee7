package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Kind is the contract kind of insurance vaults
const Kind = "vault"

// Events emitted by the vault
const (
	EventRecipientSet      = "RecipientSet"
	EventClaimed           = "Claimed"
	EventBurned            = "Burned"
	EventVaultYearAdvanced = "VaultYearAdvanced"
)

// DeployRequest configures a new vault. Zero values take the service defaults.
type DeployRequest struct {
	Token         common.Address
	ClaimAmount   *big.Int
	PeriodSeconds int64
	BurnPolicy    BurnPolicy
}

// Defaults applied to deploy requests
type Defaults struct {
	PeriodSeconds int64
	BurnPolicy    BurnPolicy
}

// Info is a snapshot of a vault's state and derived values
type Info struct {
	Address             common.Address
	Token               common.Address
	Owner               common.Address
	Recipient           *common.Address
	ClaimAmount         *big.Int
	AvailableAmount     *big.Int
	ClaimedThisPeriod   *big.Int
	BurnedThisPeriod    *big.Int
	BurnedTokens        *big.Int
	Balance             *big.Int
	WithdrawableBalance *big.Int
	VaultYear           int64
	InitialYear         int64
	PeriodSeconds       int64
	PeriodStart         int64
	NextPeriodAt        int64
	BurnPolicy          BurnPolicy
	Status              Status
}

func newInfo(s *State, balance *big.Int) *Info {
	info := &Info{
		Address:             s.Address,
		Token:               s.Token,
		Owner:               s.Owner,
		ClaimAmount:         s.ClaimAmount,
		AvailableAmount:     s.AvailableAmount(),
		ClaimedThisPeriod:   s.ClaimedThisPeriod,
		BurnedThisPeriod:    s.BurnedThisPeriod,
		BurnedTokens:        s.BurnedTokens,
		Balance:             balance,
		WithdrawableBalance: s.WithdrawableBalance(balance),
		VaultYear:           s.VaultYear,
		InitialYear:         s.InitialYear,
		PeriodSeconds:       s.PeriodSeconds,
		PeriodStart:         s.PeriodStart,
		NextPeriodAt:        s.NextPeriodAt(),
		BurnPolicy:          s.BurnPolicy,
		Status:              s.Status(),
	}
	if s.Recipient != (common.Address{}) {
		r := s.Recipient
		info.Recipient = &r
	}
	return info
}
