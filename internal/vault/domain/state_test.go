package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const year = 31_557_600

var (
	owner     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	recipient = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	stranger  = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func newTestState(policy BurnPolicy) *State {
	ts := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC).Unix()
	s := NewState(common.Address{1}, common.Address{2}, owner, big.NewInt(1000), year, ts, policy)
	s.Recipient = recipient
	return s
}

func TestNewState(t *testing.T) {
	s := NewState(common.Address{1}, common.Address{2}, owner, big.NewInt(1000), year, time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC).Unix(), BurnIndependent)
	assert.Equal(t, int64(2024), s.InitialYear)
	assert.Equal(t, int64(2024), s.VaultYear)
	assert.Equal(t, "1000", s.AvailableAmount().String())
	assert.Equal(t, StatusFunded, s.Status())
	assert.Equal(t, common.Address{}, s.Recipient)
}

func TestSetRecipient(t *testing.T) {
	s := newTestState(BurnIndependent)

	assert.ErrorIs(t, s.SetRecipient(stranger, stranger), ErrUnauthorized)
	assert.ErrorIs(t, s.SetRecipient(recipient, stranger), ErrUnauthorized)
	assert.ErrorIs(t, s.SetRecipient(owner, common.Address{}), ErrZeroAddress)
	assert.Equal(t, recipient, s.Recipient)

	require.NoError(t, s.SetRecipient(owner, stranger))
	assert.Equal(t, stranger, s.Recipient)
}

func TestClaim(t *testing.T) {
	tests := []struct {
		name      string
		caller    common.Address
		amount    int64
		balance   int64
		wantErr   error
		wantAvail string
	}{
		{"within allowance", recipient, 900, 20000, nil, "100"},
		{"whole allowance", recipient, 1000, 20000, nil, "0"},
		{"zero", recipient, 0, 20000, nil, "1000"},
		{"over allowance", recipient, 1001, 20000, ErrInsufficientAllowance, "1000"},
		{"over balance", recipient, 600, 500, ErrInsufficientBalance, "1000"},
		{"owner", owner, 1, 20000, ErrUnauthorized, "1000"},
		{"stranger", stranger, 1, 20000, ErrUnauthorized, "1000"},
		{"negative", recipient, -1, 20000, ErrInvalidAmount, "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestState(BurnIndependent)
			err := s.Claim(tt.caller, big.NewInt(tt.amount), big.NewInt(tt.balance))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantAvail, s.AvailableAmount().String())
		})
	}

	t.Run("no recipient", func(t *testing.T) {
		s := newTestState(BurnIndependent)
		s.Recipient = common.Address{}
		assert.ErrorIs(t, s.Claim(common.Address{}, big.NewInt(1), big.NewInt(10)), ErrUnauthorized)
	})
}

func TestBurn(t *testing.T) {
	t.Run("independent", func(t *testing.T) {
		s := newTestState(BurnIndependent)
		require.NoError(t, s.Claim(recipient, big.NewInt(1000), big.NewInt(20000)))

		// allowance is spent but burns are bounded by the balance only
		require.NoError(t, s.Burn(recipient, big.NewInt(5000), big.NewInt(19000)))
		assert.Equal(t, "5000", s.BurnedTokens.String())
		assert.Equal(t, "14000", s.WithdrawableBalance(big.NewInt(19000)).String())
		assert.Equal(t, "0", s.AvailableAmount().String())

		assert.ErrorIs(t, s.Burn(recipient, big.NewInt(14001), big.NewInt(19000)), ErrInsufficientBalance)
		assert.ErrorIs(t, s.Burn(owner, big.NewInt(1), big.NewInt(19000)), ErrUnauthorized)
	})

	t.Run("allowance", func(t *testing.T) {
		s := newTestState(BurnAllowance)
		require.NoError(t, s.Burn(recipient, big.NewInt(300), big.NewInt(20000)))
		assert.Equal(t, "700", s.AvailableAmount().String())
		assert.Equal(t, "19700", s.WithdrawableBalance(big.NewInt(20000)).String())

		assert.ErrorIs(t, s.Burn(recipient, big.NewInt(701), big.NewInt(20000)), ErrInsufficientAllowance)
		assert.ErrorIs(t, s.Claim(recipient, big.NewInt(701), big.NewInt(20000)), ErrInsufficientAllowance)
		require.NoError(t, s.Claim(recipient, big.NewInt(700), big.NewInt(20000)))
		assert.Equal(t, StatusExhausted, s.Status())
	})
}

func TestClaimAllAmount(t *testing.T) {
	s := newTestState(BurnIndependent)
	assert.Equal(t, "1000", s.ClaimAllAmount(big.NewInt(20000)).String())
	assert.Equal(t, "400", s.ClaimAllAmount(big.NewInt(400)).String())

	s.BurnedTokens = big.NewInt(500)
	assert.Equal(t, "0", s.ClaimAllAmount(big.NewInt(400)).String())
	assert.Equal(t, "0", s.WithdrawableBalance(big.NewInt(400)).String())
}

func TestAdvance(t *testing.T) {
	s := newTestState(BurnAllowance)
	start := s.PeriodStart
	require.NoError(t, s.Claim(recipient, big.NewInt(600), big.NewInt(20000)))
	require.NoError(t, s.Burn(recipient, big.NewInt(400), big.NewInt(19400)))
	require.Equal(t, StatusExhausted, s.Status())

	assert.Equal(t, int64(0), s.Advance(start+year-1))
	assert.Equal(t, int64(2023), s.VaultYear)
	assert.Equal(t, "0", s.AvailableAmount().String())

	assert.Equal(t, int64(2), s.Advance(start+70_000_000))
	assert.Equal(t, int64(2025), s.VaultYear)
	assert.Equal(t, start+2*year, s.PeriodStart)
	assert.Equal(t, "1000", s.AvailableAmount().String())
	assert.Equal(t, "400", s.BurnedTokens.String(), "lifetime burns survive the period")
	assert.Equal(t, StatusFunded, s.Status())

	assert.Equal(t, int64(0), s.Advance(start+70_000_000))
	assert.Equal(t, int64(1), s.Advance(s.NextPeriodAt()))
	assert.Equal(t, int64(2026), s.VaultYear)
}
