package domain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/chain/chaintest"
)

func newTestService(t *testing.T) (Service, *chain.Engine) {
	t.Helper()
	engine, _ := chaintest.NewEngine(t)
	svc := NewService(engine, Defaults{
		Name:          "Elk",
		Symbol:        "ELK",
		Decimals:      18,
		InitialSupply: big.NewInt(1_000_000),
	})
	return svc, engine
}

func deployToken(t *testing.T, svc Service, from common.Address) common.Address {
	t.Helper()
	r, err := svc.Deploy(context.Background(), from, DeployRequest{})
	require.NoError(t, err)
	require.NotNil(t, r.ContractAddress)
	return *r.ContractAddress
}

func TestDeploy(t *testing.T) {
	ctx := context.Background()
	svc, engine := newTestService(t)
	deployer := engine.DevAccounts()[0].Address

	t.Run("defaults", func(t *testing.T) {
		r, err := svc.Deploy(ctx, deployer, DeployRequest{})
		require.NoError(t, err)
		require.NotNil(t, r.ContractAddress)
		require.Len(t, r.Logs, 1)
		assert.Equal(t, EventTransfer, r.Logs[0].Event)
		assert.Equal(t, "1000000", r.Logs[0].Fields["value"])

		tk, err := svc.Metadata(ctx, *r.ContractAddress)
		require.NoError(t, err)
		assert.Equal(t, "Elk", tk.Name)
		assert.Equal(t, "ELK", tk.Symbol)
		assert.Equal(t, 18, tk.Decimals)
		assert.Equal(t, deployer, tk.Deployer)

		bal, err := svc.BalanceOf(ctx, *r.ContractAddress, deployer)
		require.NoError(t, err)
		assert.Equal(t, "1000000", bal.String())

		supply, err := svc.TotalSupply(ctx, *r.ContractAddress)
		require.NoError(t, err)
		assert.Equal(t, "1000000", supply.String())
	})

	t.Run("custom", func(t *testing.T) {
		decimals := 6
		r, err := svc.Deploy(ctx, deployer, DeployRequest{Name: "Test", Symbol: "TST", Decimals: &decimals, InitialSupply: big.NewInt(42)})
		require.NoError(t, err)

		tk, err := svc.Metadata(ctx, *r.ContractAddress)
		require.NoError(t, err)
		assert.Equal(t, "TST", tk.Symbol)
		assert.Equal(t, 6, tk.Decimals)
		assert.Equal(t, "42", tk.TotalSupply.String())
	})

	t.Run("invalid metadata", func(t *testing.T) {
		_, err := svc.Deploy(ctx, deployer, DeployRequest{Symbol: "lower"})
		assert.ErrorIs(t, err, ErrInvalidMetadata)

		_, err = svc.Deploy(ctx, deployer, DeployRequest{InitialSupply: big.NewInt(-1)})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("unknown deployer", func(t *testing.T) {
		_, err := svc.Deploy(ctx, common.HexToAddress("0x1"), DeployRequest{})
		assert.ErrorIs(t, err, chain.ErrUnknownAccount)
	})
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	svc, engine := newTestService(t)
	alice := engine.DevAccounts()[0].Address
	bob := engine.DevAccounts()[1].Address
	token := deployToken(t, svc, alice)

	tests := []struct {
		name       string
		from       common.Address
		to         common.Address
		amount     int64
		wantReason string
		wantAlice  string
		wantBob    string
	}{
		{"alice to bob", alice, bob, 20000, "", "980000", "20000"},
		{"bob back to alice", bob, alice, 5000, "", "985000", "15000"},
		{"self transfer", bob, bob, 15000, "", "985000", "15000"},
		{"zero amount", bob, alice, 0, "", "985000", "15000"},
		{"exceeds balance", bob, alice, 15001, ReasonInsufficientBalance, "985000", "15000"},
		{"to zero address", alice, common.Address{}, 1, ReasonZeroAddress, "985000", "15000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := svc.Transfer(ctx, tt.from, token, tt.to, big.NewInt(tt.amount))
			if tt.wantReason != "" {
				re, ok := chain.IsRevert(err)
				require.True(t, ok, "expected revert, got %v", err)
				assert.Equal(t, tt.wantReason, re.Reason)
				require.NotNil(t, r)
				assert.False(t, r.Succeeded())
			} else {
				require.NoError(t, err)
				assert.True(t, r.Succeeded())
				require.Len(t, r.Logs, 1)
				assert.Equal(t, token, r.Logs[0].Address)
			}

			a, err := svc.BalanceOf(ctx, token, alice)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAlice, a.String())
			b, err := svc.BalanceOf(ctx, token, bob)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBob, b.String())
		})
	}

	t.Run("errors", func(t *testing.T) {
		_, err := svc.Transfer(ctx, alice, token, bob, big.NewInt(-1))
		assert.ErrorIs(t, err, ErrInvalidAmount)

		missing := common.HexToAddress("0x00000000000000000000000000000000000000ff")
		_, err = svc.Transfer(ctx, alice, missing, bob, big.NewInt(1))
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = svc.BalanceOf(ctx, missing, alice)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = svc.Metadata(ctx, missing)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
