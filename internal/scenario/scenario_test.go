package scenario

import (
	"context"
	"errors"
	"math/big"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/chain/chaintest"
	"github.com/leodarkseid/elkstaking/internal/config"
	"github.com/leodarkseid/elkstaking/internal/server"
	"github.com/leodarkseid/elkstaking/pkg/client"
)

func newNode(t *testing.T) *client.Client {
	t.Helper()
	cfg := &config.Config{
		Auth:     config.AuthConfig{Type: "none"},
		Security: config.SecurityConfig{MaxBodySizeKB: 64},
		Token:    config.TokenConfig{Name: "Elk", Symbol: "ELK", Decimals: 18, InitialSupply: "1000000"},
		Vault:    config.VaultConfig{PeriodSeconds: 31557600, BurnPolicy: config.BurnPolicyIndependent},
	}
	store := chaintest.NewStore(t)
	clock := chaintest.NewClock(chaintest.Genesis)
	engine := chain.New(store, chaintest.Config(), chaintest.Logger(), chain.WithClock(clock.Now))
	require.NoError(t, engine.Init(context.Background()))

	srv, err := server.New(cfg, store, engine, "test", chaintest.Logger())
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return client.New(ts.URL, "")
}

func TestBuiltins(t *testing.T) {
	assert.Equal(t, []string{"claim-after-year", "insurance", "reverts"}, Builtins())

	for _, name := range Builtins() {
		t.Run(name, func(t *testing.T) {
			s, err := Builtin(name)
			require.NoError(t, err)
			assert.Equal(t, name, s.Name)
		})
	}

	_, err := Builtin("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRun_Builtins(t *testing.T) {
	for _, name := range Builtins() {
		t.Run(name, func(t *testing.T) {
			c := newNode(t)
			s, err := Builtin(name)
			require.NoError(t, err)

			report, err := NewRunner(c, chaintest.Logger()).Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, report.Passed)
			assert.Len(t, report.Steps, len(s.Steps))
		})
	}
}

func TestRun_InsuranceYear(t *testing.T) {
	c := newNode(t)
	s, err := Builtin("insurance")
	require.NoError(t, err)

	report, err := NewRunner(c, chaintest.Logger()).Run(context.Background(), s)
	require.NoError(t, err)

	v, err := c.GetVault(context.Background(), report.Contracts["vault"])
	require.NoError(t, err)
	assert.Equal(t, int64(2023), v.InitialYear)
	assert.Equal(t, int64(2026), v.VaultYear)
}

func TestRun_Reverts(t *testing.T) {
	c := newNode(t)
	s, err := Builtin("reverts")
	require.NoError(t, err)

	report, err := NewRunner(c, chaintest.Logger()).Run(context.Background(), s)
	require.NoError(t, err)

	var reverted []string
	for _, step := range report.Steps {
		if step.Reverted != "" {
			reverted = append(reverted, step.Reverted)
			assert.Empty(t, step.TxHash)
		}
	}
	assert.Equal(t, []string{
		"ZERO_ADDRESS", "UNAUTHORIZED_CALLER", "UNAUTHORIZED_CALLER", "UNAUTHORIZED_CALLER",
		"INSUFFICIENT_ALLOWANCE", "INSUFFICIENT_BALANCE", "INSUFFICIENT_ALLOWANCE",
	}, reverted)
}

func TestRun_Failures(t *testing.T) {
	base := `
name: broken
accounts: {deployer: 0, recipient: 1}
steps:
  - {action: deployToken, from: deployer, as: elk}
  - {action: deployVault, from: deployer, token: elk, claimAmount: "1000", as: vault}
  - {action: setRecipient, from: deployer, vault: vault, recipient: recipient}
`
	tests := []struct {
		name    string
		step    string
		wantErr string
	}{
		{
			name:    "mismatched value",
			step:    `  - {name: wrong, action: expect, checks: [{value: availableAmount, vault: vault, equals: "999"}]}`,
			wantErr: `step 4 "wrong" (expect): availableAmount(vault) = 1000, want 999`,
		},
		{
			name:    "unexpected revert",
			step:    `  - {action: claim, from: deployer, vault: vault, amount: "1"}`,
			wantErr: "unexpected revert: UNAUTHORIZED_CALLER",
		},
		{
			name:    "wrong revert",
			step:    `  - {action: claim, from: deployer, vault: vault, amount: "1", revert: INSUFFICIENT_ALLOWANCE}`,
			wantErr: "reverted with UNAUTHORIZED_CALLER, want INSUFFICIENT_ALLOWANCE",
		},
		{
			name:    "missing revert",
			step:    `  - {action: claimAll, from: recipient, vault: vault, revert: UNAUTHORIZED_CALLER}`,
			wantErr: "succeeded, want revert UNAUTHORIZED_CALLER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(base + tt.step + "\n"))
			require.NoError(t, err)

			report, err := NewRunner(newNode(t), chaintest.Logger()).Run(context.Background(), s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.False(t, report.Passed)
			require.Len(t, report.Steps, 4)

			var stepErr *StepError
			require.True(t, errors.As(err, &stepErr))
			assert.Equal(t, 4, stepErr.Index)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"no name", "steps: [{action: increaseTime, seconds: 1}]", "name is required"},
		{"no steps", "name: x", "no steps"},
		{"unknown field", "name: x\nbogus: 1\nsteps: [{action: increaseTime, seconds: 1}]", "bogus"},
		{"unknown action", "name: x\nsteps: [{action: fly}]", `unknown action "fly"`},
		{"unknown name", "name: x\nsteps: [{action: claimAll, from: alice, vault: v}]", `unknown name "alice"`},
		{"bad amount", "name: x\naccounts: {a: 0}\nsteps: [{action: claim, from: a, vault: '0x01', amount: '-1'}]", "non-negative integer"},
		{"duplicate name", "name: x\naccounts: {a: 0}\nsteps: [{action: deployToken, from: a, as: a}]", "already defined"},
		{"as on transfer", "name: x\naccounts: {a: 0}\nsteps: [{action: transfer, from: a, token: a, to: a, amount: '1', as: t}]", "only valid on deploy"},
		{"seconds", "name: x\nsteps: [{action: increaseTime}]", "seconds must be positive"},
		{"unknown value", "name: x\nsteps: [{action: expect, checks: [{value: mood, vault: '0x01', equals: '1'}]}]", `unknown value "mood"`},
		{"revert on expect", "name: x\nsteps: [{action: expect, revert: X, checks: [{value: status, vault: '0x01', equals: Funded}]}]", "only valid on transaction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: file\nsteps: [{action: increaseTime, seconds: 60}]\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", s.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// stubDriver serves accounts and balances only
type stubDriver struct {
	Driver
	balance int64
}

func (s *stubDriver) Accounts(context.Context) ([]client.Account, error) {
	return []client.Account{{Address: "0x00000000000000000000000000000000000000a1"}}, nil
}

func (s *stubDriver) BalanceOf(context.Context, string, string) (*big.Int, error) {
	return big.NewInt(s.balance), nil
}

func TestRun_AccountOutOfRange(t *testing.T) {
	s, err := Parse([]byte("name: x\naccounts: {a: 3}\nsteps: [{action: expect, checks: [{value: balance, token: '0x01', holder: a, equals: '1'}]}]"))
	require.NoError(t, err)

	_, err = NewRunner(&stubDriver{}, chaintest.Logger()).Run(context.Background(), s)
	assert.ErrorContains(t, err, "index 3 out of range")
}

func TestRun_Stub(t *testing.T) {
	s, err := Parse([]byte("name: x\naccounts: {a: 0}\nsteps: [{action: expect, checks: [{value: balance, token: '0x01', holder: a, equals: '7'}]}]"))
	require.NoError(t, err)

	report, err := NewRunner(&stubDriver{balance: 7}, chaintest.Logger()).Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Steps[0].Checks)
}
