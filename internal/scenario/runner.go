package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/leodarkseid/elkstaking/pkg/client"
)

// Driver is the node API a scenario runs against. *client.Client implements it.
type Driver interface {
	Accounts(ctx context.Context) ([]client.Account, error)
	DeployToken(ctx context.Context, req client.DeployTokenRequest) (*client.Receipt, error)
	DeployVault(ctx context.Context, req client.DeployVaultRequest) (*client.Receipt, error)
	Transfer(ctx context.Context, from, token, to string, amount *big.Int) (*client.Receipt, error)
	SetRecipient(ctx context.Context, from, vault, recipient string) (*client.Receipt, error)
	Claim(ctx context.Context, from, vault string, amount *big.Int) (*client.Receipt, error)
	ClaimAll(ctx context.Context, from, vault string) (*client.Receipt, error)
	Burn(ctx context.Context, from, vault string, amount *big.Int) (*client.Receipt, error)
	UpdateVaultTime(ctx context.Context, from, vault string) (*client.Receipt, error)
	IncreaseTime(ctx context.Context, seconds int64) (*client.Head, error)
	BalanceOf(ctx context.Context, token, holder string) (*big.Int, error)
	GetVault(ctx context.Context, vault string) (*client.Vault, error)
}

// StepResult is the outcome of one step
type StepResult struct {
	Index    int           `json:"index"`
	Name     string        `json:"name"`
	Action   string        `json:"action"`
	TxHash   string        `json:"txHash,omitempty"`
	Reverted string        `json:"reverted,omitempty"`
	Checks   int           `json:"checks,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report is the outcome of a run
type Report struct {
	Scenario  string            `json:"scenario"`
	Passed    bool              `json:"passed"`
	Contracts map[string]string `json:"contracts"`
	Steps     []StepResult      `json:"steps"`
}

// StepError is returned when a step does not behave as the scenario expects
type StepError struct {
	Index  int
	Name   string
	Action string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d %q (%s): %v", e.Index, e.Name, e.Action, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes scenarios
type Runner struct {
	driver Driver
	logger *slog.Logger
}

// NewRunner creates a runner
func NewRunner(driver Driver, logger *slog.Logger) *Runner {
	return &Runner{driver: driver, logger: logger}
}

type run struct {
	driver Driver
	names  map[string]string
	report *Report
}

// Run executes the steps in order and stops at the first failing step. The
// report covers every step attempted.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Report, error) {
	report := &Report{Scenario: s.Name, Contracts: make(map[string]string)}

	accounts, err := r.driver.Accounts(ctx)
	if err != nil {
		return report, fmt.Errorf("listing accounts: %w", err)
	}
	st := &run{driver: r.driver, names: make(map[string]string), report: report}
	for name, index := range s.Accounts {
		if index >= len(accounts) {
			return report, fmt.Errorf("account %s: index %d out of range (node has %d)", name, index, len(accounts))
		}
		st.names[name] = accounts[index].Address
	}

	for i, step := range s.Steps {
		start := time.Now()
		result := StepResult{Index: i + 1, Name: step.Label(), Action: step.Action}
		serr := st.step(ctx, step, &result)
		result.Duration = time.Since(start)
		if serr != nil {
			result.Error = serr.Error()
		}
		report.Steps = append(report.Steps, result)

		if serr != nil {
			r.logger.Warn("scenario step failed", "scenario", s.Name, "step", result.Index, "name", result.Name, "error", serr)
			return report, &StepError{Index: result.Index, Name: result.Name, Action: step.Action, Err: serr}
		}
		r.logger.Debug("scenario step passed", "scenario", s.Name, "step", result.Index, "name", result.Name,
			"tx", result.TxHash, "duration", result.Duration)
	}

	report.Passed = true
	r.logger.Info("scenario passed", "scenario", s.Name, "steps", len(report.Steps))
	return report, nil
}

func (st *run) resolve(name string) string {
	if addr, ok := st.names[name]; ok {
		return addr
	}
	return name
}

func (st *run) step(ctx context.Context, step Step, result *StepResult) error {
	if step.Action == ActionExpect {
		for _, c := range step.Checks {
			if err := st.check(ctx, c); err != nil {
				return err
			}
			result.Checks++
		}
		return nil
	}
	if step.Action == ActionIncreaseTime {
		_, err := st.driver.IncreaseTime(ctx, step.Seconds)
		return err
	}

	receipt, err := st.transact(ctx, step)
	if reason, reverted := client.RevertReason(err); reverted {
		result.Reverted = reason
		if step.Revert == "" {
			return fmt.Errorf("unexpected revert: %s", reason)
		}
		if reason != step.Revert {
			return fmt.Errorf("reverted with %s, want %s", reason, step.Revert)
		}
		return nil
	}
	if err != nil {
		return err
	}
	result.TxHash = receipt.TxHash
	if step.Revert != "" {
		return fmt.Errorf("succeeded, want revert %s", step.Revert)
	}

	if step.As != "" {
		if receipt.ContractAddress == "" {
			return fmt.Errorf("receipt %s has no contract address", receipt.TxHash)
		}
		st.names[step.As] = receipt.ContractAddress
		st.report.Contracts[step.As] = receipt.ContractAddress
	}
	return nil
}

func (st *run) transact(ctx context.Context, step Step) (*client.Receipt, error) {
	from := st.resolve(step.From)
	vault := st.resolve(step.Vault)
	amount, _ := new(big.Int).SetString(step.Amount, 10)

	switch step.Action {
	case ActionDeployToken:
		return st.driver.DeployToken(ctx, client.DeployTokenRequest{From: from, InitialSupply: step.InitialSupply})
	case ActionDeployVault:
		return st.driver.DeployVault(ctx, client.DeployVaultRequest{
			From:          from,
			Token:         st.resolve(step.Token),
			ClaimAmount:   step.ClaimAmount,
			PeriodSeconds: step.PeriodSeconds,
			BurnPolicy:    step.BurnPolicy,
		})
	case ActionTransfer:
		return st.driver.Transfer(ctx, from, st.resolve(step.Token), st.resolve(step.To), amount)
	case ActionSetRecipient:
		return st.driver.SetRecipient(ctx, from, vault, st.resolve(step.Recipient))
	case ActionClaim:
		return st.driver.Claim(ctx, from, vault, amount)
	case ActionClaimAll:
		return st.driver.ClaimAll(ctx, from, vault)
	case ActionBurn:
		return st.driver.Burn(ctx, from, vault, amount)
	case ActionUpdateVaultTime:
		return st.driver.UpdateVaultTime(ctx, from, vault)
	}
	return nil, fmt.Errorf("unknown action %q", step.Action)
}

func (st *run) check(ctx context.Context, c Check) error {
	var got string
	if c.Value == ValueBalance {
		balance, err := st.driver.BalanceOf(ctx, st.resolve(c.Token), st.resolve(c.Holder))
		if err != nil {
			return err
		}
		got = balance.String()
	} else {
		v, err := st.driver.GetVault(ctx, st.resolve(c.Vault))
		if err != nil {
			return err
		}
		got = vaultValue(v, c.Value)
	}

	want := c.Equals
	if c.Value == ValueRecipient {
		want = st.resolve(want)
		if strings.EqualFold(got, want) {
			return nil
		}
	} else if got == want {
		return nil
	}
	return fmt.Errorf("%s = %s, want %s", c, got, c.Equals)
}

func vaultValue(v *client.Vault, value string) string {
	switch value {
	case ValueAvailableAmount:
		return v.AvailableAmount
	case ValueWithdrawableBalance:
		return v.WithdrawableBalance
	case ValueBurnedTokens:
		return v.BurnedTokens
	case ValueClaimedThisPeriod:
		return v.ClaimedThisPeriod
	case ValueVaultYear:
		return strconv.FormatInt(v.VaultYear, 10)
	case ValueYearsElapsed:
		return strconv.FormatInt(v.VaultYear-v.InitialYear, 10)
	case ValueRecipient:
		return v.Recipient
	case ValueStatus:
		return v.Status
	}
	return ""
}
