// Package scenario runs scripted contract flows against an elkstaking node.
//
// A scenario names dev accounts and the contracts it deploys, then drives
// them through a list of steps. Transaction steps may expect a revert and
// expect steps compare on-chain values against fixture values.
package scenario

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Actions
const (
	ActionDeployToken     = "deployToken"
	ActionDeployVault     = "deployVault"
	ActionTransfer        = "transfer"
	ActionSetRecipient    = "setRecipient"
	ActionClaim           = "claim"
	ActionClaimAll        = "claimAll"
	ActionBurn            = "burn"
	ActionIncreaseTime    = "increaseTime"
	ActionUpdateVaultTime = "updateVaultTime"
	ActionExpect          = "expect"
)

// Values readable by expect checks
const (
	ValueBalance             = "balance"
	ValueAvailableAmount     = "availableAmount"
	ValueWithdrawableBalance = "withdrawableBalance"
	ValueBurnedTokens        = "burnedTokens"
	ValueClaimedThisPeriod   = "claimedThisPeriod"
	ValueVaultYear           = "vaultYear"
	ValueYearsElapsed        = "yearsElapsed"
	ValueRecipient           = "recipient"
	ValueStatus              = "status"
)

var (
	// ErrInvalid is returned for scenarios that fail validation
	ErrInvalid = errors.New("invalid scenario")
	// ErrNotFound is returned for unknown built-in scenarios
	ErrNotFound = errors.New("scenario not found")
)

var actions = []string{
	ActionDeployToken, ActionDeployVault, ActionTransfer, ActionSetRecipient,
	ActionClaim, ActionClaimAll, ActionBurn, ActionIncreaseTime,
	ActionUpdateVaultTime, ActionExpect,
}

// Scenario is a named sequence of steps
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Accounts maps names to dev account indexes
	Accounts map[string]int `yaml:"accounts"`
	Steps    []Step         `yaml:"steps"`
}

// Step is one action of a scenario
type Step struct {
	Name   string `yaml:"name,omitempty"`
	Action string `yaml:"action"`
	From   string `yaml:"from,omitempty"`
	// As names the contract deployed by this step
	As            string `yaml:"as,omitempty"`
	Token         string `yaml:"token,omitempty"`
	Vault         string `yaml:"vault,omitempty"`
	To            string `yaml:"to,omitempty"`
	Recipient     string `yaml:"recipient,omitempty"`
	Amount        string `yaml:"amount,omitempty"`
	ClaimAmount   string `yaml:"claimAmount,omitempty"`
	InitialSupply string `yaml:"initialSupply,omitempty"`
	PeriodSeconds int64  `yaml:"periodSeconds,omitempty"`
	BurnPolicy    string `yaml:"burnPolicy,omitempty"`
	Seconds       int64  `yaml:"seconds,omitempty"`
	// Revert is the reason the transaction is expected to revert with
	Revert string  `yaml:"revert,omitempty"`
	Checks []Check `yaml:"checks,omitempty"`
}

// Label names the step in reports
func (s Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Action
}

// Check compares one on-chain value
type Check struct {
	Value  string `yaml:"value"`
	Token  string `yaml:"token,omitempty"`
	Holder string `yaml:"holder,omitempty"`
	Vault  string `yaml:"vault,omitempty"`
	Equals string `yaml:"equals"`
}

func (c Check) String() string {
	if c.Value == ValueBalance {
		return fmt.Sprintf("balance(%s, %s)", c.Token, c.Holder)
	}
	return fmt.Sprintf("%s(%s)", c.Value, c.Vault)
}

// Parse decodes and validates a YAML scenario
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a scenario file
func Load(filename string) (*Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return s, nil
}

// Validate checks that every step has the fields its action needs and that
// every name it refers to is defined before use.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalid)
	}

	names := make(map[string]bool)
	for name, index := range s.Accounts {
		if index < 0 {
			return fmt.Errorf("%w: account %s has a negative index", ErrInvalid, name)
		}
		names[name] = true
	}

	for i, step := range s.Steps {
		if err := step.validate(names); err != nil {
			return fmt.Errorf("%w: step %d (%s): %v", ErrInvalid, i+1, step.Label(), err)
		}
		if step.As != "" {
			if names[step.As] {
				return fmt.Errorf("%w: step %d (%s): name %s already defined", ErrInvalid, i+1, step.Label(), step.As)
			}
			names[step.As] = true
		}
	}
	return nil
}

func (s Step) validate(names map[string]bool) error {
	if !slices.Contains(actions, s.Action) {
		return fmt.Errorf("unknown action %q", s.Action)
	}

	ref := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("%s is required", field)
		}
		if strings.HasPrefix(value, "0x") || names[value] {
			return nil
		}
		return fmt.Errorf("%s: unknown name %q", field, value)
	}
	amount := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("%s is required", field)
		}
		if n, ok := new(big.Int).SetString(value, 10); !ok || n.Sign() < 0 {
			return fmt.Errorf("%s must be a non-negative integer", field)
		}
		return nil
	}

	var errs []error
	switch s.Action {
	case ActionDeployToken:
		errs = append(errs, ref("from", s.From))
		if s.InitialSupply != "" {
			errs = append(errs, amount("initialSupply", s.InitialSupply))
		}
	case ActionDeployVault:
		errs = append(errs, ref("from", s.From), ref("token", s.Token), amount("claimAmount", s.ClaimAmount))
	case ActionTransfer:
		errs = append(errs, ref("from", s.From), ref("token", s.Token), ref("to", s.To), amount("amount", s.Amount))
	case ActionSetRecipient:
		errs = append(errs, ref("from", s.From), ref("vault", s.Vault), ref("recipient", s.Recipient))
	case ActionClaim, ActionBurn:
		errs = append(errs, ref("from", s.From), ref("vault", s.Vault), amount("amount", s.Amount))
	case ActionClaimAll, ActionUpdateVaultTime:
		errs = append(errs, ref("from", s.From), ref("vault", s.Vault))
	case ActionIncreaseTime:
		if s.Seconds <= 0 {
			errs = append(errs, errors.New("seconds must be positive"))
		}
	case ActionExpect:
		if len(s.Checks) == 0 {
			errs = append(errs, errors.New("no checks"))
		}
		for _, c := range s.Checks {
			errs = append(errs, c.validate(ref))
		}
	}

	if s.As != "" && s.Action != ActionDeployToken && s.Action != ActionDeployVault {
		errs = append(errs, errors.New("as is only valid on deploy steps"))
	}
	if s.Revert != "" && (s.Action == ActionExpect || s.Action == ActionIncreaseTime) {
		errs = append(errs, errors.New("revert is only valid on transaction steps"))
	}
	return errors.Join(errs...)
}

func (c Check) validate(ref func(field, value string) error) error {
	if c.Equals == "" {
		return fmt.Errorf("%s: equals is required", c.Value)
	}
	switch c.Value {
	case ValueBalance:
		return errors.Join(ref("token", c.Token), ref("holder", c.Holder))
	case ValueAvailableAmount, ValueWithdrawableBalance, ValueBurnedTokens, ValueClaimedThisPeriod,
		ValueVaultYear, ValueYearsElapsed, ValueRecipient, ValueStatus:
		return ref("vault", c.Vault)
	default:
		return fmt.Errorf("unknown value %q", c.Value)
	}
}

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtins lists the names of the embedded scenarios
func Builtins() []string {
	entries, _ := fs.ReadDir(builtinFS, "builtin")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Builtin returns an embedded scenario by name
func Builtin(name string) (*Scenario, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return Parse(data)
}
