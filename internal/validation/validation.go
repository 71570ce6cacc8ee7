// Package validation provides input validation for elkstaking.
package validation

import (
	"errors"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/mod/semver"
)

// maxUint256 bounds every on-chain amount
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Token symbols: uppercase alphanumeric, 1-11 chars
var symbolRegex = regexp.MustCompile(`^[A-Z0-9]{1,11}$`)

// ValidateAddress validates an Ethereum address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(addr, "0x") {
		return errors.New("invalid address: must start with 0x")
	}
	if !common.IsHexAddress(addr) {
		return errors.New("invalid address: contains non-hex characters")
	}
	return nil
}

// ParseAddress validates addr and returns it as an address
func ParseAddress(addr string) (common.Address, error) {
	if err := ValidateAddress(addr); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(addr), nil
}

// ParseNonZeroAddress is ParseAddress that also rejects the zero address
func ParseNonZeroAddress(addr string) (common.Address, error) {
	a, err := ParseAddress(addr)
	if err != nil {
		return a, err
	}
	if a == (common.Address{}) {
		return a, errors.New("invalid address: must not be the zero address")
	}
	return a, nil
}

// ParseAmount parses a base-10 token amount in base units
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("amount is required")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.New("invalid amount: must be a base-10 integer")
	}
	if err := ValidateAmount(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ValidateAmount checks that v fits in a uint256
func ValidateAmount(v *big.Int) error {
	if v == nil {
		return errors.New("amount is required")
	}
	if v.Sign() < 0 {
		return errors.New("invalid amount: must not be negative")
	}
	if v.Cmp(maxUint256) > 0 {
		return errors.New("invalid amount: exceeds uint256")
	}
	return nil
}

// ValidateTokenSymbol validates an ERC20 symbol
func ValidateTokenSymbol(symbol string) error {
	if !symbolRegex.MatchString(symbol) {
		return errors.New("invalid symbol: must be 1-11 uppercase letters or digits")
	}
	return nil
}

// ValidateTokenName validates an ERC20 name
func ValidateTokenName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("token name cannot be empty")
	}
	if len(name) > 64 {
		return errors.New("token name too long (max 64 chars)")
	}
	return nil
}

// ValidateChainID validates a chain ID
func ValidateChainID(chainID int) error {
	if chainID <= 0 {
		return errors.New("chain ID must be positive")
	}
	return nil
}

// CompatibleVersions reports whether a client and server release share a
// major version. Unparseable versions (dev builds) are treated as compatible.
func CompatibleVersions(client, server string) bool {
	c := "v" + strings.TrimPrefix(client, "v")
	s := "v" + strings.TrimPrefix(server, "v")
	if !semver.IsValid(c) || !semver.IsValid(s) {
		return true
	}
	return semver.Major(c) == semver.Major(s)
}
