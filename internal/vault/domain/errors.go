package domain

import (
	"errors"

	"github.com/leodarkseid/elkstaking/internal/chain"
)

// Revert reasons surfaced in receipts and API errors
const (
	ReasonUnauthorized          = "UNAUTHORIZED_CALLER"
	ReasonInsufficientAllowance = "INSUFFICIENT_ALLOWANCE"
	ReasonInsufficientBalance   = "INSUFFICIENT_BALANCE"
	ReasonZeroAddress           = "ZERO_ADDRESS"
)

// Errors that revert a vault transaction
var (
	ErrUnauthorized          = errors.New("caller is not authorized")
	ErrInsufficientAllowance = errors.New("amount exceeds the period allowance")
	ErrInsufficientBalance   = errors.New("amount exceeds the withdrawable balance")
	ErrZeroAddress           = errors.New("recipient is the zero address")
)

// Errors rejected before a transaction is sent
var (
	ErrNotFound          = errors.New("vault not found")
	ErrTokenNotFound     = errors.New("token not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrInvalidBurnPolicy = errors.New("invalid burn policy")
)

var reasons = map[error]string{
	ErrUnauthorized:          ReasonUnauthorized,
	ErrInsufficientAllowance: ReasonInsufficientAllowance,
	ErrInsufficientBalance:   ReasonInsufficientBalance,
	ErrZeroAddress:           ReasonZeroAddress,
}

// revert turns a State rule violation into a chain revert. Other errors pass through.
func revert(err error) error {
	for sentinel, reason := range reasons {
		if errors.Is(err, sentinel) {
			return chain.Revert(reason, err)
		}
	}
	return err
}
