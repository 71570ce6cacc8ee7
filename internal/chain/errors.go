package chain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrNotFound       = errors.New("not found")
	ErrInvalidTime    = errors.New("invalid time adjustment")
)

// RevertError aborts a transaction. Its writes are rolled back and a failed
// receipt is recorded. Reason is a stable machine-readable code.
type RevertError struct {
	Reason string
	Err    error
}

// Revert wraps err as a revert with the given reason code
func Revert(reason string, err error) *RevertError {
	return &RevertError{Reason: reason, Err: err}
}

func (e *RevertError) Error() string {
	if e.Err == nil {
		return "execution reverted: " + e.Reason
	}
	return fmt.Sprintf("execution reverted: %s: %v", e.Reason, e.Err)
}

func (e *RevertError) Unwrap() error {
	return e.Err
}

// IsRevert reports whether err carries a revert and returns it
func IsRevert(err error) (*RevertError, bool) {
	var re *RevertError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// Outcome classifies err for metrics labels: success, reverted or error
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	if _, ok := IsRevert(err); ok {
		return "reverted"
	}
	return "error"
}
