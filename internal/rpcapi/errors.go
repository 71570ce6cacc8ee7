package rpcapi

import (
	"errors"

	"github.com/leodarkseid/elkstaking/internal/chain"
	tokendomain "github.com/leodarkseid/elkstaking/internal/token/domain"
	vaultdomain "github.com/leodarkseid/elkstaking/internal/vault/domain"
)

// JSON-RPC error codes
const (
	codeReverted      = 3
	codeInvalidParams = -32602
	codeServerError   = -32000
)

// revertError is returned for transactions that reverted. Data carries the
// reason code and the hash of the failed receipt.
type revertError struct {
	msg    string
	reason string
	txHash string
}

func (e *revertError) Error() string          { return e.msg }
func (e *revertError) ErrorCode() int         { return codeReverted }
func (e *revertError) ErrorData() interface{} { return map[string]string{"reason": e.reason, "transactionHash": e.txHash} }

// invalidParamsError is returned when arguments fail validation
type invalidParamsError struct {
	msg string
}

func (e *invalidParamsError) Error() string  { return e.msg }
func (e *invalidParamsError) ErrorCode() int { return codeInvalidParams }

// serverError carries any other failure
type serverError struct {
	msg string
}

func (e *serverError) Error() string  { return e.msg }
func (e *serverError) ErrorCode() int { return codeServerError }

// invalidParams lists errors that are the caller's fault
var invalidParams = []error{
	chain.ErrUnknownAccount,
	chain.ErrInvalidTime,
	tokendomain.ErrNotFound,
	tokendomain.ErrInvalidAmount,
	tokendomain.ErrInvalidMetadata,
	vaultdomain.ErrNotFound,
	vaultdomain.ErrTokenNotFound,
	vaultdomain.ErrInvalidAmount,
	vaultdomain.ErrInvalidPeriod,
	vaultdomain.ErrInvalidBurnPolicy,
}

// classify maps a domain error to a JSON-RPC error
func classify(receipt *chain.Receipt, err error) error {
	if re, ok := chain.IsRevert(err); ok {
		out := &revertError{msg: re.Error(), reason: re.Reason}
		if receipt != nil {
			out.txHash = receipt.TxHash.Hex()
		}
		return out
	}
	for _, target := range invalidParams {
		if errors.Is(err, target) {
			return &invalidParamsError{msg: err.Error()}
		}
	}
	return &serverError{msg: err.Error()}
}
