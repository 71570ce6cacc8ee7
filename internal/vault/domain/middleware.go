package domain

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/leodarkseid/elkstaking/internal/chain"
)

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(Service) Service {
	return func(next Service) Service {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   Service
	logger *slog.Logger
}

// logTx logs a write. Reverts are logged with their reason at Warn.
func (m *loggingMiddleware) logTx(method string, vault common.Address, r *chain.Receipt, start time.Time, err error, attrs ...any) {
	attrs = append(attrs, "vault", vault.Hex(), "duration", time.Since(start))
	if r != nil {
		attrs = append(attrs, "tx", r.TxHash.Hex(), "block", r.BlockNumber)
	}
	if re, ok := chain.IsRevert(err); ok {
		m.logger.Warn(method, append(attrs, "reason", re.Reason)...)
		return
	}
	m.logger.Info(method, append(attrs, "error", err)...)
}

func (m *loggingMiddleware) Deploy(ctx context.Context, from common.Address, req DeployRequest) (*chain.Receipt, error) {
	start := time.Now()
	r, err := m.next.Deploy(ctx, from, req)
	var vault common.Address
	if r != nil && r.ContractAddress != nil {
		vault = *r.ContractAddress
	}
	m.logTx("Deploy", vault, r, start, err, "from", from.Hex(), "token", req.Token.Hex())
	return r, err
}

func (m *loggingMiddleware) SetRecipient(ctx context.Context, from, vault, recipient common.Address) (*chain.Receipt, error) {
	start := time.Now()
	r, err := m.next.SetRecipient(ctx, from, vault, recipient)
	m.logTx("SetRecipient", vault, r, start, err, "from", from.Hex(), "recipient", recipient.Hex())
	return r, err
}

func (m *loggingMiddleware) Claim(ctx context.Context, from, vault common.Address, amount *big.Int) (*chain.Receipt, error) {
	start := time.Now()
	r, err := m.next.Claim(ctx, from, vault, amount)
	m.logTx("Claim", vault, r, start, err, "from", from.Hex(), "amount", amount.String())
	return r, err
}

func (m *loggingMiddleware) ClaimAll(ctx context.Context, from, vault common.Address) (*chain.Receipt, error) {
	start := time.Now()
	r, err := m.next.ClaimAll(ctx, from, vault)
	m.logTx("ClaimAll", vault, r, start, err, "from", from.Hex())
	return r, err
}

func (m *loggingMiddleware) Burn(ctx context.Context, from, vault common.Address, amount *big.Int) (*chain.Receipt, error) {
	start := time.Now()
	r, err := m.next.Burn(ctx, from, vault, amount)
	m.logTx("Burn", vault, r, start, err, "from", from.Hex(), "amount", amount.String())
	return r, err
}

func (m *loggingMiddleware) UpdateVaultTime(ctx context.Context, from, vault common.Address) (*chain.Receipt, error) {
	start := time.Now()
	r, err := m.next.UpdateVaultTime(ctx, from, vault)
	m.logTx("UpdateVaultTime", vault, r, start, err, "from", from.Hex())
	return r, err
}

func (m *loggingMiddleware) Info(ctx context.Context, vault common.Address) (*Info, error) {
	start := time.Now()
	info, err := m.next.Info(ctx, vault)
	m.logger.Debug("Info",
		"vault", vault.Hex(),
		"duration", time.Since(start),
		"error", err,
	)
	return info, err
}

func (m *loggingMiddleware) AvailableAmount(ctx context.Context, vault common.Address) (*big.Int, error) {
	start := time.Now()
	v, err := m.next.AvailableAmount(ctx, vault)
	m.logger.Debug("AvailableAmount", "vault", vault.Hex(), "duration", time.Since(start), "error", err)
	return v, err
}

func (m *loggingMiddleware) WithdrawableBalance(ctx context.Context, vault common.Address) (*big.Int, error) {
	start := time.Now()
	v, err := m.next.WithdrawableBalance(ctx, vault)
	m.logger.Debug("WithdrawableBalance", "vault", vault.Hex(), "duration", time.Since(start), "error", err)
	return v, err
}

func (m *loggingMiddleware) BurnedTokens(ctx context.Context, vault common.Address) (*big.Int, error) {
	start := time.Now()
	v, err := m.next.BurnedTokens(ctx, vault)
	m.logger.Debug("BurnedTokens", "vault", vault.Hex(), "duration", time.Since(start), "error", err)
	return v, err
}

func (m *loggingMiddleware) VaultYear(ctx context.Context, vault common.Address) (int64, error) {
	start := time.Now()
	v, err := m.next.VaultYear(ctx, vault)
	m.logger.Debug("VaultYear", "vault", vault.Hex(), "duration", time.Since(start), "error", err)
	return v, err
}

func (m *loggingMiddleware) Recipient(ctx context.Context, vault common.Address) (common.Address, error) {
	start := time.Now()
	v, err := m.next.Recipient(ctx, vault)
	m.logger.Debug("Recipient", "vault", vault.Hex(), "duration", time.Since(start), "error", err)
	return v, err
}
