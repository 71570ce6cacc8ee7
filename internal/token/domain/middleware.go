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

func txHash(r *chain.Receipt) string {
	if r == nil {
		return ""
	}
	return r.TxHash.Hex()
}

func (m *loggingMiddleware) Deploy(ctx context.Context, from common.Address, req DeployRequest) (*chain.Receipt, error) {
	start := time.Now()
	r, err := m.next.Deploy(ctx, from, req)
	m.logger.Info("Deploy",
		"from", from.Hex(),
		"symbol", req.Symbol,
		"tx", txHash(r),
		"duration", time.Since(start),
		"error", err,
	)
	return r, err
}

func (m *loggingMiddleware) Transfer(ctx context.Context, from, token, to common.Address, amount *big.Int) (*chain.Receipt, error) {
	start := time.Now()
	r, err := m.next.Transfer(ctx, from, token, to, amount)
	m.logger.Info("Transfer",
		"token", token.Hex(),
		"from", from.Hex(),
		"to", to.Hex(),
		"amount", amount.String(),
		"tx", txHash(r),
		"duration", time.Since(start),
		"error", err,
	)
	return r, err
}

func (m *loggingMiddleware) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	start := time.Now()
	b, err := m.next.BalanceOf(ctx, token, holder)
	m.logger.Debug("BalanceOf",
		"token", token.Hex(),
		"holder", holder.Hex(),
		"duration", time.Since(start),
		"error", err,
	)
	return b, err
}

func (m *loggingMiddleware) TotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	start := time.Now()
	s, err := m.next.TotalSupply(ctx, token)
	m.logger.Debug("TotalSupply",
		"token", token.Hex(),
		"duration", time.Since(start),
		"error", err,
	)
	return s, err
}

func (m *loggingMiddleware) Metadata(ctx context.Context, token common.Address) (*Token, error) {
	start := time.Now()
	t, err := m.next.Metadata(ctx, token)
	m.logger.Debug("Metadata",
		"token", token.Hex(),
		"duration", time.Since(start),
		"error", err,
	)
	return t, err
}
