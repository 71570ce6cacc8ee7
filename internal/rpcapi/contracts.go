package rpcapi

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/leodarkseid/elkstaking/internal/chain"
	tokendomain "github.com/leodarkseid/elkstaking/internal/token/domain"
	vaultdomain "github.com/leodarkseid/elkstaking/internal/vault/domain"
)

// TokenAPI serves the token namespace
type TokenAPI struct {
	tokens tokendomain.Service
}

// Deploy deploys a token from the given account
func (api *TokenAPI) Deploy(ctx context.Context, from common.Address, args TokenDeployArgs) (*RPCReceipt, error) {
	req := tokendomain.DeployRequest{
		Name:     args.Name,
		Symbol:   args.Symbol,
		Decimals: args.Decimals,
	}
	if args.InitialSupply != nil {
		req.InitialSupply = args.InitialSupply.ToInt()
	}
	return result(api.tokens.Deploy(ctx, from, req))
}

// Transfer moves amount of token from from to to
func (api *TokenAPI) Transfer(ctx context.Context, from, token, to common.Address, amount hexutil.Big) (*RPCReceipt, error) {
	return result(api.tokens.Transfer(ctx, from, token, to, amount.ToInt()))
}

// BalanceOf returns holder's balance
func (api *TokenAPI) BalanceOf(ctx context.Context, token, holder common.Address) (*hexutil.Big, error) {
	return quantity(api.tokens.BalanceOf(ctx, token, holder))
}

// TotalSupply returns the token's total supply
func (api *TokenAPI) TotalSupply(ctx context.Context, token common.Address) (*hexutil.Big, error) {
	return quantity(api.tokens.TotalSupply(ctx, token))
}

// Metadata returns name, symbol, decimals and supply
func (api *TokenAPI) Metadata(ctx context.Context, token common.Address) (*TokenMetadata, error) {
	tk, err := api.tokens.Metadata(ctx, token)
	if err != nil {
		return nil, classify(nil, err)
	}
	return &TokenMetadata{
		Address:     tk.Address,
		Name:        tk.Name,
		Symbol:      tk.Symbol,
		Decimals:    tk.Decimals,
		TotalSupply: (*hexutil.Big)(tk.TotalSupply),
	}, nil
}

// VaultAPI serves the vault namespace
type VaultAPI struct {
	vaults vaultdomain.Service
}

// Deploy deploys an insurance vault owned by from
func (api *VaultAPI) Deploy(ctx context.Context, from common.Address, args VaultDeployArgs) (*RPCReceipt, error) {
	req := vaultdomain.DeployRequest{
		Token:      args.Token,
		BurnPolicy: vaultdomain.BurnPolicy(args.BurnPolicy),
	}
	if args.ClaimAmount != nil {
		req.ClaimAmount = args.ClaimAmount.ToInt()
	}
	if args.PeriodSeconds != nil {
		req.PeriodSeconds = int64(*args.PeriodSeconds)
	}
	return result(api.vaults.Deploy(ctx, from, req))
}

func (api *VaultAPI) SetRecipient(ctx context.Context, from, vault, recipient common.Address) (*RPCReceipt, error) {
	return result(api.vaults.SetRecipient(ctx, from, vault, recipient))
}

func (api *VaultAPI) Claim(ctx context.Context, from, vault common.Address, amount hexutil.Big) (*RPCReceipt, error) {
	return result(api.vaults.Claim(ctx, from, vault, amount.ToInt()))
}

func (api *VaultAPI) ClaimAll(ctx context.Context, from, vault common.Address) (*RPCReceipt, error) {
	return result(api.vaults.ClaimAll(ctx, from, vault))
}

func (api *VaultAPI) Burn(ctx context.Context, from, vault common.Address, amount hexutil.Big) (*RPCReceipt, error) {
	return result(api.vaults.Burn(ctx, from, vault, amount.ToInt()))
}

func (api *VaultAPI) UpdateVaultTime(ctx context.Context, from, vault common.Address) (*RPCReceipt, error) {
	return result(api.vaults.UpdateVaultTime(ctx, from, vault))
}

func (api *VaultAPI) AvailableAmount(ctx context.Context, vault common.Address) (*hexutil.Big, error) {
	return quantity(api.vaults.AvailableAmount(ctx, vault))
}

func (api *VaultAPI) WithdrawableBalance(ctx context.Context, vault common.Address) (*hexutil.Big, error) {
	return quantity(api.vaults.WithdrawableBalance(ctx, vault))
}

func (api *VaultAPI) BurnedTokens(ctx context.Context, vault common.Address) (*hexutil.Big, error) {
	return quantity(api.vaults.BurnedTokens(ctx, vault))
}

// GetVaultYear returns the calendar year of the current period
func (api *VaultAPI) GetVaultYear(ctx context.Context, vault common.Address) (hexutil.Uint64, error) {
	year, err := api.vaults.VaultYear(ctx, vault)
	if err != nil {
		return 0, classify(nil, err)
	}
	return hexutil.Uint64(year), nil
}

// Recipient returns the recipient, or the zero address when unset
func (api *VaultAPI) Recipient(ctx context.Context, vault common.Address) (common.Address, error) {
	recipient, err := api.vaults.Recipient(ctx, vault)
	if err != nil {
		return common.Address{}, classify(nil, err)
	}
	return recipient, nil
}

func result(receipt *chain.Receipt, err error) (*RPCReceipt, error) {
	if err != nil {
		return nil, classify(receipt, err)
	}
	return toRPCReceipt(receipt), nil
}

func quantity(v *big.Int, err error) (*hexutil.Big, error) {
	if err != nil {
		return nil, classify(nil, err)
	}
	return (*hexutil.Big)(v), nil
}
