package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leodarkseid/elkstaking/pkg/client"
)

func createDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy contracts",
	}

	cmd.AddCommand(createDeployTokenCmd())
	cmd.AddCommand(createDeployVaultCmd())
	cmd.AddCommand(createDeployMarketplaceCmd())

	return cmd
}

func createDeployTokenCmd() *cobra.Command {
	var req client.DeployTokenRequest
	var decimals int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Deploy an Elk token",
		Long: `Deploy an ERC20-like token. The whole supply is minted to the sender.

Unset flags fall back to the [token] section of elkstaking.toml, then to the
node's defaults.

EXAMPLES:
  # Deploy with the node's defaults
  elkstaking deploy token

  # Deploy a custom token from dev account 1
  elkstaking deploy token --name "Test Elk" --symbol TELK --supply 50000 --from 1
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("decimals") {
				req.Decimals = &decimals
			}
			return runDeployToken(req, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "token name")
	cmd.Flags().StringVar(&req.Symbol, "symbol", "", "token symbol")
	cmd.Flags().IntVar(&decimals, "decimals", 18, "token decimals")
	cmd.Flags().StringVar(&req.InitialSupply, "supply", "", "initial supply in base units")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func createDeployVaultCmd() *cobra.Command {
	var req client.DeployVaultRequest
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "vault --token <address>",
		Short: "Deploy an insurance vault",
		Long: `Deploy an insurance vault over a token. The sender becomes the vault owner
and is the only account allowed to set the recipient.

Burn policies:
  independent  burns are bounded by the withdrawable balance only (default)
  allowance    burns also consume the period's claim allowance

EXAMPLES:
  # Vault releasing 1000 tokens per year
  elkstaking deploy vault --token 0x5fbd... --claim-amount 1000

  # Monthly periods, burns drawn from the allowance
  elkstaking deploy vault --token 0x5fbd... --claim-amount 100 \
    --period 2629800 --burn-policy allowance
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeployVault(req, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&req.Token, "token", "", "token address (required)")
	cmd.Flags().StringVar(&req.ClaimAmount, "claim-amount", "", "claimable amount per period in base units")
	cmd.Flags().Int64Var(&req.PeriodSeconds, "period", 0, "period length in seconds (default from node)")
	cmd.Flags().StringVar(&req.BurnPolicy, "burn-policy", "", "independent or allowance (default from node)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func createDeployMarketplaceCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "marketplace",
		Short: "Deploy a marketplace",
		Long: `Deploy a marketplace contract. Marketplaces carry no state on the devnet;
the deployment is recorded in the contract registry.

EXAMPLES:
  elkstaking deploy marketplace
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeployMarketplace(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runDeployToken(req client.DeployTokenRequest, jsonOutput bool) error {
	c := newClient()
	ctx := context.Background()

	if config := loadProjectConfigSilent(); config != nil {
		req.Name = firstNonEmpty(req.Name, config.Token.Name)
		req.Symbol = firstNonEmpty(req.Symbol, config.Token.Symbol)
		req.InitialSupply = firstNonEmpty(req.InitialSupply, config.Token.InitialSupply)
	}

	sender, err := resolveSender(ctx, c)
	if err != nil {
		return err
	}
	req.From = sender

	receipt, err := c.DeployToken(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to deploy token: %w", err)
	}
	if jsonOutput {
		return printJSON(receipt)
	}
	fmt.Printf("✅ Token deployed at %s\n\n", receipt.ContractAddress)
	return printReceipt(receipt, false)
}

func runDeployVault(req client.DeployVaultRequest, jsonOutput bool) error {
	c := newClient()
	ctx := context.Background()

	if config := loadProjectConfigSilent(); config != nil {
		req.ClaimAmount = firstNonEmpty(req.ClaimAmount, config.Vault.ClaimAmount)
		req.BurnPolicy = firstNonEmpty(req.BurnPolicy, config.Vault.BurnPolicy)
		if req.PeriodSeconds == 0 {
			req.PeriodSeconds = config.Vault.PeriodSeconds
		}
	}
	if req.ClaimAmount == "" {
		return fmt.Errorf("--claim-amount is required (or set vault.claim_amount in %s)", projectConfigFile)
	}
	if _, err := parseAmountArg(req.ClaimAmount); err != nil {
		return err
	}

	sender, err := resolveSender(ctx, c)
	if err != nil {
		return err
	}
	req.From = sender

	receipt, err := c.DeployVault(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to deploy vault: %w", err)
	}
	if jsonOutput {
		return printJSON(receipt)
	}
	fmt.Printf("✅ Vault deployed at %s\n\n", receipt.ContractAddress)
	return printReceipt(receipt, false)
}

func runDeployMarketplace(jsonOutput bool) error {
	c := newClient()
	ctx := context.Background()

	sender, err := resolveSender(ctx, c)
	if err != nil {
		return err
	}

	receipt, err := c.DeployMarketplace(ctx, sender)
	if err != nil {
		return fmt.Errorf("failed to deploy marketplace: %w", err)
	}
	if jsonOutput {
		return printJSON(receipt)
	}
	fmt.Printf("✅ Marketplace deployed at %s\n\n", receipt.ContractAddress)
	return printReceipt(receipt, false)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
