package cli

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/spf13/cobra"

	"github.com/leodarkseid/elkstaking/pkg/client"
)

func createVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Insurance vault commands",
		Long: `Send insurance vault transactions and inspect vault state.

Only the owner may set the recipient. Only the recipient may claim, claim
all or burn. Anyone may update the vault time; it is a no-op until a full
period has elapsed.`,
	}

	cmd.AddCommand(createVaultTxCmd("set-recipient <vault> <recipient>", "Set the vault recipient", 2,
		func(ctx context.Context, c *client.Client, from string, args []string) (*client.Receipt, error) {
			recipient, err := resolveAccount(ctx, c, args[1])
			if err != nil {
				return nil, err
			}
			return c.SetRecipient(ctx, from, args[0], recipient)
		}))
	cmd.AddCommand(createVaultTxCmd("claim <vault> <amount>", "Claim tokens from the period allowance", 2,
		amountTx((*client.Client).Claim)))
	cmd.AddCommand(createVaultTxCmd("claim-all <vault>", "Claim the rest of the period allowance", 1,
		func(ctx context.Context, c *client.Client, from string, args []string) (*client.Receipt, error) {
			return c.ClaimAll(ctx, from, args[0])
		}))
	cmd.AddCommand(createVaultTxCmd("burn <vault> <amount>", "Write tokens off the withdrawable balance", 2,
		amountTx((*client.Client).Burn)))
	cmd.AddCommand(createVaultTxCmd("update-time <vault>", "Advance the vault period", 1,
		func(ctx context.Context, c *client.Client, from string, args []string) (*client.Receipt, error) {
			return c.UpdateVaultTime(ctx, from, args[0])
		}))
	cmd.AddCommand(createVaultInfoCmd())

	return cmd
}

type vaultTx func(ctx context.Context, c *client.Client, from string, args []string) (*client.Receipt, error)

func amountTx(send func(*client.Client, context.Context, string, string, *big.Int) (*client.Receipt, error)) vaultTx {
	return func(ctx context.Context, c *client.Client, from string, args []string) (*client.Receipt, error) {
		amount, err := parseAmountArg(args[1])
		if err != nil {
			return nil, err
		}
		return send(c, ctx, from, args[0], amount)
	}
}

func createVaultTxCmd(use, short string, nargs int, tx vaultTx) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVaultTx(cmd.Name(), tx, args, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runVaultTx(name string, tx vaultTx, args []string, jsonOutput bool) error {
	c := newClient()
	ctx := context.Background()

	sender, err := resolveSender(ctx, c)
	if err != nil {
		return err
	}

	receipt, err := tx(ctx, c, sender, args)
	if err != nil {
		if reason, ok := client.RevertReason(err); ok {
			return fmt.Errorf("%s reverted: %s", name, reason)
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return printReceipt(receipt, jsonOutput)
}

func createVaultInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <vault>",
		Short: "Show vault state",
		Long: `Show a vault's configuration, period allowance and balances.

EXAMPLES:
  elkstaking vault info 0xe7f1...
  elkstaking vault info 0xe7f1... --json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVaultInfo(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runVaultInfo(address string, jsonOutput bool) error {
	c := newClient()

	v, err := c.GetVault(context.Background(), address)
	if err != nil {
		return fmt.Errorf("failed to get vault: %w", err)
	}
	if jsonOutput {
		return printJSON(v)
	}

	recipient := v.Recipient
	if recipient == "" {
		recipient = "(not set)"
	}
	fmt.Printf("Vault:                %s\n", v.Address)
	fmt.Printf("Token:                %s\n", v.Token)
	fmt.Printf("Owner:                %s\n", v.Owner)
	fmt.Printf("Recipient:            %s\n", recipient)
	fmt.Printf("Status:               %s\n", v.Status)
	fmt.Println()
	fmt.Printf("Vault year:           %d (since %d)\n", v.VaultYear, v.InitialYear)
	fmt.Printf("Next period:          %s\n", time.Unix(v.NextPeriodAt, 0).UTC().Format(time.RFC3339))
	fmt.Printf("Burn policy:          %s\n", v.BurnPolicy)
	fmt.Println()
	fmt.Printf("Claim amount:         %s\n", v.ClaimAmount)
	fmt.Printf("Available amount:     %s\n", v.AvailableAmount)
	fmt.Printf("Claimed this period:  %s\n", v.ClaimedThisPeriod)
	fmt.Printf("Burned this period:   %s\n", v.BurnedThisPeriod)
	fmt.Println()
	fmt.Printf("Balance:              %s\n", v.Balance)
	fmt.Printf("Burned tokens:        %s\n", v.BurnedTokens)
	fmt.Printf("Withdrawable balance: %s\n", v.WithdrawableBalance)
	return nil
}
