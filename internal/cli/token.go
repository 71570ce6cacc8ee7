package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func createTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Token commands",
	}

	cmd.AddCommand(createTokenTransferCmd())
	cmd.AddCommand(createTokenBalanceCmd())
	cmd.AddCommand(createTokenInfoCmd())

	return cmd
}

func createTokenTransferCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "transfer <token> <to> <amount>",
		Short: "Transfer tokens",
		Long: `Transfer tokens from the sender. <to> is an address or a dev account index.

EXAMPLES:
  # Fund a vault with 20000 tokens
  elkstaking token transfer 0x5fbd... 0xe7f1... 20000

  # Send 50 tokens from account 1 to account 2
  elkstaking token transfer 0x5fbd... 2 50 --from 1
`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenTransfer(args[0], args[1], args[2], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func createTokenBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance <token> [holder]",
		Short: "Show a token balance",
		Long: `Show the balance of a holder (address or dev account index). Defaults to the sender.

EXAMPLES:
  elkstaking token balance 0x5fbd... 1
`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder := ""
			if len(args) == 2 {
				holder = args[1]
			}
			return runTokenBalance(args[0], holder)
		},
	}

	return cmd
}

func createTokenInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <token>",
		Short: "Show token metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenInfo(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runTokenTransfer(token, to, amountArg string, jsonOutput bool) error {
	c := newClient()
	ctx := context.Background()

	amount, err := parseAmountArg(amountArg)
	if err != nil {
		return err
	}
	sender, err := resolveSender(ctx, c)
	if err != nil {
		return err
	}
	recipient, err := resolveAccount(ctx, c, to)
	if err != nil {
		return err
	}

	receipt, err := c.Transfer(ctx, sender, token, recipient, amount)
	if err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}
	return printReceipt(receipt, jsonOutput)
}

func runTokenBalance(token, holder string) error {
	c := newClient()
	ctx := context.Background()

	var (
		addr string
		err  error
	)
	if holder == "" {
		addr, err = resolveSender(ctx, c)
	} else {
		addr, err = resolveAccount(ctx, c, holder)
	}
	if err != nil {
		return err
	}

	balance, err := c.BalanceOf(ctx, token, addr)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	fmt.Println(balance.String())
	return nil
}

func runTokenInfo(token string, jsonOutput bool) error {
	c := newClient()

	t, err := c.GetToken(context.Background(), token)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	if jsonOutput {
		return printJSON(t)
	}

	fmt.Printf("Token:        %s\n", t.Address)
	fmt.Printf("Name:         %s\n", t.Name)
	fmt.Printf("Symbol:       %s\n", t.Symbol)
	fmt.Printf("Decimals:     %d\n", t.Decimals)
	fmt.Printf("Total supply: %s\n", t.TotalSupply)
	fmt.Printf("Deployer:     %s (block %d)\n", t.Deployer, t.BlockNumber)
	return nil
}
