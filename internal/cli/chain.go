package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/leodarkseid/elkstaking/internal/validation"
	"github.com/leodarkseid/elkstaking/pkg/client"
)

func createChainCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Devnet chain commands",
	}

	cmd.AddCommand(createChainInfoCmd(version))
	cmd.AddCommand(createChainAccountsCmd())
	cmd.AddCommand(createChainReceiptsCmd())
	cmd.AddCommand(createChainReceiptCmd())
	cmd.AddCommand(createChainIncreaseTimeCmd())
	cmd.AddCommand(createChainMineCmd())

	return cmd
}

func createChainInfoCmd(version string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show node version and chain head",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChainInfo(version, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func createChainAccountsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List unlocked dev accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChainAccounts(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func createChainReceiptsCmd() *cobra.Command {
	var filter client.ReceiptFilter
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "List transaction receipts",
		Long: `List transaction receipts, newest first.

EXAMPLES:
  # Reverted transactions only
  elkstaking chain receipts --status 0

  # Claims sent by account 1
  elkstaking chain receipts --method claim --sender 0x7099...
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChainReceipts(filter, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&filter.From, "sender", "", "filter by sender address")
	cmd.Flags().StringVar(&filter.To, "to", "", "filter by target address")
	cmd.Flags().StringVar(&filter.Method, "method", "", "filter by method")
	cmd.Flags().StringVar(&filter.Status, "status", "", "filter by status (1 success, 0 reverted)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "number of items to show")
	cmd.Flags().StringVar(&filter.Cursor, "cursor", "", "pagination cursor")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func createChainReceiptCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "receipt <tx-hash>",
		Short: "Show a transaction receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChainReceipt(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func createChainIncreaseTimeCmd() *cobra.Command {
	var noMine bool

	cmd := &cobra.Command{
		Use:   "increase-time <duration>",
		Short: "Move the chain clock forward",
		Long: `Move the devnet clock forward over JSON-RPC (evm_increaseTime) and mine a
block (evm_mine) so the new time is visible. The duration is a number of
seconds or a Go duration such as 8760h.

EXAMPLES:
  elkstaking chain increase-time 70000000
  elkstaking chain increase-time 8766h --no-mine
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := parseSeconds(args[0])
			if err != nil {
				return err
			}
			return runChainIncreaseTime(seconds, !noMine)
		},
	}

	cmd.Flags().BoolVar(&noMine, "no-mine", false, "only move the clock; the next block picks it up")

	return cmd
}

func createChainMineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine an empty block",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChainMine()
		},
	}

	return cmd
}

func runChainInfo(version string, jsonOutput bool) error {
	c := newClient()
	ctx := context.Background()

	info, err := c.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach node: %w", err)
	}
	head, err := c.Head(ctx)
	if err != nil {
		return fmt.Errorf("failed to read head: %w", err)
	}

	if jsonOutput {
		return printJSON(map[string]any{
			"server":  c.BaseURL(),
			"version": info.Version,
			"head":    head,
		})
	}

	if !validation.CompatibleVersions(version, info.Version) {
		fmt.Fprintf(os.Stderr, "Warning: CLI %s may not be compatible with node %s\n", version, info.Version)
	}

	fmt.Printf("Node:        %s (%s)\n", c.BaseURL(), info.Version)
	fmt.Printf("Chain ID:    %d\n", head.ChainID)
	fmt.Printf("Block:       %d\n", head.Number)
	fmt.Printf("Timestamp:   %d (%s)\n", head.Timestamp, time.Unix(int64(head.Timestamp), 0).UTC().Format(time.RFC3339))
	fmt.Printf("Time offset: %ds\n", head.TimeOffset)
	return nil
}

func runChainAccounts(jsonOutput bool) error {
	c := newClient()

	accounts, err := c.Accounts(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if jsonOutput {
		return printJSON(accounts)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tADDRESS\tLABEL\tNONCE")
	for _, a := range accounts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", a.Index, a.Address, a.Label, a.Nonce)
	}
	return w.Flush()
}

func runChainReceipts(filter client.ReceiptFilter, jsonOutput bool) error {
	c := newClient()

	resp, err := c.ListReceipts(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("failed to list receipts: %w", err)
	}
	if jsonOutput {
		return printJSON(resp)
	}

	if len(resp.Data) == 0 {
		fmt.Println("No receipts found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BLOCK\tTX\tMETHOD\tFROM\tTO\tSTATUS")
	for _, r := range resp.Data {
		status := "ok"
		if r.Status == 0 {
			status = "reverted: " + r.RevertReason
		}
		to := r.To
		if r.ContractAddress != "" {
			to = r.ContractAddress
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", r.BlockNumber, truncateAddress(r.TxHash), r.Method,
			truncateAddress(r.From), truncateAddress(to), status)
	}
	w.Flush()

	if resp.Pagination.HasMore {
		fmt.Printf("\n(more available: --cursor %s)\n", resp.Pagination.NextCursor)
	}
	return nil
}

func runChainReceipt(txHash string, jsonOutput bool) error {
	c := newClient()

	receipt, err := c.Receipt(context.Background(), txHash)
	if err != nil {
		return fmt.Errorf("failed to get receipt: %w", err)
	}
	return printReceipt(receipt, jsonOutput)
}

func dialRPC(ctx context.Context) (*client.RPC, error) {
	endpoint := strings.TrimRight(getServer(), "/") + "/rpc"
	rpcClient, err := client.DialRPC(ctx, endpoint, getAPIKey())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	return rpcClient, nil
}

func runChainIncreaseTime(seconds int64, mine bool) error {
	ctx := context.Background()
	rpcClient, err := dialRPC(ctx)
	if err != nil {
		return err
	}
	defer rpcClient.Close()

	offset, err := rpcClient.IncreaseTime(ctx, seconds)
	if err != nil {
		return fmt.Errorf("evm_increaseTime failed: %w", err)
	}
	fmt.Printf("⏩ Clock moved forward %ds (total offset %ds)\n", seconds, offset)

	if !mine {
		return nil
	}
	if err := rpcClient.Mine(ctx); err != nil {
		return fmt.Errorf("evm_mine failed: %w", err)
	}
	number, err := rpcClient.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("eth_blockNumber failed: %w", err)
	}
	fmt.Printf("⛏  Mined block %d\n", number)
	return nil
}

func runChainMine() error {
	ctx := context.Background()
	rpcClient, err := dialRPC(ctx)
	if err != nil {
		return err
	}
	defer rpcClient.Close()

	if err := rpcClient.Mine(ctx); err != nil {
		return fmt.Errorf("evm_mine failed: %w", err)
	}
	number, err := rpcClient.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("eth_blockNumber failed: %w", err)
	}
	fmt.Printf("⛏  Mined block %d\n", number)
	return nil
}

// parseSeconds accepts whole seconds or a Go duration
func parseSeconds(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: use seconds or a duration like 8760h", s)
	}
	if d < time.Second {
		return 0, fmt.Errorf("duration must be at least one second")
	}
	return int64(d / time.Second), nil
}
