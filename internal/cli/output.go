package cli

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"

	"github.com/leodarkseid/elkstaking/internal/validation"
	"github.com/leodarkseid/elkstaking/pkg/client"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReceipt(r *client.Receipt, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(r)
	}

	fmt.Printf("Transaction: %s\n", r.TxHash)
	fmt.Printf("Method:      %s\n", r.Method)
	fmt.Printf("From:        %s\n", r.From)
	if r.To != "" {
		fmt.Printf("To:          %s\n", r.To)
	}
	if r.ContractAddress != "" {
		fmt.Printf("Contract:    %s\n", r.ContractAddress)
	}
	fmt.Printf("Block:       %d (timestamp %d)\n", r.BlockNumber, r.Timestamp)
	if r.Status == 1 {
		fmt.Println("Status:      success")
	} else {
		fmt.Printf("Status:      reverted (%s)\n", r.RevertReason)
	}
	for _, l := range r.Logs {
		fmt.Printf("  • %s%s\n", l.Event, formatFields(l.Fields))
	}
	return nil
}

func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := " "
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		v := fields[k]
		if validation.ValidateAddress(v) == nil {
			v = truncateAddress(v)
		}
		out += k + "=" + v
	}
	return out
}

// truncateAddress shortens an address for table output
func truncateAddress(addr string) string {
	if len(addr) <= 13 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func parseAmountArg(s string) (*big.Int, error) {
	amount, err := validation.ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}
