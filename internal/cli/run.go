package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leodarkseid/elkstaking/internal/scenario"
)

func createRunCmd() *cobra.Command {
	var list bool
	var verbose bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <scenario|file.yaml>",
		Short: "Run a scripted scenario",
		Long: `Run a built-in scenario or a scenario file against the node.

Built-in scenarios:
  insurance         fund a vault, claim, burn and roll over two periods
  claim-after-year  claim part of the allowance, wait a period, claim again
  reverts           access control and allowance limits of the vault

Each scenario deploys its own contracts, so runs do not interfere with each
other. Scenarios move the chain clock forward.

EXAMPLES:
  elkstaking run --list
  elkstaking run insurance
  elkstaking run ./scenarios/my-flow.yaml --json
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return runListScenarios()
			}
			return runScenario(args[0], verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list built-in scenarios")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every step")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the report as JSON")

	return cmd
}

func runListScenarios() error {
	for _, name := range scenario.Builtins() {
		s, err := scenario.Builtin(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-18s %s\n", name, strings.TrimSpace(s.Description))
	}
	return nil
}

func loadScenario(ref string) (*scenario.Scenario, error) {
	if strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") {
		return scenario.Load(ref)
	}
	return scenario.Builtin(ref)
}

func runScenario(ref string, verbose, jsonOutput bool) error {
	s, err := loadScenario(ref)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	report, runErr := scenario.NewRunner(newClient(), logger).Run(context.Background(), s)
	if jsonOutput {
		if err := printJSON(report); err != nil {
			return err
		}
		return runErr
	}

	fmt.Printf("Scenario %s\n\n", s.Name)
	for _, step := range report.Steps {
		mark := "✅"
		if step.Error != "" {
			mark = "❌"
		}
		detail := ""
		switch {
		case step.Reverted != "":
			detail = "reverted " + step.Reverted
		case step.TxHash != "":
			detail = truncateAddress(step.TxHash)
		case step.Checks > 0:
			detail = fmt.Sprintf("%d checks", step.Checks)
		}
		fmt.Printf("  %s %2d %-36s %s\n", mark, step.Index, step.Name, detail)
	}
	fmt.Println()

	if runErr != nil {
		var stepErr *scenario.StepError
		if errors.As(runErr, &stepErr) {
			return fmt.Errorf("scenario %s failed at step %d: %w", s.Name, stepErr.Index, stepErr.Err)
		}
		return fmt.Errorf("scenario %s failed: %w", s.Name, runErr)
	}

	if len(report.Contracts) > 0 {
		fmt.Println("Contracts:")
		for name, addr := range report.Contracts {
			fmt.Printf("  %-10s %s\n", name, addr)
		}
		fmt.Println()
	}
	fmt.Printf("✅ %d steps passed\n", len(report.Steps))
	return nil
}
