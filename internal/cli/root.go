package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leodarkseid/elkstaking/internal/validation"
	"github.com/leodarkseid/elkstaking/pkg/client"
)

const defaultServer = "http://localhost:8545"

var (
	cfgFile    string
	serverFlag string
	apiKey     string
	from       string
)

// Execute runs the CLI
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "elkstaking",
		Short: "Deploy and exercise Elk token and insurance vault contracts",
		Long: `elkstaking deploys the Elk token, insurance vaults and marketplaces on an
elkstaking node, sends their transactions, controls the devnet clock and runs
scripted scenarios against them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "project config file (default: elkstaking.toml)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "node URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&from, "from", "", "sender: dev account index or address (default from config, else account 0)")

	rootCmd.AddCommand(createDeployCmd())
	rootCmd.AddCommand(createTokenCmd())
	rootCmd.AddCommand(createVaultCmd())
	rootCmd.AddCommand(createChainCmd(version))
	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createAuthCmd())
	rootCmd.AddCommand(createConfigCmd())

	return rootCmd
}

// getServer returns the node URL from flag, env, project config, or global config
func getServer() string {
	// 1. Command line flag
	if serverFlag != "" {
		return serverFlag
	}

	// 2. Environment variable
	if env := os.Getenv("ELKSTAKING_SERVER"); env != "" {
		return env
	}

	// 3. Project config file (TOML)
	if config := loadProjectConfigSilent(); config != nil && config.Server != "" {
		return config.Server
	}

	// 4. Global config file (YAML)
	if global := loadGlobalConfig(); global != nil && global.Server != "" {
		return global.Server
	}

	// 5. Default
	return defaultServer
}

// getAPIKey returns the API key from flag, env, or credentials file
func getAPIKey() string {
	// 1. Command line flag
	if apiKey != "" {
		return apiKey
	}

	// 2. Environment variable
	if env := os.Getenv("ELKSTAKING_API_KEY"); env != "" {
		return env
	}

	// 3. Credentials file (keyed by server URL)
	if cred := getCredential(getServer()); cred != "" {
		return cred
	}

	return ""
}

// getFrom returns the sender reference from flag, env, or project config
func getFrom() string {
	if from != "" {
		return from
	}
	if env := os.Getenv("ELKSTAKING_FROM"); env != "" {
		return env
	}
	if config := loadProjectConfigSilent(); config != nil && config.From != "" {
		return config.From
	}
	return "0"
}

func newClient() *client.Client {
	return client.New(getServer(), getAPIKey())
}

// resolveAccount turns a dev account index into its address. Addresses are
// validated and returned unchanged.
func resolveAccount(ctx context.Context, c *client.Client, ref string) (string, error) {
	if strings.HasPrefix(ref, "0x") {
		if err := validation.ValidateAddress(ref); err != nil {
			return "", err
		}
		return ref, nil
	}

	index, err := strconv.Atoi(ref)
	if err != nil || index < 0 {
		return "", fmt.Errorf("invalid account %q: must be a dev account index or an address", ref)
	}
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list accounts: %w", err)
	}
	if index >= len(accounts) {
		return "", fmt.Errorf("account index %d out of range (node has %d accounts)", index, len(accounts))
	}
	return accounts[index].Address, nil
}

// resolveSender resolves the --from account
func resolveSender(ctx context.Context, c *client.Client) (string, error) {
	return resolveAccount(ctx, c, getFrom())
}
