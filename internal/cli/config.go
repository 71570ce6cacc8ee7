package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// projectConfigFile is the project config looked up in the working directory
const projectConfigFile = "elkstaking.toml"

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	Server string `toml:"server"`
	// From is the default sender: a dev account index or an address
	From  string      `toml:"from,omitempty"`
	Token TokenConfig `toml:"token,omitempty"`
	Vault VaultConfig `toml:"vault,omitempty"`
}

// TokenConfig holds defaults for deploy token
type TokenConfig struct {
	Name          string `toml:"name,omitempty"`
	Symbol        string `toml:"symbol,omitempty"`
	InitialSupply string `toml:"initial_supply,omitempty"`
}

// VaultConfig holds defaults for deploy vault
type VaultConfig struct {
	ClaimAmount   string `toml:"claim_amount,omitempty"`
	PeriodSeconds int64  `toml:"period_seconds,omitempty"`
	BurnPolicy    string `toml:"burn_policy,omitempty"`
}

// GlobalConfig is the global configuration (stored in ~/.elkstaking/config.yaml)
type GlobalConfig struct {
	Server string `yaml:"server"`
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var serverURL string
	var fromRef string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create an elkstaking.toml configuration file in the current directory.

This file stores project settings like the node URL, the default sender
and the defaults used when deploying tokens and vaults.

EXAMPLES:
  # Create config for a local node
  elkstaking config init

  # Create config for a specific node, sending from dev account 1
  elkstaking config init --server http://devnet.internal:8545 --from 1

  # Overwrite existing config
  elkstaking config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(serverURL, fromRef, force)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", defaultServer, "node URL")
	cmd.Flags().StringVar(&fromRef, "from", "0", "default sender (dev account index or address)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current config",
		Long: `Display the current configuration.

Shows the local project config (elkstaking.toml), the global config from
~/.elkstaking/config.yaml, stored credentials and the effective settings.

EXAMPLES:
  elkstaking config show
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	return cmd
}

func runConfigInit(serverURL, fromRef string, force bool) error {
	configPath := projectConfigFile

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	content := fmt.Sprintf(`# elkstaking project configuration

server = "%s"

# Sender used when --from is not given: a dev account index or an address
from = "%s"

[token]
# name = "Elk"
# symbol = "ELK"
# initial_supply = "1000000000000000000000000"

[vault]
claim_amount = "1000"
# period_seconds = 31557600
# burn_policy = "independent"
`, serverURL, fromRef)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Server: %s\n", serverURL)
	fmt.Printf("  From:   %s\n", fromRef)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. Edit %s to customize settings\n", configPath)
	fmt.Println("  2. Run 'elkstaking auth login' if the node requires an API key")
	fmt.Println("  3. Run 'elkstaking run insurance' to exercise a vault")

	return nil
}

func runConfigShow() error {
	fmt.Println("Configuration sources (in order of precedence):")
	fmt.Println()

	// 1. Command line flags
	fmt.Println("1. Command line flags")
	fmt.Println("   --server, --api-key, --from, --config")
	fmt.Println()

	// 2. Environment variables
	fmt.Println("2. Environment variables")
	for _, name := range []string{"ELKSTAKING_SERVER", "ELKSTAKING_API_KEY", "ELKSTAKING_FROM"} {
		value := os.Getenv(name)
		switch {
		case value == "":
			fmt.Printf("   %s=(not set)\n", name)
		case name == "ELKSTAKING_API_KEY":
			fmt.Printf("   %s=%s\n", name, maskAPIKey(value))
		default:
			fmt.Printf("   %s=%s\n", name, value)
		}
	}
	fmt.Println()

	// 3. Local project config
	fmt.Printf("3. Local project config (%s)\n", projectConfigFile)
	projectConfig, configPath, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("   (not found)")
		} else {
			fmt.Printf("   Error: %v\n", err)
		}
	} else {
		fmt.Printf("   Loaded from: %s\n", configPath)
		if projectConfig.Server != "" {
			fmt.Printf("   server: %s\n", projectConfig.Server)
		}
		if projectConfig.From != "" {
			fmt.Printf("   from: %s\n", projectConfig.From)
		}
		if projectConfig.Vault.ClaimAmount != "" {
			fmt.Printf("   vault.claim_amount: %s\n", projectConfig.Vault.ClaimAmount)
		}
		if projectConfig.Vault.BurnPolicy != "" {
			fmt.Printf("   vault.burn_policy: %s\n", projectConfig.Vault.BurnPolicy)
		}
	}
	fmt.Println()

	// 4. Global config
	fmt.Printf("4. Global config (%s)\n", globalConfigPath())
	if global := loadGlobalConfig(); global == nil {
		fmt.Println("   (not found)")
	} else if global.Server != "" {
		fmt.Printf("   server: %s\n", global.Server)
	}
	fmt.Println()

	// 5. Credentials
	fmt.Printf("5. Credentials (%s)\n", credentialsFilePath())
	switch creds, err := loadCredentials(); {
	case err != nil:
		fmt.Printf("   Error: %v\n", err)
	case len(creds.Nodes) == 0:
		fmt.Println("   (no keys saved)")
	default:
		for _, url := range creds.urls() {
			fmt.Printf("   %s: %s\n", url, maskAPIKey(creds.Nodes[url].APIKey))
		}
	}
	fmt.Println()

	// Effective config
	fmt.Println("Effective configuration:")
	fmt.Printf("   Server:  %s\n", getServer())
	fmt.Printf("   From:    %s\n", getFrom())
	if key := getAPIKey(); key != "" {
		fmt.Printf("   API Key: %s\n", maskAPIKey(key))
	} else {
		fmt.Println("   API Key: (not set)")
	}

	return nil
}

// loadProjectConfig loads the project config from --config or the working directory.
// Returns the config, the path it was loaded from, and an error.
func loadProjectConfig() (*ProjectConfig, string, error) {
	path := projectConfigFile
	if cfgFile != "" {
		path = cfgFile
	}
	if _, err := os.Stat(path); err != nil {
		return nil, path, err
	}
	config, err := loadProjectConfigFromPath(path)
	if err != nil {
		return nil, path, err
	}
	return config, path, nil
}

// loadProjectConfigFromPath loads a project config from a specific path
func loadProjectConfigFromPath(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config ProjectConfig
	if _, err := toml.Decode(string(data), &config); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	return &config, nil
}

// loadProjectConfigSilent loads the project config without returning errors for missing files.
// Returns nil if the file doesn't exist, but warns about parse failures.
func loadProjectConfigSilent() *ProjectConfig {
	config, _, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		fmt.Fprintf(os.Stderr, "Warning: failed to load project config: %v\n", err)
		return nil
	}
	return config
}

func globalConfigPath() string {
	return filepath.Join(credentialsDir(), "config.yaml")
}

// loadGlobalConfig returns nil when the global config is missing or unreadable
func loadGlobalConfig() *GlobalConfig {
	data, err := os.ReadFile(globalConfigPath())
	if err != nil {
		return nil
	}
	var config GlobalConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to parse %s: %v\n", globalConfigPath(), err)
		return nil
	}
	return &config
}
