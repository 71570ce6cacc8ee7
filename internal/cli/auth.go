package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/leodarkseid/elkstaking/pkg/client"
)

var errInvalidAPIKey = errors.New("invalid API key")

// credentialStore is the on-disk map of node URL to API key
type credentialStore struct {
	Nodes map[string]nodeCredential `yaml:"nodes"`
}

// nodeCredential is the key saved for one node
type nodeCredential struct {
	APIKey string `yaml:"api_key"`
	// Client is the node's web3_clientVersion at login
	Client  string    `yaml:"client,omitempty"`
	SavedAt time.Time `yaml:"saved_at,omitempty"`
}

func createAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage node API keys",
		Long: `Save, remove and list API keys for elkstaking nodes.

A node started with AUTH_TYPE=api-key requires a key for transactions, clock
control and JSON-RPC. Reads over REST stay open.`,
	}

	cmd.AddCommand(createAuthLoginCmd())
	cmd.AddCommand(createAuthLogoutCmd())
	cmd.AddCommand(createAuthStatusCmd())

	return cmd
}

func createAuthLoginCmd() *cobra.Command {
	var nodeURL string
	var key string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save an API key for a node",
		Long: `Check an API key against a node's JSON-RPC endpoint and save it.

Keys are created on the node with 'elkstaking-node keys create'. They are kept
in ~/.elkstaking/credentials.yaml, readable only by you.

EXAMPLES:
  # Prompt for the key of the default node
  elkstaking auth login

  # A remote devnet
  elkstaking auth login --server http://devnet.internal:8545

  # CI
  elkstaking auth login --api-key "$ELKSTAKING_API_KEY"
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(nodeURL, key)
		},
	}

	cmd.Flags().StringVar(&nodeURL, "server", "", "node URL (default from config)")
	cmd.Flags().StringVar(&key, "api-key", "", "API key (prompts if not provided)")

	return cmd
}

func createAuthLogoutCmd() *cobra.Command {
	var nodeURL string
	var all bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the API key of a node",
		Long: `Remove the saved API key of a node, or of every node with --all.

EXAMPLES:
  elkstaking auth logout
  elkstaking auth logout --server http://devnet.internal:8545
  elkstaking auth logout --all
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout(nodeURL, all)
		},
	}

	cmd.Flags().StringVar(&nodeURL, "server", "", "node URL (default from config)")
	cmd.Flags().BoolVar(&all, "all", false, "remove every saved key")

	return cmd
}

func createAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List saved API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus()
		},
	}
}

func runAuthLogin(nodeURL, key string) error {
	if nodeURL == "" {
		nodeURL = getServer()
	}
	nodeURL = normalizeNodeURL(nodeURL)

	if key == "" {
		fmt.Printf("Enter API key for %s: ", nodeURL)
		var err error
		if key, err = readAPIKey(os.Stdin); err != nil {
			return err
		}
	}
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	fmt.Printf("Checking key with %s...\n", nodeURL)
	version, err := validateAPIKey(nodeURL, key)
	if err != nil {
		if errors.Is(err, errInvalidAPIKey) {
			return err
		}
		return fmt.Errorf("failed to reach node: %w", err)
	}

	store, err := loadCredentials()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	store.Nodes[nodeURL] = nodeCredential{APIKey: key, Client: version, SavedAt: time.Now().UTC()}
	if err := store.save(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Printf("✅ Logged in to %s (%s, key: %s)\n", nodeURL, version, maskAPIKey(key))
	fmt.Printf("   Saved to %s\n", credentialsFilePath())
	return nil
}

// readAPIKey reads a key without echo from a terminal, or one line otherwise
func readAPIKey(in *os.File) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runAuthLogout(nodeURL string, all bool) error {
	if all {
		if err := os.Remove(credentialsFilePath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credentials: %w", err)
		}
		fmt.Println("✅ All keys removed")
		return nil
	}

	if nodeURL == "" {
		nodeURL = getServer()
	}
	nodeURL = normalizeNodeURL(nodeURL)

	store, err := loadCredentials()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if _, ok := store.Nodes[nodeURL]; !ok {
		fmt.Printf("No key saved for %s\n", nodeURL)
		return nil
	}
	delete(store.Nodes, nodeURL)
	if err := store.save(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Printf("✅ Logged out from %s\n", nodeURL)
	return nil
}

func runAuthStatus() error {
	store, err := loadCredentials()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if len(store.Nodes) == 0 {
		fmt.Println("No API keys saved")
		fmt.Println("\nRun 'elkstaking auth login' to add one")
		return nil
	}

	current := normalizeNodeURL(getServer())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tNODE\tKEY\tCLIENT\tSAVED")
	for _, url := range store.urls() {
		cred := store.Nodes[url]
		mark := ""
		if url == current {
			mark = "*"
		}
		saved := ""
		if !cred.SavedAt.IsZero() {
			saved = cred.SavedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, url, maskAPIKey(cred.APIKey), cred.Client, saved)
	}
	return w.Flush()
}

func credentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".elkstaking"
	}
	return filepath.Join(home, ".elkstaking")
}

func credentialsFilePath() string {
	return filepath.Join(credentialsDir(), "credentials.yaml")
}

// loadCredentials returns an empty store when no file exists yet
func loadCredentials() (*credentialStore, error) {
	store := &credentialStore{}
	data, err := os.ReadFile(credentialsFilePath())
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, store); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", credentialsFilePath(), err)
		}
	}
	if store.Nodes == nil {
		store.Nodes = make(map[string]nodeCredential)
	}
	return store, nil
}

func (s *credentialStore) save() error {
	if err := os.MkdirAll(credentialsDir(), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(credentialsFilePath(), data, 0600)
}

func (s *credentialStore) urls() []string {
	urls := make([]string, 0, len(s.Nodes))
	for url := range s.Nodes {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

func saveCredential(nodeURL string, cred nodeCredential) error {
	store, err := loadCredentials()
	if err != nil {
		return err
	}
	store.Nodes[normalizeNodeURL(nodeURL)] = cred
	return store.save()
}

func getCredential(nodeURL string) string {
	store, err := loadCredentials()
	if err != nil {
		return ""
	}
	return store.Nodes[normalizeNodeURL(nodeURL)].APIKey
}

func normalizeNodeURL(url string) string {
	return strings.TrimRight(url, "/")
}

// validateAPIKey calls web3_clientVersion on the node's JSON-RPC endpoint,
// which requires a key whenever the node does, and returns the version.
func validateAPIKey(nodeURL, key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r, err := client.DialRPC(ctx, normalizeNodeURL(nodeURL)+"/rpc", key)
	if err != nil {
		return "", err
	}
	defer r.Close()

	version, err := r.ClientVersion(ctx)
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
		return "", errInvalidAPIKey
	}
	return version, err
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
