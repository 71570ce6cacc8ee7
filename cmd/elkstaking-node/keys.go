package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leodarkseid/elkstaking/internal/config"
	"github.com/leodarkseid/elkstaking/internal/storage"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
		Long: `Manage the API keys accepted by a node running with AUTH_TYPE=api-key.

Keys live in the node's store, so run these commands with the same
STORAGE_TYPE, SQLITE_PATH or DATABASE_URL as the node.`,
	}

	cmd.AddCommand(newKeysCreateCmd())
	cmd.AddCommand(newKeysListCmd())
	cmd.AddCommand(newKeysRevokeCmd())

	return cmd
}

// keyOutput selects where a new key is written
type keyOutput struct {
	file  string
	quiet bool
	show  bool
}

func newKeysCreateCmd() *cobra.Command {
	var name string
	var out keyOutput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		Long: `Create an API key. The key is shown once and cannot be retrieved later.

By default the key is written to ./elkstaking-key-<name>.txt with mode 0600.

EXAMPLES:
  elkstaking-node keys create --name ci
  elkstaking-node keys create --name ci --output /secure/ci.key
  elkstaking-node keys create --name ci --quiet | gh secret set ELKSTAKING_API_KEY
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store storage.Store) error {
				return runKeysCreate(cmd.Context(), store, os.Stdout, name, out)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "label for the key (required)")
	cmd.Flags().StringVarP(&out.file, "output", "o", "", "write the key to this file")
	cmd.Flags().BoolVarP(&out.quiet, "quiet", "q", false, "print only the key")
	cmd.Flags().BoolVar(&out.show, "show", false, "print the key instead of writing a file")
	cmd.MarkFlagsMutuallyExclusive("output", "quiet", "show")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newKeysListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store storage.Store) error {
				return runKeysList(cmd.Context(), store, os.Stdout, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func newKeysRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Long: `Revoke an API key. The id may be shortened to any unique prefix of at
least 8 characters, as printed by 'elkstaking-node keys list'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store storage.Store) error {
				return runKeysRevoke(cmd.Context(), store, os.Stdout, args[0])
			})
		},
	}

	return cmd
}

// withStore opens the configured store, migrates it and runs fn
func withStore(fn func(storage.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return fn(store)
}

func runKeysCreate(ctx context.Context, store storage.APIKeyStore, w io.Writer, name string, out keyOutput) error {
	key, err := store.CreateAPIKey(ctx, name)
	if err != nil {
		return fmt.Errorf("creating API key: %w", err)
	}

	switch {
	case out.quiet:
		fmt.Fprintln(w, key)
		return nil
	case out.show:
		fmt.Fprintf(w, "⚠️  API key %q (it cannot be retrieved later):\n\n    %s\n\n", name, key)
		return nil
	}

	path := out.file
	if path == "" {
		path = fmt.Sprintf("./elkstaking-key-%s.txt", name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0600); err != nil {
		return fmt.Errorf("writing key to file: %w", err)
	}

	fmt.Fprintf(w, "✅ API key %q written to %s (mode 0600)\n\n", name, path)
	fmt.Fprintln(w, "   export ELKSTAKING_API_KEY=$(cat "+path+")")
	fmt.Fprintln(w, "   elkstaking run insurance")
	return nil
}

// runKeysList prints active keys
func runKeysList(ctx context.Context, store storage.APIKeyStore, w io.Writer, jsonOutput bool) error {
	keys, err := store.ListAPIKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing API keys: %w", err)
	}

	if jsonOutput {
		type keyJSON struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			CreatedAt  string `json:"createdAt"`
			LastUsedAt string `json:"lastUsedAt,omitempty"`
		}
		out := make([]keyJSON, len(keys))
		for i, k := range keys {
			out[i] = keyJSON{ID: k.ID, Name: k.Name, CreatedAt: k.CreatedAt, LastUsedAt: k.LastUsedAt}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(keys) == 0 {
		fmt.Fprintln(w, "No API keys found")
		fmt.Fprintln(w, "\nCreate one with: elkstaking-node keys create --name my-key")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED\tLAST USED")
	for _, k := range keys {
		lastUsed := k.LastUsedAt
		if lastUsed == "" {
			lastUsed = "never"
		}
		id := k.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, k.Name, k.CreatedAt, lastUsed)
	}
	return tw.Flush()
}

func runKeysRevoke(ctx context.Context, store storage.APIKeyStore, w io.Writer, ref string) error {
	keys, err := store.ListAPIKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing API keys: %w", err)
	}

	var matches []storage.APIKey
	for _, k := range keys {
		if k.ID == ref {
			matches = []storage.APIKey{k}
			break
		}
		if len(ref) >= 8 && strings.HasPrefix(k.ID, ref) {
			matches = append(matches, k)
		}
	}

	switch len(matches) {
	case 0:
		return fmt.Errorf("key not found: %s", ref)
	case 1:
	default:
		return fmt.Errorf("key id %s is ambiguous (%d keys match)", ref, len(matches))
	}

	if err := store.RevokeAPIKey(ctx, matches[0].ID); err != nil {
		return fmt.Errorf("revoking API key: %w", err)
	}
	fmt.Fprintf(w, "✅ API key %s (%s) revoked\n", matches[0].ID, matches[0].Name)
	return nil
}
