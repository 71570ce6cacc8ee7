package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/config"
	"github.com/leodarkseid/elkstaking/internal/observability/metrics"
	"github.com/leodarkseid/elkstaking/internal/server"
	"github.com/leodarkseid/elkstaking/internal/storage"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "elkstaking-node",
		Short:   "elkstaking node - devnet chain with Elk token and insurance vaults",
		Version: version,
	}

	// Default behavior (no subcommand) is to serve
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe()
	}

	// Add subcommands
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newKeysCmd())
	rootCmd.AddCommand(newAccountsCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and JSON-RPC server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newAccountsCmd() *cobra.Command {
	var showKeys bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Print the dev accounts",
		Long: `Print the dev accounts derived from CHAIN_DEV_SEED.

The accounts are deterministic: the same seed always yields the same
addresses, so scripts can refer to accounts by index.

EXAMPLES:
  elkstaking-node accounts
  CHAIN_DEV_SEED="my seed" elkstaking-node accounts --show-keys
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccounts(showKeys)
		},
	}

	cmd.Flags().BoolVar(&showKeys, "show-keys", false, "include private keys")

	return cmd
}

func runAccounts(showKeys bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	accounts, err := chain.DeriveAccounts(cfg.Chain.DevSeed, cfg.Chain.DevAccounts)
	if err != nil {
		return fmt.Errorf("deriving accounts: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if showKeys {
		fmt.Fprintln(w, "INDEX\tADDRESS\tPRIVATE KEY")
	} else {
		fmt.Fprintln(w, "INDEX\tADDRESS\tLABEL")
	}
	for _, a := range accounts {
		if showKeys {
			fmt.Fprintf(w, "%d\t%s\t%s\n", a.Index, a.Address.Hex(), hexutil.Encode(crypto.FromECDSA(a.Key)))
		} else {
			fmt.Fprintf(w, "%d\t%s\t%s\n", a.Index, a.Address.Hex(), a.Label)
		}
	}
	w.Flush()

	if showKeys {
		fmt.Println()
		fmt.Println("⚠️  These keys are derived from a public seed. Never use them outside the devnet.")
	}
	return nil
}

// Server command

func runServe() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg)
	logger.Info("starting elkstaking-node", "version", version)

	metrics.Init(cfg.Metrics.Enabled, "elkstaking-node")

	// Initialize storage
	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	// Run migrations
	if err := store.Migrate(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Initialize the chain: genesis block and dev accounts on first start
	engine := chain.New(store, chain.Config{
		ChainID:          cfg.Chain.ChainID,
		GenesisTimestamp: cfg.Chain.GenesisTimestamp,
		DevAccounts:      cfg.Chain.DevAccounts,
		DevSeed:          cfg.Chain.DevSeed,
	}, logger)
	if err := engine.Init(context.Background()); err != nil {
		return fmt.Errorf("initializing chain: %w", err)
	}

	// Create server
	srv, err := server.New(cfg, store, engine, version, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer srv.Close()

	// Create HTTP server with configurable timeouts
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr, "rpc", "/rpc", "ws", "/ws", "chainId", cfg.Chain.ChainID)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig)
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
