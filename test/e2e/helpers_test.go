//go:build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/config"
	"github.com/leodarkseid/elkstaking/internal/server"
	"github.com/leodarkseid/elkstaking/internal/storage"
	"github.com/leodarkseid/elkstaking/pkg/client"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// genesis is the chain clock at first start: 2023-03-01T00:00:00Z
const genesis = 1677628800

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	Node              *Node
	APIKey            string
}

// Node is an in-process elkstaking node on top of a store
type Node struct {
	Config     *config.Config
	Store      storage.Store
	Engine     *chain.Engine
	Server     *server.Server
	TestServer *httptest.Server
}

// Close stops the HTTP server and the JSON-RPC server. The store stays open.
func (n *Node) Close() {
	n.TestServer.Close()
	n.Server.Close()
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("elkstaking"),
		postgres.WithUsername("elkstaking"),
		postgres.WithPassword("elkstaking"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return postgresContainer, connString, nil
}

func nodeConfig(connString string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port: 8545,
			Host: "0.0.0.0",
		},
		Storage: config.StorageConfig{
			Type: "postgres",
			Postgres: config.PostgresConfig{
				URL: connString,
			},
		},
		Auth:      config.AuthConfig{Type: "api-key"},
		Logging:   config.LoggingConfig{Level: "debug", Format: "text"},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Security:  config.SecurityConfig{MaxBodySizeKB: 256},
		Proxy:     config.ProxyConfig{TrustProxy: false},
		Chain: config.ChainConfig{
			ChainID:          31337,
			GenesisTimestamp: genesis,
			DevAccounts:      10,
			DevSeed:          "elkstaking e2e",
		},
		Token: config.TokenConfig{
			Name:          "Elk",
			Symbol:        "ELK",
			Decimals:      18,
			InitialSupply: "1000000000000000000000000",
		},
		Vault: config.VaultConfig{
			PeriodSeconds: 31557600,
			BurnPolicy:    config.BurnPolicyIndependent,
		},
	}
}

// startNodeE opens the store, initializes the chain and serves it in-process
func startNodeE(connString string) (*Node, error) {
	cfg := nodeConfig(connString)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return serveStore(cfg, store, logger)
}

// serveStore starts a node on an already migrated store
func serveStore(cfg *config.Config, store storage.Store, logger *slog.Logger) (*Node, error) {
	engine := chain.New(store, chain.Config{
		ChainID:          cfg.Chain.ChainID,
		GenesisTimestamp: cfg.Chain.GenesisTimestamp,
		DevAccounts:      cfg.Chain.DevAccounts,
		DevSeed:          cfg.Chain.DevSeed,
	}, logger)
	if err := engine.Init(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize chain: %w", err)
	}

	srv, err := server.New(cfg, store, engine, "0.1.0-e2e", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Node{
		Config:     cfg,
		Store:      store,
		Engine:     engine,
		Server:     srv,
		TestServer: httptest.NewServer(srv.Handler()),
	}, nil
}

// newClient creates a new API client for the shared node
func newClient(apiKey string) *client.Client {
	return client.New(testCtx.Node.TestServer.URL, apiKey)
}

// authedClient returns a client carrying the suite's API key
func authedClient() *client.Client {
	return newClient(testCtx.APIKey)
}

// createTestAPIKey creates a test API key using the store directly
func createTestAPIKey(t *testing.T, store storage.Store, name string) string {
	key, err := store.CreateAPIKey(context.Background(), name)
	require.NoError(t, err, "Failed to create API key")
	return key
}

// assertHTTPError checks that err is an APIError with the given code
func assertHTTPError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %T: %v", err, err)
	assert.Equal(t, code, apiErr.Code)
}

// assertReverted checks that err is a revert with the given reason
func assertReverted(t *testing.T, err error, reason string) {
	t.Helper()
	got, ok := client.RevertReason(err)
	require.True(t, ok, "expected revert %s, got %v", reason, err)
	assert.Equal(t, reason, got)
}

// devAccounts returns the node's dev account addresses
func devAccounts(t *testing.T, c *client.Client) []string {
	t.Helper()
	accounts, err := c.Accounts(context.Background())
	require.NoError(t, err)
	addrs := make([]string, len(accounts))
	for i, a := range accounts {
		addrs[i] = a.Address
	}
	return addrs
}

// deployFundedVault deploys a token and a vault owned by owner, funds the vault
// and sets recipient. It returns the token and vault addresses.
func deployFundedVault(t *testing.T, c *client.Client, owner, recipient, claimAmount string, funding int64) (string, string) {
	t.Helper()
	ctx := context.Background()

	tokenReceipt, err := c.DeployToken(ctx, client.DeployTokenRequest{From: owner})
	require.NoError(t, err)
	token := tokenReceipt.ContractAddress

	vaultReceipt, err := c.DeployVault(ctx, client.DeployVaultRequest{
		From:        owner,
		Token:       token,
		ClaimAmount: claimAmount,
	})
	require.NoError(t, err)
	vault := vaultReceipt.ContractAddress

	_, err = c.Transfer(ctx, owner, token, vault, big.NewInt(funding))
	require.NoError(t, err)
	_, err = c.SetRecipient(ctx, owner, vault, recipient)
	require.NoError(t, err)

	return token, vault
}

// rpcEndpoint returns the node's JSON-RPC URL for the given scheme
func rpcEndpoint(scheme string) string {
	base := testCtx.Node.TestServer.URL
	if scheme == "ws" {
		return strings.Replace(base, "http://", "ws://", 1) + "/ws"
	}
	return base + "/rpc"
}
