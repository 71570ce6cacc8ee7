//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"math/big"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leodarkseid/elkstaking/pkg/client"
)

// TestAuth_UnauthenticatedRead tests that read endpoints work without authentication
func TestAuth_UnauthenticatedRead(t *testing.T) {
	c := authedClient()
	accounts := devAccounts(t, c)
	token, vault := deployFundedVault(t, c, accounts[0], accounts[1], "1000", 5000)

	unauthedClient := newClient("")
	ctx := context.Background()

	t.Run("head without auth", func(t *testing.T) {
		head, err := unauthedClient.Head(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(31337), head.ChainID)
	})

	t.Run("accounts without auth", func(t *testing.T) {
		got, err := unauthedClient.Accounts(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 10)
	})

	t.Run("token without auth", func(t *testing.T) {
		tok, err := unauthedClient.GetToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "ELK", tok.Symbol)
	})

	t.Run("balance without auth", func(t *testing.T) {
		balance, err := unauthedClient.BalanceOf(ctx, token, vault)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(5000), balance)
	})

	t.Run("vault without auth", func(t *testing.T) {
		v, err := unauthedClient.GetVault(ctx, vault)
		require.NoError(t, err)
		assert.Equal(t, "1000", v.AvailableAmount)
	})

	t.Run("contract registry without auth", func(t *testing.T) {
		contract, err := unauthedClient.GetContract(ctx, vault)
		require.NoError(t, err)
		assert.Equal(t, "vault", contract.Kind)
	})
}

// TestAuth_UnauthenticatedWriteRejected tests that write operations require authentication
func TestAuth_UnauthenticatedWriteRejected(t *testing.T) {
	accounts := devAccounts(t, authedClient())
	unauthedClient := newClient("")
	ctx := context.Background()

	t.Run("deploy token without auth", func(t *testing.T) {
		_, err := unauthedClient.DeployToken(ctx, client.DeployTokenRequest{From: accounts[0]})
		assertHTTPError(t, err, "UNAUTHORIZED")
	})

	t.Run("deploy marketplace without auth", func(t *testing.T) {
		_, err := unauthedClient.DeployMarketplace(ctx, accounts[0])
		assertHTTPError(t, err, "UNAUTHORIZED")
	})

	t.Run("mine without auth", func(t *testing.T) {
		_, err := unauthedClient.Mine(ctx)
		assertHTTPError(t, err, "UNAUTHORIZED")
	})

	t.Run("increase time without auth", func(t *testing.T) {
		_, err := unauthedClient.IncreaseTime(ctx, 60)
		assertHTTPError(t, err, "UNAUTHORIZED")
	})

	t.Run("json-rpc without auth", func(t *testing.T) {
		body := []byte(`{"jsonrpc":"2.0","id":1,"method":"eth_chainId","params":[]}`)
		resp, err := http.Post(rpcEndpoint("http"), "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

// TestAuth_InvalidKey tests that a made-up key is rejected
func TestAuth_InvalidKey(t *testing.T) {
	accounts := devAccounts(t, authedClient())

	_, err := newClient("elk_key_not-a-real-key").DeployToken(context.Background(), client.DeployTokenRequest{From: accounts[0]})
	assertHTTPError(t, err, "UNAUTHORIZED")
}

// TestAuth_RevokedKey tests that revoked keys stop working
func TestAuth_RevokedKey(t *testing.T) {
	ctx := context.Background()
	store := testCtx.Node.Store
	accounts := devAccounts(t, authedClient())

	key := createTestAPIKey(t, store, "e2e-revoke")
	c := newClient(key)

	_, err := c.DeployMarketplace(ctx, accounts[0])
	require.NoError(t, err)

	validated, err := store.ValidateAPIKey(ctx, key)
	require.NoError(t, err)
	require.NoError(t, store.RevokeAPIKey(ctx, validated.ID))

	_, err = c.DeployMarketplace(ctx, accounts[0])
	assertHTTPError(t, err, "UNAUTHORIZED")
}
