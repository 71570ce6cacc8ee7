package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leodarkseid/elkstaking/internal/chain"
	"github.com/leodarkseid/elkstaking/internal/chain/chaintest"
	"github.com/leodarkseid/elkstaking/internal/config"
	"github.com/leodarkseid/elkstaking/internal/storage"
)

func testConfig(authType string) *config.Config {
	return &config.Config{
		Auth:     config.AuthConfig{Type: authType},
		Security: config.SecurityConfig{MaxBodySizeKB: 64},
		Metrics:  config.MetricsConfig{Enabled: false},
		Token:    config.TokenConfig{Name: "Elk", Symbol: "ELK", Decimals: 18, InitialSupply: "1000000"},
		Vault:    config.VaultConfig{PeriodSeconds: 31557600, BurnPolicy: config.BurnPolicyIndependent},
	}
}

type testServer struct {
	*httptest.Server
	store  storage.Store
	engine *chain.Engine
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	store := chaintest.NewStore(t)
	clock := chaintest.NewClock(chaintest.Genesis)
	engine := chain.New(store, chaintest.Config(), chaintest.Logger(), chain.WithClock(clock.Now))
	require.NoError(t, engine.Init(context.Background()))

	srv, err := New(cfg, store, engine, "1.2.3", chaintest.Logger())
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, store: store, engine: engine}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestNew_InvalidSupply(t *testing.T) {
	cfg := testConfig("none")
	cfg.Token.InitialSupply = "lots"
	store := chaintest.NewStore(t)
	engine := chain.New(store, chaintest.Config(), chaintest.Logger())

	_, err := New(cfg, store, engine, "dev", chaintest.Logger())
	assert.ErrorContains(t, err, "TOKEN_INITIAL_SUPPLY")
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t, testConfig("none"))

	for _, path := range []string{"/health", "/healthz"} {
		resp, body := ts.do(t, "GET", path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["status"])
	}

	resp, body := ts.do(t, "GET", "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["blockNumber"])

	resp, body = ts.do(t, "GET", "/api/v1/version", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, float64(31337), body["chainId"])

	resp, _ = ts.do(t, "OPTIONS", "/api/v1/vaults", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRoutes_Lifecycle(t *testing.T) {
	ts := newTestServer(t, testConfig("none"))
	owner := ts.engine.DevAccounts()[0].Address.Hex()
	recipient := ts.engine.DevAccounts()[1].Address.Hex()

	resp, body := ts.do(t, "POST", "/api/v1/tokens", `{"from":"`+owner+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	token := body["contractAddress"].(string)

	resp, body = ts.do(t, "POST", "/api/v1/vaults", `{"from":"`+owner+`","token":"`+token+`","claimAmount":"1000"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	vault := body["contractAddress"].(string)

	resp, _ = ts.do(t, "POST", "/api/v1/tokens/"+token+"/transfer", `{"from":"`+owner+`","to":"`+vault+`","amount":"20000"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ts.do(t, "POST", "/api/v1/vaults/"+vault+"/recipient", `{"from":"`+owner+`","recipient":"`+recipient+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = ts.do(t, "POST", "/api/v1/vaults/"+vault+"/claim", `{"from":"`+owner+`","amount":"900"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED_CALLER", body["error"].(map[string]any)["reason"])

	resp, _ = ts.do(t, "POST", "/api/v1/vaults/"+vault+"/claim", `{"from":"`+recipient+`","amount":"900"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = ts.do(t, "GET", "/api/v1/vaults/"+vault, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "100", body["availableAmount"])
	assert.Equal(t, "19100", body["balance"])

	resp, body = ts.do(t, "GET", "/api/v1/contracts?kind=vault", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)

	resp, body = ts.do(t, "GET", "/api/v1/chain/receipts?status=0", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t, testConfig("api-key"))
	owner := ts.engine.DevAccounts()[0].Address.Hex()
	key, err := ts.store.CreateAPIKey(context.Background(), "ci")
	require.NoError(t, err)

	// reads stay open
	resp, _ := ts.do(t, "GET", "/api/v1/chain", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.do(t, "POST", "/api/v1/tokens", `{"from":"`+owner+`"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	resp, _ = ts.do(t, "POST", "/api/v1/chain/mine", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, "POST", "/rpc", `{"jsonrpc":"2.0","id":1,"method":"eth_blockNumber","params":[]}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, "POST", "/api/v1/tokens", `{"from":"`+owner+`"}`, "X-API-Key", key)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = ts.do(t, "POST", "/rpc", `{"jsonrpc":"2.0","id":1,"method":"eth_blockNumber","params":[]}`, "Authorization", "Bearer "+key)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0x1", body["result"])
}

func TestRPC(t *testing.T) {
	ts := newTestServer(t, testConfig("none"))
	ctx := context.Background()

	client, err := rpc.DialHTTP(ts.URL + "/rpc")
	require.NoError(t, err)
	defer client.Close()

	var chainID hexutil.Uint64
	require.NoError(t, client.CallContext(ctx, &chainID, "eth_chainId"))
	assert.Equal(t, hexutil.Uint64(31337), chainID)

	ws, err := rpc.DialWebsocket(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", "")
	require.NoError(t, err)
	defer ws.Close()

	var offset int64
	require.NoError(t, ws.CallContext(ctx, &offset, "evm_increaseTime", 3600))
	assert.Equal(t, int64(3600), offset)
}

func TestBodyLimit(t *testing.T) {
	ts := newTestServer(t, testConfig("none"))
	big := `{"from":"` + string(bytes.Repeat([]byte("a"), 70*1024)) + `"}`

	resp, body := ts.do(t, "POST", "/api/v1/tokens", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", body["error"].(map[string]any)["code"])
}
