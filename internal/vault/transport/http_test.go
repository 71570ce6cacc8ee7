package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leodarkseid/elkstaking/internal/chain/chaintest"
	tokendomain "github.com/leodarkseid/elkstaking/internal/token/domain"
	"github.com/leodarkseid/elkstaking/internal/vault/domain"
)

type env struct {
	router    *chi.Mux
	owner     string
	recipient string
	vault     string
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	engine, _ := chaintest.NewEngine(t)
	tokens := tokendomain.NewService(engine, tokendomain.Defaults{Name: "Elk", Symbol: "ELK", Decimals: 18, InitialSupply: big.NewInt(1_000_000)})
	vaults := domain.NewService(engine, nil, domain.Defaults{PeriodSeconds: 31_557_600})
	owner := engine.DevAccounts()[0].Address

	r, err := tokens.Deploy(ctx, owner, tokendomain.DeployRequest{})
	require.NoError(t, err)
	token := *r.ContractAddress

	router := chi.NewRouter()
	h := NewHandler(domain.LoggingMiddleware(chaintest.Logger())(vaults))
	router.Route("/vaults", func(r chi.Router) {
		h.RegisterReadRoutes(r)
		h.RegisterWriteRoutes(r)
	})

	e := &env{router: router, owner: owner.Hex(), recipient: engine.DevAccounts()[1].Address.Hex()}
	rec, resp := e.do(t, "POST", "/vaults/", fmt.Sprintf(`{"from":%q,"token":%q,"claimAmount":"1000"}`, e.owner, token.Hex()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e.vault = resp["contractAddress"].(string)

	_, err = tokens.Transfer(ctx, owner, token, common.HexToAddress(e.vault), big.NewInt(20000))
	require.NoError(t, err)
	return e
}

func (e *env) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func (e *env) get(t *testing.T) map[string]any {
	t.Helper()
	rec, resp := e.do(t, "GET", "/vaults/"+e.vault, "")
	require.Equal(t, http.StatusOK, rec.Code)
	return resp
}

func TestHandler_Flow(t *testing.T) {
	e := setup(t)

	info := e.get(t)
	assert.Equal(t, "1000", info["claimAmount"])
	assert.Equal(t, "20000", info["balance"])
	assert.Equal(t, "independent", info["burnPolicy"])
	assert.Equal(t, float64(2023), info["vaultYear"])
	assert.NotContains(t, info, "recipient")

	rec, _ := e.do(t, "POST", "/vaults/"+e.vault+"/recipient", fmt.Sprintf(`{"from":%q,"recipient":%q}`, e.owner, e.recipient))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(t, "POST", "/vaults/"+e.vault+"/claim", fmt.Sprintf(`{"from":%q,"amount":"900"}`, e.recipient))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := e.do(t, "POST", "/vaults/"+e.vault+"/claim-all", fmt.Sprintf(`{"from":%q}`, e.recipient))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp["logs"], 2)

	rec, _ = e.do(t, "POST", "/vaults/"+e.vault+"/burn", fmt.Sprintf(`{"from":%q,"amount":"100"}`, e.recipient))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = e.do(t, "POST", "/vaults/"+e.vault+"/update-time", fmt.Sprintf(`{"from":%q}`, e.owner))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp["logs"])

	info = e.get(t)
	assert.Equal(t, e.recipient, info["recipient"])
	assert.Equal(t, "0", info["availableAmount"])
	assert.Equal(t, "100", info["burnedTokens"])
	assert.Equal(t, "19000", info["balance"])
	assert.Equal(t, "18900", info["withdrawableBalance"])
	assert.Equal(t, "Exhausted", info["status"])
}

func TestHandler_Errors(t *testing.T) {
	e := setup(t)

	t.Run("revert", func(t *testing.T) {
		rec, resp := e.do(t, "POST", "/vaults/"+e.vault+"/claim", fmt.Sprintf(`{"from":%q,"amount":"1"}`, e.owner))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errBody := resp["error"].(map[string]any)
		assert.Equal(t, "EXECUTION_REVERTED", errBody["code"])
		assert.Equal(t, domain.ReasonUnauthorized, errBody["reason"])
	})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"missing vault", "GET", "/vaults/0x000000000000000000000000000000000000bEEF", "", http.StatusNotFound},
		{"bad vault address", "GET", "/vaults/0x12", "", http.StatusBadRequest},
		{"claim on missing vault", "POST", "/vaults/0x000000000000000000000000000000000000bEEF/claim", fmt.Sprintf(`{"from":%q,"amount":"1"}`, e.owner), http.StatusNotFound},
		{"negative amount", "POST", "/vaults/" + e.vault + "/burn", fmt.Sprintf(`{"from":%q,"amount":"-1"}`, e.owner), http.StatusBadRequest},
		{"invalid json", "POST", "/vaults/" + e.vault + "/claim-all", "{", http.StatusBadRequest},
		{"bad policy", "POST", "/vaults/", fmt.Sprintf(`{"from":%q,"token":%q,"claimAmount":"1","burnPolicy":"never"}`, e.owner, e.vault), http.StatusBadRequest},
		{"token not found", "POST", "/vaults/", fmt.Sprintf(`{"from":%q,"token":"0x000000000000000000000000000000000000bEEF","claimAmount":"1"}`, e.owner), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := e.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, resp, "error")
		})
	}
}
