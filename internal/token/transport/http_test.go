package transport

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leodarkseid/elkstaking/internal/chain/chaintest"
	"github.com/leodarkseid/elkstaking/internal/token/domain"
)

func setupRouter(t *testing.T) (*chi.Mux, common.Address, common.Address) {
	t.Helper()
	engine, _ := chaintest.NewEngine(t)
	svc := domain.NewService(engine, domain.Defaults{Name: "Elk", Symbol: "ELK", Decimals: 18, InitialSupply: big.NewInt(1000)})
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Route("/tokens", func(r chi.Router) {
		h.RegisterReadRoutes(r)
		h.RegisterWriteRoutes(r)
	})
	accounts := engine.DevAccounts()
	return r, accounts[0].Address, accounts[1].Address
}

func do(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestHandler_DeployAndGet(t *testing.T) {
	router, alice, _ := setupRouter(t)

	rec, resp := do(t, router, "POST", "/tokens/", `{"from":"`+alice.Hex()+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	address, ok := resp["contractAddress"].(string)
	require.True(t, ok)
	assert.Equal(t, float64(1), resp["status"])

	rec, resp = do(t, router, "GET", "/tokens/"+address, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ELK", resp["symbol"])
	assert.Equal(t, "1000", resp["totalSupply"])
	assert.Equal(t, alice.Hex(), resp["deployer"])

	rec, resp = do(t, router, "GET", "/tokens/"+address+"/balances/"+alice.Hex(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1000", resp["balance"])
}

func TestHandler_Transfer(t *testing.T) {
	router, alice, bob := setupRouter(t)
	_, resp := do(t, router, "POST", "/tokens/", `{"from":"`+alice.Hex()+`","symbol":"TST","initialSupply":"500"}`)
	token := resp["contractAddress"].(string)

	t.Run("success", func(t *testing.T) {
		rec, resp := do(t, router, "POST", "/tokens/"+token+"/transfer", `{"from":"`+alice.Hex()+`","to":"`+bob.Hex()+`","amount":"200"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, resp["logs"], 1)

		_, resp = do(t, router, "GET", "/tokens/"+token+"/balances/"+bob.Hex(), "")
		assert.Equal(t, "200", resp["balance"])
	})

	t.Run("revert", func(t *testing.T) {
		rec, resp := do(t, router, "POST", "/tokens/"+token+"/transfer", `{"from":"`+bob.Hex()+`","to":"`+alice.Hex()+`","amount":"201"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		e := resp["error"].(map[string]any)
		assert.Equal(t, "EXECUTION_REVERTED", e["code"])
		assert.Equal(t, domain.ReasonInsufficientBalance, e["reason"])
		assert.NotEmpty(t, e["transactionHash"])
	})

	t.Run("bad requests", func(t *testing.T) {
		tests := []struct {
			name string
			path string
			body string
			code int
		}{
			{"invalid json", "/tokens/" + token + "/transfer", "not json", http.StatusBadRequest},
			{"bad from", "/tokens/" + token + "/transfer", `{"from":"nope","to":"` + bob.Hex() + `","amount":"1"}`, http.StatusBadRequest},
			{"bad amount", "/tokens/" + token + "/transfer", `{"from":"` + alice.Hex() + `","to":"` + bob.Hex() + `","amount":"1.5"}`, http.StatusBadRequest},
			{"unknown account", "/tokens/" + token + "/transfer", `{"from":"0x000000000000000000000000000000000000dEaD","to":"` + bob.Hex() + `","amount":"1"}`, http.StatusBadRequest},
			{"unknown token", "/tokens/0x000000000000000000000000000000000000bEEF/transfer", `{"from":"` + alice.Hex() + `","to":"` + bob.Hex() + `","amount":"1"}`, http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec, resp := do(t, router, "POST", tt.path, tt.body)
				assert.Equal(t, tt.code, rec.Code)
				assert.Contains(t, resp, "error")
			})
		}
	})

	t.Run("get missing token", func(t *testing.T) {
		rec, _ := do(t, router, "GET", "/tokens/0x000000000000000000000000000000000000bEEF", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
