// Package client provides a Go client for the elkstaking node API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrorCodeReverted is the error code of reverted transactions
const ErrorCodeReverted = "EXECUTION_REVERTED"

// Client is an elkstaking node API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the node URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError represents an API error response
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	// Reason and TxHash are set for reverted transactions
	Reason string `json:"reason,omitempty"`
	TxHash string `json:"transactionHash,omitempty"`
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// RevertReason returns the revert reason carried by err, if any
func RevertReason(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == ErrorCodeReverted {
		return apiErr.Reason, true
	}
	return "", false
}

// Version returns the node version
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	var resp VersionInfo
	if err := c.get(ctx, "/api/v1/version", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Head returns the latest block and the chain clock
func (c *Client) Head(ctx context.Context) (*Head, error) {
	var resp Head
	if err := c.get(ctx, "/api/v1/chain", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Accounts returns the unlocked dev accounts
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var resp struct {
		Data []Account `json:"data"`
	}
	if err := c.get(ctx, "/api/v1/chain/accounts", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Block returns a block by number, or the latest block for "latest"
func (c *Client) Block(ctx context.Context, number string) (*Block, error) {
	var resp Block
	if err := c.get(ctx, "/api/v1/chain/blocks/"+url.PathEscape(number), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Receipt returns the receipt of a transaction
func (c *Client) Receipt(ctx context.Context, txHash string) (*Receipt, error) {
	var resp Receipt
	if err := c.get(ctx, "/api/v1/chain/receipts/"+url.PathEscape(txHash), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListReceipts lists receipts, newest first
func (c *Client) ListReceipts(ctx context.Context, filter ReceiptFilter) (*ListReceiptsResponse, error) {
	q := url.Values{}
	setParam(q, "from", filter.From)
	setParam(q, "to", filter.To)
	setParam(q, "method", filter.Method)
	setParam(q, "status", filter.Status)
	setParam(q, "cursor", filter.Cursor)
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	var resp ListReceiptsResponse
	if err := c.get(ctx, withQuery("/api/v1/chain/receipts", q), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IncreaseTime moves the chain clock forward and mines a block
func (c *Client) IncreaseTime(ctx context.Context, seconds int64) (*Head, error) {
	var resp Head
	if err := c.post(ctx, "/api/v1/chain/time/increase", map[string]int64{"seconds": seconds}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Mine mines an empty block
func (c *Client) Mine(ctx context.Context) (*Block, error) {
	var resp Block
	if err := c.post(ctx, "/api/v1/chain/mine", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListContracts lists deployed contracts
func (c *Client) ListContracts(ctx context.Context, filter ContractFilter) (*ListContractsResponse, error) {
	q := url.Values{}
	setParam(q, "kind", filter.Kind)
	setParam(q, "deployer", filter.Deployer)
	setParam(q, "cursor", filter.Cursor)
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	var resp ListContractsResponse
	if err := c.get(ctx, withQuery("/api/v1/contracts", q), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetContract returns a registry entry
func (c *Client) GetContract(ctx context.Context, address string) (*Contract, error) {
	var resp Contract
	if err := c.get(ctx, "/api/v1/contracts/"+url.PathEscape(address), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeployMarketplace deploys a marketplace
func (c *Client) DeployMarketplace(ctx context.Context, from string) (*Receipt, error) {
	return c.transact(ctx, "/api/v1/contracts/marketplace", map[string]string{"from": from})
}

// DeployToken deploys a token
func (c *Client) DeployToken(ctx context.Context, req DeployTokenRequest) (*Receipt, error) {
	return c.transact(ctx, "/api/v1/tokens", req)
}

// GetToken returns token metadata
func (c *Client) GetToken(ctx context.Context, token string) (*Token, error) {
	var resp Token
	if err := c.get(ctx, "/api/v1/tokens/"+url.PathEscape(token), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BalanceOf returns holder's token balance
func (c *Client) BalanceOf(ctx context.Context, token, holder string) (*big.Int, error) {
	var resp struct {
		Balance string `json:"balance"`
	}
	if err := c.get(ctx, "/api/v1/tokens/"+url.PathEscape(token)+"/balances/"+url.PathEscape(holder), &resp); err != nil {
		return nil, err
	}
	return parseAmount(resp.Balance)
}

// Transfer transfers amount of token from from to to
func (c *Client) Transfer(ctx context.Context, from, token, to string, amount *big.Int) (*Receipt, error) {
	return c.transact(ctx, "/api/v1/tokens/"+url.PathEscape(token)+"/transfer", map[string]string{
		"from":   from,
		"to":     to,
		"amount": amount.String(),
	})
}

// DeployVault deploys an insurance vault
func (c *Client) DeployVault(ctx context.Context, req DeployVaultRequest) (*Receipt, error) {
	return c.transact(ctx, "/api/v1/vaults", req)
}

// GetVault returns the vault state
func (c *Client) GetVault(ctx context.Context, vault string) (*Vault, error) {
	var resp Vault
	if err := c.get(ctx, "/api/v1/vaults/"+url.PathEscape(vault), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetRecipient sets the vault recipient
func (c *Client) SetRecipient(ctx context.Context, from, vault, recipient string) (*Receipt, error) {
	return c.transact(ctx, vaultPath(vault, "recipient"), map[string]string{"from": from, "recipient": recipient})
}

// Claim claims amount from the vault
func (c *Client) Claim(ctx context.Context, from, vault string, amount *big.Int) (*Receipt, error) {
	return c.transact(ctx, vaultPath(vault, "claim"), map[string]string{"from": from, "amount": amount.String()})
}

// ClaimAll claims everything currently claimable
func (c *Client) ClaimAll(ctx context.Context, from, vault string) (*Receipt, error) {
	return c.transact(ctx, vaultPath(vault, "claim-all"), map[string]string{"from": from})
}

// Burn writes amount off the vault's withdrawable balance
func (c *Client) Burn(ctx context.Context, from, vault string, amount *big.Int) (*Receipt, error) {
	return c.transact(ctx, vaultPath(vault, "burn"), map[string]string{"from": from, "amount": amount.String()})
}

// UpdateVaultTime rolls the vault period forward
func (c *Client) UpdateVaultTime(ctx context.Context, from, vault string) (*Receipt, error) {
	return c.transact(ctx, vaultPath(vault, "update-time"), map[string]string{"from": from})
}

func vaultPath(vault, action string) string {
	return "/api/v1/vaults/" + url.PathEscape(vault) + "/" + action
}

func (c *Client) transact(ctx context.Context, path string, body any) (*Receipt, error) {
	var receipt Receipt
	if err := c.post(ctx, path, body, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error.Code == "" {
		return &APIError{StatusCode: resp.StatusCode, Code: "HTTP_" + strconv.Itoa(resp.StatusCode), Message: resp.Status}
	}
	errResp.Error.StatusCode = resp.StatusCode
	return &errResp.Error
}

func setParam(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
