// Package paymaster talks to the fee-sponsorship service: it supplies
// a fee-paying key, a recent blockhash, and a submit path for
// fee-sponsored transactions.
package paymaster

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Paymaster is the collaborator contract the checkout consumes.
type Paymaster interface {
	GetPayer(ctx context.Context) (solana.PublicKey, error)
	GetBlockhash(ctx context.Context) (solana.Hash, error)
	SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Client is a JSON-RPC client for the paymaster service.
type Client struct {
	url  string
	http *http.Client
}

var _ Paymaster = (*Client)(nil)

// NewClient builds a Client for the given paymaster endpoint.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:  url,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// GetPayer returns the fee payer's public key.
func (c *Client) GetPayer(ctx context.Context) (solana.PublicKey, error) {
	var result string
	if err := c.call(ctx, "getPayer", nil, &result); err != nil {
		return solana.PublicKey{}, fmt.Errorf("paymaster getPayer: %w", err)
	}
	payer, err := solana.PublicKeyFromBase58(result)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("paymaster returned invalid payer %q: %w", result, err)
	}
	return payer, nil
}

// GetBlockhash returns a recent blockhash usable for a sponsored
// transaction.
func (c *Client) GetBlockhash(ctx context.Context) (solana.Hash, error) {
	var result string
	if err := c.call(ctx, "getBlockhash", nil, &result); err != nil {
		return solana.Hash{}, fmt.Errorf("paymaster getBlockhash: %w", err)
	}
	hash, err := solana.HashFromBase58(result)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("paymaster returned invalid blockhash %q: %w", result, err)
	}
	return hash, nil
}

// SignAndSend submits the transaction through the paymaster, which
// countersigns as fee payer and relays it to the network.
func (c *Client) SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("encode transaction: %w", err)
	}

	params := []any{base64.StdEncoding.EncodeToString(raw)}
	var result string
	if err := c.call(ctx, "signAndSend", params, &result); err != nil {
		return solana.Signature{}, fmt.Errorf("paymaster signAndSend: %w", err)
	}
	sig, err := solana.SignatureFromBase58(result)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("paymaster returned invalid signature %q: %w", result, err)
	}
	return sig, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
