// Package ledger wraps the Solana RPC surface the checkout depends on:
// token account derivation and probing, transfer instruction building,
// and best-effort account visibility waits.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// AccountReader is the subset of the RPC client the ledger package
// consumes. *rpc.Client satisfies it; tests supply fakes.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) (*rpc.GetMultipleAccountsResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
}

const (
	defaultWaitTimeout  = 15 * time.Second
	defaultPollInterval = 500 * time.Millisecond
)

// Client provides account-level queries over an AccountReader.
type Client struct {
	reader       AccountReader
	waitTimeout  time.Duration
	pollInterval time.Duration
}

// NewClient connects to the given RPC endpoint.
func NewClient(rpcURL string) *Client {
	return NewClientWithReader(rpc.New(rpcURL))
}

// NewClientWithReader builds a Client over an existing reader.
func NewClientWithReader(reader AccountReader) *Client {
	return &Client{
		reader:       reader,
		waitTimeout:  defaultWaitTimeout,
		pollInterval: defaultPollInterval,
	}
}

// SetWaitPolicy overrides the visibility-wait ceiling and poll step.
func (c *Client) SetWaitPolicy(timeout, interval time.Duration) {
	c.waitTimeout = timeout
	c.pollInterval = interval
}

// Reader exposes the underlying account reader.
func (c *Client) Reader() AccountReader {
	return c.reader
}

// AccountExists reports whether the account is visible on the ledger.
// A not-found response is not an error.
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	res, err := c.reader.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return res != nil && res.Value != nil, nil
}

// WaitForAccount polls until the account becomes visible, the wait
// ceiling elapses, or ctx is done. The wait is best effort: it absorbs
// ledger propagation latency, so timing out is not an error. The
// return value reports whether the account was seen.
func (c *Client) WaitForAccount(ctx context.Context, account solana.PublicKey) bool {
	deadline := time.Now().Add(c.waitTimeout)
	for time.Now().Before(deadline) {
		exists, err := c.AccountExists(ctx, account)
		if err == nil && exists {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.pollInterval):
		}
	}
	return false
}
