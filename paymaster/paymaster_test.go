package paymaster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payerBase58 = "7MWBWrYEeLVqd6jpGAdbhzxdAF8oEAakjUej6cp9kPvP"

func newTestServer(t *testing.T, handler func(method string, params []any) (any, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string `json:"jsonrpc"`
			ID      string `json:"id"`
			Method  string `json:"method"`
			Params  []any  `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.NotEmpty(t, req.ID)

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestClientGetPayer(t *testing.T) {
	srv := newTestServer(t, func(method string, _ []any) (any, *rpcError) {
		assert.Equal(t, "getPayer", method)
		return payerBase58, nil
	})
	defer srv.Close()

	payer, err := NewClient(srv.URL).GetPayer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payerBase58, payer.String())
}

func TestClientGetPayer_InvalidKey(t *testing.T) {
	srv := newTestServer(t, func(string, []any) (any, *rpcError) {
		return "not-a-key", nil
	})
	defer srv.Close()

	_, err := NewClient(srv.URL).GetPayer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid payer")
}

func TestClientGetBlockhash(t *testing.T) {
	want := solana.MustHashFromBase58("GfVcyD4kkTrj4bKc7WA9sZCin9JDbdT4Zkd3EittNR1W")
	srv := newTestServer(t, func(method string, _ []any) (any, *rpcError) {
		assert.Equal(t, "getBlockhash", method)
		return want.String(), nil
	})
	defer srv.Close()

	hash, err := NewClient(srv.URL).GetBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, hash)
}

func TestClientSignAndSend(t *testing.T) {
	payer := solana.MustPublicKeyFromBase58(payerBase58)
	blockhash := solana.MustHashFromBase58("GfVcyD4kkTrj4bKc7WA9sZCin9JDbdT4Zkd3EittNR1W")
	sig := solana.SignatureFromBytes(make([]byte, 64))

	var gotTx string
	srv := newTestServer(t, func(method string, params []any) (any, *rpcError) {
		assert.Equal(t, "signAndSend", method)
		require.Len(t, params, 1)
		gotTx, _ = params[0].(string)
		return sig.String(), nil
	})
	defer srv.Close()

	tx, err := solana.NewTransaction(nil, blockhash, solana.TransactionPayer(payer))
	require.NoError(t, err)

	got, err := NewClient(srv.URL).SignAndSend(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, sig, got)
	assert.NotEmpty(t, gotTx)
}

func TestClientPropagatesRPCError(t *testing.T) {
	srv := newTestServer(t, func(string, []any) (any, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "fee budget exhausted"}
	})
	defer srv.Close()

	_, err := NewClient(srv.URL).GetPayer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fee budget exhausted")
}
