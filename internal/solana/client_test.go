package solana

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parsedTxFixture = `{
  "jsonrpc": "2.0",
  "id": 1,
  "result": {
    "slot": 42,
    "blockTime": 1760000000,
    "meta": {
      "err": null,
      "fee": 5000,
      "preBalances": [2000000000, 1000000000, 1],
      "postBalances": [1899995000, 1100000000, 1],
      "preTokenBalances": [
        {"accountIndex": 3, "mint": "MINT", "owner": "TREASURY", "uiTokenAmount": {"amount": "5000000", "decimals": 6, "uiAmount": 5, "uiAmountString": "5"}}
      ],
      "postTokenBalances": [
        {"accountIndex": 3, "mint": "MINT", "owner": "TREASURY", "uiTokenAmount": {"amount": "10005000000", "decimals": 6, "uiAmount": 10005, "uiAmountString": "10005"}}
      ]
    },
    "transaction": {
      "signatures": ["SIG"],
      "message": {
        "accountKeys": [
          {"pubkey": "SENDER", "signer": true, "writable": true, "source": "transaction"},
          {"pubkey": "TREASURY", "signer": false, "writable": true, "source": "transaction"},
          "11111111111111111111111111111111"
        ],
        "instructions": [
          {"program": "spl-memo", "programId": "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr", "parsed": "hello"},
          {"program": "system", "programId": "11111111111111111111111111111111", "parsed": {"type": "transfer", "info": {"source": "SENDER", "destination": "TREASURY", "lamports": 100000000}}}
        ]
      }
    }
  }
}`

func TestGetTransactionRequestShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &got))
		_, _ = io.WriteString(w, parsedTxFixture)
	}))
	defer srv.Close()

	tx, err := New(srv.URL, 0).GetTransaction(context.Background(), "SIG")
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.Equal(t, "2.0", got["jsonrpc"])
	assert.Equal(t, "getTransaction", got["method"])
	params := got["params"].([]any)
	assert.Equal(t, "SIG", params[0])
	assert.Equal(t, map[string]any{"encoding": "jsonParsed", "maxSupportedTransactionVersion": float64(0)}, params[1])

	assert.Equal(t, int64(1760000000), *tx.BlockTime)
	assert.False(t, tx.Meta.Failed())
	assert.Equal(t, "SENDER", tx.AccountAt(0))
	assert.Equal(t, SystemProgramID, tx.AccountAt(2))
	assert.Equal(t, "", tx.AccountAt(9))

	_, ok := tx.Transaction.Message.Instructions[0].SystemTransfer()
	assert.False(t, ok)
	transfer, ok := tx.Transaction.Message.Instructions[1].SystemTransfer()
	require.True(t, ok)
	assert.Equal(t, SystemTransfer{Source: "SENDER", Destination: "TREASURY", Lamports: 100000000}, transfer)

	post := tx.Meta.PostTokenBalances[0].UITokenAmount.Value()
	assert.True(t, post.Equal(decimal.NewFromInt(10005)))
}

func TestGetTransactionNullResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":null}`)
	}))
	defer srv.Close()

	tx, err := New(srv.URL, 0).GetTransaction(context.Background(), "SIG")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestGetTransactionErrors(t *testing.T) {
	t.Run("rpc error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid param"}}`)
		}))
		defer srv.Close()

		_, err := New(srv.URL, 0).GetTransaction(context.Background(), "SIG")
		var rpcErr *RPCError
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, -32602, rpcErr.Code)
	})

	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "slow down", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := New(srv.URL, 0).GetTransaction(context.Background(), "SIG")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "slow down")
		assert.Contains(t, err.Error(), "status 429")
	})
}

func TestMetaFailed(t *testing.T) {
	assert.False(t, (*TransactionMeta)(nil).Failed())
	assert.False(t, (&TransactionMeta{Err: json.RawMessage("null")}).Failed())
	assert.True(t, (&TransactionMeta{Err: json.RawMessage(`{"InstructionError":[0,"Custom"]}`)}).Failed())
}

func TestTokenAmountValue(t *testing.T) {
	f := 1.5
	assert.True(t, TokenAmount{UIAmountString: "2.25"}.Value().Equal(decimal.RequireFromString("2.25")))
	assert.True(t, TokenAmount{Amount: "1500000", Decimals: 6}.Value().Equal(decimal.RequireFromString("1.5")))
	assert.True(t, TokenAmount{UIAmount: &f}.Value().Equal(decimal.RequireFromString("1.5")))
	assert.True(t, TokenAmount{}.Value().IsZero())
}

func TestParseSignatureAndAddress(t *testing.T) {
	_, err := ParseSignature("not-base58!")
	assert.Error(t, err)

	addr, err := ParseAddress("FkjfuNd1pvKLPzQWm77WfRy1yNWRhqbBPt9EexuvvmCD")
	require.NoError(t, err)
	assert.Equal(t, "FkjfuNd1pvKLPzQWm77WfRy1yNWRhqbBPt9EexuvvmCD", addr)

	_, err = ParseAddress("short")
	assert.Error(t, err)
}
