package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	sgo "github.com/gagliardetto/solana-go"
)

var SystemProgramID = sgo.SystemProgramID.String()

// Client is a minimal JSON-RPC client for the calls wolfd needs.
type Client struct {
	URL    string
	HTTP   *http.Client
	nextID atomic.Uint64
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		URL:  strings.TrimSpace(url),
		HTTP: &http.Client{Timeout: timeout},
	}
}

// GetTransaction fetches a confirmed transaction in jsonParsed encoding. A
// nil transaction with a nil error means the node does not know the
// signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []any{
		signature,
		map[string]any{
			"encoding":                       "jsonParsed",
			"maxSupportedTransactionVersion": 0,
		},
	}
	var tx *Transaction
	if err := c.call(ctx, "getTransaction", params, &tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		msg := "solana rpc request failed"
		if trimmed := strings.TrimSpace(string(respBody)); trimmed != "" {
			msg = fmt.Sprintf("%s: %s", msg, trimmed)
		}
		return fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
	}

	var parsed rpcResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if parsed.Error != nil {
		return parsed.Error
	}
	if len(parsed.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(parsed.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// ParseSignature checks that s is a base58 transaction signature.
func ParseSignature(s string) (string, error) {
	sig, err := sgo.SignatureFromBase58(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid signature: %w", err)
	}
	return sig.String(), nil
}

// ParseAddress checks that s is a base58 account address.
func ParseAddress(s string) (string, error) {
	pk, err := sgo.PublicKeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}
	return pk.String(), nil
}
