package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/interlay/vault-runner/internal/chainkey"
	"github.com/interlay/vault-runner/internal/retry"
)

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	ID      uint64        `json:"id"`
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope. Result is left as raw
// JSON so the caller decides how to interpret a null vs. a hex string.
type rpcResponse struct {
	ID      uint64          `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client is a JSON-RPC client over a single WebSocket connection to the
// chain node. It issues one request at a time — the Runner never needs
// concurrent RPCs — but still serializes writes under a mutex because
// *websocket.Conn is not safe for concurrent writers, matching the
// single-writer-goroutine discipline the teacher's own WebSocket code
// enforces on the server side.
type Client struct {
	url    string
	logger *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID atomic.Uint64
}

// Dial connects to the chain node's WebSocket RPC endpoint. The
// returned Client is the "already-connected RPC client" the Runner is
// constructed with (spec.md §6).
func Dial(ctx context.Context, url string, logger *zap.Logger) (*Client, error) {
	c := &Client{url: url, logger: logger.Named("chain")}
	if err := c.redial(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// redial closes any existing connection and opens a fresh one. Called at
// construction time and again whenever a call observes a transport
// error, so the next call gets a healthy connection instead of
// repeatedly writing to a dead socket.
func (c *Client) redial(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrRPC, c.url, err)
	}
	c.conn = conn
	return nil
}

// call issues a single JSON-RPC request and returns its raw result.
func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	id := c.nextID.Add(1)
	req := rpcRequest{ID: id, JSONRPC: "2.0", Method: method, Params: params}

	if conn == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no connection", ErrRPC)
	}

	writeErr := conn.WriteJSON(req)
	if writeErr != nil {
		c.mu.Unlock()
		_ = c.redial(ctx)
		return nil, fmt.Errorf("%w: write: %v", ErrRPC, writeErr)
	}

	var resp rpcResponse
	readErr := conn.ReadJSON(&resp)
	c.mu.Unlock()
	if readErr != nil {
		_ = c.redial(ctx)
		return nil, fmt.Errorf("%w: read: %v", ErrRPC, readErr)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("%w: node returned error %d: %s", ErrRPC, resp.Error.Code, resp.Error.Message)
	}

	return resp.Result, nil
}

// QueryStorage issues state_getStorage for the given hex key. A null or
// "not found" response returns (nil, nil). A transport or protocol
// error is also swallowed into (nil, nil) at this layer — reproduced
// verbatim from the source behavior (spec.md §4.C): the caller
// differentiates "missing" from "never got an answer" only by elapsed
// retry budget, not by an error value returned here. The swallowed
// error is still logged at WARN so operators retain visibility that the
// source behavior otherwise discards.
func (c *Client) QueryStorage(ctx context.Context, keyHex string) ([]byte, error) {
	raw, err := c.call(ctx, "state_getStorage", []interface{}{keyHex})
	if err != nil {
		c.logger.Warn("chain: query_storage swallowed a transport error into a missing result",
			zap.String("key", keyHex),
			zap.Error(err),
		)
		return nil, nil
	}

	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var hexResult string
	if err := json.Unmarshal(raw, &hexResult); err != nil {
		c.logger.Warn("chain: query_storage got a non-string result, treating as missing",
			zap.String("key", keyHex),
			zap.Error(err),
		)
		return nil, nil
	}
	if hexResult == "" {
		return nil, nil
	}

	return decodeHex(hexResult)
}

func decodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && s[1] == 'x' {
		s = s[2:]
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi := hexNibble(s[2*i])
		lo := hexNibble(s[2*i+1])
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// TryGetRelease reads and decodes the current or pending ClientRelease,
// under the retry harness. pending selects PendingClientRelease over
// CurrentClientRelease. Returns (nil, nil) if the chain has no value
// published at that key.
func (c *Client) TryGetRelease(ctx context.Context, pending bool) (*ClientRelease, error) {
	item := chainkey.ItemCurrentClientRelease
	if pending {
		item = chainkey.ItemPendingClientRelease
	}
	key := chainkey.StorageKey(chainkey.Module, item)

	return retry.Do(ctx, c.logger, "try_get_release:"+item, func() (*ClientRelease, error) {
		raw, err := c.QueryStorage(ctx, key)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, nil
		}
		release, err := DecodeClientRelease(raw)
		if err != nil {
			return nil, err
		}
		return &release, nil
	})
}

// Close closes the underlying WebSocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
