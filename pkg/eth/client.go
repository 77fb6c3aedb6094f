// Package eth provides the JSON-RPC node client used as a gas price source.
package eth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/holiman/uint256"
)

var (
	// ErrNoURL is returned by GasPrice when the client was constructed
	// without a node URL.
	ErrNoURL = errors.New("node rpc url not configured")

	// ErrMalformedResponse is returned when the node answers with a body
	// that does not match the JSON-RPC shape expected for the call.
	ErrMalformedResponse = errors.New("malformed rpc response")
)

// Client queries an Ethereum execution node via JSON-RPC over HTTP.
type Client struct {
	httpURL    string
	httpClient *http.Client
	requestID  atomic.Uint64
}

// NewClient creates a new node RPC client. The URL may be empty; calls on
// such a client fail with ErrNoURL, letting a caller fall through to other
// sources instead of dialing nothing.
func NewClient(httpURL string) *Client {
	return &Client{
		httpURL: httpURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 1000,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name identifies this source in logs and metrics.
func (c *Client) Name() string {
	return "node"
}

// GasPrice returns the node's current gas price suggestion in wei
// (eth_gasPrice).
func (c *Client) GasPrice(ctx context.Context) (*uint256.Int, error) {
	if c.httpURL == "" {
		return nil, ErrNoURL
	}

	var price hexBig
	if err := c.call(ctx, "eth_gasPrice", nil, &price); err != nil {
		return nil, err
	}
	return price.Int(), nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// rpcRequest represents a JSON-RPC request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse represents a JSON-RPC response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	if params == nil {
		params = []any{}
	}
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.httpURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: unmarshaling result: %w", ErrMalformedResponse, err)
		}
	}

	return nil
}

// hexBig handles hex-encoded big.Int values in JSON-RPC responses.
type hexBig uint256.Int

func (h *hexBig) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	val, err := uint256.FromHex(s)
	if err != nil {
		return fmt.Errorf("invalid hex big int: %s", s)
	}
	*h = hexBig(*val)
	return nil
}

func (h *hexBig) Int() *uint256.Int {
	return (*uint256.Int)(h)
}
