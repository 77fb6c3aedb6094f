// Package explorer provides the block-explorer stats client used as the
// primary gas price source.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/holiman/uint256"
)

var (
	// ErrNoURL is returned by GasPrice when the client was constructed
	// without a stats endpoint URL.
	ErrNoURL = errors.New("explorer url not configured")

	// ErrNoAPIKey is returned by GasPrice when no API key is configured.
	// The request is not sent; explorers reject unauthenticated stats
	// calls anyway.
	ErrNoAPIKey = errors.New("explorer api key not configured")

	// ErrMalformedResponse is returned when the stats payload does not
	// carry a numeric gas_prices.fast field.
	ErrMalformedResponse = errors.New("malformed explorer response")
)

// Client queries a block explorer's stats endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new explorer stats client. Either argument may be
// empty; calls on such a client fail with the matching sentinel, letting a
// caller fall through to other sources.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
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
	return "explorer"
}

// statsResponse mirrors the slice of the explorer stats payload this client
// consumes. Pointer fields distinguish absent values from zero so shape
// violations surface as errors instead of zero prices.
type statsResponse struct {
	GasPrices *struct {
		Fast *json.Number `json:"fast"`
	} `json:"gas_prices"`
}

// GasPrice returns the explorer's "fast" tier gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (*uint256.Int, error) {
	if c.baseURL == "" {
		return nil, ErrNoURL
	}
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?apikey="+url.QueryEscape(c.apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var stats statsResponse
	if err := dec.Decode(&stats); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if stats.GasPrices == nil || stats.GasPrices.Fast == nil {
		return nil, fmt.Errorf("%w: missing gas_prices.fast", ErrMalformedResponse)
	}

	return parseWei(*stats.GasPrices.Fast)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// parseWei converts the explorer's JSON number to wei. Integral values
// decode exactly; fractional values carry sub-wei precision the chain
// cannot charge, so they truncate toward zero.
func parseWei(n json.Number) (*uint256.Int, error) {
	if v, err := uint256.FromDecimal(n.String()); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil || f < 0 || f >= 1<<64 {
		return nil, fmt.Errorf("%w: gas_prices.fast %q is not a wei amount", ErrMalformedResponse, n.String())
	}
	return uint256.NewInt(uint64(f)), nil
}
