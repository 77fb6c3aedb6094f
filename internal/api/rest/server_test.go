package rest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branched-services/go-gasprice/pkg/gasprice"
)

type stubReader struct {
	estimateFn func(ctx context.Context) (gasprice.GasPriceEstimate, error)
	ready      bool
}

func (s *stubReader) Estimate(ctx context.Context) (gasprice.GasPriceEstimate, error) {
	if s.estimateFn != nil {
		return s.estimateFn(ctx)
	}
	return gasprice.GasPriceEstimate{}, nil
}

func (s *stubReader) Ready() bool {
	return s.ready
}

func newTestServer(t *testing.T, chains map[string]PriceReader) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer("", chains, logger).server.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, target any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
	return resp.StatusCode
}

func TestServer_Price(t *testing.T) {
	t.Parallel()

	chains := map[string]PriceReader{
		"ethereum": &stubReader{
			ready: true,
			estimateFn: func(context.Context) (gasprice.GasPriceEstimate, error) {
				return gasprice.GasPriceEstimate{
					FastWei:                   uint256.NewInt(1_000_000_000),
					L1CalldataPricePerUnitWei: uint256.NewInt(1_000_000_000),
				}, nil
			},
		},
	}
	srv := newTestServer(t, chains)

	var got PriceResponse
	status := getJSON(t, srv.URL+"/v1/gas/price?chain=ethereum", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ethereum", got.Chain)
	assert.Equal(t, "1000000000", got.FastWei)
	assert.Equal(t, "1000000000", got.L1CalldataPricePerUnitWei)
}

func TestServer_Price_UnknownChain(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]PriceReader{"ethereum": &stubReader{}})

	var got map[string]string
	status := getJSON(t, srv.URL+"/v1/gas/price?chain=doge", &got)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, got["error"], "unknown chain")
}

func TestServer_Price_MissingChainParam(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]PriceReader{"ethereum": &stubReader{}})

	var got map[string]string
	status := getJSON(t, srv.URL+"/v1/gas/price", &got)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_Price_EstimationFailed(t *testing.T) {
	t.Parallel()

	chains := map[string]PriceReader{
		"ethereum": &stubReader{
			estimateFn: func(context.Context) (gasprice.GasPriceEstimate, error) {
				return gasprice.GasPriceEstimate{}, gasprice.ErrEstimationFailed
			},
		},
	}
	srv := newTestServer(t, chains)

	var got map[string]string
	status := getJSON(t, srv.URL+"/v1/gas/price?chain=ethereum", &got)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, got["error"], "estimation failed")
}

func TestServer_Price_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]PriceReader{"ethereum": &stubReader{}})

	resp, err := http.Post(srv.URL+"/v1/gas/price?chain=ethereum", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Chains(t *testing.T) {
	t.Parallel()

	chains := map[string]PriceReader{
		"ethereum": &stubReader{ready: true},
		"arbitrum": &stubReader{ready: false},
	}
	srv := newTestServer(t, chains)

	var got map[string][]ChainStatus
	status := getJSON(t, srv.URL+"/v1/gas/chains", &got)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, got["chains"], 2)
	assert.Equal(t, []ChainStatus{
		{Name: "arbitrum", Ready: false},
		{Name: "ethereum", Ready: true},
	}, got["chains"], "listing is sorted by name")
}
