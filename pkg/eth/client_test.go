package eth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/holiman/uint256"
)

func rpcServer(t *testing.T, response string, onRequest func(rpcRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if onRequest != nil {
			onRequest(req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(response))
	}))
}

func TestClient_GasPrice(t *testing.T) {
	var got rpcRequest
	srv := rpcServer(t, `{"jsonrpc":"2.0","id":1,"result":"0x2540be400"}`, func(req rpcRequest) {
		got = req
	})
	defer srv.Close()

	client := NewClient(srv.URL)
	defer client.Close()

	price, err := client.GasPrice(context.Background())
	if err != nil {
		t.Fatalf("GasPrice() error = %v", err)
	}
	if want := uint256.NewInt(10_000_000_000); !price.Eq(want) {
		t.Errorf("GasPrice() = %v, want %v", price, want)
	}

	if got.JSONRPC != "2.0" {
		t.Errorf("request jsonrpc = %q, want %q", got.JSONRPC, "2.0")
	}
	if got.Method != "eth_gasPrice" {
		t.Errorf("request method = %q, want %q", got.Method, "eth_gasPrice")
	}
	if got.Params == nil || len(got.Params) != 0 {
		t.Errorf("request params = %v, want empty array", got.Params)
	}
	if got.ID == 0 {
		t.Errorf("request id = 0, want monotonically assigned id")
	}
}

func TestClient_GasPrice_RPCError(t *testing.T) {
	srv := rpcServer(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`, nil)
	defer srv.Close()

	client := NewClient(srv.URL)
	defer client.Close()

	_, err := client.GasPrice(context.Background())
	if err == nil {
		t.Fatal("GasPrice() expected error, got nil")
	}
	var rpcErr *rpcError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("GasPrice() error = %v, want *rpcError", err)
	}
	if rpcErr.Message != "method not found" {
		t.Errorf("rpc error message = %q, want %q", rpcErr.Message, "method not found")
	}
}

func TestClient_GasPrice_MalformedResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "null result", response: `{"jsonrpc":"2.0","id":1,"result":null}`},
		{name: "numeric result", response: `{"jsonrpc":"2.0","id":1,"result":12}`},
		{name: "non-hex string", response: `{"jsonrpc":"2.0","id":1,"result":"fast"}`},
		{name: "object result", response: `{"jsonrpc":"2.0","id":1,"result":{"price":"0x1"}}`},
		{name: "not json", response: `<html>502 bad gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := rpcServer(t, tt.response, nil)
			defer srv.Close()

			client := NewClient(srv.URL)
			defer client.Close()

			_, err := client.GasPrice(context.Background())
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("GasPrice() error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestClient_GasPrice_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	defer client.Close()

	_, err := client.GasPrice(context.Background())
	if err == nil {
		t.Fatal("GasPrice() expected error, got nil")
	}
}

func TestClient_GasPrice_NoURL(t *testing.T) {
	client := NewClient("")
	defer client.Close()

	_, err := client.GasPrice(context.Background())
	if !errors.Is(err, ErrNoURL) {
		t.Errorf("GasPrice() error = %v, want ErrNoURL", err)
	}
}

func TestHexBig_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    *uint256.Int
		wantErr bool
	}{
		{name: "zero", data: `"0x0"`, want: uint256.NewInt(0)},
		{name: "one gwei", data: `"0x3b9aca00"`, want: uint256.NewInt(1_000_000_000)},
		{name: "large value", data: `"0x2540be400"`, want: uint256.NewInt(10_000_000_000)},
		{name: "missing prefix", data: `"3b9aca00"`, wantErr: true},
		{name: "not hex", data: `"0xzz"`, wantErr: true},
		{name: "number", data: `123`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h hexBig
			err := json.Unmarshal([]byte(tt.data), &h)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("UnmarshalJSON(%s) expected error, got nil", tt.data)
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalJSON(%s) error = %v", tt.data, err)
			}
			if !h.Int().Eq(tt.want) {
				t.Errorf("UnmarshalJSON(%s) = %v, want %v", tt.data, h.Int(), tt.want)
			}
		})
	}
}
