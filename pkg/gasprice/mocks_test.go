package gasprice

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/holiman/uint256"
)

// mockSource stubs a gas price source. Calls are counted, and the price
// function can be swapped while a poll loop is running.
type mockSource struct {
	name  string
	calls atomic.Int64

	mu         sync.Mutex
	gasPriceFn func(ctx context.Context) (*uint256.Int, error)
}

func (m *mockSource) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockSource) GasPrice(ctx context.Context) (*uint256.Int, error) {
	m.calls.Add(1)
	m.mu.Lock()
	fn := m.gasPriceFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return uint256.NewInt(1_000_000_000), nil
}

func (m *mockSource) setGasPriceFn(fn func(ctx context.Context) (*uint256.Int, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gasPriceFn = fn
}

func fixedPrice(wei uint64) func(ctx context.Context) (*uint256.Int, error) {
	return func(ctx context.Context) (*uint256.Int, error) {
		return uint256.NewInt(wei), nil
	}
}

func failWith(err error) func(ctx context.Context) (*uint256.Int, error) {
	return func(ctx context.Context) (*uint256.Int, error) {
		return nil, err
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
