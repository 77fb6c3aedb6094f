// Package rest provides the HTTP/JSON API server for gas prices.
package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/holiman/uint256"

	"github.com/branched-services/go-gasprice/pkg/gasprice"
)

// PriceReader is the tracker surface the API serves.
type PriceReader interface {
	Estimate(ctx context.Context) (gasprice.GasPriceEstimate, error)
	Ready() bool
}

var _ PriceReader = (*gasprice.Tracker)(nil)

// estimateTimeout bounds the on-demand fetch a cold Estimate call may run.
const estimateTimeout = 10 * time.Second

// Server provides the gas price API.
type Server struct {
	addr   string
	chains map[string]PriceReader
	logger *slog.Logger
	server *http.Server
}

// NewServer creates a new API server over the given chains.
func NewServer(addr string, chains map[string]PriceReader, logger *slog.Logger) *Server {
	s := &Server{
		addr:   addr,
		chains: chains,
		logger: logger.With("component", "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/gas/price", s.handlePrice)
	mux.HandleFunc("/v1/gas/chains", s.handleChains)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: estimateTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Run starts the server. Blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", s.addr)
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down")
	return s.server.Shutdown(ctx)
}

// withMiddleware wraps the handler with common middleware.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		w.Header().Set("Content-Type", "application/json")

		// CORS for development
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)

		s.logger.Debug("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_us", time.Since(start).Microseconds(),
		)
	})
}

// PriceResponse is the API response format. Wei values are decimal strings
// so clients never round-trip them through floats.
type PriceResponse struct {
	Chain                     string `json:"chain"`
	FastWei                   string `json:"fast_wei"`
	L1CalldataPricePerUnitWei string `json:"l1_calldata_price_per_unit_wei"`
}

// ChainStatus is one entry of the chain listing.
type ChainStatus struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// handlePrice returns the current estimate for one chain.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := r.URL.Query().Get("chain")
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "chain query parameter is required")
		return
	}

	reader, ok := s.chains[name]
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown chain %q", name))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), estimateTimeout)
	defer cancel()

	est, err := reader.Estimate(ctx)
	if err != nil {
		if errors.Is(err, gasprice.ErrEstimationFailed) || errors.Is(err, gasprice.ErrStopped) {
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(PriceResponse{
		Chain:                     name,
		FastWei:                   weiString(est.FastWei),
		L1CalldataPricePerUnitWei: weiString(est.L1CalldataPricePerUnitWei),
	})
}

// handleChains lists tracked chains and their readiness.
func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	statuses := make([]ChainStatus, 0, len(s.chains))
	for name, reader := range s.chains {
		statuses = append(statuses, ChainStatus{Name: name, Ready: reader.Ready()})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string][]ChainStatus{"chains": statuses})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func weiString(v *uint256.Int) string {
	if v == nil {
		return ""
	}
	return v.Dec()
}
