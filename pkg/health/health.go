// Package health provides HTTP health check endpoints.
// Implements Kubernetes-style liveness and readiness probes, and carries
// the metrics and pprof handlers so none of them share a port with the
// public API.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker is implemented by components that can report readiness.
type ReadinessChecker interface {
	Ready() bool
}

// Checks maps probe names to readiness checkers. Each entry is reported
// separately in the readiness payload, so a single cold chain is visible by
// name instead of hiding behind an aggregate boolean.
type Checks map[string]ReadinessChecker

// Ready implements ReadinessChecker over the whole set.
func (c Checks) Ready() bool {
	for _, check := range c {
		if check == nil || !check.Ready() {
			return false
		}
	}
	return true
}

// Server provides health check HTTP endpoints.
type Server struct {
	addr   string
	checks Checks
	logger *slog.Logger
	server *http.Server
	ready  atomic.Bool
}

// NewServer creates a new health server.
func NewServer(addr string, checks Checks, logger *slog.Logger) *Server {
	s := &Server{
		addr:   addr,
		checks: checks,
		logger: logger.With("component", "health"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleLiveness)
	mux.HandleFunc("/readyz", s.handleReadiness)
	mux.HandleFunc("/", s.handleRoot)
	mux.Handle("/metrics", promhttp.Handler())

	// Register pprof handlers for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Run starts the health server. Blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.ready.Store(true)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("health server starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	s.ready.Store(false)
	s.logger.Info("health server shutting down")
	return s.server.Shutdown(ctx)
}

// handleLiveness responds to liveness probes.
// Returns 200 if the process is alive (always, unless crashed).
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	})
}

type readinessResponse struct {
	Status string          `json:"status"`
	Checks map[string]bool `json:"checks,omitempty"`
}

// handleReadiness responds to readiness probes. Returns 200 once every
// tracked chain holds an estimate; the payload names each chain's state so
// a cold one can be picked out of the fleet.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ready := s.ready.Load()
	states := make(map[string]bool, len(s.checks))
	for name, check := range s.checks {
		ok := check != nil && check.Ready()
		states[name] = ok
		ready = ready && ok
	}

	resp := readinessResponse{Status: "ready", Checks: states}
	code := http.StatusOK
	if !ready {
		resp.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

// handleRoot provides a simple index page.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"service": "gaspriced",
		"endpoints": map[string]string{
			"/healthz": "Liveness probe",
			"/readyz":  "Readiness probe",
			"/metrics": "Prometheus metrics",
		},
	})
}
