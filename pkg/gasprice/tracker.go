package gasprice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"

	"github.com/branched-services/go-gasprice/pkg/eth"
	"github.com/branched-services/go-gasprice/pkg/explorer"
)

// defaultPollInterval is the refresh cadence when WithPollInterval is not
// given.
const defaultPollInterval = 15 * time.Second

// Tracker lifecycle states.
const (
	stateRunning int32 = iota
	stateStopped
)

// SourceConfig identifies the endpoints a tracker polls.
type SourceConfig struct {
	// ExplorerURL is the block explorer stats endpoint, tried first.
	// Optional: when it or the API key is missing, every cycle falls
	// through to the node.
	ExplorerURL string

	// ExplorerAPIKey authenticates explorer stats calls.
	ExplorerAPIKey string

	// RPCURL is the node JSON-RPC endpoint used as the fallback source.
	RPCURL string
}

// Key is the registry identity of this configuration. Trackers are shared
// per endpoint set, so two callers with the same endpoints poll once.
func (sc SourceConfig) Key() string {
	return sc.ExplorerURL + "|" + sc.ExplorerAPIKey + "|" + sc.RPCURL
}

// Tracker keeps one chain's gas price estimate fresh. It polls its source
// chain on a fixed interval, caches the newest estimate and degrades to
// serving stale values while sources misbehave.
type Tracker struct {
	name    string
	cfg     SourceConfig
	fetcher *fallbackFetcher
	cache   *estimateCache
	logger  *slog.Logger

	pollInterval time.Duration
	sources      []Source
	closers      []io.Closer

	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPollInterval sets the refresh cadence. Non-positive values keep the
// default.
func WithPollInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.pollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithName sets the chain label used in logs and metrics.
func WithName(name string) Option {
	return func(t *Tracker) {
		if name != "" {
			t.name = name
		}
	}
}

// WithSources replaces the default explorer+node pair with a custom
// ordered source chain. The tracker does not take ownership: callers close
// injected sources themselves after Stop.
func WithSources(sources ...Source) Option {
	return func(t *Tracker) {
		t.sources = sources
	}
}

// NewTracker builds a tracker for cfg and starts it: one warm-up refresh
// immediately, then one refresh per interval. Callers that are done with
// it must Stop it to release the poller.
func NewTracker(cfg SourceConfig, opts ...Option) *Tracker {
	t := &Tracker{
		name:         "default",
		cfg:          cfg,
		cache:        &estimateCache{},
		logger:       slog.Default(),
		pollInterval: defaultPollInterval,
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	if len(t.sources) == 0 {
		exp := explorer.NewClient(cfg.ExplorerURL, cfg.ExplorerAPIKey)
		node := eth.NewClient(cfg.RPCURL)
		t.sources = []Source{exp, node}
		t.closers = []io.Closer{exp, node}
	}

	t.logger = t.logger.With("component", "gasprice", "chain", t.name)
	t.fetcher = &fallbackFetcher{chain: t.name, sources: t.sources, logger: t.logger}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.run(ctx)

	return t
}

// run owns the poll loop. The warm-up refresh happens before the first
// tick so callers rarely observe an empty cache. A failed refresh never
// terminates the loop: escalation is the caller-facing signal, stale
// serving the steady state.
func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)

	t.logger.Info("gas price tracker running",
		"poll_interval", t.pollInterval,
		"sources", len(t.sources),
	)

	if err := t.refresh(ctx); err != nil {
		t.logger.Error("gas price refresh failed", "error", err)
	}

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("gas price tracker stopping")
			return
		case <-ticker.C:
			if err := t.refresh(ctx); err != nil {
				t.logger.Error("gas price refresh failed", "error", err)
			}
		}
	}
}

// refresh runs one fetch cycle and routes the outcome through the cache.
// It returns an error only when the failure policy escalates.
func (t *Tracker) refresh(ctx context.Context) error {
	est, err := t.fetcher.fetch(ctx)
	if err == nil {
		if t.cache.recordSuccess(est) {
			fastWeiGauge.WithLabelValues(t.name).Set(weiGaugeValue(est.FastWei))
			errorStreakGauge.WithLabelValues(t.name).Set(0)
			t.logger.Debug("gas price refreshed", "fast_wei", est.FastWei)
		}
		return nil
	}

	fatal := t.cache.recordFailure()
	errorStreakGauge.WithLabelValues(t.name).Set(float64(t.cache.streak()))
	if fatal {
		escalationsTotal.WithLabelValues(t.name).Inc()
		return fmt.Errorf("%w: %w", ErrEstimationFailed, err)
	}

	t.logger.Warn("gas price refresh failed, serving stale estimate",
		"error", err,
		"error_streak", t.cache.streak(),
	)
	return nil
}

// EstimateOrDefault returns the cached estimate merged over defaults,
// field by field, with cached fields winning. It never fetches and never
// fails: with nothing cached the defaults come back unchanged. This is the
// hot path for callers that always hold a sane fallback.
func (t *Tracker) EstimateOrDefault(defaults GasPriceEstimate) GasPriceEstimate {
	if est, ok := t.cache.current(); ok {
		return est.withDefaults(defaults)
	}
	return defaults
}

// Estimate returns the cached estimate, running one on-demand fetch cycle
// when the cache is still empty. The on-demand cycle routes through the
// same failure policy as scheduled refreshes, so it fails with
// ErrEstimationFailed when there is nothing to fall back on. A stopped
// tracker no longer fetches; if it stopped before caching anything,
// Estimate returns ErrStopped.
func (t *Tracker) Estimate(ctx context.Context) (GasPriceEstimate, error) {
	if est, ok := t.cache.current(); ok {
		return est, nil
	}
	if t.state.Load() == stateStopped {
		return GasPriceEstimate{}, ErrStopped
	}

	if err := t.refresh(ctx); err != nil {
		return GasPriceEstimate{}, err
	}
	if est, ok := t.cache.current(); ok {
		return est, nil
	}
	// Raced with Stop: the on-demand verdict was discarded.
	return GasPriceEstimate{}, ErrStopped
}

// Ready reports whether an estimate is cached. Used by readiness probes.
func (t *Tracker) Ready() bool {
	_, ok := t.cache.current()
	return ok
}

// Name returns the chain label this tracker logs and reports metrics
// under.
func (t *Tracker) Name() string {
	return t.name
}

// Key returns the registry identity of the tracked source configuration.
func (t *Tracker) Key() string {
	return t.cfg.Key()
}

// Stop tears the tracker down: no refresh starts after Stop returns, and a
// refresh still in flight has its verdict discarded rather than applied.
// The cached estimate stays readable. Stop is idempotent and safe for
// concurrent use.
func (t *Tracker) Stop() {
	if !t.state.CompareAndSwap(stateRunning, stateStopped) {
		return
	}

	// Freeze the cache before interrupting the loop so an in-flight fetch
	// cannot apply its result between cancel and loop exit.
	t.cache.close()
	t.cancel()
	<-t.done

	for _, c := range t.closers {
		c.Close()
	}
}

func weiGaugeValue(wei *uint256.Int) float64 {
	if wei == nil {
		return 0
	}
	return float64(wei.Uint64())
}
