package gasprice

import (
	"sync"
)

// Registry hands out at most one live Tracker per source configuration.
// Construction happens under the registry lock: a lookup/insert race would
// start a second poller against the same rate-limited endpoints, which is
// exactly what sharing exists to prevent.
type Registry struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
	closed   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		trackers: make(map[string]*Tracker),
	}
}

// GetOrCreate returns the tracker registered for cfg, constructing and
// starting one on first use. Options apply only when this call constructs
// the tracker; later callers share the first caller's instance as-is.
// Entries stay registered until Close, a stopped tracker included.
func (r *Registry) GetOrCreate(cfg SourceConfig, opts ...Option) (*Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	key := cfg.Key()
	if t, ok := r.trackers[key]; ok {
		return t, nil
	}

	t := NewTracker(cfg, opts...)
	r.trackers[key] = t
	return t, nil
}

// Len returns the number of registered trackers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}

// Close stops every registered tracker and rejects further GetOrCreate
// calls. Trackers are stopped outside the registry lock; Stop waits for
// poll loops to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	trackers := make([]*Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		trackers = append(trackers, t)
	}
	r.mu.Unlock()

	for _, t := range trackers {
		t.Stop()
	}
}
