package gasprice

import "sync"

// maxErrorStreak is the number of consecutive refresh failures tolerated
// while an estimate is cached. The failure that pushes the streak past it
// escalates to the caller.
const maxErrorStreak = 5

// estimateCache holds the latest estimate together with the failure
// bookkeeping that decides whether a failed refresh is swallowed or
// escalated.
//
// Design:
//   - recordSuccess and recordFailure are read-modify-write couples over
//     {estimate, errorStreak}; a single mutex serializes them so streak
//     arithmetic never races. An atomic pointer cannot tie the two fields
//     together, which is why this is not the lock-free shape used for
//     plain latest-value caches.
//   - Network fetches happen outside the lock; only the verdict is applied
//     under it, so reads never wait on a slow source.
//   - close makes the contents final: verdicts from fetches still in
//     flight are discarded, not applied.
type estimateCache struct {
	mu          sync.Mutex
	estimate    *GasPriceEstimate
	errorStreak int
	closed      bool
}

// recordSuccess caches est and clears the failure streak. It reports
// whether the write was applied; false means the cache was closed and the
// verdict discarded.
func (c *estimateCache) recordSuccess(est GasPriceEstimate) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.estimate = &est
	c.errorStreak = 0
	return true
}

// recordFailure counts one failed refresh and reports whether it
// escalates: true when the incremented streak exceeds maxErrorStreak or
// when nothing was ever cached to serve stale. The streak restarts at zero
// after an escalation, so a persistent outage escalates periodically
// rather than on every cycle.
func (c *estimateCache) recordFailure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.errorStreak++
	if c.errorStreak > maxErrorStreak || c.estimate == nil {
		c.errorStreak = 0
		return true
	}
	return false
}

// current returns a copy of the cached estimate, if any. Reads stay legal
// after close.
func (c *estimateCache) current() (GasPriceEstimate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.estimate == nil {
		return GasPriceEstimate{}, false
	}
	return *c.estimate, true
}

// streak returns the consecutive-failure count.
func (c *estimateCache) streak() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorStreak
}

// close freezes the cache: reads keep working, writes become no-ops.
func (c *estimateCache) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
