package gasprice

import "errors"

var (
	// ErrEstimationFailed reports a fetch cycle whose failure the policy
	// escalated: the consecutive-failure streak exceeded the threshold, or
	// no estimate was ever cached to serve stale. It wraps the last source
	// error.
	ErrEstimationFailed = errors.New("gas price estimation failed")

	// ErrStopped is returned by Estimate on a tracker that was stopped
	// before caching its first estimate.
	ErrStopped = errors.New("gas price tracker stopped")

	// ErrRegistryClosed is returned by GetOrCreate after the registry was
	// closed.
	ErrRegistryClosed = errors.New("gas price registry closed")
)
