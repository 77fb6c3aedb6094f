// Package gasprice maintains continuously refreshed gas price estimates.
//
// A Tracker polls a chain's gas price sources on a fixed interval and
// caches the newest estimate. Reads are served from the cache and never
// block on the network; a bounded failure policy decides when staleness
// turns into an error instead. The Registry hands out one tracker per
// source configuration so concurrent callers share a poller rather than
// stacking duplicates against rate-limited endpoints.
package gasprice

import (
	"github.com/holiman/uint256"
)

// GasPriceEstimate is a point-in-time gas price estimate.
// Nil fields carry no opinion; populated values are treated as read-only
// and safe to share across goroutines.
type GasPriceEstimate struct {
	// FastWei is the price for fast inclusion, in wei.
	FastWei *uint256.Int

	// L1CalldataPricePerUnitWei is the per-unit L1 calldata price, in wei.
	// The sources polled here quote a single price, so refreshes keep it
	// equal to FastWei; caller defaults may populate it independently.
	L1CalldataPricePerUnitWei *uint256.Int
}

// withDefaults fills the estimate's nil fields from defaults, field by
// field. Fields the estimate already carries win.
func (e GasPriceEstimate) withDefaults(defaults GasPriceEstimate) GasPriceEstimate {
	if e.FastWei == nil {
		e.FastWei = defaults.FastWei
	}
	if e.L1CalldataPricePerUnitWei == nil {
		e.L1CalldataPricePerUnitWei = defaults.L1CalldataPricePerUnitWei
	}
	return e
}
