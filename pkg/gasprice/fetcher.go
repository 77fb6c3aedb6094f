package gasprice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/holiman/uint256"

	"github.com/branched-services/go-gasprice/pkg/eth"
	"github.com/branched-services/go-gasprice/pkg/explorer"
)

// Source supplies a gas price quote in wei. Implementations report a
// stable Name used in logs and metrics.
type Source interface {
	Name() string
	GasPrice(ctx context.Context) (*uint256.Int, error)
}

// The default source chain.
var (
	_ Source = (*explorer.Client)(nil)
	_ Source = (*eth.Client)(nil)
)

// fallbackFetcher walks an ordered source chain until one quote succeeds.
type fallbackFetcher struct {
	chain   string
	sources []Source
	logger  *slog.Logger
}

// fetch asks each source in order and builds an estimate from the first
// successful quote. When every source fails, the error returned is the
// last source's; earlier failures are logged and shadowed.
func (f *fallbackFetcher) fetch(ctx context.Context) (GasPriceEstimate, error) {
	if len(f.sources) == 0 {
		return GasPriceEstimate{}, errors.New("no gas price sources configured")
	}

	var lastErr error
	for i, src := range f.sources {
		price, err := src.GasPrice(ctx)
		if err != nil {
			lastErr = err
			fetchesTotal.WithLabelValues(f.chain, src.Name(), "error").Inc()
			if i < len(f.sources)-1 {
				f.logger.Warn("gas price source failed, trying next",
					"source", src.Name(),
					"error", err,
				)
			}
			continue
		}
		fetchesTotal.WithLabelValues(f.chain, src.Name(), "success").Inc()

		// One quoted price serves both estimate fields.
		return GasPriceEstimate{FastWei: price, L1CalldataPricePerUnitWei: price}, nil
	}
	return GasPriceEstimate{}, lastErr
}
