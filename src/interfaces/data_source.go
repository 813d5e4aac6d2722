package interfaces

import (
	"context"
	"time"

	"market-screener/src/models"
)

// -----------------------------------------------------------------------------
// IMarketDataProvider is the bar retrieval capability consumed by the engine.
// -----------------------------------------------------------------------------

type IMarketDataProvider interface {

	// Name returns the unique identifier of the provider
	Name() string

	// -----------------------------------------------------------------------------

	// FetchBars returns per-symbol bar series for the half-open range [start, end).
	// It is best-effort: a missing or empty series for a requested symbol is
	// valid output. An error means the whole call failed.
	FetchBars(
		ctx context.Context,
		symbols []string,
		interval models.Interval,
		start, end time.Time,
		includeExtendedHours bool,
	) (map[string]models.MBarSeries, error)
}
