package interfaces

import "market-screener/src/models"

// -----------------------------------------------------------------------------
// IBarStore is a database-backed bar provider.
// -----------------------------------------------------------------------------

type IBarStore interface {
	IMarketDataProvider

	// -----------------------------------------------------------------------------

	// Initialize opens the connection and creates the bars table if missing.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveBars upserts a series into the store.
	SaveBars(series models.MBarSeries) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
