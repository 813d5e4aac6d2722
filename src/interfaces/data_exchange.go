package interfaces

import (
	"context"

	"market-screener/src/models"
)

// -----------------------------------------------------------------------------
// IResultPublisher shares completed screen results with external listeners.
// -----------------------------------------------------------------------------

type IResultPublisher interface {
	// -----------------------------------------------------------------------------
	// Publish stores the result as the latest one and pushes it to listeners.
	Publish(result *models.MScreenResult)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}

// -----------------------------------------------------------------------------
// IScreener is the engine entry point consumed by the surfaces.
// -----------------------------------------------------------------------------

type IScreener interface {
	RunScreen(ctx context.Context, req models.MScreenRequest) (*models.MScreenResult, error)
}
