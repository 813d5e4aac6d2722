package helpers

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ScreenerError struct {
	Message string
	Cause   error
}

func (e *ScreenerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ScreenerError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ ScreenerError }
type NetworkError struct{ ScreenerError }
type DataSourceError struct{ ScreenerError }
type DatabaseError struct{ ScreenerError }
type ValidationError struct{ ScreenerError }

// InvalidWindowError is raised when a window ends before it starts.
// It is the only condition that halts a screening run.
type InvalidWindowError struct {
	ScreenerError
	Start time.Time
	End   time.Time
}

// -----------------------------------------------------------------------------

func NewInvalidWindowError(start, end time.Time) *InvalidWindowError {
	return &InvalidWindowError{
		ScreenerError: ScreenerError{
			Message: fmt.Sprintf("invalid window: end %s is before start %s",
				end.Format("2006-01-02 15:04"), start.Format("2006-01-02 15:04")),
		},
		Start: start,
		End:   end,
	}
}

// -----------------------------------------------------------------------------

func NewValidationError(message string) *ValidationError {
	return &ValidationError{ScreenerError{Message: message}}
}

// -----------------------------------------------------------------------------

func NewDataSourceError(message string, cause error) *DataSourceError {
	return &DataSourceError{ScreenerError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

func NewNetworkError(message string, cause error) *NetworkError {
	return &NetworkError{ScreenerError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{ScreenerError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

// IsInvalidInput reports whether err should be surfaced to a caller as bad input.
func IsInvalidInput(err error) bool {
	var iw *InvalidWindowError
	var ve *ValidationError
	return errors.As(err, &iw) || errors.As(err, &ve)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxRetries+1 times, doubling the delay after
// each failure. It stops early when ctx is done.
func RetryWithBackoff[T any](ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<(attempt-1))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, errors.Wrap(ctx.Err(), "retry aborted")
			case <-timer.C:
			}
		}

		res, err := fn(attempt)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return zero, errors.Wrapf(lastErr, "failed after %d attempts", maxRetries+1)
}
