package utils

import (
	"strings"
	"time"

	"market-screener/src/helpers"
)

const (
	DefaultBatchSize    = 200
	DefaultLookbackDays = 90
)

// Accepted request timestamp layouts. A bare date means the 16:00 close.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// -----------------------------------------------------------------------------

// ParseMarketTime parses a naive exchange-local timestamp.
func ParseMarketTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	if d, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, loc), nil
	}
	return time.Time{}, helpers.NewValidationError("unrecognised timestamp: " + value)
}

// -----------------------------------------------------------------------------

// NormalizeSymbols trims, upper-cases and de-duplicates symbols, keeping order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// -----------------------------------------------------------------------------

// ChunkSymbols splits symbols into consecutive batches of at most size.
func ChunkSymbols(symbols []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var batches [][]string
	for i := 0; i < len(symbols); i += size {
		end := min(i+size, len(symbols))
		batches = append(batches, symbols[i:end])
	}
	return batches
}
