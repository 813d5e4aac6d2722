package server

import (
	"strings"

	"market-screener/src/models"
)

// -----------------------------------------------------------------------------

// filterResult copies a result keeping only records for the given tickers.
// An empty list keeps everything.
func filterResult(result *models.MScreenResult, symbols []string) *models.MScreenResult {
	if result == nil || len(symbols) == 0 {
		return result
	}

	wanted := normalize(symbols)
	filtered := *result
	filtered.Records = make([]models.MMetricRecord, 0, len(wanted))
	for _, r := range result.Records {
		if contains(wanted, r.Ticker) {
			filtered.Records = append(filtered.Records, r)
		}
	}
	return &filtered
}

// -----------------------------------------------------------------------------

func normalize(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
