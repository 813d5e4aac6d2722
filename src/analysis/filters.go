package analysis

import (
	"math"

	"market-screener/src/models"
)

// -----------------------------------------------------------------------------

// VolumeSpikePercent expresses relative volume as percent above or below
// normal: 1.5x is +50, 0.5x is -50.
func VolumeSpikePercent(relativeVolume float64) float64 {
	return relativeVolume*100 - 100
}

// -----------------------------------------------------------------------------

// ApplyFilters keeps records passing every configured threshold. Thresholds
// compare absolute values so both rallies and selloffs pass.
func ApplyFilters(records []models.MMetricRecord, filters models.MScreenFilters) []models.MMetricRecord {
	if filters.MinAbsPriceChangePct == nil && filters.MinVolumeSpikePct == nil {
		return records
	}

	out := make([]models.MMetricRecord, 0, len(records))
	for _, r := range records {
		if filters.MinAbsPriceChangePct != nil && math.Abs(r.PriceChangePct) <= *filters.MinAbsPriceChangePct {
			continue
		}
		if filters.MinVolumeSpikePct != nil && math.Abs(VolumeSpikePercent(r.RelativeVolume())) <= *filters.MinVolumeSpikePct {
			continue
		}
		out = append(out, r)
	}
	return out
}
