package analysis

import (
	"time"

	"market-screener/src/analysis/core"
	"market-screener/src/models"
)

// WindowAggregator reduces a sliced series to its volume summary.
type WindowAggregator struct{}

// -----------------------------------------------------------------------------

// DetectGranularity infers bar spacing from the smallest positive gap between
// consecutive timestamps. Gaps under one day mean intraday. Series without a
// positive gap fall back to their declared interval.
func DetectGranularity(series models.MBarSeries) models.Granularity {
	if len(series.Bars) == 0 {
		return models.GranularityUndefined
	}

	var minGap time.Duration
	for i := 1; i < len(series.Bars); i++ {
		gap := series.Bars[i].Timestamp.Sub(series.Bars[i-1].Timestamp)
		if gap > 0 && (minGap == 0 || gap < minGap) {
			minGap = gap
		}
	}

	if minGap == 0 {
		if series.Interval.IsIntraday() {
			return models.GranularityIntraday
		}
		return models.GranularityDaily
	}
	if minGap < 24*time.Hour {
		return models.GranularityIntraday
	}
	return models.GranularityDaily
}

// -----------------------------------------------------------------------------

// Aggregate sums and averages volume. Intraday series use every bar. Daily
// series drop the first bar, which is the partial start day, unless it is the
// only bar.
func (WindowAggregator) Aggregate(series models.MBarSeries) models.MVolumeAggregate {
	n := len(series.Bars)
	if n == 0 {
		return models.MVolumeAggregate{Granularity: models.GranularityUndefined}
	}

	granularity := DetectGranularity(series)
	sum := core.SumVolume(series.Bars)

	if granularity == models.GranularityIntraday || n == 1 {
		return models.MVolumeAggregate{
			TotalVolume:   sum,
			AverageVolume: float64(sum) / float64(n),
			Granularity:   granularity,
			Bars:          n,
		}
	}

	total := sum - series.Bars[0].Volume
	return models.MVolumeAggregate{
		TotalVolume:   total,
		AverageVolume: float64(total) / float64(n-1),
		Granularity:   granularity,
		Bars:          n,
	}
}
