package analysis

import (
	"market-screener/src/analysis/core"
	"market-screener/src/models"
)

// MetricInput is one symbol's sliced data for a run. Primary is the window
// slice at the plan interval (daily bars in daily mode). FullDays holds the
// daily bars of the full trading days inside an intraday window.
type MetricInput struct {
	Symbol     string
	Mode       models.WindowMode
	BarMinutes int
	Primary    models.MBarSeries
	FullDays   models.MBarSeries
}

// MetricsCalculator turns aggregates and baselines into metric records.
type MetricsCalculator struct {
	// AbsentBaseline is models.AbsentBaselineZero or models.AbsentBaselineSelf.
	AbsentBaseline string
	Aggregator     WindowAggregator
}

// -----------------------------------------------------------------------------

func NewMetricsCalculator(absentBaseline string) *MetricsCalculator {
	if absentBaseline != models.AbsentBaselineSelf {
		absentBaseline = models.AbsentBaselineZero
	}
	return &MetricsCalculator{AbsentBaseline: absentBaseline}
}

// -----------------------------------------------------------------------------

// Calculate builds the record for one symbol. ok is false when the primary
// slice is empty, in which case the symbol is skipped.
func (c *MetricsCalculator) Calculate(in MetricInput, baseline models.MBaseline) (models.MMetricRecord, bool) {
	bars := in.Primary.Bars
	if len(bars) == 0 {
		return models.MMetricRecord{}, false
	}

	first, last := bars[0], bars[len(bars)-1]
	record := models.MMetricRecord{
		Ticker:         in.Symbol,
		Mode:           in.Mode,
		Price:          last.Close,
		PriceChangePct: core.Round(core.PriceChangePercent(first.Close, last.Close), 2),
	}

	daily, present := baseline.Lookup(in.Symbol)
	primary := c.Aggregator.Aggregate(in.Primary)

	if in.Mode == models.ModeDaily {
		record.Daily = &models.MDailyVolume{
			TotalVolume:    primary.TotalVolume,
			AverageVolume:  core.RoundToInt(primary.AverageVolume),
			RelativeVolume: core.Round(c.relative(primary.AverageVolume, daily, present), 2),
		}
		return record, true
	}

	perBar := core.PerBarBaseline(daily, in.BarMinutes)
	days := c.Aggregator.Aggregate(in.FullDays)

	intraday := &models.MIntradayVolume{
		MinuteTotalVolume:    primary.TotalVolume,
		MinuteAverageVolume:  core.RoundToInt(primary.AverageVolume),
		MinuteRelativeVolume: core.Round(c.relative(primary.AverageVolume, perBar, present), 2),
	}
	if !days.IsEmpty() {
		intraday.DayTotalVolume = days.TotalVolume
		intraday.DayAverageVolume = core.RoundToInt(days.AverageVolume)
		intraday.DayRelativeVolume = core.Round(c.relative(days.AverageVolume, daily, present), 2)
	}
	record.Intraday = intraday
	return record, true
}

// -----------------------------------------------------------------------------

// relative applies the absent-baseline policy. Under "self" a symbol with no
// baseline is compared against its own average.
func (c *MetricsCalculator) relative(average, baseline float64, present bool) float64 {
	if !present && c.AbsentBaseline == models.AbsentBaselineSelf {
		baseline = average
	}
	return core.RelativeVolume(average, baseline)
}
