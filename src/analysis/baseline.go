package analysis

import (
	"context"
	"time"

	"market-screener/src/analysis/core"
	"market-screener/src/interfaces"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/utils"
)

// BaselineEstimator computes each symbol's trailing mean daily volume over
// the lookback period that ends the day before the window starts.
type BaselineEstimator struct {
	Provider     interfaces.IMarketDataProvider
	Calendar     *utils.TradingCalendar
	BatchSize    int
	LookbackDays int
	BatchTimeout time.Duration
	Logger       *logger.Logger
}

// -----------------------------------------------------------------------------

func NewBaselineEstimator(
	provider interfaces.IMarketDataProvider,
	cal *utils.TradingCalendar,
	cfg models.MScreenerConfig,
	log *logger.Logger,
) *BaselineEstimator {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = utils.DefaultBatchSize
	}
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = utils.DefaultLookbackDays
	}
	return &BaselineEstimator{
		Provider:     provider,
		Calendar:     cal,
		BatchSize:    batch,
		LookbackDays: lookback,
		BatchTimeout: time.Duration(cfg.BatchTimeoutSeconds) * time.Second,
		Logger:       log,
	}
}

// -----------------------------------------------------------------------------

// LookbackRange returns the half-open fetch range
// [start date - lookback days, start date).
func (e *BaselineEstimator) LookbackRange(windowStart time.Time) (time.Time, time.Time) {
	to := e.Calendar.StartOfDay(windowStart)
	return to.AddDate(0, 0, -e.LookbackDays), to
}

// -----------------------------------------------------------------------------

// Estimate fetches the lookback daily bars in batches and averages volume.
// Symbols whose batch failed or that returned no bars are left out of the map.
func (e *BaselineEstimator) Estimate(ctx context.Context, symbols []string, windowStart time.Time) models.MBaseline {
	baseline := make(models.MBaseline, len(symbols))
	from, to := e.LookbackRange(windowStart)

	for i, batch := range utils.ChunkSymbols(symbols, e.BatchSize) {
		if ctx.Err() != nil {
			e.Logger.Warning("Baseline estimation cancelled at batch %d: %v", i, ctx.Err())
			break
		}

		series, err := e.fetch(ctx, batch, from, to)
		if err != nil {
			e.Logger.Warning("Baseline batch %d (%d symbols) failed: %v", i, len(batch), err)
			continue
		}

		for _, sym := range batch {
			s, ok := series[sym]
			if !ok {
				continue
			}
			if mean, ok := MeanDailyVolume(s, from, to); ok {
				baseline[sym] = mean
			}
		}
	}

	e.Logger.Debug("Baseline computed for %d/%d symbols over %s..%s",
		len(baseline), len(symbols), from.Format("2006-01-02"), to.Format("2006-01-02"))
	return baseline
}

// -----------------------------------------------------------------------------

func (e *BaselineEstimator) fetch(ctx context.Context, batch []string, from, to time.Time) (map[string]models.MBarSeries, error) {
	if e.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.BatchTimeout)
		defer cancel()
	}
	return e.Provider.FetchBars(ctx, batch, models.Interval1Day, from, to, false)
}

// -----------------------------------------------------------------------------

// MeanDailyVolume averages the volume of bars stamped in [from, to).
func MeanDailyVolume(series models.MBarSeries, from, to time.Time) (float64, bool) {
	bars := make([]models.MBar, 0, len(series.Bars))
	for _, b := range series.Bars {
		if !b.Timestamp.Before(from) && b.Timestamp.Before(to) {
			bars = append(bars, b)
		}
	}
	return core.MeanVolume(bars)
}
