package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"market-screener/src/interfaces"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/utils"
)

// MultiSourceManager chains providers in priority order. For each symbol the
// first source whose bars cover the requested trading range wins; later
// sources only see what is still missing. The last source is authoritative
// and its bars are accepted as returned. Bars fetched from a later source are
// written to Sink when set.
type MultiSourceManager struct {
	Sources  []interfaces.IMarketDataProvider
	Sink     interfaces.IBarStore
	Calendar *utils.TradingCalendar
	Logger   *logger.Logger
	mu       sync.Mutex
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(
	sources []interfaces.IMarketDataProvider,
	sink interfaces.IBarStore,
	cal *utils.TradingCalendar,
	log *logger.Logger,
) *MultiSourceManager {
	return &MultiSourceManager{
		Sources:  sources,
		Sink:     sink,
		Calendar: cal,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) Name() string {
	return "MultiSourceManager"
}

// -----------------------------------------------------------------------------

// FetchBars returns an error only when every source failed.
func (m *MultiSourceManager) FetchBars(
	ctx context.Context,
	symbols []string,
	interval models.Interval,
	start, end time.Time,
	includeExtendedHours bool,
) (map[string]models.MBarSeries, error) {
	results := make(map[string]models.MBarSeries, len(symbols))
	missing := symbols
	var lastErr error
	failed := 0

	for i, src := range m.Sources {
		if len(missing) == 0 {
			break
		}

		data, err := src.FetchBars(ctx, missing, interval, start, end, includeExtendedHours)
		if err != nil {
			m.Logger.Error("Source %s failed for %d symbols: %v", src.Name(), len(missing), err)
			lastErr = err
			failed++
			continue
		}

		last := i == len(m.Sources)-1
		var still []string
		for _, sym := range missing {
			series, ok := data[sym]
			if !ok || series.Len() == 0 {
				still = append(still, sym)
				continue
			}
			if !last && !m.covers(series, interval, start, end) {
				m.Logger.Debug("%s holds a partial %s range for %s, falling through", src.Name(), interval, sym)
				still = append(still, sym)
				continue
			}
			results[sym] = series
			if i > 0 {
				m.store(series)
			}
		}
		missing = still
	}

	if failed == len(m.Sources) && lastErr != nil {
		return nil, fmt.Errorf("all sources failed: %w", lastErr)
	}
	return results, nil
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) store(series models.MBarSeries) {
	if m.Sink == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Sink.SaveBars(series); err != nil {
		m.Logger.Warning("Failed to cache %s %s bars in %s: %v", series.Symbol, series.Interval, m.Sink.Name(), err)
	}
}

// -----------------------------------------------------------------------------

// covers reports whether series spans the trading range of [start, end): its
// first bar is no later than the first expected bar and its last bar no
// earlier than the last expected one, one bar of slack on each side.
func (m *MultiSourceManager) covers(series models.MBarSeries, interval models.Interval, start, end time.Time) bool {
	if m.Calendar == nil {
		return true
	}
	firstDay, lastDay, ok := m.tradingDays(interval, start, end)
	if !ok {
		return true
	}

	lo, hi := series.Bars[0].Timestamp, series.Bars[0].Timestamp
	for _, b := range series.Bars[1:] {
		if b.Timestamp.Before(lo) {
			lo = b.Timestamp
		}
		if b.Timestamp.After(hi) {
			hi = b.Timestamp
		}
	}

	if !interval.IsIntraday() {
		return !m.Calendar.StartOfDay(lo).After(firstDay) && !m.Calendar.StartOfDay(hi).Before(lastDay)
	}

	step := time.Duration(interval.Minutes()) * time.Minute
	firstBar := m.Calendar.SessionOpen(firstDay)
	if start.After(firstBar) {
		firstBar = start
	}
	lastBar := m.Calendar.SessionClose(lastDay)
	if end.Before(lastBar) {
		lastBar = end
	}
	lastBar = lastBar.Add(-step)

	return !lo.After(firstBar.Add(step)) && !hi.Before(lastBar.Add(-step))
}

// -----------------------------------------------------------------------------

// tradingDays returns the first and last trading days with data expected in
// [start, end). Intraday intervals only count days whose session overlaps it.
func (m *MultiSourceManager) tradingDays(interval models.Interval, start, end time.Time) (first, last time.Time, ok bool) {
	cal := m.Calendar
	finalDay := cal.StartOfDay(end.Add(-time.Nanosecond))

	for day := cal.StartOfDay(start); !day.After(finalDay); day = day.AddDate(0, 0, 1) {
		if !cal.IsTradingDay(day) {
			continue
		}
		if interval.IsIntraday() && (!cal.SessionOpen(day).Before(end) || !cal.SessionClose(day).After(start)) {
			continue
		}
		if !ok {
			first, ok = day, true
		}
		last = day
	}
	return first, last, ok
}
