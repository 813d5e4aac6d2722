package analysis

import (
	"sort"
	"time"

	"market-screener/src/models"
	"market-screener/src/utils"
)

// -----------------------------------------------------------------------------

// SearchSorted finds the insertion index of value in ascending bars.
// side "left" returns the first index with ts >= value, "right" the first
// with ts > value.
func SearchSorted(bars []models.MBar, value time.Time, side string) int {
	if side == "left" {
		return sort.Search(len(bars), func(i int) bool {
			return !bars[i].Timestamp.Before(value)
		})
	}
	return sort.Search(len(bars), func(i int) bool {
		return bars[i].Timestamp.After(value)
	})
}

// -----------------------------------------------------------------------------

// SortBars returns the series ordered by timestamp. The input's bars are
// never reordered; providers may hand out slices they keep.
func SortBars(series models.MBarSeries) models.MBarSeries {
	sorted := sort.SliceIsSorted(series.Bars, func(i, j int) bool {
		return series.Bars[i].Timestamp.Before(series.Bars[j].Timestamp)
	})
	if sorted {
		return series
	}

	bars := make([]models.MBar, len(series.Bars))
	copy(bars, series.Bars)
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	series.Bars = bars
	return series
}

// -----------------------------------------------------------------------------

// SliceForPlan slices the primary series of a run. Intraday windows served by
// daily bars drop the end date when end precedes that day's close, since its
// daily bar would count volume traded after end.
func SliceForPlan(series models.MBarSeries, plan models.MWindowPlan, window models.MTimeWindow, cal *utils.TradingCalendar) models.MBarSeries {
	if plan.Mode != models.ModeIntraday || series.Interval.IsIntraday() {
		return SliceToWindow(series, window, cal)
	}

	last := window.End
	if last.Before(cal.SessionClose(last)) {
		last = cal.StartOfDay(last).AddDate(0, 0, -1)
	}
	if cal.StartOfDay(last).Before(cal.StartOfDay(window.Start)) {
		return models.MBarSeries{Symbol: series.Symbol, Interval: series.Interval}
	}
	return SliceDays(series, window.Start, last, cal)
}

// -----------------------------------------------------------------------------

// SliceToWindow restricts a series to a window. Intraday series keep bars in
// [start, end] that fall inside the regular session. Daily series keep bars
// whose date lies between the window's start and end dates.
func SliceToWindow(series models.MBarSeries, window models.MTimeWindow, cal *utils.TradingCalendar) models.MBarSeries {
	if !series.Interval.IsIntraday() {
		return SliceDays(series, window.Start, window.End, cal)
	}

	lo := SearchSorted(series.Bars, window.Start, "left")
	hi := SearchSorted(series.Bars, window.End, "right")

	out := models.MBarSeries{Symbol: series.Symbol, Interval: series.Interval}
	if lo >= hi {
		return out
	}

	out.Bars = make([]models.MBar, 0, hi-lo)
	for _, b := range series.Bars[lo:hi] {
		if cal.InSession(b.Timestamp) {
			out.Bars = append(out.Bars, b)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// SliceDays keeps the bars whose local date lies in [fromDate, toDate].
func SliceDays(series models.MBarSeries, fromDate, toDate time.Time, cal *utils.TradingCalendar) models.MBarSeries {
	from := cal.StartOfDay(fromDate)
	until := cal.StartOfDay(toDate).AddDate(0, 0, 1)

	out := models.MBarSeries{Symbol: series.Symbol, Interval: series.Interval}
	for _, b := range series.Bars {
		if !b.Timestamp.Before(from) && b.Timestamp.Before(until) {
			out.Bars = append(out.Bars, b)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// FullDayRange returns the dates of the full trading days inside an intraday
// window: the day after the start date through the end date when the window
// ends at the close, otherwise through the day before. ok is false when the
// range is empty.
func FullDayRange(window models.MTimeWindow, cal *utils.TradingCalendar) (first, last time.Time, ok bool) {
	first = cal.StartOfDay(window.Start).AddDate(0, 0, 1)
	last = cal.StartOfDay(window.End)
	if !cal.AtClose(window.End) {
		last = last.AddDate(0, 0, -1)
	}
	if last.Before(first) {
		return time.Time{}, time.Time{}, false
	}
	return first, last, true
}

// -----------------------------------------------------------------------------

// DailyFetchRange converts an inclusive date range into the half-open
// [first 00:00, last+1 00:00) range providers expect.
func DailyFetchRange(firstDate, lastDate time.Time, cal *utils.TradingCalendar) (time.Time, time.Time) {
	return cal.StartOfDay(firstDate), cal.StartOfDay(lastDate).AddDate(0, 0, 1)
}

// -----------------------------------------------------------------------------

// IntradayFetchRange covers [start, end] with one extra bar so the bar
// stamped exactly at end is included in the half-open provider request.
func IntradayFetchRange(window models.MTimeWindow, interval models.Interval) (time.Time, time.Time) {
	step := time.Duration(interval.Minutes()) * time.Minute
	if step <= 0 {
		step = time.Minute
	}
	return window.Start, window.End.Add(step)
}
