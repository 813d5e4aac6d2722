package models

import "time"

// Interval is the bar granularity requested from a provider.
type Interval string

const (
	Interval1Minute Interval = "1m"
	Interval2Minute Interval = "2m"
	Interval1Day    Interval = "1d"
)

// Minutes returns the number of session minutes covered by one bar.
// A daily bar spans the whole 390-minute regular session.
func (i Interval) Minutes() int {
	switch i {
	case Interval1Minute:
		return 1
	case Interval2Minute:
		return 2
	case Interval1Day:
		return TradingMinutesPerDay
	}
	return 0
}

// IsIntraday reports whether bars of this interval are finer than one day.
func (i Interval) IsIntraday() bool {
	return i == Interval1Minute || i == Interval2Minute
}

// TradingMinutesPerDay is the length of the regular US equity session.
const TradingMinutesPerDay = 390

// MBar is one OHLCV observation. Timestamp is in the exchange location.
type MBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// MBarSeries is an ordered bar sequence for one symbol at one interval.
type MBarSeries struct {
	Symbol   string   `json:"symbol"`
	Interval Interval `json:"interval"`
	Bars     []MBar   `json:"bars"`
}

// Len returns the number of bars in the series.
func (s MBarSeries) Len() int {
	return len(s.Bars)
}
