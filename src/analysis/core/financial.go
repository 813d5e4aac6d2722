package core

import (
	"math"

	"market-screener/src/models"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// PriceChangePercent is the close-to-close change in percent.
// A zero first close yields 0 instead of an infinite change.
func PriceChangePercent(firstClose, lastClose float64) float64 {
	if firstClose == 0 {
		return 0.0
	}
	return (lastClose - firstClose) / firstClose * 100
}

// -----------------------------------------------------------------------------

// RelativeVolume is observed average volume over a baseline average.
// Missing, zero or non-finite baselines yield 0.
func RelativeVolume(averageVolume, baseline float64) float64 {
	if baseline <= 0 || math.IsNaN(baseline) || math.IsInf(baseline, 0) {
		return 0.0
	}
	return averageVolume / baseline
}

// -----------------------------------------------------------------------------

// BarsPerDay is the number of bars of barMinutes in a regular session.
func BarsPerDay(barMinutes int) float64 {
	if barMinutes <= 0 {
		return 0
	}
	return float64(models.TradingMinutesPerDay) / float64(barMinutes)
}

// -----------------------------------------------------------------------------

// PerBarBaseline rescales a daily baseline to one bar of barMinutes.
func PerBarBaseline(dailyBaseline float64, barMinutes int) float64 {
	bars := BarsPerDay(barMinutes)
	if bars == 0 {
		return 0
	}
	return dailyBaseline / bars
}

// -----------------------------------------------------------------------------

// Round rounds half away from zero to the given number of decimals.
func Round(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(value).Round(places).Float64()
	return f
}

// -----------------------------------------------------------------------------

// RoundToInt rounds half away from zero to the nearest integer.
func RoundToInt(value float64) int64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return decimal.NewFromFloat(value).Round(0).IntPart()
}
