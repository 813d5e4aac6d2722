package core

import "market-screener/src/models"

// -----------------------------------------------------------------------------

// SumVolume adds up the volume of every bar.
func SumVolume(bars []models.MBar) int64 {
	var total int64
	for _, b := range bars {
		total += b.Volume
	}
	return total
}

// -----------------------------------------------------------------------------

// MeanVolume is the arithmetic mean bar volume; ok is false for no bars.
func MeanVolume(bars []models.MBar) (mean float64, ok bool) {
	if len(bars) == 0 {
		return 0, false
	}
	return float64(SumVolume(bars)) / float64(len(bars)), true
}
