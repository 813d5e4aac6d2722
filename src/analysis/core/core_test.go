package core

import (
	"math"
	"testing"

	"market-screener/src/models"

	"github.com/stretchr/testify/assert"
)

func TestPriceChangePercent(t *testing.T) {
	assert.InDelta(t, -10.0, PriceChangePercent(10, 9), 1e-9)
	assert.InDelta(t, 25.0, PriceChangePercent(4, 5), 1e-9)
	assert.Equal(t, 0.0, PriceChangePercent(0, 5))
}

func TestRelativeVolumeNeverNaN(t *testing.T) {
	assert.Equal(t, 0.0, RelativeVolume(100, 0))
	assert.Equal(t, 0.0, RelativeVolume(100, -1))
	assert.Equal(t, 0.0, RelativeVolume(100, math.NaN()))
	assert.Equal(t, 0.0, RelativeVolume(100, math.Inf(1)))
	assert.Equal(t, 2.0, RelativeVolume(200, 100))
}

func TestPerBarBaseline(t *testing.T) {
	assert.Equal(t, 390.0, BarsPerDay(1))
	assert.Equal(t, 195.0, BarsPerDay(2))
	assert.Equal(t, 1.0, BarsPerDay(models.TradingMinutesPerDay))
	assert.Equal(t, 0.0, BarsPerDay(0))

	assert.Equal(t, 390000.0/390, PerBarBaseline(390000, 1))
	assert.Equal(t, 2000.0, PerBarBaseline(390000, 2))
	assert.Equal(t, 0.0, PerBarBaseline(390000, 0))
}

func TestRounding(t *testing.T) {
	assert.Equal(t, -10.0, Round(-10.000000000000002, 2))
	assert.Equal(t, 1.24, Round(1.235, 2))
	assert.Equal(t, int64(251), RoundToInt(250.5))
	assert.Equal(t, int64(-3), RoundToInt(-2.5))
	assert.Equal(t, int64(0), RoundToInt(math.NaN()))
}

func TestMeanVolume(t *testing.T) {
	_, ok := MeanVolume(nil)
	assert.False(t, ok)

	mean, ok := MeanVolume([]models.MBar{{Volume: 100}, {Volume: 300}})
	assert.True(t, ok)
	assert.Equal(t, 200.0, mean)
	assert.Equal(t, int64(400), SumVolume([]models.MBar{{Volume: 100}, {Volume: 300}}))
}
