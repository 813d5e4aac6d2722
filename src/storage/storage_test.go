package storage

import (
	"context"
	"testing"
	"time"

	"market-screener/src/interfaces"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ interfaces.IBarStore = (*SQLiteBarStore)(nil)
	_ interfaces.IBarStore = (*PostgresBarStore)(nil)
)

func newMemoryStore(t *testing.T) *SQLiteBarStore {
	t.Helper()
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBType: "sqlite", DBPath: ":memory:"}}
	store := NewSQLiteBarStore(cfg, utils.NewFallbackCalendar(), logger.NewNopLogger())
	require.NoError(t, store.Initialize())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteSaveAndFetch(t *testing.T) {
	store := newMemoryStore(t)
	loc := store.Calendar.Location()
	open := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)

	minute := models.MBarSeries{Symbol: "AAPL", Interval: models.Interval1Minute}
	for i := 0; i < 10; i++ {
		minute.Bars = append(minute.Bars, models.MBar{
			Timestamp: open.Add(time.Duration(i) * time.Minute),
			Open:      1, High: 2, Low: 0.5, Close: 1.5,
			Volume: int64(100 + i),
		})
	}
	require.NoError(t, store.SaveBars(minute))
	require.NoError(t, store.SaveBars(models.MBarSeries{
		Symbol: "AAPL", Interval: models.Interval1Day,
		Bars: []models.MBar{{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, loc), Volume: 5}},
	}))

	got, err := store.FetchBars(context.Background(), []string{"AAPL", "MSFT"}, models.Interval1Minute,
		open.Add(2*time.Minute), open.Add(5*time.Minute), false)
	require.NoError(t, err)

	assert.NotContains(t, got, "MSFT")
	bars := got["AAPL"].Bars
	require.Len(t, bars, 3)
	assert.True(t, bars[0].Timestamp.Equal(open.Add(2*time.Minute)))
	assert.Equal(t, int64(104), bars[2].Volume)
	assert.Equal(t, models.Interval1Minute, got["AAPL"].Interval)
}

func TestSQLiteUpsert(t *testing.T) {
	store := newMemoryStore(t)
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, store.Calendar.Location())

	require.NoError(t, store.SaveBars(models.MBarSeries{Symbol: "X", Interval: models.Interval1Day, Bars: []models.MBar{{Timestamp: ts, Volume: 1}}}))
	require.NoError(t, store.SaveBars(models.MBarSeries{Symbol: "X", Interval: models.Interval1Day, Bars: []models.MBar{{Timestamp: ts, Volume: 2}}}))

	got, err := store.FetchBars(context.Background(), []string{"X"}, models.Interval1Day, ts, ts.AddDate(0, 0, 1), false)
	require.NoError(t, err)
	require.Len(t, got["X"].Bars, 1)
	assert.Equal(t, int64(2), got["X"].Bars[0].Volume)
}

func TestSQLiteCleanup(t *testing.T) {
	store := newMemoryStore(t)
	old := time.Now().AddDate(0, 0, -400)
	recent := time.Now().AddDate(0, 0, -1)

	require.NoError(t, store.SaveBars(models.MBarSeries{Symbol: "X", Interval: models.Interval1Day,
		Bars: []models.MBar{{Timestamp: old, Volume: 1}, {Timestamp: recent, Volume: 2}}}))
	require.NoError(t, store.CleanupOldData(365))

	got, err := store.FetchBars(context.Background(), []string{"X"}, models.Interval1Day, old.Add(-time.Hour), time.Now(), false)
	require.NoError(t, err)
	require.Len(t, got["X"].Bars, 1)
	assert.Equal(t, int64(2), got["X"].Bars[0].Volume)
}

func TestParseSymbolRef(t *testing.T) {
	ref, ok := ParseSymbolRef("market.universe.ticker")
	require.True(t, ok)
	assert.Equal(t, SymbolRef{Schema: "market", Table: "universe", Field: "ticker"}, ref)

	_, ok = ParseSymbolRef("BRK.B")
	assert.False(t, ok)
	_, ok = ParseSymbolRef("AAPL")
	assert.False(t, ok)
}

func TestPostgresStoreDefaults(t *testing.T) {
	store := NewPostgresBarStore(&models.MConfig{}, utils.NewFallbackCalendar(), logger.NewNopLogger())
	assert.Equal(t, "screener", store.Schema)
	assert.Equal(t, `"screener"."bars"`, store.table())
	assert.Equal(t, "postgres", store.Name())
}
