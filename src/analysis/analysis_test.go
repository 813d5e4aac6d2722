package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"market-screener/src/helpers"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

func testCalendar() *utils.TradingCalendar {
	return utils.NewFallbackCalendar()
}

func dailySeries(symbol string, first time.Time, volumes []int64, closes []float64) models.MBarSeries {
	s := models.MBarSeries{Symbol: symbol, Interval: models.Interval1Day}
	day := first
	for i, v := range volumes {
		c := 0.0
		if i < len(closes) {
			c = closes[i]
		}
		s.Bars = append(s.Bars, models.MBar{Timestamp: day, Close: c, Volume: v})
		day = day.AddDate(0, 0, 1)
	}
	return s
}

func minuteSeries(symbol string, first time.Time, n int, volume int64) models.MBarSeries {
	s := models.MBarSeries{Symbol: symbol, Interval: models.Interval1Minute}
	for i := 0; i < n; i++ {
		s.Bars = append(s.Bars, models.MBar{
			Timestamp: first.Add(time.Duration(i) * time.Minute),
			Close:     100 + float64(i)/100,
			Volume:    volume,
		})
	}
	return s
}

type fakeProvider struct {
	mu     sync.Mutex
	series map[string]models.MBarSeries
	fail   map[string]bool
	calls  [][]string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchBars(_ context.Context, symbols []string, interval models.Interval, start, end time.Time, _ bool) (map[string]models.MBarSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbols)

	out := make(map[string]models.MBarSeries)
	for _, sym := range symbols {
		if f.fail[sym] {
			return nil, errors.New("upstream unavailable")
		}
		s, ok := f.series[sym]
		if !ok {
			continue
		}
		res := models.MBarSeries{Symbol: sym, Interval: interval}
		for _, b := range s.Bars {
			if !b.Timestamp.Before(start) && b.Timestamp.Before(end) {
				res.Bars = append(res.Bars, b)
			}
		}
		out[sym] = res
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// WindowClassifier
// -----------------------------------------------------------------------------

func TestClassify(t *testing.T) {
	cal := testCalendar()
	loc := cal.Location()
	c := NewWindowClassifier(cal)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		mode     models.WindowMode
		interval models.Interval
		minutes  int
	}{
		{"close to close", time.Date(2024, 1, 2, 16, 0, 0, 0, loc), time.Date(2024, 1, 5, 16, 0, 0, 0, loc), models.ModeDaily, models.Interval1Minute, 1},
		{"same day intraday", time.Date(2024, 1, 2, 10, 0, 0, 0, loc), time.Date(2024, 1, 2, 15, 0, 0, 0, loc), models.ModeIntraday, models.Interval1Minute, 1},
		{"zero length", time.Date(2024, 1, 2, 11, 0, 0, 0, loc), time.Date(2024, 1, 2, 11, 0, 0, 0, loc), models.ModeDaily, models.Interval1Minute, 1},
		{"eight days", time.Date(2024, 1, 2, 10, 0, 0, 0, loc), time.Date(2024, 1, 10, 10, 0, 0, 0, loc), models.ModeIntraday, models.Interval2Minute, 2},
		{"sixty days", time.Date(2024, 1, 2, 10, 0, 0, 0, loc), time.Date(2024, 3, 2, 10, 0, 0, 0, loc), models.ModeIntraday, models.Interval2Minute, 2},
		{"sixty one days", time.Date(2024, 1, 2, 16, 0, 0, 0, loc), time.Date(2024, 3, 3, 16, 0, 0, 0, loc), models.ModeDaily, models.Interval1Day, 390},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := c.Classify(models.MTimeWindow{Start: tt.start, End: tt.end})
			require.NoError(t, err)
			assert.Equal(t, tt.mode, plan.Mode)
			assert.Equal(t, tt.interval, plan.Interval)
			assert.Equal(t, tt.minutes, plan.BarMinutes)
		})
	}
}

func TestClassifyRejectsInvertedWindow(t *testing.T) {
	cal := testCalendar()
	loc := cal.Location()

	_, err := NewWindowClassifier(cal).Classify(models.MTimeWindow{
		Start: time.Date(2024, 1, 5, 16, 0, 0, 0, loc),
		End:   time.Date(2024, 1, 2, 16, 0, 0, 0, loc),
	})
	require.Error(t, err)

	var iw *helpers.InvalidWindowError
	assert.ErrorAs(t, err, &iw)
	assert.True(t, helpers.IsInvalidInput(err))
}

func TestElapsedDaysIgnoresDST(t *testing.T) {
	loc := testCalendar().Location()
	start := time.Date(2024, 3, 8, 16, 0, 0, 0, loc)
	end := time.Date(2024, 3, 11, 16, 0, 0, 0, loc)
	assert.Equal(t, 3, ElapsedDays(start, end))
	assert.Equal(t, 0, ElapsedDays(end, start))
}

// -----------------------------------------------------------------------------
// Slicing
// -----------------------------------------------------------------------------

func TestSliceIntradayKeepsSessionBarsInclusive(t *testing.T) {
	cal := testCalendar()
	loc := cal.Location()

	series := minuteSeries("AAPL", time.Date(2024, 1, 2, 9, 25, 0, 0, loc), 20, 10)
	window := models.MTimeWindow{
		Start: time.Date(2024, 1, 2, 9, 0, 0, 0, loc),
		End:   time.Date(2024, 1, 2, 9, 40, 0, 0, loc),
	}

	got := SliceToWindow(series, window, cal)
	require.Len(t, got.Bars, 11)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 30, 0, 0, loc), got.Bars[0].Timestamp)
	assert.Equal(t, window.End, got.Bars[10].Timestamp)
}

func TestSliceDailyByDate(t *testing.T) {
	cal := testCalendar()
	loc := cal.Location()

	series := dailySeries("AAPL", time.Date(2024, 1, 1, 0, 0, 0, 0, loc), []int64{1, 2, 3, 4, 5, 6}, nil)
	window := models.MTimeWindow{
		Start: time.Date(2024, 1, 2, 16, 0, 0, 0, loc),
		End:   time.Date(2024, 1, 4, 16, 0, 0, 0, loc),
	}

	got := SliceToWindow(series, window, cal)
	require.Len(t, got.Bars, 3)
	assert.Equal(t, int64(2), got.Bars[0].Volume)
	assert.Equal(t, int64(4), got.Bars[2].Volume)
}

func TestSortBarsLeavesInputUntouched(t *testing.T) {
	loc := testCalendar().Location()
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, loc)
	d2 := d1.AddDate(0, 0, 1)

	input := models.MBarSeries{Symbol: "X", Interval: models.Interval1Day, Bars: []models.MBar{
		{Timestamp: d2, Volume: 2},
		{Timestamp: d1, Volume: 1},
	}}

	got := SortBars(input)
	assert.Equal(t, d1, got.Bars[0].Timestamp)
	assert.Equal(t, d2, got.Bars[1].Timestamp)
	assert.Equal(t, d2, input.Bars[0].Timestamp, "caller's slice keeps its order")
}

func TestSliceForPlanDropsPartialEndDayOfDailyBars(t *testing.T) {
	cal := testCalendar()
	loc := cal.Location()

	series := dailySeries("X", time.Date(2024, 1, 1, 0, 0, 0, 0, loc), []int64{1, 2, 3, 4, 5, 6}, nil)
	plan := models.MWindowPlan{Mode: models.ModeIntraday, Interval: models.Interval1Day, BarMinutes: models.TradingMinutesPerDay}

	midSession := models.MTimeWindow{
		Start: time.Date(2024, 1, 2, 10, 0, 0, 0, loc),
		End:   time.Date(2024, 1, 5, 12, 0, 0, 0, loc),
	}
	got := SliceForPlan(series, plan, midSession, cal)
	require.Len(t, got.Bars, 3)
	assert.Equal(t, int64(4), got.Bars[2].Volume)

	atClose := midSession
	atClose.End = time.Date(2024, 1, 5, 16, 0, 0, 0, loc)
	got = SliceForPlan(series, plan, atClose, cal)
	require.Len(t, got.Bars, 4)
	assert.Equal(t, int64(5), got.Bars[3].Volume)

	sameDay := models.MTimeWindow{Start: midSession.Start, End: time.Date(2024, 1, 2, 12, 0, 0, 0, loc)}
	assert.Empty(t, SliceForPlan(series, plan, sameDay, cal).Bars)

	daily := models.MWindowPlan{Mode: models.ModeDaily, Interval: models.Interval1Day}
	point := models.MTimeWindow{Start: sameDay.End, End: sameDay.End}
	assert.Len(t, SliceForPlan(series, daily, point, cal).Bars, 1)
}

func TestFullDayRange(t *testing.T) {
	cal := testCalendar()
	loc := cal.Location()
	monday := time.Date(2024, 1, 8, 10, 0, 0, 0, loc)

	first, last, ok := FullDayRange(models.MTimeWindow{Start: monday, End: time.Date(2024, 1, 11, 16, 0, 0, 0, loc)}, cal)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, loc), first)
	assert.Equal(t, time.Date(2024, 1, 11, 0, 0, 0, 0, loc), last)

	_, last, ok = FullDayRange(models.MTimeWindow{Start: monday, End: time.Date(2024, 1, 11, 11, 0, 0, 0, loc)}, cal)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, loc), last)

	_, _, ok = FullDayRange(models.MTimeWindow{Start: monday, End: time.Date(2024, 1, 9, 11, 0, 0, 0, loc)}, cal)
	assert.False(t, ok)

	from, to := DailyFetchRange(first, last, cal)
	assert.Equal(t, first, from)
	assert.Equal(t, time.Date(2024, 1, 11, 0, 0, 0, 0, loc), to)
}

// -----------------------------------------------------------------------------
// WindowAggregator
// -----------------------------------------------------------------------------

func TestAggregateDailyExcludesFirstBar(t *testing.T) {
	loc := testCalendar().Location()
	agg := WindowAggregator{}.Aggregate(dailySeries("A", time.Date(2024, 1, 3, 0, 0, 0, 0, loc), []int64{100, 200, 300}, nil))

	assert.Equal(t, models.GranularityDaily, agg.Granularity)
	assert.Equal(t, int64(500), agg.TotalVolume)
	assert.Equal(t, 250.0, agg.AverageVolume)
}

func TestAggregateSingleDailyBar(t *testing.T) {
	loc := testCalendar().Location()
	agg := WindowAggregator{}.Aggregate(dailySeries("A", time.Date(2024, 1, 3, 0, 0, 0, 0, loc), []int64{50}, nil))

	assert.Equal(t, int64(50), agg.TotalVolume)
	assert.Equal(t, 50.0, agg.AverageVolume)
	assert.Equal(t, models.GranularityDaily, agg.Granularity)
}

func TestAggregateIntradayUsesEveryBar(t *testing.T) {
	loc := testCalendar().Location()
	agg := WindowAggregator{}.Aggregate(minuteSeries("A", time.Date(2024, 1, 2, 9, 30, 0, 0, loc), 4, 25))

	assert.Equal(t, models.GranularityIntraday, agg.Granularity)
	assert.Equal(t, int64(100), agg.TotalVolume)
	assert.Equal(t, 25.0, agg.AverageVolume)
}

func TestAggregateEmpty(t *testing.T) {
	agg := WindowAggregator{}.Aggregate(models.MBarSeries{Interval: models.Interval1Day})
	assert.True(t, agg.IsEmpty())
	assert.Equal(t, models.GranularityUndefined, agg.Granularity)
	assert.Zero(t, agg.TotalVolume)
	assert.Zero(t, agg.AverageVolume)
}

func TestAggregateInvariants(t *testing.T) {
	loc := testCalendar().Location()
	first := time.Date(2024, 2, 1, 0, 0, 0, 0, loc)
	volumes := []int64{7, 0, 1300, 42, 999, 5, 81, 12000}

	for n := 2; n <= len(volumes); n++ {
		s := dailySeries("A", first, volumes[:n], nil)
		agg := WindowAggregator{}.Aggregate(s)

		var sum int64
		for _, v := range volumes[:n] {
			sum += v
		}
		assert.Equal(t, sum, agg.TotalVolume+volumes[0], "n=%d", n)
		assert.InDelta(t, float64(agg.TotalVolume)/float64(n-1), agg.AverageVolume, 1e-9, "n=%d", n)
	}

	for n := 1; n <= 30; n++ {
		s := minuteSeries("A", time.Date(2024, 2, 1, 9, 30, 0, 0, loc), n, int64(n*3))
		agg := WindowAggregator{}.Aggregate(s)
		assert.Equal(t, int64(n*n*3), agg.TotalVolume)
		assert.InDelta(t, float64(agg.TotalVolume)/float64(n), agg.AverageVolume, 1e-9)
	}
}

func TestDetectGranularityFallsBackToInterval(t *testing.T) {
	loc := testCalendar().Location()
	ts := time.Date(2024, 1, 2, 10, 0, 0, 0, loc)

	one := models.MBarSeries{Interval: models.Interval2Minute, Bars: []models.MBar{{Timestamp: ts}}}
	assert.Equal(t, models.GranularityIntraday, DetectGranularity(one))

	one.Interval = models.Interval1Day
	assert.Equal(t, models.GranularityDaily, DetectGranularity(one))

	// Duplicate timestamps carry no spacing information.
	dup := models.MBarSeries{Interval: models.Interval1Minute, Bars: []models.MBar{{Timestamp: ts}, {Timestamp: ts}}}
	assert.Equal(t, models.GranularityIntraday, DetectGranularity(dup))
}

// -----------------------------------------------------------------------------
// MetricsCalculator
// -----------------------------------------------------------------------------

func TestCalculateDailyScenario(t *testing.T) {
	loc := testCalendar().Location()
	calc := NewMetricsCalculator(models.AbsentBaselineZero)

	in := MetricInput{
		Symbol:     "AAPL",
		Mode:       models.ModeDaily,
		BarMinutes: 1,
		Primary:    dailySeries("AAPL", time.Date(2024, 1, 3, 0, 0, 0, 0, loc), []int64{100, 200, 300}, []float64{10, 11, 9}),
	}

	rec, ok := calc.Calculate(in, models.MBaseline{"AAPL": 125})
	require.True(t, ok)
	require.NotNil(t, rec.Daily)
	assert.Nil(t, rec.Intraday)
	assert.Equal(t, int64(500), rec.Daily.TotalVolume)
	assert.Equal(t, int64(250), rec.Daily.AverageVolume)
	assert.Equal(t, 2.0, rec.Daily.RelativeVolume)
	assert.Equal(t, -10.0, rec.PriceChangePct)
	assert.Equal(t, 9.0, rec.Price)
}

func TestCalculateIntradayScenario(t *testing.T) {
	loc := testCalendar().Location()
	calc := NewMetricsCalculator(models.AbsentBaselineZero)

	in := MetricInput{
		Symbol:     "MSFT",
		Mode:       models.ModeIntraday,
		BarMinutes: 1,
		Primary:    minuteSeries("MSFT", time.Date(2024, 1, 2, 9, 30, 0, 0, loc), 390, 1000),
	}

	rec, ok := calc.Calculate(in, models.MBaseline{"MSFT": 390000})
	require.True(t, ok)
	require.NotNil(t, rec.Intraday)
	assert.Nil(t, rec.Daily)
	assert.Equal(t, int64(390000), rec.Intraday.MinuteTotalVolume)
	assert.Equal(t, int64(1000), rec.Intraday.MinuteAverageVolume)
	assert.Equal(t, 1.0, rec.Intraday.MinuteRelativeVolume)
	assert.Zero(t, rec.Intraday.DayTotalVolume)
	assert.Zero(t, rec.Intraday.DayRelativeVolume)
}

func TestCalculateIntradayFullDays(t *testing.T) {
	loc := testCalendar().Location()
	calc := NewMetricsCalculator(models.AbsentBaselineZero)

	in := MetricInput{
		Symbol:     "MSFT",
		Mode:       models.ModeIntraday,
		BarMinutes: 2,
		Primary:    minuteSeries("MSFT", time.Date(2024, 1, 2, 10, 0, 0, 0, loc), 10, 4000),
		FullDays:   dailySeries("MSFT", time.Date(2024, 1, 3, 0, 0, 0, 0, loc), []int64{300000, 780000, 780000}, nil),
	}

	rec, ok := calc.Calculate(in, models.MBaseline{"MSFT": 390000})
	require.True(t, ok)
	// per-bar baseline is 390000 / 195 = 2000
	assert.Equal(t, 2.0, rec.Intraday.MinuteRelativeVolume)
	assert.Equal(t, int64(1560000), rec.Intraday.DayTotalVolume)
	assert.Equal(t, int64(780000), rec.Intraday.DayAverageVolume)
	assert.Equal(t, 2.0, rec.Intraday.DayRelativeVolume)
}

func TestCalculateAbsentBaselinePolicies(t *testing.T) {
	loc := testCalendar().Location()
	in := MetricInput{
		Symbol:  "NEW",
		Mode:    models.ModeDaily,
		Primary: dailySeries("NEW", time.Date(2024, 1, 3, 0, 0, 0, 0, loc), []int64{10, 20, 40}, []float64{1, 1, 1}),
	}

	rec, ok := NewMetricsCalculator(models.AbsentBaselineZero).Calculate(in, models.MBaseline{})
	require.True(t, ok)
	assert.Equal(t, 0.0, rec.Daily.RelativeVolume)

	rec, ok = NewMetricsCalculator(models.AbsentBaselineSelf).Calculate(in, nil)
	require.True(t, ok)
	assert.Equal(t, 1.0, rec.Daily.RelativeVolume)

	rec, _ = NewMetricsCalculator(models.AbsentBaselineSelf).Calculate(in, models.MBaseline{"NEW": 0})
	assert.Equal(t, 0.0, rec.Daily.RelativeVolume, "present zero baseline is not replaced")
}

func TestCalculateSkipsEmptySlice(t *testing.T) {
	_, ok := NewMetricsCalculator("").Calculate(MetricInput{Symbol: "X", Mode: models.ModeDaily}, nil)
	assert.False(t, ok)
}

func TestCalculateZeroFirstClose(t *testing.T) {
	loc := testCalendar().Location()
	in := MetricInput{
		Symbol:  "Z",
		Mode:    models.ModeDaily,
		Primary: dailySeries("Z", time.Date(2024, 1, 3, 0, 0, 0, 0, loc), []int64{1, 1}, []float64{0, 5}),
	}
	rec, ok := NewMetricsCalculator("").Calculate(in, nil)
	require.True(t, ok)
	assert.Equal(t, 0.0, rec.PriceChangePct)
}

// -----------------------------------------------------------------------------
// BaselineEstimator
// -----------------------------------------------------------------------------

func TestBaselineEstimate(t *testing.T) {
	cal := testCalendar()
	loc := cal.Location()
	start := time.Date(2024, 1, 10, 16, 0, 0, 0, loc)

	provider := &fakeProvider{
		series: map[string]models.MBarSeries{
			// Jan 8 and 9 are inside the lookback, Jan 10 is the window start date.
			"AAA": dailySeries("AAA", time.Date(2024, 1, 8, 0, 0, 0, 0, loc), []int64{100, 300, 9999}, nil),
			"BBB": dailySeries("BBB", time.Date(2024, 1, 9, 0, 0, 0, 0, loc), []int64{50}, nil),
			"CCC": dailySeries("CCC", time.Date(2024, 1, 9, 0, 0, 0, 0, loc), []int64{70}, nil),
		},
		fail: map[string]bool{"CCC": true},
	}

	est := NewBaselineEstimator(provider, cal, models.MScreenerConfig{BatchSize: 2, LookbackDays: 5}, logger.NewNopLogger())

	from, to := est.LookbackRange(start)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, loc), to)

	baseline := est.Estimate(context.Background(), []string{"AAA", "BBB", "CCC", "DDD"}, start)

	assert.Len(t, provider.calls, 2)
	assert.Equal(t, 200.0, baseline["AAA"])
	assert.Equal(t, 50.0, baseline["BBB"])
	_, ok := baseline.Lookup("CCC")
	assert.False(t, ok, "failed batch leaves symbols absent")
	_, ok = baseline.Lookup("DDD")
	assert.False(t, ok)
}

// -----------------------------------------------------------------------------
// Filters
// -----------------------------------------------------------------------------

func TestApplyFilters(t *testing.T) {
	records := []models.MMetricRecord{
		{Ticker: "UP", PriceChangePct: 6, Daily: &models.MDailyVolume{RelativeVolume: 2.5}},
		{Ticker: "DOWN", PriceChangePct: -8, Daily: &models.MDailyVolume{RelativeVolume: 0.2}},
		{Ticker: "FLAT", PriceChangePct: 0.5, Daily: &models.MDailyVolume{RelativeVolume: 1.1}},
		{Ticker: "QUIET", PriceChangePct: 7, Intraday: &models.MIntradayVolume{MinuteRelativeVolume: 1.05}},
	}

	assert.Len(t, ApplyFilters(records, models.MScreenFilters{}), 4)

	momentum := 5.0
	got := ApplyFilters(records, models.MScreenFilters{MinAbsPriceChangePct: &momentum})
	assert.Len(t, got, 3)

	spike := 50.0
	got = ApplyFilters(records, models.MScreenFilters{MinAbsPriceChangePct: &momentum, MinVolumeSpikePct: &spike})
	require.Len(t, got, 2)
	assert.Equal(t, "UP", got[0].Ticker)
	assert.Equal(t, "DOWN", got[1].Ticker)
}
