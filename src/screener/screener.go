package screener

import (
	"context"
	"sort"
	"time"

	"market-screener/src/analysis"
	"market-screener/src/interfaces"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/utils"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// RunState is a step of a screening run.
type RunState string

const (
	StateIdle             RunState = "Idle"
	StateBaselineComputed RunState = "BaselineComputed"
	StateBatchFetch       RunState = "BatchFetch"
	StateBatchAggregate   RunState = "BatchAggregate"
	StateBatchAppend      RunState = "BatchAppend"
	StateDone             RunState = "Done"
)

// StateObserver receives run transitions. batch is -1 for run-level states.
// With more than one concurrent batch it is called from several goroutines.
type StateObserver func(state RunState, batch int)

// Screener computes metric records for a symbol universe over one window.
type Screener struct {
	Config     *models.MConfig
	Provider   interfaces.IMarketDataProvider
	Calendar   *utils.TradingCalendar
	Classifier *analysis.WindowClassifier
	Baseline   *analysis.BaselineEstimator
	Calculator *analysis.MetricsCalculator
	Logger     *logger.Logger
	Observer   StateObserver
}

// batchOutcome is what one batch contributes to the run.
type batchOutcome struct {
	records []models.MMetricRecord
	skipped []string
	gap     *models.MBatchGap
}

// -----------------------------------------------------------------------------

func NewScreener(
	cfg *models.MConfig,
	provider interfaces.IMarketDataProvider,
	cal *utils.TradingCalendar,
	log *logger.Logger,
) *Screener {
	return &Screener{
		Config:     cfg,
		Provider:   provider,
		Calendar:   cal,
		Classifier: analysis.NewWindowClassifier(cal),
		Baseline:   analysis.NewBaselineEstimator(provider, cal, cfg.Screener, log),
		Calculator: analysis.NewMetricsCalculator(cfg.Screener.AbsentBaseline),
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// RunScreen classifies the window, computes baselines once, then processes
// symbol batches. Provider failures and timeouts become batch gaps; only an
// invalid window or a cancelled context fail the run.
func (s *Screener) RunScreen(ctx context.Context, req models.MScreenRequest) (*models.MScreenResult, error) {
	started := time.Now()
	s.transition(StateIdle, -1)

	loc := s.Calendar.Location()
	window := models.MTimeWindow{Start: req.Window.Start.In(loc), End: req.Window.End.In(loc)}

	plan, err := s.Classifier.Classify(window)
	if err != nil {
		return nil, err
	}

	symbols := utils.NormalizeSymbols(req.Symbols)
	s.Logger.Info("Screening %d symbols %s -> %s (mode=%s interval=%s days=%d)",
		len(symbols), window.Start.Format("2006-01-02 15:04"), window.End.Format("2006-01-02 15:04"),
		plan.Mode, plan.Interval, plan.ElapsedDays)

	baseline := s.Baseline.Estimate(ctx, symbols, window.Start)
	s.transition(StateBaselineComputed, -1)

	batches := utils.ChunkSymbols(symbols, s.Baseline.BatchSize)
	outcomes := make([]batchOutcome, len(batches))

	var g errgroup.Group
	g.SetLimit(max(1, s.Config.Screener.ConcurrentBatches))
	for i, batch := range batches {
		g.Go(func() error {
			outcomes[i] = s.processBatch(ctx, i, batch, plan, window, baseline)
			s.transition(StateBatchAppend, i)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "screen cancelled")
	}

	result := &models.MScreenResult{
		RunID:   uuid.NewString(),
		Plan:    plan,
		Window:  window,
		Records: []models.MMetricRecord{},
	}
	for _, o := range outcomes {
		result.Records = append(result.Records, o.records...)
		result.Skipped = append(result.Skipped, o.skipped...)
		if o.gap != nil {
			result.Gaps = append(result.Gaps, *o.gap)
		}
	}

	result.Records = analysis.ApplyFilters(result.Records, req.Filters)
	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].Ticker < result.Records[j].Ticker
	})
	sort.Strings(result.Skipped)

	result.ProcessingMetrics = models.MProcessingMetrics{
		ElapsedSeconds: time.Since(started).Seconds(),
		Requested:      len(symbols),
		Produced:       len(result.Records),
		Batches:        len(batches),
		BaselineHits:   len(baseline),
	}
	result.GeneratedAt = time.Now().Unix()

	s.transition(StateDone, -1)
	s.Logger.Info("Screen %s done: %d records, %d skipped, %d gaps in %.2fs",
		result.RunID, len(result.Records), len(result.Skipped), len(result.Gaps), result.ProcessingMetrics.ElapsedSeconds)
	return result, nil
}

// -----------------------------------------------------------------------------

func (s *Screener) processBatch(
	ctx context.Context,
	idx int,
	batch []string,
	plan models.MWindowPlan,
	window models.MTimeWindow,
	baseline models.MBaseline,
) batchOutcome {
	if timeout := s.Baseline.BatchTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.transition(StateBatchFetch, idx)
	primary, fullDays, err := s.fetchBatch(ctx, batch, plan, window)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		s.Logger.Warning("Batch %d (%d symbols) dropped: %s", idx, len(batch), reason)
		return batchOutcome{gap: &models.MBatchGap{Batch: idx, Symbols: batch, Reason: reason}}
	}

	s.transition(StateBatchAggregate, idx)
	var out batchOutcome
	for _, sym := range batch {
		in := analysis.MetricInput{
			Symbol:     sym,
			Mode:       plan.Mode,
			BarMinutes: plan.BarMinutes,
		}
		if series, ok := primary[sym]; ok {
			in.Primary = analysis.SliceForPlan(analysis.SortBars(series), plan, window, s.Calendar)
		}
		if series, ok := fullDays[sym]; ok {
			in.FullDays = series
		}

		record, ok := s.Calculator.Calculate(in, baseline)
		if !ok {
			out.skipped = append(out.skipped, sym)
			continue
		}
		out.records = append(out.records, record)
	}

	s.Logger.Debug("Batch %d: %d records, %d skipped", idx, len(out.records), len(out.skipped))
	return out
}

// -----------------------------------------------------------------------------

// fetchBatch retrieves the primary series and, for intraday windows with full
// trading days inside them, the daily bars of those days.
func (s *Screener) fetchBatch(
	ctx context.Context,
	batch []string,
	plan models.MWindowPlan,
	window models.MTimeWindow,
) (primary, fullDays map[string]models.MBarSeries, err error) {
	extended := s.Config.Provider.IncludeExtendedHours

	if plan.Mode == models.ModeDaily {
		from, to := analysis.DailyFetchRange(window.Start, window.End, s.Calendar)
		primary, err = s.Provider.FetchBars(ctx, batch, models.Interval1Day, from, to, extended)
		if err != nil {
			return nil, nil, errors.Wrap(err, "daily fetch")
		}
		return primary, nil, nil
	}

	from, to := analysis.IntradayFetchRange(window, plan.Interval)
	primary, err = s.Provider.FetchBars(ctx, batch, plan.Interval, from, to, extended)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s fetch", plan.Interval)
	}

	first, last, ok := analysis.FullDayRange(window, s.Calendar)
	if !ok {
		return primary, nil, nil
	}
	from, to = analysis.DailyFetchRange(first, last, s.Calendar)
	days, err := s.Provider.FetchBars(ctx, batch, models.Interval1Day, from, to, extended)
	if err != nil {
		return nil, nil, errors.Wrap(err, "full-day fetch")
	}

	fullDays = make(map[string]models.MBarSeries, len(days))
	for sym, series := range days {
		fullDays[sym] = analysis.SliceDays(analysis.SortBars(series), first, last, s.Calendar)
	}
	return primary, fullDays, nil
}

// -----------------------------------------------------------------------------

func (s *Screener) transition(state RunState, batch int) {
	if batch >= 0 {
		s.Logger.Debug("run state -> %s (batch %d)", state, batch)
	} else {
		s.Logger.Debug("run state -> %s", state)
	}
	if s.Observer != nil {
		s.Observer(state, batch)
	}
}
