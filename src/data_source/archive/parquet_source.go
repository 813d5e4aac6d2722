package archive

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"market-screener/src/helpers"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/utils"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// barRow is the on-disk bar layout shared with crawler exports.
type barRow struct {
	Timestamp int64   `parquet:"t"` // Unix milliseconds
	Open      float64 `parquet:"o"`
	High      float64 `parquet:"h"`
	Low       float64 `parquet:"l"`
	Close     float64 `parquet:"c"`
	Volume    int64   `parquet:"v"`
}

// ParquetSource serves bars from {dir}/{interval}/{SYMBOL}.parquet files.
type ParquetSource struct {
	Dir      string
	Calendar *utils.TradingCalendar
	Logger   *logger.Logger
	mu       sync.Mutex
}

// -----------------------------------------------------------------------------

func NewParquetSource(dir string, cal *utils.TradingCalendar, log *logger.Logger) *ParquetSource {
	return &ParquetSource{Dir: dir, Calendar: cal, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *ParquetSource) Name() string {
	return "parquet"
}

// -----------------------------------------------------------------------------

func (s *ParquetSource) Initialize() error {
	if s.Dir == "" {
		return helpers.NewValidationError("parquet_dir is required for the parquet provider")
	}
	return os.MkdirAll(s.Dir, 0o755)
}

// -----------------------------------------------------------------------------

func (s *ParquetSource) Close() error {
	return nil
}

// -----------------------------------------------------------------------------

func (s *ParquetSource) path(symbol string, interval models.Interval) string {
	return filepath.Join(s.Dir, string(interval), strings.ToUpper(symbol)+".parquet")
}

// -----------------------------------------------------------------------------

// FetchBars reads each symbol's file and keeps bars in [start, end).
// Symbols without a file are absent from the result.
func (s *ParquetSource) FetchBars(
	ctx context.Context,
	symbols []string,
	interval models.Interval,
	start, end time.Time,
	_ bool,
) (map[string]models.MBarSeries, error) {
	out := make(map[string]models.MBarSeries, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "parquet fetch")
		}

		rows, err := s.read(sym, interval)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, helpers.NewDataSourceError("read "+sym, err)
		}

		series := models.MBarSeries{Symbol: sym, Interval: interval}
		for _, r := range rows {
			ts := time.UnixMilli(r.Timestamp).In(s.Calendar.Location())
			if ts.Before(start) || !ts.Before(end) {
				continue
			}
			series.Bars = append(series.Bars, models.MBar{
				Timestamp: ts, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume,
			})
		}
		out[sym] = series
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ParquetSource) read(symbol string, interval models.Interval) ([]barRow, error) {
	p := s.path(symbol, interval)
	if _, err := os.Stat(p); err != nil {
		return nil, err
	}
	return parquet.ReadFile[barRow](p)
}

// -----------------------------------------------------------------------------

// SaveBars merges a series into its file. Existing bars with the same
// timestamp are replaced.
func (s *ParquetSource) SaveBars(series models.MBarSeries) error {
	if len(series.Bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(series.Symbol, series.Interval)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return helpers.NewDataSourceError("read "+series.Symbol, err)
	}

	merged := make(map[int64]barRow, len(existing)+len(series.Bars))
	for _, r := range existing {
		merged[r.Timestamp] = r
	}
	for _, b := range series.Bars {
		ms := b.Timestamp.UnixMilli()
		merged[ms] = barRow{Timestamp: ms, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}

	rows := make([]barRow, 0, len(merged))
	for _, r := range merged {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp < rows[j].Timestamp })

	p := s.path(series.Symbol, series.Interval)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "create parquet dir")
	}
	if err := parquet.WriteFile(p, rows); err != nil {
		return helpers.NewDataSourceError("write "+series.Symbol, err)
	}

	s.Logger.Debug("Saved %d %s bars for %s (%d total)", len(series.Bars), series.Interval, series.Symbol, len(rows))
	return nil
}
