package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"market-screener/src/helpers"
	"market-screener/src/interfaces"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/utils"

	"golang.org/x/sync/errgroup"
)

// DefaultChartURL is the v8 chart endpoint; the symbol is appended.
const DefaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

type YahooFinanceSource struct {
	Config   *models.MConfig
	Network  interfaces.INetworkManager
	Calendar *utils.TradingCalendar
	Logger   *logger.Logger
	BaseURL  string
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return "yahoo"
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, cal *utils.TradingCalendar, log *logger.Logger) *YahooFinanceSource {
	return &YahooFinanceSource{
		Config:   cfg,
		Network:  netMgr,
		Calendar: cal,
		Logger:   log,
		BaseURL:  DefaultChartURL,
	}
}

// -----------------------------------------------------------------------------

// FetchBars fetches each symbol concurrently. Per-symbol failures are logged
// and leave the symbol out; the call fails only when every symbol failed.
func (s *YahooFinanceSource) FetchBars(
	ctx context.Context,
	symbols []string,
	interval models.Interval,
	start, end time.Time,
	includeExtendedHours bool,
) (map[string]models.MBarSeries, error) {
	results := make(map[string]models.MBarSeries, len(symbols))
	if len(symbols) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	var failures []error

	var g errgroup.Group
	g.SetLimit(max(1, s.Config.Network.ConcurrentRequests))

	for _, symbol := range symbols {
		g.Go(func() error {
			series, err := s.fetchSymbol(ctx, symbol, interval, start, end, includeExtendedHours)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.Logger.Info("Error fetching symbol %s: %v", symbol, err)
				failures = append(failures, err)
				return nil
			}
			results[symbol] = series
			return nil
		})
	}
	_ = g.Wait()

	s.Logger.Info("YahooFinance: Fetched %d/%d symbols (%s)", len(results), len(symbols), interval)

	if len(results) == 0 && len(failures) > 0 {
		return nil, helpers.NewDataSourceError("all fetches failed", failures[0])
	}
	return results, nil
}

// -----------------------------------------------------------------------------

// ProviderSymbol converts share-class dots to the dash form Yahoo expects.
func ProviderSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) fetchSymbol(
	ctx context.Context,
	symbol string,
	interval models.Interval,
	start, end time.Time,
	includeExtendedHours bool,
) (models.MBarSeries, error) {
	params := map[string]string{
		"interval":       string(interval),
		"period1":        strconv.FormatInt(start.Unix(), 10),
		"period2":        strconv.FormatInt(end.Unix(), 10),
		"includePrePost": strconv.FormatBool(includeExtendedHours),
	}

	respBytes, err := s.Network.Get(ctx, s.BaseURL+ProviderSymbol(symbol), params)
	if err != nil {
		return models.MBarSeries{}, fmt.Errorf("network error for %s: %w", symbol, err)
	}

	series, err := s.parseChartResponse(symbol, interval, respBytes)
	if err != nil {
		return models.MBarSeries{}, err
	}

	kept := series.Bars[:0]
	for _, b := range series.Bars {
		if !b.Timestamp.Before(start) && b.Timestamp.Before(end) {
			kept = append(kept, b)
		}
	}
	series.Bars = kept
	return series, nil
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string `json:"currency"`
				Symbol               string `json:"symbol"`
				ExchangeName         string `json:"exchangeName"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
				DataGranularity      string `json:"dataGranularity"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High   []*float64 `json:"high"` // null for halted minutes
					Low    []*float64 `json:"low"`
					Open   []*float64 `json:"open"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

// parseChartResponse converts a chart payload into a sorted bar series in the
// market location. Daily bars are stamped at local midnight.
func (s *YahooFinanceSource) parseChartResponse(symbol string, interval models.Interval, data []byte) (models.MBarSeries, error) {
	series := models.MBarSeries{Symbol: symbol, Interval: interval}

	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return series, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Chart.Error != nil {
		return series, fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return series, fmt.Errorf("no result in response for %s", symbol)
	}

	result := resp.Chart.Result[0]
	// An empty range is a valid answer.
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return series, nil
	}
	quote := result.Indicators.Quote[0]

	n := len(result.Timestamp)
	if n != len(quote.Close) || n != len(quote.Open) || n != len(quote.High) ||
		n != len(quote.Low) || n != len(quote.Volume) {
		s.Logger.Info("Data alignment error for %s: Mismatched array lengths", symbol)
		return series, fmt.Errorf("data alignment error for %s", symbol)
	}

	loc := s.Calendar.Location()
	for i := 0; i < n; i++ {
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil ||
			quote.Close[i] == nil || quote.Volume[i] == nil {
			continue
		}
		closeVal, volume := *quote.Close[i], *quote.Volume[i]
		if closeVal <= 0 || volume < 0 {
			s.Logger.Debug("Skipping invalid point for %s: close=%f, volume=%f", symbol, closeVal, volume)
			continue
		}

		ts := time.Unix(result.Timestamp[i], 0).In(loc)
		if !interval.IsIntraday() {
			ts = s.Calendar.StartOfDay(ts)
		}

		series.Bars = append(series.Bars, models.MBar{
			Timestamp: ts,
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     closeVal,
			Volume:    int64(volume),
		})
	}

	sort.Slice(series.Bars, func(i, j int) bool {
		return series.Bars[i].Timestamp.Before(series.Bars[j].Timestamp)
	})

	if len(series.Bars) > 0 {
		s.Logger.Debug("Fetched %s: %d bars [%s -> %s]", symbol, len(series.Bars),
			series.Bars[0].Timestamp.Format(time.RFC3339), series.Bars[len(series.Bars)-1].Timestamp.Format(time.RFC3339))
	}
	return series, nil
}
