package storage

import (
	"database/sql"
	"time"

	"market-screener/src/models"
)

// -----------------------------------------------------------------------------

// scanBars groups bar rows (symbol, ts, open, high, low, close, volume) by
// symbol. Timestamps are stored as Unix seconds.
func scanBars(rows *sql.Rows, interval models.Interval, loc *time.Location) (map[string]models.MBarSeries, error) {
	out := make(map[string]models.MBarSeries)
	for rows.Next() {
		var (
			symbol string
			ts     int64
			b      models.MBar
		)
		if err := rows.Scan(&symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Timestamp = time.Unix(ts, 0).In(loc)

		series, ok := out[symbol]
		if !ok {
			series = models.MBarSeries{Symbol: symbol, Interval: interval}
		}
		series.Bars = append(series.Bars, b)
		out[symbol] = series
	}
	return out, rows.Err()
}
