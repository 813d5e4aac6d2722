package models

// MDailyVolume holds the daily-mode volume fields.
type MDailyVolume struct {
	TotalVolume    int64   `json:"total_volume"`
	AverageVolume  int64   `json:"average_volume"`
	RelativeVolume float64 `json:"relative_volume"`
}

// MIntradayVolume holds the intraday-mode volume fields: a per-bar view over
// the whole window and a per-day view over its full trading days.
type MIntradayVolume struct {
	MinuteTotalVolume    int64   `json:"minute_total_volume"`
	MinuteAverageVolume  int64   `json:"minute_average_volume"`
	MinuteRelativeVolume float64 `json:"minute_relative_volume"`
	DayTotalVolume       int64   `json:"day_total_volume"`
	DayAverageVolume     int64   `json:"day_average_volume"`
	DayRelativeVolume    float64 `json:"day_relative_volume"`
}

// MMetricRecord is one row of the screen result. Mode selects which of
// Daily or Intraday is set; the other is always nil.
type MMetricRecord struct {
	Ticker         string           `json:"ticker"`
	Mode           WindowMode       `json:"mode"`
	Price          float64          `json:"price"`
	PriceChangePct float64          `json:"price_change_pct"`
	Daily          *MDailyVolume    `json:"daily,omitempty"`
	Intraday       *MIntradayVolume `json:"intraday,omitempty"`
}

// RelativeVolume returns the headline relative volume for the record's mode.
func (r MMetricRecord) RelativeVolume() float64 {
	switch {
	case r.Daily != nil:
		return r.Daily.RelativeVolume
	case r.Intraday != nil:
		return r.Intraday.MinuteRelativeVolume
	}
	return 0
}
