package models

import "time"

// WindowMode tags how a screening window is evaluated.
type WindowMode string

const (
	ModeDaily    WindowMode = "daily"
	ModeIntraday WindowMode = "intraday"
)

// MTimeWindow is the requested screening window in exchange-local time.
type MTimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SpanDays is the number of calendar dates between start and end.
func (w MTimeWindow) SpanDays() int {
	sy, sm, sd := w.Start.Date()
	ey, em, ed := w.End.Date()
	s := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

// MWindowPlan is the classification of a window.
type MWindowPlan struct {
	Mode        WindowMode `json:"mode"`
	Interval    Interval   `json:"interval"`
	BarMinutes  int        `json:"bar_minutes"`
	ElapsedDays int        `json:"elapsed_days"`
}
