package analysis

import (
	"time"

	"market-screener/src/helpers"
	"market-screener/src/models"
	"market-screener/src/utils"
)

// Elapsed-day thresholds for picking the intraday bar interval.
const (
	MaxOneMinuteDays = 7
	MaxTwoMinuteDays = 60
)

// WindowClassifier decides the evaluation mode and bar interval of a window.
type WindowClassifier struct {
	Calendar *utils.TradingCalendar
}

// -----------------------------------------------------------------------------

func NewWindowClassifier(cal *utils.TradingCalendar) *WindowClassifier {
	return &WindowClassifier{Calendar: cal}
}

// -----------------------------------------------------------------------------

// Classify returns the plan for a window. A window is daily when both ends
// sit exactly on the 16:00 close or when it has zero length. The interval
// always follows the elapsed-days rule; daily mode still fetches daily bars.
func (c *WindowClassifier) Classify(window models.MTimeWindow) (models.MWindowPlan, error) {
	loc := c.Calendar.Location()
	start, end := window.Start.In(loc), window.End.In(loc)

	if end.Before(start) {
		return models.MWindowPlan{}, helpers.NewInvalidWindowError(start, end)
	}

	days := ElapsedDays(start, end)
	interval := IntervalForElapsedDays(days)

	mode := models.ModeIntraday
	if start.Equal(end) || (c.Calendar.AtClose(start) && c.Calendar.AtClose(end)) {
		mode = models.ModeDaily
	}

	return models.MWindowPlan{
		Mode:        mode,
		Interval:    interval,
		BarMinutes:  interval.Minutes(),
		ElapsedDays: days,
	}, nil
}

// -----------------------------------------------------------------------------

// IntervalForElapsedDays maps the window length to a bar interval.
func IntervalForElapsedDays(days int) models.Interval {
	switch {
	case days <= MaxOneMinuteDays:
		return models.Interval1Minute
	case days <= MaxTwoMinuteDays:
		return models.Interval2Minute
	default:
		return models.Interval1Day
	}
}

// -----------------------------------------------------------------------------

// ElapsedDays is the whole number of 24h periods between two local
// wall-clock times. DST shifts are ignored so a Friday 16:00 to Monday 16:00
// span is always 3 days.
func ElapsedDays(start, end time.Time) int {
	wall := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	d := wall(end).Sub(wall(start))
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
