package utils

import (
	"log"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/scmhub/calendar"
)

// Regular session bounds as offsets from local midnight.
const (
	SessionOpenOffset  = 9*time.Hour + 30*time.Minute
	SessionCloseOffset = 16 * time.Hour
)

// TradingCalendar answers trading-day and session questions using scmhub/calendar.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar returns the calendar for an ISO 10383 MIC (e.g. "xnys").
// Unknown MICs fall back to xnys, then to a Mon-Fri New York calendar.
func GetCalendar(mic string) *TradingCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		mic = "xnys"
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s' and fallback 'xnys'. Using simple fallback (Mon-Fri 09:30-16:00 New York).", mic)
		return NewFallbackCalendar()
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

// NewFallbackCalendar is a Mon-Fri calendar in New York time without holidays.
func NewFallbackCalendar() *TradingCalendar {
	nyLoc, err := time.LoadLocation("America/New_York")
	if err != nil {
		nyLoc = time.UTC
	}
	return &TradingCalendar{Fallback: true, Timezone: nyLoc}
}

// -----------------------------------------------------------------------------

// Location is the exchange-local time zone.
func (tc *TradingCalendar) Location() *time.Location {
	if tc.Timezone == nil {
		return time.UTC
	}
	return tc.Timezone
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	date = date.In(tc.Location())

	if tc.Fallback || tc.Calendar == nil {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// InSession reports whether t falls in [09:30, 16:00) local on a trading day.
func (tc *TradingCalendar) InSession(t time.Time) bool {
	t = t.In(tc.Location())
	if !tc.IsTradingDay(t) {
		return false
	}
	return !t.Before(tc.SessionOpen(t)) && t.Before(tc.SessionClose(t))
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute,
// honouring early closes when the exchange calendar is loaded.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Fallback || tc.Calendar == nil {
		return tc.InSession(t)
	}
	return tc.Calendar.IsOpen(t.In(tc.Location()))
}

// -----------------------------------------------------------------------------

// StartOfDay returns local midnight of t's date.
func (tc *TradingCalendar) StartOfDay(t time.Time) time.Time {
	t = t.In(tc.Location())
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, tc.Location())
}

// -----------------------------------------------------------------------------

// SessionOpen returns 09:30 local on t's date.
func (tc *TradingCalendar) SessionOpen(t time.Time) time.Time {
	return tc.atOffset(t, SessionOpenOffset)
}

// -----------------------------------------------------------------------------

// SessionClose returns 16:00 local on t's date.
func (tc *TradingCalendar) SessionClose(t time.Time) time.Time {
	return tc.atOffset(t, SessionCloseOffset)
}

// atOffset builds the wall-clock time offset from midnight on t's date.
func (tc *TradingCalendar) atOffset(t time.Time, offset time.Duration) time.Time {
	t = t.In(tc.Location())
	y, m, d := t.Date()
	h, mm := int(offset/time.Hour), int(offset%time.Hour/time.Minute)
	return time.Date(y, m, d, h, mm, 0, 0, tc.Location())
}

// -----------------------------------------------------------------------------

// AtClose reports whether t is exactly the 16:00 local close.
func (tc *TradingCalendar) AtClose(t time.Time) bool {
	return t.In(tc.Location()).Equal(tc.SessionClose(t))
}
