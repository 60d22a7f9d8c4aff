// Package markethours encodes the NSE intraday session clock used by the
// risk manager and the scan loops: session open, the no-new-entries cutoff,
// the forced square-off time, and session close.
package markethours

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Session boundaries in IST.
const (
	OpenHour   = 9
	OpenMinute = 15

	// No new entries at/after 14:45.
	EntryCutoffHour   = 14
	EntryCutoffMinute = 45

	// All open positions are forcibly closed at/after 15:15.
	SquareOffHour   = 15
	SquareOffMinute = 15

	CloseHour   = 15
	CloseMinute = 30
)

func minuteOfDay(t time.Time) int {
	ist := t.In(IST)
	return ist.Hour()*60 + ist.Minute()
}

// IsMarketOpen returns true if t falls within NSE trading hours
// (9:15 AM – 3:30 PM IST, Mon–Fri, excluding holidays).
func IsMarketOpen(t time.Time) bool {
	if !IsTradingDay(t) {
		return false
	}
	hm := minuteOfDay(t)
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

// CanEnter returns true while new entries are allowed: market open and
// strictly before the 14:45 entry cutoff.
func CanEnter(t time.Time) bool {
	return IsMarketOpen(t) && minuteOfDay(t) < EntryCutoffHour*60+EntryCutoffMinute
}

// MustSquareOff returns true at/after the 15:15 forced close time.
// The check is purely time-of-day: it also holds after session close so a
// late scan still unwinds anything left open.
func MustSquareOff(t time.Time) bool {
	return minuteOfDay(t) >= SquareOffHour*60+SquareOffMinute
}

// IsSessionOpenBar reports whether t is exactly the first bar of a session
// (09:15 IST). The simulation loop uses it to reset daily risk markers.
func IsSessionOpenBar(t time.Time) bool {
	ist := t.In(IST)
	return ist.Hour() == OpenHour && ist.Minute() == OpenMinute
}

// SessionOpen returns the 09:15 IST session open for t's trading day.
func SessionOpen(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), OpenHour, OpenMinute, 0, 0, IST)
}

// IsWeekday returns true if t is Mon–Fri.
func IsWeekday(t time.Time) bool {
	wd := t.In(IST).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	ist := t.In(IST)
	return IsWeekday(ist) && !IsHoliday(ist)
}

// NextOpen returns the next session open (9:15 AM IST on the next trading
// day, or today's open if t is before it on a trading day).
func NextOpen(t time.Time) time.Time {
	ist := t.In(IST)

	todayOpen := SessionOpen(ist)
	if ist.Before(todayOpen) && IsTradingDay(ist) {
		return todayOpen
	}

	d := ist.AddDate(0, 0, 1)
	for i := 0; i < 10; i++ { // max 10 days ahead (holidays + weekends)
		if IsTradingDay(d) {
			return SessionOpen(d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return SessionOpen(ist.AddDate(0, 0, 1))
}

// TodayClose returns today's market close time (3:30 PM IST).
func TodayClose(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), CloseHour, CloseMinute, 0, 0, IST)
}

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		d := TodayClose(t).Sub(t.In(IST))
		return fmt.Sprintf("Market Open — closes in %s", fmtDur(d))
	}
	next := NextOpen(t)
	ist := next.In(IST)
	return fmt.Sprintf("Market Closed — opens %s %s (%s)",
		ist.Weekday().String()[:3], ist.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
