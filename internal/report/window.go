// Package report dispatches weekly report emails once per stream, user and week.
package report

import (
	"fmt"
	"time"

	"example.com/fittrack/internal/weekly"
)

// Window is the weekly slot during which a scheduled report may go out: the given
// weekday from FromHour until midnight.
type Window struct {
	Weekday  time.Weekday
	FromHour int
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return t.Weekday() == w.Weekday && t.Hour() >= w.FromHour
}

func (w Window) String() string {
	return fmt.Sprintf("%s from %02d:00", w.Weekday, w.FromHour)
}

// IsDue reports whether a scheduled send should happen at now: inside the window and
// with a marker that differs from the current week key.
func IsDue(now time.Time, w Window, marker string, keyer weekly.Keyer) bool {
	if !w.Contains(now) {
		return false
	}
	return keyer.Key(now) != marker
}

// NextSendTime returns the start of the next window strictly after now, or now itself
// when now is already inside the window.
func NextSendTime(now time.Time, w Window) time.Time {
	if w.Contains(now) {
		return now
	}
	days := (int(w.Weekday) - int(now.Weekday()) + 7) % 7
	y, m, d := now.Date()
	next := time.Date(y, m, d+days, w.FromHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// Countdown renders the time until next as "in 2 days and 3 hours".
func Countdown(now, next time.Time) string {
	remaining := next.Sub(now)
	if remaining <= 0 {
		return "now"
	}
	days := int(remaining / (24 * time.Hour))
	hours := int(remaining % (24 * time.Hour) / time.Hour)
	minutes := int(remaining % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("in %s and %s", plural(days, "day"), plural(hours, "hour"))
	case hours > 0:
		return fmt.Sprintf("in %s and %s", plural(hours, "hour"), plural(minutes, "minute"))
	case minutes > 0:
		return "in " + plural(minutes, "minute")
	default:
		return "in less than a minute"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
