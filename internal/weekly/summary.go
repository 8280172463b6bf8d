// Package weekly aggregates a user's activities into calendar-week summaries.
package weekly

import (
	"math"
	"time"

	"example.com/fittrack/internal/domain"
)

// DaysPerWeek is the denominator of the consistency percentage.
const DaysPerWeek = 7

// Summarize folds activities into a WeeklySummary. Active days count distinct calendar
// dates; consistency is activeDays/7 as a rounded percentage.
func Summarize(activities []domain.Activity) domain.WeeklySummary {
	var s domain.WeeklySummary
	days := make(map[string]struct{}, DaysPerWeek)
	for _, a := range activities {
		s.TotalWorkouts++
		s.TotalDuration += a.DurationMin
		s.TotalCalories += a.Calories
		s.TotalDistance += a.Distance()
		days[a.DateKey()] = struct{}{}
	}
	s.ActiveDays = len(days)
	s.ConsistencyPercentage = int(math.Round(float64(s.ActiveDays) / DaysPerWeek * 100))
	return s
}

// WeekStart returns midnight of the most recent firstDay on or before t, in t's location.
func WeekStart(t time.Time, firstDay time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(firstDay) + DaysPerWeek) % DaysPerWeek
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// WeekEnd is the last calendar day of the week starting at start.
func WeekEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, DaysPerWeek-1)
}
