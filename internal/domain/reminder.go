package domain

import (
	"sort"
	"strings"
	"time"
)

// ReminderRule schedules a recurring workout reminder at a time of day on a set of weekdays.
type ReminderRule struct {
	ID           string
	UserID       string
	Title        string
	ActivityKind string
	TimeOfDay    string
	Days         []time.Weekday
	Active       bool
	CreatedAt    time.Time
}

// OnDay reports whether the rule covers the given weekday.
func (r ReminderRule) OnDay(day time.Weekday) bool {
	for _, d := range r.Days {
		if d == day {
			return true
		}
	}
	return false
}

// DayNames renders the weekdays as lower-case names.
func (r ReminderRule) DayNames() []string {
	out := make([]string, 0, len(r.Days))
	for _, d := range r.Days {
		out = append(out, WeekdayName(d))
	}
	return out
}

// ReminderInput carries create/update fields for a rule.
type ReminderInput struct {
	UserID       string
	Title        string
	ActivityKind string
	TimeOfDay    string
	Days         []string
}

func (in ReminderInput) normalize() (ReminderInput, []time.Weekday, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.ActivityKind = strings.ToLower(strings.TrimSpace(in.ActivityKind))
	in.TimeOfDay = strings.TrimSpace(in.TimeOfDay)

	if strings.TrimSpace(in.UserID) == "" {
		return in, nil, validationErrorf("user_id is required")
	}
	if in.Title == "" {
		return in, nil, validationErrorf("title is required")
	}
	if in.ActivityKind == "" {
		in.ActivityKind = string(ActivityKindRun)
	}
	if err := ValidateTimeOfDay(in.TimeOfDay); err != nil {
		return in, nil, err
	}
	days, err := ParseWeekdays(in.Days)
	if err != nil {
		return in, nil, err
	}
	if len(days) == 0 {
		return in, nil, validationErrorf("at least one weekday is required")
	}
	return in, days, nil
}

// ValidateTimeOfDay accepts zero-padded 24h "HH:MM" values only, the form
// reminder matching compares against.
func ValidateTimeOfDay(value string) error {
	parsed, err := time.Parse("15:04", value)
	if err != nil || parsed.Format("15:04") != value {
		return validationErrorf("time must be HH:MM (24h), got %q", value)
	}
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps a weekday name ("monday", "Mon") to time.Weekday.
func ParseWeekday(raw string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if day, ok := weekdayNames[name]; ok {
		return day, nil
	}
	if len(name) >= 3 {
		for full, day := range weekdayNames {
			if strings.HasPrefix(full, name) {
				return day, nil
			}
		}
	}
	return time.Sunday, validationErrorf("unknown weekday %q", raw)
}

// ParseWeekdays parses and de-duplicates a list of weekday names, ordered Sunday first.
func ParseWeekdays(raw []string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]struct{}, len(raw))
	out := make([]time.Weekday, 0, len(raw))
	for _, name := range raw {
		day, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// WeekdayName returns the lower-case English name of day.
func WeekdayName(day time.Weekday) string {
	return strings.ToLower(day.String())
}
