package domain

import (
	"fmt"
	"strings"
	"time"
)

// ActivityKind enumerates the workout types an athlete can log.
type ActivityKind string

const (
	ActivityKindRun     ActivityKind = "run"
	ActivityKindRide    ActivityKind = "ride"
	ActivityKindSwim    ActivityKind = "swim"
	ActivityKindWorkout ActivityKind = "workout"
)

// ParseActivityKind normalises raw input into a known ActivityKind.
func ParseActivityKind(raw string) (ActivityKind, error) {
	switch kind := ActivityKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case ActivityKindRun, ActivityKindRide, ActivityKindSwim, ActivityKindWorkout:
		return kind, nil
	default:
		return "", validationErrorf("unknown activity kind %q", raw)
	}
}

// Title returns the kind with its first letter upper-cased ("Run", "Ride").
func (k ActivityKind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Activity is an immutable workout entry owned by a single user.
type Activity struct {
	ID          string
	UserID      string
	Kind        ActivityKind
	Title       string
	DurationMin int
	DistanceKm  *float64
	Calories    int
	Date        time.Time
	CreatedAt   time.Time
}

// Distance returns the distance in km, or zero when none was recorded.
func (a Activity) Distance() float64 {
	if a.DistanceKm == nil {
		return 0
	}
	return *a.DistanceKm
}

// DateKey identifies the calendar day of the activity.
func (a Activity) DateKey() string {
	return a.Date.Format(DateLayout)
}

// ActivityStats is the all-time aggregate for a user.
type ActivityStats struct {
	TotalActivities int
	TotalDuration   int
	TotalDistance   float64
	TotalCalories   int
}

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// CalendarDate truncates t to its calendar day, expressed at midnight UTC so that
// dates compare equal regardless of the location they were captured in.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, validationErrorf("invalid date %q", raw)
	}
	return parsed, nil
}

// CreateActivityInput captures the payload from the API and ingest layers.
type CreateActivityInput struct {
	ID          string
	UserID      string
	Kind        string
	Title       string
	DurationMin int
	DistanceKm  *float64
	Calories    int
	Date        time.Time
}

func (in CreateActivityInput) validate() (ActivityKind, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return "", validationErrorf("user_id is required")
	}
	kind, err := ParseActivityKind(in.Kind)
	if err != nil {
		return "", err
	}
	if in.DurationMin < 0 {
		return "", validationErrorf("duration must be >= 0")
	}
	if in.DistanceKm != nil && *in.DistanceKm < 0 {
		return "", validationErrorf("distance must be >= 0")
	}
	if in.Calories < 0 {
		return "", validationErrorf("calories must be >= 0")
	}
	return kind, nil
}

// Cursor models the activity pagination token.
type Cursor struct {
	Date time.Time
	ID   string
}

// ValidationError reports bad caller input.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}
