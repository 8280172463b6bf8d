package report

import (
	"fmt"
	"time"

	"example.com/fittrack/internal/domain"
)

// Stream is one recurring report channel with its own last-sent marker.
type Stream struct {
	Name       string
	MarkerName string
	Variant    domain.ReportVariant
	Window     Window
	// ResetAfter is how long sent/error stay visible before the status reads idle again.
	ResetAfter time.Duration
}

// Weekly is the plain weekly summary stream: any time on Sunday.
var Weekly = Stream{
	Name:       "weekly",
	MarkerName: "lastWeeklyEmailSent",
	Variant:    domain.ReportVariantPlain,
	Window:     Window{Weekday: time.Sunday, FromHour: 0},
	ResetAfter: 5 * time.Second,
}

// AIWeekly is the coach-flavoured stream: Sunday from 19:00.
var AIWeekly = Stream{
	Name:       "ai_weekly",
	MarkerName: "lastAIWeeklyEmailSent",
	Variant:    domain.ReportVariantAI,
	Window:     Window{Weekday: time.Sunday, FromHour: 19},
	ResetAfter: 10 * time.Second,
}

// Key returns the marker key of the stream for a user.
func (s Stream) Key(userID string) domain.MarkerKey {
	return domain.MarkerKey{Stream: s.MarkerName, UserID: userID}
}

// StreamByName looks up one of the built-in streams.
func StreamByName(name string) (Stream, error) {
	switch name {
	case Weekly.Name:
		return Weekly, nil
	case AIWeekly.Name:
		return AIWeekly, nil
	default:
		return Stream{}, fmt.Errorf("%w: %q", ErrUnknownStream, name)
	}
}
