package weekly

import (
	"context"
	"log"
	"time"

	"example.com/fittrack/internal/domain"
)

// ActivitySource is the read side of the activity store the aggregator needs.
type ActivitySource interface {
	ActivitiesInRange(ctx context.Context, userID string, from, to time.Time) ([]domain.Activity, error)
}

// Week is one user's activities for a reporting week and their summary.
type Week struct {
	Start      time.Time
	End        time.Time
	Activities []domain.Activity
	Summary    domain.WeeklySummary
}

// Option configures optional behaviour for the Aggregator.
type Option func(*Aggregator)

// WithLogger overrides the logger used to report store failures.
func WithLogger(logger *log.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// Aggregator loads a week of activities and summarises it.
type Aggregator struct {
	source ActivitySource
	logger *log.Logger
}

// NewAggregator constructs an Aggregator.
func NewAggregator(source ActivitySource, opts ...Option) *Aggregator {
	a := &Aggregator{
		source: source,
		logger: log.New(log.Writer(), "[weekly] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Week returns the activities dated in [weekStart, weekStart+6] with their summary. A store
// failure is logged and yields an empty week rather than an error.
func (a *Aggregator) Week(ctx context.Context, userID string, weekStart time.Time) Week {
	start := domain.CalendarDate(weekStart)
	end := WeekEnd(start)
	week := Week{Start: start, End: end}

	activities, err := a.source.ActivitiesInRange(ctx, userID, start, end)
	if err != nil {
		a.logger.Printf("load week %s for user=%s: %v", start.Format(domain.DateLayout), userID, err)
		activities = nil
	}
	week.Activities = activities
	week.Summary = Summarize(activities)
	return week
}
