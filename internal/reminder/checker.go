// Package reminder turns reminder rules and weekly goals into in-app notifications.
package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/fittrack/internal/domain"
)

// TimeLayout is the rule time-of-day format.
const TimeLayout = "15:04"

var remindersFired = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fittrack",
	Subsystem: "reminder",
	Name:      "notifications_total",
	Help:      "Reminder and coach notifications emitted, grouped by category.",
}, []string{"category"})

func init() {
	prometheus.MustRegister(remindersFired)
}

// Matches reports whether an active rule fires at now: the clock reading truncated to the
// minute equals the rule's HH:MM and today is one of its weekdays.
func Matches(rule domain.ReminderRule, now time.Time) bool {
	return rule.Active && now.Format(TimeLayout) == rule.TimeOfDay && rule.OnDay(now.Weekday())
}

// RuleSource lists active reminder rules.
type RuleSource interface {
	ActiveReminders(ctx context.Context) ([]domain.ReminderRule, error)
}

// Sink receives emitted notifications.
type Sink interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Option configures optional behaviour for Checker and Coach.
type Option func(*options)

type options struct {
	logger   *log.Logger
	location *time.Location
	firstDay time.Weekday
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLocation evaluates rules in loc rather than the tick's own location.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

// WithFirstWeekday sets the day the coach's progress weeks start on. Defaults to Sunday.
func WithFirstWeekday(day time.Weekday) Option {
	return func(o *options) {
		o.firstDay = day
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: log.New(log.Writer(), "[reminder] ", log.LstdFlags|log.Lshortfile)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) local(t time.Time) time.Time {
	if o.location != nil {
		return t.In(o.location)
	}
	return t
}

// Checker scans active rules on every tick.
type Checker struct {
	rules RuleSource
	sink  Sink
	options
}

// NewChecker constructs a Checker.
func NewChecker(rules RuleSource, sink Sink, opts ...Option) *Checker {
	return &Checker{rules: rules, sink: sink, options: buildOptions(opts)}
}

// Check emits one notification per rule matching now and returns how many fired. A store
// failure skips the tick.
func (c *Checker) Check(ctx context.Context, now time.Time) int {
	now = c.local(now)
	rules, err := c.rules.ActiveReminders(ctx)
	if err != nil {
		c.logger.Printf("load active reminders: %v", err)
		return 0
	}

	fired := 0
	for _, rule := range rules {
		if !Matches(rule, now) {
			continue
		}
		n := domain.Notification{
			UserID:       rule.UserID,
			Title:        fmt.Sprintf("Time for your %s!", rule.Title),
			Message:      fmt.Sprintf("Your %s reminder is set for %s. Let's get moving!", rule.ActivityKind, rule.TimeOfDay),
			Category:     domain.CategoryReminder,
			ActivityKind: rule.ActivityKind,
			Timestamp:    now,
		}
		if err := c.sink.Notify(ctx, n); err != nil {
			c.logger.Printf("notify reminder %s for user=%s: %v", rule.ID, rule.UserID, err)
			continue
		}
		remindersFired.WithLabelValues(string(domain.CategoryReminder)).Inc()
		fired++
	}
	return fired
}
