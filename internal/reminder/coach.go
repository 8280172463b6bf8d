package reminder

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/weekly"
)

// Goal is a weekly per-kind target.
type Goal struct {
	Kind            domain.ActivityKind
	TargetKm        float64
	TargetSessions  int
	CurrentKm       float64
	CurrentSessions int
}

// Progress is distance progress in percent.
func (g Goal) Progress() float64 {
	if g.TargetKm <= 0 {
		return 0
	}
	return g.CurrentKm / g.TargetKm * 100
}

// DefaultGoals are the weekly targets used when a user has none of their own.
var DefaultGoals = []Goal{
	{Kind: domain.ActivityKindRun, TargetKm: 25, TargetSessions: 3},
	{Kind: domain.ActivityKindRide, TargetKm: 50, TargetSessions: 2},
}

// MotivationThreshold is the progress below which the morning nudge is sent.
const MotivationThreshold = 80

var titleTiers = []struct {
	below  float64
	format string
}{
	{50, "AI Coach: Time for %s!"},
	{90, "AI Coach: Almost there with %s!"},
	{math.Inf(1), "AI Coach: Final push for %s!"},
}

// Title picks the nudge title for a goal.
func Title(g Goal) string {
	p := g.Progress()
	for _, tier := range titleTiers {
		if p < tier.below {
			return fmt.Sprintf(tier.format, goalLabel(g))
		}
	}
	return ""
}

// Message picks the nudge body for a goal.
func Message(g Goal) string {
	p := g.Progress()
	label := goalLabel(g)
	switch {
	case p < 30:
		return fmt.Sprintf("Time to lace up! You're just getting started with your %s goal. Every step counts! 🏃", label)
	case p < 70:
		return fmt.Sprintf("Great progress on your %s! You're %d%% there. Keep the momentum going! 💪", label, int(math.Round(p)))
	case p < 100:
		return fmt.Sprintf("So close to your %s goal! Just %.1f km to go. You've got this! 🎯", label, g.TargetKm-g.CurrentKm)
	default:
		return fmt.Sprintf("Amazing! You've crushed your %s goal this week! Time to celebrate and set new challenges! 🎉", label)
	}
}

func goalLabel(g Goal) string {
	return "weekly " + string(g.Kind)
}

// Coach sends goal-driven nudges: weekday mornings, Wednesday evening check-ins and a
// Sunday evening wrap-up.
type Coach struct {
	recipients RecipientSource
	weeks      WeekLoader
	sink       Sink
	goals      []Goal
	options

	mu       sync.Mutex
	lastSlot time.Time
}

// RecipientSource lists users the coach talks to.
type RecipientSource interface {
	WeeklyReportRecipients(ctx context.Context) ([]domain.User, error)
}

// WeekLoader loads a user's current week.
type WeekLoader interface {
	Week(ctx context.Context, userID string, weekStart time.Time) weekly.Week
}

// NewCoach constructs a Coach using DefaultGoals.
func NewCoach(recipients RecipientSource, weeks WeekLoader, sink Sink, opts ...Option) *Coach {
	return &Coach{
		recipients: recipients,
		weeks:      weeks,
		sink:       sink,
		goals:      DefaultGoals,
		options:    buildOptions(opts),
	}
}

func coachHour(now time.Time) bool {
	hour, day := now.Hour(), now.Weekday()
	switch {
	case day >= time.Monday && day <= time.Friday && hour == 8:
		return true
	case day == time.Wednesday && hour == 18:
		return true
	case day == time.Sunday && hour == 19:
		return true
	}
	return false
}

// Nudges computes the notifications due at now for one user given their goals.
func Nudges(userID string, goals []Goal, now time.Time) []domain.Notification {
	var out []domain.Notification
	hour, day := now.Hour(), now.Weekday()

	if day >= time.Monday && day <= time.Friday && hour == 8 {
		for _, g := range goals {
			if g.Progress() < MotivationThreshold {
				out = append(out, goalNotification(userID, g, domain.CategoryMotivation, now))
			}
		}
	}
	if day == time.Wednesday && hour == 18 {
		for _, g := range goals {
			out = append(out, goalNotification(userID, g, domain.CategoryGoalCheck, now))
		}
	}
	if day == time.Sunday && hour == 19 {
		out = append(out, domain.Notification{
			UserID:    userID,
			Title:     "AI Coach: Weekly Summary",
			Message:   "Great week! Let's review your progress and plan for next week. Ready to set new goals? 📊",
			Category:  domain.CategoryWeeklySummary,
			Timestamp: now,
		})
	}
	return out
}

func goalNotification(userID string, g Goal, category domain.NotificationCategory, now time.Time) domain.Notification {
	return domain.Notification{
		UserID:       userID,
		Title:        Title(g),
		Message:      Message(g),
		Category:     category,
		ActivityKind: string(g.Kind),
		Timestamp:    now,
	}
}

// GoalsForWeek fills current progress of each goal from a week of activities.
func GoalsForWeek(goals []Goal, week weekly.Week) []Goal {
	out := make([]Goal, len(goals))
	for i, g := range goals {
		g.CurrentKm, g.CurrentSessions = 0, 0
		for _, a := range week.Activities {
			if a.Kind == g.Kind {
				g.CurrentKm += a.Distance()
				g.CurrentSessions++
			}
		}
		out[i] = g
	}
	return out
}

// claim reports whether the hour slot of now has not been served yet and marks it
// served. release undoes a claim so a later check in the same hour may retry.
func (c *Coach) claim(now time.Time) (release func(), ok bool) {
	slot := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot.Equal(c.lastSlot) {
		return nil, false
	}
	previous := c.lastSlot
	c.lastSlot = slot
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.lastSlot.Equal(slot) {
			c.lastSlot = previous
		}
	}, true
}

// Check sends the nudges due at now to every recipient and returns how many were sent.
// Each coaching hour is served once even when checked more often; a failed recipient
// load leaves the hour open for the next check.
func (c *Coach) Check(ctx context.Context, now time.Time) int {
	now = c.local(now)
	if !coachHour(now) {
		return 0
	}
	release, ok := c.claim(now)
	if !ok {
		return 0
	}
	users, err := c.recipients.WeeklyReportRecipients(ctx)
	if err != nil {
		release()
		c.logger.Printf("coach: load recipients: %v", err)
		return 0
	}

	sent := 0
	for _, user := range users {
		week := c.weeks.Week(ctx, user.ID, weekly.WeekStart(now, c.firstDay))
		for _, n := range Nudges(user.ID, GoalsForWeek(c.goals, week), now) {
			if err := c.sink.Notify(ctx, n); err != nil {
				c.logger.Printf("coach: notify user=%s: %v", user.ID, err)
				continue
			}
			remindersFired.WithLabelValues(string(n.Category)).Inc()
			sent++
		}
	}
	return sent
}
