package reminder

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/weekly"
)

var morningRun = domain.ReminderRule{
	ID:           "r1",
	UserID:       "u1",
	Title:        "Morning run",
	ActivityKind: "run",
	TimeOfDay:    "07:00",
	Days:         []time.Weekday{time.Monday},
	Active:       true,
}

// Monday 10 March 2025.
func at(day, hour, minute int) time.Time {
	return time.Date(2025, 3, day, hour, minute, 0, 0, time.UTC)
}

func TestMatchesExactMinuteAndWeekday(t *testing.T) {
	require.True(t, Matches(morningRun, at(10, 7, 0)))
	require.True(t, Matches(morningRun, at(10, 7, 0).Add(59*time.Second)))
	require.False(t, Matches(morningRun, at(10, 7, 1)))
	require.False(t, Matches(morningRun, at(10, 6, 59)))
	require.False(t, Matches(morningRun, at(11, 7, 0)), "Tuesday")

	inactive := morningRun
	inactive.Active = false
	require.False(t, Matches(inactive, at(10, 7, 0)))
}

type stubRules struct {
	rules []domain.ReminderRule
	err   error
}

func (s stubRules) ActiveReminders(context.Context) ([]domain.ReminderRule, error) {
	return s.rules, s.err
}

type recordingSink struct {
	notifications []domain.Notification
	err           error
}

func (s *recordingSink) Notify(_ context.Context, n domain.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.notifications = append(s.notifications, n)
	return nil
}

func testLogger(t *testing.T) Option {
	return WithLogger(log.New(testWriter{t}, "", 0))
}

func TestCheckerEmitsOnePerMatchingRule(t *testing.T) {
	evening := domain.ReminderRule{ID: "r2", UserID: "u2", Title: "Yoga", ActivityKind: "yoga", TimeOfDay: "07:00", Days: []time.Weekday{time.Monday, time.Thursday}, Active: true}
	sink := &recordingSink{}
	checker := NewChecker(stubRules{rules: []domain.ReminderRule{morningRun, evening}}, sink, testLogger(t))

	require.Equal(t, 2, checker.Check(context.Background(), at(10, 7, 0)))
	require.Len(t, sink.notifications, 2)
	require.Equal(t, "Time for your Morning run!", sink.notifications[0].Title)
	require.Equal(t, domain.CategoryReminder, sink.notifications[0].Category)
	require.Equal(t, "run", sink.notifications[0].ActivityKind)

	require.Zero(t, checker.Check(context.Background(), at(10, 7, 1)))
	require.Equal(t, 1, checker.Check(context.Background(), at(13, 7, 0)))
}

func TestCheckerUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	sink := &recordingSink{}
	checker := NewChecker(stubRules{rules: []domain.ReminderRule{morningRun}}, sink, testLogger(t), WithLocation(loc))

	require.Equal(t, 1, checker.Check(context.Background(), at(10, 5, 0)))
}

func TestCheckerSkipsTickOnStoreError(t *testing.T) {
	sink := &recordingSink{}
	checker := NewChecker(stubRules{err: errors.New("timeout")}, sink, testLogger(t))
	require.Zero(t, checker.Check(context.Background(), at(10, 7, 0)))
	require.Empty(t, sink.notifications)
}

func TestCheckerSinkFailureIsNotCounted(t *testing.T) {
	checker := NewChecker(stubRules{rules: []domain.ReminderRule{morningRun}}, &recordingSink{err: errors.New("full")}, testLogger(t))
	require.Zero(t, checker.Check(context.Background(), at(10, 7, 0)))
}

func TestGoalTitleAndMessageTiers(t *testing.T) {
	run := Goal{Kind: domain.ActivityKindRun, TargetKm: 25, TargetSessions: 3}

	run.CurrentKm = 5
	require.Equal(t, "AI Coach: Time for weekly run!", Title(run))
	require.Contains(t, Message(run), "Time to lace up!")

	run.CurrentKm = 10
	require.Equal(t, "AI Coach: Time for weekly run!", Title(run))
	require.Contains(t, Message(run), "You're 40% there.")

	run.CurrentKm = 12.5
	require.Equal(t, "AI Coach: Almost there with weekly run!", Title(run))

	run.CurrentKm = 18.5
	require.Equal(t, "AI Coach: Almost there with weekly run!", Title(run))
	require.Contains(t, Message(run), "Just 6.5 km to go.")

	run.CurrentKm = 23
	require.Equal(t, "AI Coach: Final push for weekly run!", Title(run))

	run.CurrentKm = 30
	require.Contains(t, Message(run), "crushed your weekly run goal")
}

func TestNudgesSchedule(t *testing.T) {
	goals := []Goal{
		{Kind: domain.ActivityKindRun, TargetKm: 25, CurrentKm: 18.5},
		{Kind: domain.ActivityKindRide, TargetKm: 50, CurrentKm: 45},
	}

	monday8 := Nudges("u1", goals, at(10, 8, 0))
	require.Len(t, monday8, 1, "only goals under 80%")
	require.Equal(t, domain.CategoryMotivation, monday8[0].Category)
	require.Equal(t, "run", monday8[0].ActivityKind)

	wednesday18 := Nudges("u1", goals, at(12, 18, 30))
	require.Len(t, wednesday18, 2)
	require.Equal(t, domain.CategoryGoalCheck, wednesday18[1].Category)

	sunday19 := Nudges("u1", goals, at(16, 19, 0))
	require.Len(t, sunday19, 1)
	require.Equal(t, "AI Coach: Weekly Summary", sunday19[0].Title)

	require.Empty(t, Nudges("u1", goals, at(15, 8, 0)), "Saturday")
	require.Empty(t, Nudges("u1", goals, at(10, 9, 0)))
}

type stubRecipients []domain.User

func (s stubRecipients) WeeklyReportRecipients(context.Context) ([]domain.User, error) {
	return s, nil
}

type stubWeeks struct {
	activities []domain.Activity
}

func (s stubWeeks) Week(_ context.Context, _ string, start time.Time) weekly.Week {
	return weekly.Week{Start: start, Activities: s.activities}
}

func TestCoachCheckUsesCurrentWeek(t *testing.T) {
	km := func(v float64) *float64 { return &v }
	weeks := stubWeeks{activities: []domain.Activity{
		{Kind: domain.ActivityKindRun, DistanceKm: km(21)},
		{Kind: domain.ActivityKindRide, DistanceKm: km(10)},
	}}
	sink := &recordingSink{}
	coach := NewCoach(stubRecipients{{ID: "u1"}, {ID: "u2"}}, weeks, sink, testLogger(t))

	require.Equal(t, 2, coach.Check(context.Background(), at(10, 8, 15)))
	for _, n := range sink.notifications {
		require.Equal(t, "ride", n.ActivityKind)
	}

	require.Zero(t, coach.Check(context.Background(), at(10, 10, 0)))
}

func TestGoalsForWeek(t *testing.T) {
	km := func(v float64) *float64 { return &v }
	week := weekly.Week{Activities: []domain.Activity{
		{Kind: domain.ActivityKindRun, DistanceKm: km(5)},
		{Kind: domain.ActivityKindRun, DistanceKm: km(7.5)},
		{Kind: domain.ActivityKindSwim, DistanceKm: km(1)},
	}}
	goals := GoalsForWeek(DefaultGoals, week)
	require.InDelta(t, 12.5, goals[0].CurrentKm, 1e-9)
	require.Equal(t, 2, goals[0].CurrentSessions)
	require.Zero(t, goals[1].CurrentKm)
	require.Zero(t, DefaultGoals[0].CurrentKm)
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}

func TestCoachServesEachHourOnce(t *testing.T) {
	sink := &recordingSink{}
	coach := NewCoach(stubRecipients{{ID: "u1"}}, stubWeeks{}, sink, testLogger(t))

	require.Equal(t, 2, coach.Check(context.Background(), at(10, 8, 0)))
	require.Zero(t, coach.Check(context.Background(), at(10, 8, 1)))
	require.Zero(t, coach.Check(context.Background(), at(10, 8, 59)))
	require.Equal(t, 2, coach.Check(context.Background(), at(11, 8, 0)))
}

type recordingWeeks struct {
	starts []time.Time
}

func (r *recordingWeeks) Week(_ context.Context, _ string, start time.Time) weekly.Week {
	r.starts = append(r.starts, start)
	return weekly.Week{Start: start}
}

func TestCoachLoadsWeekFromConfiguredFirstDay(t *testing.T) {
	weeks := &recordingWeeks{}
	coach := NewCoach(stubRecipients{{ID: "u1"}}, weeks, &recordingSink{}, testLogger(t), WithFirstWeekday(time.Monday))

	coach.Check(context.Background(), at(12, 18, 0))
	require.Equal(t, []time.Time{at(10, 0, 0)}, weeks.starts)

	sunday := NewCoach(stubRecipients{{ID: "u1"}}, weeks, &recordingSink{}, testLogger(t))
	sunday.Check(context.Background(), at(12, 18, 0))
	require.Equal(t, at(9, 0, 0), weeks.starts[1])
}

type flakyRecipients struct {
	calls int
	fail  int
	users []domain.User
}

func (f *flakyRecipients) WeeklyReportRecipients(context.Context) ([]domain.User, error) {
	f.calls++
	if f.calls <= f.fail {
		return nil, errors.New("connection reset")
	}
	return f.users, nil
}

func TestCoachRetriesHourAfterRecipientLoadFailure(t *testing.T) {
	recipients := &flakyRecipients{fail: 1, users: []domain.User{{ID: "u1"}}}
	sink := &recordingSink{}
	coach := NewCoach(recipients, stubWeeks{}, sink, testLogger(t))

	require.Zero(t, coach.Check(context.Background(), at(10, 8, 0)))
	require.Equal(t, 2, coach.Check(context.Background(), at(10, 8, 10)))
	require.Equal(t, 2, recipients.calls)
	require.Zero(t, coach.Check(context.Background(), at(10, 8, 20)))
	require.Equal(t, 2, recipients.calls)
}
