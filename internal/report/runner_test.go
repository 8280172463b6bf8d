package report

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/persistence/memory"
)

type staticRecipients struct {
	users []domain.User
	err   error
}

func (s staticRecipients) WeeklyReportRecipients(context.Context) ([]domain.User, error) {
	return s.users, s.err
}

type selectiveSender struct {
	recordingSender
	failFor string
}

func (s *selectiveSender) Send(ctx context.Context, report domain.WeeklyReport) error {
	if report.UserID == s.failFor {
		return errors.New("mailbox unavailable")
	}
	return s.recordingSender.Send(ctx, report)
}

func TestRunnerCollectsFailuresAndContinues(t *testing.T) {
	ctx := context.Background()
	bob := domain.User{ID: "u-bob", Email: "bob@example.com", EmailNotifications: true, WeeklyReports: true}
	carol := domain.User{ID: "u-carol", Email: "carol@example.com", EmailNotifications: true, WeeklyReports: true}

	sender := &selectiveSender{failFor: bob.ID}
	markers := memory.NewMarkerStore()
	logger := log.New(testWriter{t}, "", 0)
	dispatchers := []*Dispatcher{
		newDispatcher(t, Weekly, sender, markers),
		newDispatcher(t, AIWeekly, sender, markers),
	}
	runner := NewRunner(staticRecipients{users: []domain.User{alice, bob, carol}}, dispatchers, logger)

	before := testutil.ToFloat64(reportsCounter.WithLabelValues(AIWeekly.Name, outcomeFailed))

	err := runner.RunOnce(ctx, sundayEvening)
	require.Error(t, err)
	require.Contains(t, err.Error(), "weekly/u-bob")
	require.Contains(t, err.Error(), "ai_weekly/u-bob")
	require.Equal(t, 4, sender.count())
	require.Equal(t, before+1, testutil.ToFloat64(reportsCounter.WithLabelValues(AIWeekly.Name, outcomeFailed)))

	// second pass in the same week only retries the failed user
	sender.failFor = ""
	require.NoError(t, runner.RunOnce(ctx, sundayEvening.Add(time.Hour)))
	require.Equal(t, 6, sender.count())
}

func TestRunnerOutsideWindowSendsNothing(t *testing.T) {
	sender := &recordingSender{}
	runner := NewRunner(staticRecipients{users: []domain.User{alice}}, []*Dispatcher{newDispatcher(t, AIWeekly, sender, memory.NewMarkerStore())}, log.New(testWriter{t}, "", 0))

	require.NoError(t, runner.RunOnce(context.Background(), sundayEvening.Add(-time.Hour)))
	require.Zero(t, sender.count())
}

func TestRunnerRecipientFailure(t *testing.T) {
	runner := NewRunner(staticRecipients{err: errors.New("db down")}, nil, log.New(testWriter{t}, "", 0))
	require.ErrorContains(t, runner.RunOnce(context.Background(), sundayEvening), "db down")
}

func TestRunnerDispatcherLookup(t *testing.T) {
	runner := NewRunner(staticRecipients{}, []*Dispatcher{newDispatcher(t, Weekly, &recordingSender{}, memory.NewMarkerStore())}, nil)

	d, err := runner.Dispatcher("weekly")
	require.NoError(t, err)
	require.Equal(t, Weekly.Name, d.Stream().Name)

	_, err = runner.Dispatcher("monthly")
	require.ErrorIs(t, err, ErrUnknownStream)
}
