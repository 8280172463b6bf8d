package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fittrack/internal/config"
	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/report"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	for k, v := range map[string]string{
		"STORE_DRIVER":        "memory",
		"MARKER_DRIVER":       "memory",
		"EMAIL_DRIVER":        "log",
		"PUBLISH_EVENTS":      "false",
		"TIMEZONE":            "UTC",
		"REPORT_SEND_WEEKDAY": "saturday",
		"REPORT_SEND_HOUR":    "20",
		"REPORT_RESET_AFTER":  "30s",
	} {
		t.Setenv(k, v)
	}
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestStreamsFollowConfiguredWindow(t *testing.T) {
	streams := Streams(memoryConfig(t))
	require.Len(t, streams, 2)
	require.Equal(t, report.Window{Weekday: time.Saturday, FromHour: 0}, streams[0].Window)
	require.Equal(t, report.Window{Weekday: time.Saturday, FromHour: 20}, streams[1].Window)
	require.Equal(t, 30*time.Second, streams[1].ResetAfter)
	require.Equal(t, "lastAIWeeklyEmailSent", streams[1].MarkerName)
	require.Equal(t, time.Sunday, report.AIWeekly.Window.Weekday, "defaults untouched")
}

func TestBuildInMemoryRunsReportsEndToEnd(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.Nil(t, a.Pool)
	require.Nil(t, a.Outbox)
	require.False(t, a.LiveRelay)

	user, err := a.Service.CreateUser(ctx, domain.CreateUserInput{Email: "ada@example.com", FirstName: "Ada"})
	require.NoError(t, err)
	_, err = a.Service.CreateActivity(ctx, domain.CreateActivityInput{UserID: user.ID, Kind: "run", DurationMin: 40, Calories: 350, Date: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	saturdayEvening := time.Date(2025, 3, 15, 20, 30, 0, 0, time.UTC)
	require.NoError(t, a.Reports.RunOnce(ctx, saturdayEvening))
	require.NoError(t, a.Reports.RunOnce(ctx, saturdayEvening.Add(time.Minute)))

	for _, name := range []string{report.Weekly.Name, report.AIWeekly.Name} {
		d, err := a.Reports.Dispatcher(name)
		require.NoError(t, err)
		marker, err := d.Marker(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "2025-W11", marker, name)
	}

	notifications, err := a.Service.ListNotifications(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 2, "one per stream, second run skipped")
	require.Equal(t, domain.CategoryReport, notifications[0].Category)
}
