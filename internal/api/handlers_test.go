package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"example.com/fittrack/internal/auth"
	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/persistence/memory"
	"example.com/fittrack/internal/report"
	"example.com/fittrack/internal/weekly"
)

var authConfig = auth.Config{Secret: "test-secret", Issuer: "fittrack.test"}

// Wednesday 12 March 2025, ISO week 11.
var wednesday = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

type fakeSender struct {
	sent []domain.WeeklyReport
	err  error
}

func (s *fakeSender) Send(_ context.Context, r domain.WeeklyReport) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, r)
	return nil
}

type testEnv struct {
	t       *testing.T
	service *domain.Service
	sender  *fakeSender
	server  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := log.New(testWriter{t}, "", 0)
	service := domain.NewService(memory.NewActivityRepository(), memory.NewUserRepository(), memory.NewReminderRepository(), memory.NewNotificationRepository())
	weeks := weekly.NewAggregator(service, weekly.WithLogger(logger))
	sender := &fakeSender{}
	dispatcher := report.NewDispatcher(report.AIWeekly, weeks, sender, memory.NewMarkerStore(), weekly.ISOKeyer{}, report.WithLogger(logger))

	handler := NewHandler(service,
		WithWeeks(weeks),
		WithReports(report.NewRunner(service, []*report.Dispatcher{dispatcher}, logger)),
		WithCalendar(time.UTC, time.Sunday, weekly.ISOKeyer{}),
		WithClock(func() time.Time { return wednesday }),
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return &testEnv{t: t, service: service, sender: sender, server: auth.NewMiddleware(authConfig, nil).Wrap(mux)}
}

func token(t *testing.T, subject string, scopes ...string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    subject,
		"iss":    authConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": scopes,
	}).SignedString([]byte(authConfig.Secret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealthzIsOpenAndV1RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", "", nil).Code)

	rr := env.do(http.MethodGet, "/v1/activities", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "unauthorized", decode[map[string]string](t, rr)["type"])

	require.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/v1/activities", "not-a-jwt", nil).Code)
}

func TestActivitiesRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	reader := token(t, "u1", auth.ScopeActivitiesRead)
	writer := token(t, "u1", auth.ScopeActivitiesWrite)
	km := 8.2

	rr := env.do(http.MethodPost, "/v1/activities", reader, CreateActivityRequest{ActivityType: "run", DurationMin: 45})
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(http.MethodPost, "/v1/activities", writer, CreateActivityRequest{ActivityType: "skydive", DurationMin: 45})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "validation_failed", decode[map[string]string](t, rr)["type"])

	rr = env.do(http.MethodPost, "/v1/activities", writer, CreateActivityRequest{ActivityType: "run", DurationMin: 45, DistanceKm: &km, Calories: 420, Date: "2025-03-10"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[ActivityView](t, rr)
	require.Equal(t, "u1", created.UserID)
	require.Equal(t, "Run", created.Title)
	require.Equal(t, "2025-03-10", created.Date)

	rr = env.do(http.MethodPost, "/v1/activities", writer, CreateActivityRequest{ActivityType: "ride", DurationMin: 60, Calories: 500})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "2025-03-12", decode[ActivityView](t, rr).Date, "defaults to today")

	rr = env.do(http.MethodGet, "/v1/activities?limit=1", reader, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[ListActivitiesResponse](t, rr)
	require.Len(t, page.Items, 1)
	require.Equal(t, "ride", page.Items[0].ActivityType)
	require.NotEmpty(t, page.NextCursor)

	rr = env.do(http.MethodGet, "/v1/activities?limit=1&cursor="+page.NextCursor, reader, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, created.ActivityID, decode[ListActivitiesResponse](t, rr).Items[0].ActivityID)

	require.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/v1/activities?cursor=@@@@", reader, nil).Code)

	rr = env.do(http.MethodGet, "/v1/activities/stats", reader, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[ActivityStatsResponse](t, rr)
	require.Equal(t, 2, stats.TotalActivities)
	require.Equal(t, 105, stats.TotalDuration)
	require.Equal(t, 920, stats.TotalCalories)
	require.InDelta(t, 8.2, stats.TotalDistance, 1e-9)
}

func TestWeeklySummaryDefaultsToCurrentWeek(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, in := range []domain.CreateActivityInput{
		{UserID: "u1", Kind: "run", DurationMin: 45, Calories: 400, Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{UserID: "u1", Kind: "ride", DurationMin: 60, Calories: 600, Date: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)},
		{UserID: "u1", Kind: "swim", DurationMin: 30, Calories: 300, Date: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)},
	} {
		_, err := env.service.CreateActivity(ctx, in)
		require.NoError(t, err)
	}
	reader := token(t, "u1", auth.ScopeActivitiesRead)

	rr := env.do(http.MethodGet, "/v1/weekly/summary", reader, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[WeeklySummaryResponse](t, rr)
	require.Equal(t, "2025-03-09", resp.WeekStart)
	require.Equal(t, "2025-03-15", resp.WeekEnd)
	require.Equal(t, 2, resp.Summary.TotalWorkouts)
	require.Equal(t, 105, resp.Summary.TotalDuration)
	require.Equal(t, 2, resp.Summary.ActiveDays)
	require.Equal(t, 29, resp.Summary.ConsistencyPercentage)
	// 2*15 + 105/10 + 1000/50
	require.InDelta(t, 60.5, resp.Insights.WeeklyScore, 1e-9)
	require.Len(t, resp.Activities, 2)
	require.NotEmpty(t, resp.FocusArea)

	rr = env.do(http.MethodGet, "/v1/weekly/summary?week_start=2025-03-02", reader, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, decode[WeeklySummaryResponse](t, rr).Summary.TotalWorkouts)

	require.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/v1/weekly/summary?week_start=03/02/2025", reader, nil).Code)
}

func TestUserProfileIsOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := token(t, "alice")

	rr := env.do(http.MethodPost, "/v1/users", alice, CreateUserRequest{Email: "Alice@Example.com", FirstName: "Alice"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[UserView](t, rr)
	require.Equal(t, "alice", created.UserID)
	require.True(t, created.WeeklyReports)
	require.True(t, created.EmailNotifications)

	require.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/v1/users", token(t, "mallory"), CreateUserRequest{Email: "alice@example.com", FirstName: "M"}).Code)
	require.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/v1/users", token(t, "bob"), CreateUserRequest{Email: "nope", FirstName: "Bob"}).Code)

	rr = env.do(http.MethodPatch, "/v1/users/me", alice, map[string]any{"weekly_reports": false})
	require.Equal(t, http.StatusOK, rr.Code)
	updated := decode[UserView](t, rr)
	require.False(t, updated.WeeklyReports)
	require.True(t, updated.EmailNotifications)
	require.Equal(t, "Alice", updated.FirstName)

	rr = env.do(http.MethodGet, "/v1/users?email=ALICE@example.com", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "alice", decode[UserView](t, rr).UserID)

	require.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/v1/users/alice", token(t, "bob"), nil).Code)
	require.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/v1/users?email=alice@example.com", token(t, "bob"), nil).Code)
	require.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/v1/users/me", token(t, "bob"), nil).Code)
}

func TestReminderLifecycle(t *testing.T) {
	env := newTestEnv(t)
	bearer := token(t, "u1")

	rr := env.do(http.MethodPost, "/v1/reminders", bearer, ReminderRequest{Title: "Morning run", Time: "7:00", Days: []string{"monday"}})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodPost, "/v1/reminders", bearer, ReminderRequest{Title: "Morning run", Time: "07:00", Days: []string{"fri", "Monday"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[ReminderView](t, rr)
	require.Equal(t, []string{"monday", "friday"}, created.Days)
	require.Equal(t, "run", created.ActivityType)
	require.True(t, created.Active)

	rr = env.do(http.MethodPut, "/v1/reminders/"+created.ReminderID, bearer, ReminderRequest{Title: "Evening yoga", ActivityType: "yoga", Time: "18:30", Days: []string{"wednesday"}})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "18:30", decode[ReminderView](t, rr).Time)

	rr = env.do(http.MethodPost, "/v1/reminders/"+created.ReminderID+"/toggle", bearer, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.False(t, decode[ReminderView](t, rr).Active)

	require.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/v1/reminders/"+created.ReminderID+"/toggle", token(t, "u2"), nil).Code)

	rr = env.do(http.MethodGet, "/v1/reminders", bearer, nil)
	require.Len(t, decode[ListRemindersResponse](t, rr).Items, 1)

	require.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/v1/reminders/"+created.ReminderID, bearer, nil).Code)
	require.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/v1/reminders/"+created.ReminderID, bearer, nil).Code)
}

func TestNotificationsReadFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first, err := env.service.AppendNotification(ctx, domain.Notification{UserID: "u1", Title: "Time for your run!"})
	require.NoError(t, err)
	_, err = env.service.AppendNotification(ctx, domain.Notification{UserID: "u1", Title: "Weekly Summary Sent", Category: domain.CategoryReport})
	require.NoError(t, err)
	bearer := token(t, "u1")

	rr := env.do(http.MethodGet, "/v1/notifications", bearer, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[ListNotificationsResponse](t, rr)
	require.Len(t, list.Items, 2)
	require.Equal(t, 2, list.UnreadCount)

	require.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/v1/notifications/"+first.ID+"/read", bearer, nil).Code)
	require.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/v1/notifications/"+first.ID+"/read", token(t, "u2"), nil).Code)

	rr = env.do(http.MethodPost, "/v1/notifications/read-all", bearer, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, decode[map[string]int](t, rr)["marked_read"])

	rr = env.do(http.MethodGet, "/v1/notifications", bearer, nil)
	require.Zero(t, decode[ListNotificationsResponse](t, rr).UnreadCount)

	require.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/v1/notifications/stream", bearer, nil).Code)
}

func TestReportSendOnDemandOncePerWeek(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.service.CreateUser(ctx, domain.CreateUserInput{ID: "u1", Email: "ada@example.com", FirstName: "Ada"})
	require.NoError(t, err)
	bearer := token(t, "u1")

	rr := env.do(http.MethodGet, "/v1/reports/ai_weekly/status", bearer, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[ReportStatusResponse](t, rr)
	require.Equal(t, "idle", status.State)
	require.Equal(t, "2025-W11", status.CurrentWeek)
	require.False(t, status.Due, "outside the Sunday window")
	require.Equal(t, time.Date(2025, 3, 16, 19, 0, 0, 0, time.UTC), status.NextSendAt.UTC())
	require.Equal(t, "in 4 days and 9 hours", status.NextSendIn)

	rr = env.do(http.MethodPost, "/v1/reports/ai_weekly/send", bearer, nil)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	status = decode[ReportStatusResponse](t, rr)
	require.Equal(t, "sent", status.State)
	require.Equal(t, "2025-W11", status.LastSentWeek)
	require.Len(t, env.sender.sent, 1)
	require.Equal(t, "ada@example.com", env.sender.sent[0].Email)

	rr = env.do(http.MethodPost, "/v1/reports/ai_weekly/send", bearer, nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "already_sent", decode[map[string]string](t, rr)["type"])
	require.Len(t, env.sender.sent, 1)

	require.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/v1/reports/monthly/status", bearer, nil).Code)
	require.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/v1/reports/ai_weekly/send", token(t, "ghost"), nil).Code)
}

func TestReportSendFailureKeepsMarker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.service.CreateUser(ctx, domain.CreateUserInput{ID: "u1", Email: "ada@example.com", FirstName: "Ada"})
	require.NoError(t, err)
	bearer := token(t, "u1")
	env.sender.err = errors.New("smtp unavailable")

	rr := env.do(http.MethodPost, "/v1/reports/ai_weekly/send", bearer, nil)
	require.Equal(t, http.StatusBadGateway, rr.Code)

	rr = env.do(http.MethodGet, "/v1/reports/ai_weekly/status", bearer, nil)
	status := decode[ReportStatusResponse](t, rr)
	require.Equal(t, "error", status.State)
	require.Contains(t, status.LastError, "smtp unavailable")
	require.Empty(t, status.LastSentWeek)

	_, err = env.service.UpdateUser(ctx, "u1", domain.UpdateUserInput{EmailNotifications: new(bool)})
	require.NoError(t, err)
	rr = env.do(http.MethodPost, "/v1/reports/ai_weekly/send", bearer, nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "opted_out", decode[map[string]string](t, rr)["type"])
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
