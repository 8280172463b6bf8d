package consumer

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/events"
	"example.com/fittrack/internal/persistence/memory"
)

func newIngestService() *domain.Service {
	return domain.NewService(memory.NewActivityRepository(), memory.NewUserRepository(), memory.NewReminderRepository(), memory.NewNotificationRepository())
}

func activityMessage(payload string) Message {
	return Message{Topic: "activity_events", EventType: events.TypeActivityRecorded, UserID: "u1", Payload: []byte(payload)}
}

func TestIngestStoresActivityAndIgnoresReplay(t *testing.T) {
	ctx := context.Background()
	svc := newIngestService()
	handler := NewActivityIngestHandler(svc, log.New(testWriter{t}, "", 0))

	payload := `{"activity_id":"a1","user_id":"u1","activity_type":"run","duration":45,"distance":8.2,"calories":420,"activity_date":"2025-03-10"}`
	before := testutil.ToFloat64(ingestCounter.WithLabelValues("duplicate"))

	require.NoError(t, handler.Handle(ctx, activityMessage(payload)))
	require.NoError(t, handler.Handle(ctx, activityMessage(payload)))
	require.Equal(t, before+1, testutil.ToFloat64(ingestCounter.WithLabelValues("duplicate")))

	from := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	stored, err := svc.ActivitiesInRange(ctx, "u1", from, from.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "a1", stored[0].ID)
	require.Equal(t, domain.ActivityKindRun, stored[0].Kind)
	require.InDelta(t, 8.2, stored[0].Distance(), 1e-9)
	require.Equal(t, "2025-03-10", stored[0].DateKey())
}

func TestIngestFallsBackToHeaderUser(t *testing.T) {
	ctx := context.Background()
	svc := newIngestService()
	handler := NewActivityIngestHandler(svc, log.New(testWriter{t}, "", 0))

	require.NoError(t, handler.Handle(ctx, activityMessage(`{"activity_id":"a2","activity_type":"swim","duration":30,"calories":200,"activity_date":"2025-03-11"}`)))

	from := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	stored, err := svc.ActivitiesInRange(ctx, "u1", from, from.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestIngestDropsPermanentFailures(t *testing.T) {
	ctx := context.Background()
	handler := NewActivityIngestHandler(newIngestService(), log.New(testWriter{t}, "", 0))
	before := testutil.ToFloat64(ingestCounter.WithLabelValues("rejected"))

	require.NoError(t, handler.Handle(ctx, activityMessage(`{"activity_id":"a3","activity_type":"yoga","duration":30,"activity_date":"2025-03-11"}`)))
	require.NoError(t, handler.Handle(ctx, activityMessage(`{"activity_type":"run"}`)))
	require.NoError(t, handler.Handle(ctx, activityMessage(`{"activity_id":"a4","activity_type":"run","activity_date":"03/11/2025"}`)))
	require.NoError(t, handler.Handle(ctx, activityMessage(`[]`)))

	require.Equal(t, before+4, testutil.ToFloat64(ingestCounter.WithLabelValues("rejected")))
}

func TestIngestIgnoresOtherEventTypes(t *testing.T) {
	handler := NewActivityIngestHandler(failingCreator{}, log.New(testWriter{t}, "", 0))
	msg := activityMessage(`{}`)
	msg.EventType = events.TypeReportSent
	require.NoError(t, handler.Handle(context.Background(), msg))
}

func TestIngestReturnsTransientErrors(t *testing.T) {
	handler := NewActivityIngestHandler(failingCreator{}, log.New(testWriter{t}, "", 0))
	err := handler.Handle(context.Background(), activityMessage(`{"activity_id":"a5","activity_type":"run","activity_date":"2025-03-11"}`))
	require.ErrorContains(t, err, "connection reset")
}

type failingCreator struct{}

func (failingCreator) CreateActivity(context.Context, domain.CreateActivityInput) (*domain.Activity, error) {
	return nil, errors.New("connection reset")
}
