//go:build integration

package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/fittrack/internal/events"
	"example.com/fittrack/internal/testsupport"
)

func TestStorePublishAndDispatcherDelivers(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	store := NewStore(pool, events.DefaultRoutes)
	publishNotification(t, ctx, store, "u1")

	producer := &stubProducer{}
	dispatcher := NewDispatcher(pool, producer, 10*time.Millisecond, 5)

	beforeDelivered := testutil.ToFloat64(deliveredCounter)
	beforeHistogram := histogramSampleCount(t)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Len(t, producer.writes, 1)
	require.Equal(t, "notification_events", producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 1)

	record := producer.writes[0].messages[0]
	require.Empty(t, record.Topic)
	require.Equal(t, "u1", string(record.Key))
	env, err := events.FromKafka(record)
	require.NoError(t, err)
	require.Equal(t, events.TypeNotificationCreated, env.Type)
	require.Equal(t, "u1", env.UserID)
	require.JSONEq(t, `{"notification_id":"n1","user_id":"u1","category":"reminder","title":"t","message":"m","created_at":"2025-03-10T07:00:00Z"}`, string(env.Payload))

	require.InDelta(t, beforeDelivered+1, testutil.ToFloat64(deliveredCounter), 0.0001)
	require.Greater(t, histogramSampleCount(t), beforeHistogram)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)

	require.NoError(t, dispatcher.processBatch(ctx))
	require.Len(t, producer.writes, 1, "published rows are not delivered twice")
}

func TestStoreRejectsUnroutedEvents(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	store := NewStore(pool, events.DefaultRoutes)
	env, err := events.NewEnvelope(events.TypeActivityRecorded, "a1", "u1", map[string]string{"activity_id": "a1"})
	require.NoError(t, err)
	require.Error(t, store.Publish(ctx, env))
}

func TestDispatcherRoutesMessagesToDLQOnFailureAndManagerReplays(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	publishNotification(t, ctx, NewStore(pool, events.DefaultRoutes), "u2")

	failing := NewDispatcher(pool, &stubProducer{err: errors.New("kafka write failed")}, 10*time.Millisecond, 5)

	beforeFailed := testutil.ToFloat64(failedCounter)
	beforeDLQ := testutil.ToFloat64(dlqCounter.WithLabelValues("notification_events"))

	require.NoError(t, failing.processBatch(ctx))

	require.InDelta(t, beforeFailed+1, testutil.ToFloat64(failedCounter), 0.0001)
	require.InDelta(t, beforeDLQ+1, testutil.ToFloat64(dlqCounter.WithLabelValues("notification_events")), 0.0001)

	var reason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT reason FROM outbox_dlq WHERE user_id = $1`, "u2").Scan(&reason))
	require.Contains(t, reason, "kafka write failed (topic=notification_events)")

	manager := NewDLQManager(pool, 5, time.Second)
	replayed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, replayed)

	var remaining int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&remaining))
	require.Zero(t, remaining)

	producer := &stubProducer{}
	require.NoError(t, NewDispatcher(pool, producer, 10*time.Millisecond, 5).processBatch(ctx))
	require.Len(t, producer.writes, 1)
	require.Equal(t, "u2", string(producer.writes[0].messages[0].Key))
}

func TestDLQManagerQuarantinesExhaustedEntries(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	_, err := pool.Exec(ctx, `INSERT INTO outbox_dlq (event_id, event_type, topic, partition_key, user_id, payload, occurred_at, reason, retry_count)
        VALUES (1, 'report.sent', 'report_events', 'u3', 'u3', '{}', NOW(), 'broker down', 5)`)
	require.NoError(t, err)

	replayed, err := NewDLQManager(pool, 5, time.Second).RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, replayed)

	var quarantined bool
	require.NoError(t, pool.QueryRow(ctx, `SELECT quarantined_at IS NOT NULL FROM outbox_dlq WHERE user_id = 'u3'`).Scan(&quarantined))
	require.True(t, quarantined)
}

func publishNotification(t *testing.T, ctx context.Context, store *Store, userID string) {
	t.Helper()
	env, err := events.NewEnvelope(events.TypeNotificationCreated, userID, userID, events.NotificationCreated{
		NotificationID: "n1",
		UserID:         userID,
		Category:       "reminder",
		Title:          "t",
		Message:        "m",
		CreatedAt:      time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, store.Publish(ctx, env))
}

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)

	s.writes = append(s.writes, writtenBatch{
		topic:    topic,
		messages: copied,
	})
	return nil
}

func histogramSampleCount(t *testing.T) uint64 {
	t.Helper()

	metric := &dto.Metric{}
	require.NoError(t, batchDuration.Write(metric))
	hist := metric.GetHistogram()
	require.NotNil(t, hist)
	return hist.GetSampleCount()
}
