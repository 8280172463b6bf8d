package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fittrack/internal/events"
)

// Store records envelopes in the outbox table. It implements events.Publisher so that
// producers never talk to Kafka directly.
type Store struct {
	pool   *pgxpool.Pool
	routes events.Routes
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool, routes events.Routes) *Store {
	return &Store{pool: pool, routes: routes}
}

// Publish implements events.Publisher.
func (s *Store) Publish(ctx context.Context, envelope events.Envelope) error {
	topic, err := s.routes.TopicFor(envelope.Type)
	if err != nil {
		return err
	}
	const stmt = `INSERT INTO outbox (event_type, topic, partition_key, user_id, payload, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := s.pool.Exec(ctx, stmt, envelope.Type, topic, envelope.Key, envelope.UserID, []byte(envelope.Payload), envelope.OccurredAt); err != nil {
		return fmt.Errorf("insert outbox event %s: %w", envelope.Type, err)
	}
	enqueuedCounter.WithLabelValues(topic).Inc()
	return nil
}
