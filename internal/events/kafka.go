package events

import (
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// Header keys set on every published record.
const (
	HeaderEventType = "event_type"
	HeaderUserID    = "user_id"
)

// ToKafka builds the Kafka record for an envelope. The payload is plain JSON.
func ToKafka(topic string, e Envelope) kafka.Message {
	ts := e.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(e.Key),
		Value: e.Payload,
		Time:  ts,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.Type)},
			{Key: HeaderUserID, Value: []byte(e.UserID)},
		},
	}
}

// FromKafka reverses ToKafka. Records without an event_type header are rejected.
func FromKafka(msg kafka.Message) (Envelope, error) {
	env := Envelope{Key: string(msg.Key), Payload: append([]byte(nil), msg.Value...), OccurredAt: msg.Time}
	for _, h := range msg.Headers {
		switch h.Key {
		case HeaderEventType:
			env.Type = string(h.Value)
		case HeaderUserID:
			env.UserID = string(h.Value)
		}
	}
	if env.Type == "" {
		return Envelope{}, errors.New("missing event_type header")
	}
	if len(env.Payload) == 0 {
		return Envelope{}, errors.New("empty payload")
	}
	return env, nil
}
