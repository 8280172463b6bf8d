package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event type identifiers carried in the event_type header.
const (
	TypeActivityRecorded    = "activity.recorded"
	TypeNotificationCreated = "notification.created"
	TypeReportSent          = "report.sent"
)

// Envelope is a serialised event ready for publishing.
type Envelope struct {
	Type       string
	Key        string
	UserID     string
	Payload    json.RawMessage
	OccurredAt time.Time
}

// NewEnvelope marshals payload into an Envelope partitioned by key.
func NewEnvelope(eventType, key, userID string, payload any) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return Envelope{
		Type:       eventType,
		Key:        key,
		UserID:     userID,
		Payload:    body,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// Publisher delivers envelopes to the event bus.
type Publisher interface {
	Publish(ctx context.Context, envelope Envelope) error
}

// Routes maps published event types to topics. Activity events are only consumed.
type Routes struct {
	Notifications string
	Reports       string
}

// DefaultRoutes are the topic names used when none are configured.
var DefaultRoutes = Routes{
	Notifications: "notification_events",
	Reports:       "report_events",
}

// TopicFor returns the topic for an event type.
func (r Routes) TopicFor(eventType string) (string, error) {
	var topic string
	switch eventType {
	case TypeNotificationCreated:
		topic = r.Notifications
	case TypeReportSent:
		topic = r.Reports
	}
	if topic == "" {
		return "", fmt.Errorf("no topic for event type %s", eventType)
	}
	return topic, nil
}
