// Package notify stores in-app notifications and fans them out to the event bus and
// connected websocket clients.
package notify

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/events"
)

var publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fittrack",
	Subsystem: "notify",
	Name:      "notifications_total",
	Help:      "Notifications appended, grouped by category and fan-out result.",
}, []string{"category", "result"})

func init() {
	prometheus.MustRegister(publishedCounter)
}

// Store appends notifications.
type Store interface {
	AppendNotification(ctx context.Context, n domain.Notification) (*domain.Notification, error)
}

// Broadcaster pushes a payload to a user's live connections.
type Broadcaster interface {
	Broadcast(userID string, payload any) int
}

// Option configures optional behaviour for the Center.
type Option func(*Center)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Center) {
		c.logger = logger
	}
}

// WithPublisher emits a notification.created event per stored notification.
func WithPublisher(publisher events.Publisher) Option {
	return func(c *Center) {
		c.publisher = publisher
	}
}

// WithBroadcaster pushes each stored notification to live clients.
func WithBroadcaster(b Broadcaster) Option {
	return func(c *Center) {
		c.broadcaster = b
	}
}

// Center is the single entry point for emitting notifications.
type Center struct {
	store       Store
	publisher   events.Publisher
	broadcaster Broadcaster
	logger      *log.Logger
}

// NewCenter constructs a Center.
func NewCenter(store Store, opts ...Option) *Center {
	c := &Center{
		store:  store,
		logger: log.New(log.Writer(), "[notify] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify stores n and fans it out. Only the store failure is returned; fan-out failures are logged.
func (c *Center) Notify(ctx context.Context, n domain.Notification) error {
	stored, err := c.store.AppendNotification(ctx, n)
	if err != nil {
		publishedCounter.WithLabelValues(string(n.Category), "store_error").Inc()
		return err
	}

	result := "ok"
	if c.publisher != nil {
		envelope, err := events.NewEnvelope(events.TypeNotificationCreated, stored.UserID, stored.UserID, events.NotificationCreated{
			NotificationID: stored.ID,
			UserID:         stored.UserID,
			Category:       string(stored.Category),
			Title:          stored.Title,
			Message:        stored.Message,
			ActivityType:   stored.ActivityKind,
			CreatedAt:      stored.Timestamp,
		})
		if err == nil {
			err = c.publisher.Publish(ctx, envelope)
		}
		if err != nil {
			result = "publish_error"
			c.logger.Printf("publish notification %s: %v", stored.ID, err)
		}
	}
	if c.broadcaster != nil {
		c.broadcaster.Broadcast(stored.UserID, NewMessage(*stored))
	}
	publishedCounter.WithLabelValues(string(stored.Category), result).Inc()
	return nil
}

// Message is the JSON shape of a notification on the API and the websocket feed.
type Message struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	Type         string `json:"type"`
	ActivityType string `json:"activity_type,omitempty"`
	Timestamp    string `json:"timestamp"`
	Read         bool   `json:"read"`
}

// NewMessage converts a notification to its JSON shape.
func NewMessage(n domain.Notification) Message {
	return Message{
		ID:           n.ID,
		Title:        n.Title,
		Message:      n.Message,
		Type:         string(n.Category),
		ActivityType: n.ActivityKind,
		Timestamp:    n.Timestamp.UTC().Format(time.RFC3339),
		Read:         n.Read,
	}
}
