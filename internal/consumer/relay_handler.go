package consumer

import (
	"context"
	"encoding/json"
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/events"
	"example.com/fittrack/internal/notify"
)

var relayCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fittrack",
	Subsystem: "consumer",
	Name:      "notifications_relayed_total",
	Help:      "notification.created events pushed to live websocket clients, grouped by result.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(relayCounter)
}

// NotificationRelay pushes notification.created events to the live connections of the
// notified user, so notifications raised by other processes reach this API instance.
type NotificationRelay struct {
	broadcaster notify.Broadcaster
	logger      *log.Logger
}

// NewNotificationRelay constructs a NotificationRelay.
func NewNotificationRelay(broadcaster notify.Broadcaster, logger *log.Logger) *NotificationRelay {
	if logger == nil {
		logger = log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile)
	}
	return &NotificationRelay{broadcaster: broadcaster, logger: logger}
}

// Handle implements Handler. Undecodable events are dropped.
func (r *NotificationRelay) Handle(_ context.Context, msg Message) error {
	if msg.EventType != events.TypeNotificationCreated {
		relayCounter.WithLabelValues("ignored").Inc()
		return nil
	}
	var event events.NotificationCreated
	if err := json.Unmarshal(msg.Payload, &event); err != nil || event.UserID == "" {
		r.logger.Printf("drop notification event at %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
		relayCounter.WithLabelValues("rejected").Inc()
		return nil
	}

	delivered := r.broadcaster.Broadcast(event.UserID, notify.NewMessage(domain.Notification{
		ID:           event.NotificationID,
		UserID:       event.UserID,
		Title:        event.Title,
		Message:      event.Message,
		Category:     domain.NotificationCategory(event.Category),
		ActivityKind: event.ActivityType,
		Timestamp:    event.CreatedAt,
	}))
	if delivered == 0 {
		relayCounter.WithLabelValues("offline").Inc()
		return nil
	}
	relayCounter.WithLabelValues("delivered").Inc()
	return nil
}
