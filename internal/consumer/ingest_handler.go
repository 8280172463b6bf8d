package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/events"
	"example.com/fittrack/internal/observability"
)

var ingestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fittrack",
	Subsystem: "consumer",
	Name:      "activities_ingested_total",
	Help:      "Activity events handled by the ingest handler, grouped by result.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(ingestCounter)
}

// ActivityCreator stores activities.
type ActivityCreator interface {
	CreateActivity(ctx context.Context, input domain.CreateActivityInput) (*domain.Activity, error)
}

// ActivityIngestHandler turns activity.recorded events into stored activities.
// Replays are idempotent because the event's activity id is kept.
type ActivityIngestHandler struct {
	activities ActivityCreator
	logger     *log.Logger
}

// NewActivityIngestHandler constructs an ActivityIngestHandler.
func NewActivityIngestHandler(activities ActivityCreator, logger *log.Logger) *ActivityIngestHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile)
	}
	return &ActivityIngestHandler{activities: activities, logger: logger}
}

// Handle implements Handler. Events that can never be stored are logged and dropped so
// the processor commits them; only transient store failures are returned.
func (h *ActivityIngestHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.TypeActivityRecorded {
		ingestCounter.WithLabelValues("ignored").Inc()
		return nil
	}

	var event events.ActivityRecorded
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.reject(msg, fmt.Errorf("unmarshal payload: %w", err))
		return nil
	}
	input, err := toCreateInput(event, msg.UserID)
	if err != nil {
		h.reject(msg, err)
		return nil
	}

	activity, err := h.activities.CreateActivity(ctx, input)
	var validation *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrActivityExists):
		ingestCounter.WithLabelValues("duplicate").Inc()
		return nil
	case errors.As(err, &validation):
		h.reject(msg, err)
		return nil
	case err != nil:
		return fmt.Errorf("store activity %s: %w", input.ID, err)
	}

	ingestCounter.WithLabelValues("stored").Inc()
	observability.RecordActivityIngested(activity.CreatedAt)
	return nil
}

func (h *ActivityIngestHandler) reject(msg Message, err error) {
	ingestCounter.WithLabelValues("rejected").Inc()
	h.logger.Printf("drop activity event (topic=%s, offset=%d): %v", msg.Topic, msg.Offset, err)
}

func toCreateInput(event events.ActivityRecorded, headerUser string) (domain.CreateActivityInput, error) {
	userID := event.UserID
	if userID == "" {
		userID = headerUser
	}
	if event.ActivityID == "" {
		return domain.CreateActivityInput{}, errors.New("missing activity_id")
	}

	var date time.Time
	switch {
	case event.ActivityDate != "":
		parsed, err := domain.ParseDate(event.ActivityDate)
		if err != nil {
			return domain.CreateActivityInput{}, err
		}
		date = parsed
	case !event.RecordedAt.IsZero():
		date = event.RecordedAt
	}

	return domain.CreateActivityInput{
		ID:          event.ActivityID,
		UserID:      userID,
		Kind:        event.ActivityType,
		Title:       event.Title,
		DurationMin: event.DurationMin,
		DistanceKm:  event.DistanceKm,
		Calories:    event.Calories,
		Date:        date,
	}, nil
}
