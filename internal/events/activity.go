// Package events defines the event payloads exchanged over Kafka.
package events

import "time"

// ActivityRecorded is ingested by the consumer and published when an activity is stored.
type ActivityRecorded struct {
	ActivityID   string    `json:"activity_id"`
	UserID       string    `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	Title        string    `json:"title,omitempty"`
	DurationMin  int       `json:"duration"`
	DistanceKm   *float64  `json:"distance,omitempty"`
	Calories     int       `json:"calories"`
	ActivityDate string    `json:"activity_date"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// NotificationCreated is published after an in-app notification is appended.
type NotificationCreated struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	ActivityType   string    `json:"activity_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReportSent is published once a weekly report was delivered and its marker written.
type ReportSent struct {
	Stream        string    `json:"stream"`
	Variant       string    `json:"variant"`
	UserID        string    `json:"user_id"`
	WeekKey       string    `json:"week_key"`
	TotalWorkouts int       `json:"total_workouts"`
	ActiveDays    int       `json:"active_days"`
	WeeklyScore   float64   `json:"weekly_score,omitempty"`
	SentAt        time.Time `json:"sent_at"`
}
