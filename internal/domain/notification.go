package domain

import "time"

// NotificationCategory groups notifications for display and filtering.
type NotificationCategory string

const (
	CategoryReminder      NotificationCategory = "reminder"
	CategoryAchievement   NotificationCategory = "achievement"
	CategorySocial        NotificationCategory = "social"
	CategoryMotivation    NotificationCategory = "motivation"
	CategoryGoalCheck     NotificationCategory = "goal_check"
	CategoryWeeklySummary NotificationCategory = "weekly_summary"
	CategoryReport        NotificationCategory = "report"
)

// Notification is an in-app message. Only the Read flag ever changes.
type Notification struct {
	ID           string
	UserID       string
	Title        string
	Message      string
	Category     NotificationCategory
	ActivityKind string
	Timestamp    time.Time
	Read         bool
}
