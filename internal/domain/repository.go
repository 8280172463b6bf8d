package domain

import (
	"context"
	"time"
)

// ActivityRepository is the Activity Record Store.
type ActivityRepository interface {
	Create(ctx context.Context, activity Activity) error
	ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error)
	// ListByUserInRange returns activities whose date lies in [from, to] inclusive, ascending by date.
	ListByUserInRange(ctx context.Context, userID string, from, to time.Time) ([]Activity, error)
	Stats(ctx context.Context, userID string) (ActivityStats, error)
}

// UserRepository is the User Directory. Lookups return (nil, nil) when the user is absent.
type UserRepository interface {
	Create(ctx context.Context, user User) error
	Get(ctx context.Context, userID string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user User) error
	ListWeeklyReportRecipients(ctx context.Context) ([]User, error)
}

// ReminderRepository persists reminder rules. Get returns (nil, nil) when absent.
type ReminderRepository interface {
	Create(ctx context.Context, rule ReminderRule) error
	Get(ctx context.Context, ruleID string) (*ReminderRule, error)
	Update(ctx context.Context, rule ReminderRule) error
	Delete(ctx context.Context, ruleID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]ReminderRule, error)
	ListActive(ctx context.Context) ([]ReminderRule, error)
}

// NotificationRepository persists notifications, newest first.
type NotificationRepository interface {
	Append(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// MarkerKey identifies a last-sent marker: one per report stream and user.
type MarkerKey struct {
	Stream string
	UserID string
}

func (k MarkerKey) String() string {
	return k.Stream + ":" + k.UserID
}

// MarkerUpdateFunc receives the current marker ("" when absent) and returns the value to
// store. Returning an error leaves the stored marker untouched.
type MarkerUpdateFunc func(ctx context.Context, current string) (string, error)

// MarkerStore persists last-sent markers. Update runs fn inside the store's exclusive
// scope for key; a scope already held by another caller yields ErrMarkerBusy.
type MarkerStore interface {
	Get(ctx context.Context, key MarkerKey) (string, error)
	Update(ctx context.Context, key MarkerKey, fn MarkerUpdateFunc) error
}
