// Package domain defines the business logic for activities, users, reminders and notifications.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrActivityExists is returned by stores when an activity ID is already recorded.
	ErrActivityExists = errors.New("activity already exists")
	// ErrUserNotFound is returned when the user directory has no matching profile.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when a profile already exists for the email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUserExists is returned when a profile already exists for the requested ID.
	ErrUserExists = errors.New("user already exists")
	// ErrReminderNotFound is returned when a reminder rule cannot be located.
	ErrReminderNotFound = errors.New("reminder not found")
	// ErrNotificationNotFound is returned when a notification cannot be located.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrMarkerBusy is returned when another dispatch holds the marker for the same key.
	ErrMarkerBusy = errors.New("marker update already in progress")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service orchestrates activity, profile, reminder and notification workflows.
type Service struct {
	activities    ActivityRepository
	users         UserRepository
	reminders     ReminderRepository
	notifications NotificationRepository
	now           func() time.Time
}

// NewService constructs a Service.
func NewService(activities ActivityRepository, users UserRepository, reminders ReminderRepository, notifications NotificationRepository) *Service {
	return &Service{
		activities:    activities,
		users:         users,
		reminders:     reminders,
		notifications: notifications,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateActivity validates and records an activity. A caller-supplied ID is kept so
// that replayed ingest events map onto the same record.
func (s *Service) CreateActivity(ctx context.Context, input CreateActivityInput) (*Activity, error) {
	kind, err := input.validate()
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()
	date := input.Date
	if date.IsZero() {
		date = now
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = kind.Title()
	}

	activity := Activity{
		ID:          id,
		UserID:      input.UserID,
		Kind:        kind,
		Title:       title,
		DurationMin: input.DurationMin,
		DistanceKm:  input.DistanceKm,
		Calories:    input.Calories,
		Date:        CalendarDate(date),
		CreatedAt:   now,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		if errors.Is(err, ErrActivityExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create activity: %w", err)
	}
	return &activity, nil
}

// ListActivities fetches a user's activities newest first with cursor pagination.
func (s *Service) ListActivities(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error) {
	return s.activities.ListByUser(ctx, userID, cursor, clampLimit(limit))
}

// ActivitiesInRange returns a user's activities dated within [from, to], ascending.
func (s *Service) ActivitiesInRange(ctx context.Context, userID string, from, to time.Time) ([]Activity, error) {
	return s.activities.ListByUserInRange(ctx, userID, CalendarDate(from), CalendarDate(to))
}

// ActivityStats returns all-time totals for the user.
func (s *Service) ActivityStats(ctx context.Context, userID string) (ActivityStats, error) {
	return s.activities.Stats(ctx, userID)
}

// CreateUser registers a profile. Both notification opt-ins default to on.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*User, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	} else if taken, err := s.users.Get(ctx, id); err != nil {
		return nil, err
	} else if taken != nil {
		return nil, ErrUserExists
	}

	now := s.now()
	user := User{
		ID:                 id,
		Email:              email,
		FirstName:          strings.TrimSpace(input.FirstName),
		LastName:           strings.TrimSpace(input.LastName),
		AvatarURL:          strings.TrimSpace(input.AvatarURL),
		EmailNotifications: true,
		WeeklyReports:      true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// GetUser fetches a profile by ID.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUserByEmail fetches a profile by email, case-insensitively.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateUser applies a partial update, including the weekly report opt-in flags.
func (s *Service) UpdateUser(ctx context.Context, userID string, input UpdateUserInput) (*User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	input.apply(user)
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// WeeklyReportRecipients lists users with both email notifications and weekly reports enabled.
func (s *Service) WeeklyReportRecipients(ctx context.Context) ([]User, error) {
	users, err := s.users.ListWeeklyReportRecipients(ctx)
	if err != nil {
		return nil, err
	}
	out := users[:0]
	for _, u := range users {
		if u.ReceivesWeeklyReports() {
			out = append(out, u)
		}
	}
	return out, nil
}

// CreateReminder stores a new active rule.
func (s *Service) CreateReminder(ctx context.Context, input ReminderInput) (*ReminderRule, error) {
	in, days, err := input.normalize()
	if err != nil {
		return nil, err
	}
	rule := ReminderRule{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		Title:        in.Title,
		ActivityKind: in.ActivityKind,
		TimeOfDay:    in.TimeOfDay,
		Days:         days,
		Active:       true,
		CreatedAt:    s.now(),
	}
	if err := s.reminders.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return &rule, nil
}

// UpdateReminder replaces the editable fields of a rule owned by input.UserID.
func (s *Service) UpdateReminder(ctx context.Context, ruleID string, input ReminderInput) (*ReminderRule, error) {
	in, days, err := input.normalize()
	if err != nil {
		return nil, err
	}
	rule, err := s.ownedReminder(ctx, in.UserID, ruleID)
	if err != nil {
		return nil, err
	}
	rule.Title = in.Title
	rule.ActivityKind = in.ActivityKind
	rule.TimeOfDay = in.TimeOfDay
	rule.Days = days
	if err := s.reminders.Update(ctx, *rule); err != nil {
		return nil, fmt.Errorf("update reminder: %w", err)
	}
	return rule, nil
}

// ToggleReminder flips the active flag.
func (s *Service) ToggleReminder(ctx context.Context, userID, ruleID string) (*ReminderRule, error) {
	rule, err := s.ownedReminder(ctx, userID, ruleID)
	if err != nil {
		return nil, err
	}
	rule.Active = !rule.Active
	if err := s.reminders.Update(ctx, *rule); err != nil {
		return nil, fmt.Errorf("toggle reminder: %w", err)
	}
	return rule, nil
}

// DeleteReminder removes a rule.
func (s *Service) DeleteReminder(ctx context.Context, userID, ruleID string) error {
	if _, err := s.ownedReminder(ctx, userID, ruleID); err != nil {
		return err
	}
	deleted, err := s.reminders.Delete(ctx, ruleID)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if !deleted {
		return ErrReminderNotFound
	}
	return nil
}

// ListReminders returns a user's rules.
func (s *Service) ListReminders(ctx context.Context, userID string) ([]ReminderRule, error) {
	return s.reminders.ListByUser(ctx, userID)
}

// ActiveReminders returns every active rule across users.
func (s *Service) ActiveReminders(ctx context.Context) ([]ReminderRule, error) {
	return s.reminders.ListActive(ctx)
}

func (s *Service) ownedReminder(ctx context.Context, userID, ruleID string) (*ReminderRule, error) {
	rule, err := s.reminders.Get(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil || rule.UserID != userID {
		return nil, ErrReminderNotFound
	}
	return rule, nil
}

// AppendNotification fills in identity and timestamp, then stores the notification unread.
func (s *Service) AppendNotification(ctx context.Context, n Notification) (*Notification, error) {
	if strings.TrimSpace(n.UserID) == "" {
		return nil, validationErrorf("user_id is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = s.now()
	}
	if n.Category == "" {
		n.Category = CategoryReminder
	}
	n.Read = false
	if err := s.notifications.Append(ctx, n); err != nil {
		return nil, fmt.Errorf("append notification: %w", err)
	}
	return &n, nil
}

// ListNotifications returns the newest notifications first.
func (s *Service) ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	return s.notifications.ListByUser(ctx, userID, clampLimit(limit))
}

// UnreadCount counts the user's unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// MarkNotificationRead sets the read flag of a single notification.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	ok, err := s.notifications.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks every notification of the user read and returns how many changed.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
