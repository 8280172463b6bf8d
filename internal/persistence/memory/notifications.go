package memory

import (
	"context"
	"sync"

	"example.com/fittrack/internal/domain"
)

// NotificationRepository keeps notifications per user, newest first.
type NotificationRepository struct {
	mu     sync.RWMutex
	byUser map[string][]domain.Notification
}

// NewNotificationRepository constructs an empty repository.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{byUser: make(map[string][]domain.Notification)}
}

// Append implements domain.NotificationRepository.
func (r *NotificationRepository) Append(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[n.UserID] = append([]domain.Notification{n}, r.byUser[n.UserID]...)
	return nil
}

// ListByUser implements domain.NotificationRepository.
func (r *NotificationRepository) ListByUser(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byUser[userID]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return append([]domain.Notification(nil), list...), nil
}

// CountUnread implements domain.NotificationRepository.
func (r *NotificationRepository) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.byUser[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead implements domain.NotificationRepository.
func (r *NotificationRepository) MarkRead(_ context.Context, userID, notificationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.byUser[userID]
	for i := range list {
		if list[i].ID == notificationID {
			list[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

// MarkAllRead implements domain.NotificationRepository.
func (r *NotificationRepository) MarkAllRead(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := 0
	list := r.byUser[userID]
	for i := range list {
		if !list[i].Read {
			list[i].Read = true
			changed++
		}
	}
	return changed, nil
}
