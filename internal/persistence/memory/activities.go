// Package memory provides in-process repositories for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/fittrack/internal/domain"
)

// ActivityRepository stores activities in memory.
type ActivityRepository struct {
	mu         sync.RWMutex
	activities map[string]domain.Activity
}

// NewActivityRepository constructs an empty repository.
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{activities: make(map[string]domain.Activity)}
}

// Create implements domain.ActivityRepository.
func (r *ActivityRepository) Create(_ context.Context, activity domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.activities[activity.ID]; exists {
		return domain.ErrActivityExists
	}
	r.activities[activity.ID] = activity
	return nil
}

// ListByUser implements domain.ActivityRepository, newest first.
func (r *ActivityRepository) ListByUser(_ context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.userActivities(userID)
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].ID > all[j].ID
	})

	results := make([]domain.Activity, 0, limit)
	for _, a := range all {
		if cursor != nil && !afterCursor(a, *cursor) {
			continue
		}
		results = append(results, a)
		if len(results) == limit {
			break
		}
	}

	var next *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{Date: last.Date, ID: last.ID}
	}
	return results, next, nil
}

// afterCursor reports whether a sorts strictly after the cursor in (date, id) descending order.
func afterCursor(a domain.Activity, c domain.Cursor) bool {
	if a.Date.Equal(c.Date) {
		return a.ID < c.ID
	}
	return a.Date.Before(c.Date)
}

// ListByUserInRange implements domain.ActivityRepository.
func (r *ActivityRepository) ListByUserInRange(_ context.Context, userID string, from, to time.Time) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]domain.Activity, 0)
	for _, a := range r.userActivities(userID) {
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		results = append(results, a)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].Date.Equal(results[j].Date) {
			return results[i].Date.Before(results[j].Date)
		}
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results, nil
}

// Stats implements domain.ActivityRepository.
func (r *ActivityRepository) Stats(_ context.Context, userID string) (domain.ActivityStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.ActivityStats
	for _, a := range r.userActivities(userID) {
		stats.TotalActivities++
		stats.TotalDuration += a.DurationMin
		stats.TotalDistance += a.Distance()
		stats.TotalCalories += a.Calories
	}
	return stats, nil
}

func (r *ActivityRepository) userActivities(userID string) []domain.Activity {
	out := make([]domain.Activity, 0)
	for _, a := range r.activities {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}
