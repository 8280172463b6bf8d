package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/fittrack/internal/domain"
)

// ReminderRepository stores reminder rules in memory.
type ReminderRepository struct {
	mu    sync.RWMutex
	rules map[string]domain.ReminderRule
}

// NewReminderRepository constructs an empty repository.
func NewReminderRepository() *ReminderRepository {
	return &ReminderRepository{rules: make(map[string]domain.ReminderRule)}
}

// Create implements domain.ReminderRepository.
func (r *ReminderRepository) Create(_ context.Context, rule domain.ReminderRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = cloneRule(rule)
	return nil
}

// Get implements domain.ReminderRepository.
func (r *ReminderRepository) Get(_ context.Context, ruleID string) (*domain.ReminderRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[ruleID]
	if !ok {
		return nil, nil
	}
	rule = cloneRule(rule)
	return &rule, nil
}

// Update implements domain.ReminderRepository.
func (r *ReminderRepository) Update(_ context.Context, rule domain.ReminderRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.ID]; !ok {
		return domain.ErrReminderNotFound
	}
	r.rules[rule.ID] = cloneRule(rule)
	return nil
}

// Delete implements domain.ReminderRepository.
func (r *ReminderRepository) Delete(_ context.Context, ruleID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[ruleID]; !ok {
		return false, nil
	}
	delete(r.rules, ruleID)
	return true, nil
}

// ListByUser implements domain.ReminderRepository.
func (r *ReminderRepository) ListByUser(_ context.Context, userID string) ([]domain.ReminderRule, error) {
	return r.filter(func(rule domain.ReminderRule) bool { return rule.UserID == userID }), nil
}

// ListActive implements domain.ReminderRepository.
func (r *ReminderRepository) ListActive(_ context.Context) ([]domain.ReminderRule, error) {
	return r.filter(func(rule domain.ReminderRule) bool { return rule.Active }), nil
}

func (r *ReminderRepository) filter(keep func(domain.ReminderRule) bool) []domain.ReminderRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ReminderRule, 0)
	for _, rule := range r.rules {
		if keep(rule) {
			out = append(out, cloneRule(rule))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func cloneRule(rule domain.ReminderRule) domain.ReminderRule {
	rule.Days = append([]time.Weekday(nil), rule.Days...)
	return rule
}
