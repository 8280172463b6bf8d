package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fittrack/internal/domain"
)

// ReminderRepository stores reminder rules.
type ReminderRepository struct {
	pool *pgxpool.Pool
}

// NewReminderRepository constructs a ReminderRepository.
func NewReminderRepository(pool *pgxpool.Pool) *ReminderRepository {
	return &ReminderRepository{pool: pool}
}

const reminderColumns = `rule_id, user_id, title, activity_type, time_of_day, days, active, created_at`

func scanReminder(row pgx.CollectableRow) (domain.ReminderRule, error) {
	var rule domain.ReminderRule
	var days []int16
	if err := row.Scan(&rule.ID, &rule.UserID, &rule.Title, &rule.ActivityKind, &rule.TimeOfDay, &days, &rule.Active, &rule.CreatedAt); err != nil {
		return domain.ReminderRule{}, err
	}
	rule.Days = make([]time.Weekday, 0, len(days))
	for _, d := range days {
		rule.Days = append(rule.Days, time.Weekday(d))
	}
	return rule, nil
}

func encodeDays(days []time.Weekday) []int16 {
	out := make([]int16, 0, len(days))
	for _, d := range days {
		out = append(out, int16(d))
	}
	return out
}

// Create implements domain.ReminderRepository.
func (r *ReminderRepository) Create(ctx context.Context, rule domain.ReminderRule) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reminder_rules (`+reminderColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rule.ID, rule.UserID, rule.Title, rule.ActivityKind, rule.TimeOfDay, encodeDays(rule.Days), rule.Active, rule.CreatedAt,
	)
	return err
}

// Get implements domain.ReminderRepository.
func (r *ReminderRepository) Get(ctx context.Context, ruleID string) (*domain.ReminderRule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reminderColumns+` FROM reminder_rules WHERE rule_id=$1`, ruleID)
	if err != nil {
		return nil, err
	}
	rule, err := pgx.CollectExactlyOneRow(rows, scanReminder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// Update implements domain.ReminderRepository.
func (r *ReminderRepository) Update(ctx context.Context, rule domain.ReminderRule) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reminder_rules SET title=$2, activity_type=$3, time_of_day=$4, days=$5, active=$6 WHERE rule_id=$1`,
		rule.ID, rule.Title, rule.ActivityKind, rule.TimeOfDay, encodeDays(rule.Days), rule.Active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

// Delete implements domain.ReminderRepository.
func (r *ReminderRepository) Delete(ctx context.Context, ruleID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reminder_rules WHERE rule_id=$1`, ruleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByUser implements domain.ReminderRepository.
func (r *ReminderRepository) ListByUser(ctx context.Context, userID string) ([]domain.ReminderRule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reminderColumns+` FROM reminder_rules WHERE user_id=$1 ORDER BY created_at, rule_id`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanReminder)
}

// ListActive implements domain.ReminderRepository.
func (r *ReminderRepository) ListActive(ctx context.Context) ([]domain.ReminderRule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reminderColumns+` FROM reminder_rules WHERE active ORDER BY created_at, rule_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanReminder)
}
