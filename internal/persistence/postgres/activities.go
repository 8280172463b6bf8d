package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fittrack/internal/domain"
)

// ActivityRepository provides Postgres-backed persistence for activities.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

const activityColumns = `activity_id, user_id, activity_type, title, duration_min, distance_km, calories, activity_date, created_at`

func scanActivity(row pgx.CollectableRow) (domain.Activity, error) {
	var a domain.Activity
	var kind string
	if err := row.Scan(&a.ID, &a.UserID, &kind, &a.Title, &a.DurationMin, &a.DistanceKm, &a.Calories, &a.Date, &a.CreatedAt); err != nil {
		return domain.Activity{}, err
	}
	a.Kind = domain.ActivityKind(kind)
	a.Date = domain.CalendarDate(a.Date)
	return a, nil
}

// Create implements domain.ActivityRepository.
func (r *ActivityRepository) Create(ctx context.Context, a domain.Activity) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO activities (`+activityColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.UserID, string(a.Kind), a.Title, a.DurationMin, a.DistanceKm, a.Calories, a.Date, a.CreatedAt,
	)
	if hasCode(err, uniqueViolation) {
		return domain.ErrActivityExists
	}
	return err
}

// ListByUser returns activities for a user, newest first, after the cursor.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	args := []any{userID, limit}
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id=$1`
	if cursor != nil {
		query += ` AND (activity_date, activity_id) < ($3, $4)`
		args = append(args, cursor.Date, cursor.ID)
	}
	query += ` ORDER BY activity_date DESC, activity_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	results, err := pgx.CollectRows(rows, scanActivity)
	if err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{Date: last.Date, ID: last.ID}
	}
	return results, next, nil
}

// ListByUserInRange implements domain.ActivityRepository.
func (r *ActivityRepository) ListByUserInRange(ctx context.Context, userID string, from, to time.Time) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM activities
        WHERE user_id=$1 AND activity_date BETWEEN $2 AND $3
        ORDER BY activity_date, created_at`,
		userID, domain.CalendarDate(from), domain.CalendarDate(to),
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanActivity)
}

// Stats implements domain.ActivityRepository.
func (r *ActivityRepository) Stats(ctx context.Context, userID string) (domain.ActivityStats, error) {
	var stats domain.ActivityStats
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(duration_min), 0), COALESCE(SUM(distance_km), 0), COALESCE(SUM(calories), 0)
        FROM activities WHERE user_id=$1`, userID,
	).Scan(&stats.TotalActivities, &stats.TotalDuration, &stats.TotalDistance, &stats.TotalCalories)
	return stats, err
}
