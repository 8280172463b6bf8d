package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fittrack/internal/domain"
)

// UserRepository is the Postgres user directory.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `user_id, email, first_name, last_name, avatar_url, email_notifications, weekly_reports, created_at, updated_at`

func scanUser(row pgx.CollectableRow) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.AvatarURL, &u.EmailNotifications, &u.WeeklyReports, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create implements domain.UserRepository.
func (r *UserRepository) Create(ctx context.Context, u domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.AvatarURL, u.EmailNotifications, u.WeeklyReports, u.CreatedAt, u.UpdatedAt,
	)
	if hasCode(err, uniqueViolation) {
		return domain.ErrDuplicateEmail
	}
	return err
}

// Get implements domain.UserRepository.
func (r *UserRepository) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, userID)
}

// GetByEmail implements domain.UserRepository.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email)
}

func (r *UserRepository) one(ctx context.Context, query string, arg any) (*domain.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	user, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update implements domain.UserRepository.
func (r *UserRepository) Update(ctx context.Context, u domain.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email=$2, first_name=$3, last_name=$4, avatar_url=$5,
            email_notifications=$6, weekly_reports=$7, updated_at=$8
        WHERE user_id=$1`,
		u.ID, u.Email, u.FirstName, u.LastName, u.AvatarURL, u.EmailNotifications, u.WeeklyReports, u.UpdatedAt,
	)
	if hasCode(err, uniqueViolation) {
		return domain.ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ListWeeklyReportRecipients implements domain.UserRepository.
func (r *UserRepository) ListWeeklyReportRecipients(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_notifications AND weekly_reports ORDER BY email`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanUser)
}
