package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fittrack/internal/domain"
)

// MarkerStore keeps last-sent markers in report_markers. The exclusive scope of Update is
// a row lock taken with NOWAIT, so a second dispatcher process backs off instead of
// queueing behind an in-flight send.
type MarkerStore struct {
	pool *pgxpool.Pool
}

// NewMarkerStore constructs a MarkerStore.
func NewMarkerStore(pool *pgxpool.Pool) *MarkerStore {
	return &MarkerStore{pool: pool}
}

// Get implements domain.MarkerStore.
func (s *MarkerStore) Get(ctx context.Context, key domain.MarkerKey) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT week_key FROM report_markers WHERE stream=$1 AND user_id=$2`, key.Stream, key.UserID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Update implements domain.MarkerStore.
func (s *MarkerStore) Update(ctx context.Context, key domain.MarkerKey, fn domain.MarkerUpdateFunc) error {
	// The row must exist before it can be locked; inserting it outside the transaction
	// keeps a concurrent first send from blocking on the unique index.
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO report_markers (stream, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		key.Stream, key.UserID,
	); err != nil {
		return fmt.Errorf("ensure marker %s: %w", key, err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx,
		`SELECT week_key FROM report_markers WHERE stream=$1 AND user_id=$2 FOR UPDATE NOWAIT`,
		key.Stream, key.UserID,
	).Scan(&current)
	if hasCode(err, lockNotAvailable) {
		return domain.ErrMarkerBusy
	}
	if err != nil {
		return fmt.Errorf("lock marker %s: %w", key, err)
	}

	next, err := fn(ctx, current)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE report_markers SET week_key=$3, updated_at=NOW() WHERE stream=$1 AND user_id=$2`,
		key.Stream, key.UserID, next,
	); err != nil {
		return fmt.Errorf("write marker %s: %w", key, err)
	}
	return tx.Commit(ctx)
}
