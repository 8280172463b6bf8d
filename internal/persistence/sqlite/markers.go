// Package sqlite keeps report markers in a local SQLite file for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"example.com/fittrack/internal/domain"
)

// DefaultLease bounds how long an Update scope may hold a marker before another caller
// may take it over. It must outlast the email send timeout.
const DefaultLease = time.Minute

const schema = `CREATE TABLE IF NOT EXISTS report_markers (
    stream      TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    week_key    TEXT NOT NULL DEFAULT '',
    lease_token TEXT,
    lease_until INTEGER,
    updated_at  INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (stream, user_id)
)`

// MarkerStore implements domain.MarkerStore on SQLite. The exclusive scope is a lease row
// claimed with a conditional UPDATE, so it also holds across processes sharing the file.
type MarkerStore struct {
	db    *sql.DB
	lease time.Duration
	now   func() time.Time
}

// Open opens (and creates) the marker database at path.
func Open(path string) (*MarkerStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create marker table: %w", err)
	}
	return &MarkerStore{db: db, lease: DefaultLease, now: time.Now}, nil
}

// Close closes the underlying SQLite database.
func (s *MarkerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get implements domain.MarkerStore.
func (s *MarkerStore) Get(ctx context.Context, key domain.MarkerKey) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT week_key FROM report_markers WHERE stream = ? AND user_id = ?`, key.Stream, key.UserID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Update implements domain.MarkerStore.
func (s *MarkerStore) Update(ctx context.Context, key domain.MarkerKey, fn domain.MarkerUpdateFunc) error {
	token, current, err := s.acquire(ctx, key)
	if err != nil {
		return err
	}

	next, fnErr := fn(ctx, current)

	// Release on a fresh context so a cancelled caller does not strand the lease.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if fnErr != nil {
		if err := s.release(releaseCtx, key, token, nil); err != nil {
			return errors.Join(fnErr, err)
		}
		return fnErr
	}
	return s.release(releaseCtx, key, token, &next)
}

func (s *MarkerStore) acquire(ctx context.Context, key domain.MarkerKey) (string, string, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO report_markers (stream, user_id) VALUES (?, ?)`,
		key.Stream, key.UserID,
	); err != nil {
		return "", "", fmt.Errorf("ensure marker %s: %w", key, err)
	}

	token := uuid.NewString()
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE report_markers SET lease_token = ?, lease_until = ?
        WHERE stream = ? AND user_id = ? AND (lease_until IS NULL OR lease_until < ?)`,
		token, now.Add(s.lease).UnixMilli(), key.Stream, key.UserID, now.UnixMilli(),
	)
	if err != nil {
		return "", "", fmt.Errorf("lease marker %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", "", err
	} else if n == 0 {
		return "", "", domain.ErrMarkerBusy
	}

	current, err := s.Get(ctx, key)
	if err != nil {
		_ = s.release(context.WithoutCancel(ctx), key, token, nil)
		return "", "", err
	}
	return token, current, nil
}

func (s *MarkerStore) release(ctx context.Context, key domain.MarkerKey, token string, next *string) error {
	var err error
	if next != nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE report_markers SET week_key = ?, updated_at = ?, lease_token = NULL, lease_until = NULL
            WHERE stream = ? AND user_id = ? AND lease_token = ?`,
			*next, s.now().UnixMilli(), key.Stream, key.UserID, token,
		)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE report_markers SET lease_token = NULL, lease_until = NULL
            WHERE stream = ? AND user_id = ? AND lease_token = ?`,
			key.Stream, key.UserID, token,
		)
	}
	if err != nil {
		return fmt.Errorf("release marker %s: %w", key, err)
	}
	return nil
}
