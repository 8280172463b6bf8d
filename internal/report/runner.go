package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"example.com/fittrack/internal/domain"
)

// RecipientSource lists users opted in to weekly reports.
type RecipientSource interface {
	WeeklyReportRecipients(ctx context.Context) ([]domain.User, error)
}

// Runner checks every stream for every recipient.
type Runner struct {
	recipients  RecipientSource
	dispatchers []*Dispatcher
	logger      *log.Logger
}

// NewRunner constructs a Runner.
func NewRunner(recipients RecipientSource, dispatchers []*Dispatcher, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(log.Writer(), "[report] ", log.LstdFlags|log.Lshortfile)
	}
	return &Runner{recipients: recipients, dispatchers: dispatchers, logger: logger}
}

// RunOnce runs Check for each (recipient, stream). Per-user failures are collected and
// returned joined; they never stop the loop. Skips are not failures.
func (r *Runner) RunOnce(ctx context.Context, now time.Time) error {
	users, err := r.recipients.WeeklyReportRecipients(ctx)
	if err != nil {
		r.logger.Printf("load recipients: %v", err)
		return fmt.Errorf("load recipients: %w", err)
	}

	var errs []error
	sent := 0
	for _, user := range users {
		for _, d := range r.dispatchers {
			if ctx.Err() != nil {
				return errors.Join(append(errs, ctx.Err())...)
			}
			err := d.Check(ctx, user, now)
			switch {
			case err == nil:
				sent++
			case isSkip(err):
			default:
				errs = append(errs, fmt.Errorf("%s/%s: %w", d.Stream().Name, user.ID, err))
			}
		}
	}
	if sent > 0 || len(errs) > 0 {
		r.logger.Printf("checked %d recipients: %d sent, %d failed", len(users), sent, len(errs))
	}
	return errors.Join(errs...)
}

// Dispatcher returns the dispatcher serving the named stream.
func (r *Runner) Dispatcher(stream string) (*Dispatcher, error) {
	for _, d := range r.dispatchers {
		if d.Stream().Name == stream {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStream, stream)
}

func isSkip(err error) bool {
	return errors.Is(err, ErrNotDue) ||
		errors.Is(err, ErrAlreadySent) ||
		errors.Is(err, ErrOptedOut) ||
		errors.Is(err, ErrInProgress)
}
