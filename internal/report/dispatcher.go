package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/events"
	"example.com/fittrack/internal/insight"
	"example.com/fittrack/internal/weekly"
)

var (
	// ErrNotDue is returned by Check outside the stream's window.
	ErrNotDue = errors.New("report not due")
	// ErrAlreadySent is returned when the marker already holds the current week key.
	ErrAlreadySent = errors.New("report already sent this week")
	// ErrInProgress is returned while a dispatch for the same stream and user is analyzing or sending.
	ErrInProgress = errors.New("report dispatch in progress")
	// ErrOptedOut is returned for users without both weekly report opt-ins.
	ErrOptedOut = errors.New("user opted out of weekly reports")
	// ErrSendTimeout is returned when the email collaborator does not answer in time.
	ErrSendTimeout = errors.New("report send timed out")
	// ErrUnknownStream is returned for stream names that do not exist.
	ErrUnknownStream = errors.New("unknown report stream")
)

// DefaultSendTimeout bounds a single email delivery attempt.
const DefaultSendTimeout = 10 * time.Second

// State is the dispatcher state of one stream for one user.
type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateSending   State = "sending"
	StateSent      State = "sent"
	StateError     State = "error"
)

// Status is a snapshot of a stream's state for a user.
type Status struct {
	Stream    string
	State     State
	Since     time.Time
	LastError string
}

// Sender is the email delivery collaborator.
type Sender interface {
	Send(ctx context.Context, report domain.WeeklyReport) error
}

// WeekLoader loads and summarises one user's week.
type WeekLoader interface {
	Week(ctx context.Context, userID string, weekStart time.Time) weekly.Week
}

// Notifier receives an in-app notification after a successful send.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Option configures optional behaviour for the Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithSendTimeout overrides DefaultSendTimeout.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// WithPublisher emits a report.sent event after each successful dispatch.
func WithPublisher(publisher events.Publisher) Option {
	return func(d *Dispatcher) {
		d.publisher = publisher
	}
}

// WithNotifier appends an in-app notification after each successful dispatch.
func WithNotifier(notifier Notifier) Option {
	return func(d *Dispatcher) {
		d.notifier = notifier
	}
}

// WithFirstWeekday sets the day reporting weeks start on. Defaults to Sunday.
func WithFirstWeekday(day time.Weekday) Option {
	return func(d *Dispatcher) {
		d.firstDay = day
	}
}

type userState struct {
	state     State
	since     time.Time
	lastError string
}

// Dispatcher runs the idle → analyzing → sending → sent|error → idle cycle for one stream.
// The marker read, compare, send and write happen inside the marker store's exclusive
// scope, so concurrent dispatchers for the same user send at most once per week.
type Dispatcher struct {
	stream      Stream
	weeks       WeekLoader
	sender      Sender
	markers     domain.MarkerStore
	keyer       weekly.Keyer
	publisher   events.Publisher
	notifier    Notifier
	firstDay    time.Weekday
	sendTimeout time.Duration
	logger      *log.Logger

	mu     sync.Mutex
	states map[string]*userState
}

// NewDispatcher constructs a Dispatcher for stream.
func NewDispatcher(stream Stream, weeks WeekLoader, sender Sender, markers domain.MarkerStore, keyer weekly.Keyer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		stream:      stream,
		weeks:       weeks,
		sender:      sender,
		markers:     markers,
		keyer:       keyer,
		firstDay:    time.Sunday,
		sendTimeout: DefaultSendTimeout,
		logger:      log.New(log.Writer(), "[report] ", log.LstdFlags|log.Lshortfile),
		states:      make(map[string]*userState),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stream returns the stream the dispatcher serves.
func (d *Dispatcher) Stream() Stream {
	return d.stream
}

// Check is the scheduled path: it sends only inside the window and when the marker does
// not already hold the current week key.
func (d *Dispatcher) Check(ctx context.Context, user domain.User, now time.Time) error {
	if !user.ReceivesWeeklyReports() {
		return ErrOptedOut
	}
	if !d.stream.Window.Contains(now) {
		return ErrNotDue
	}
	return d.run(ctx, user, now)
}

// Dispatch is the on-demand path used for retries. It ignores the window but still
// refuses to send twice in a week.
func (d *Dispatcher) Dispatch(ctx context.Context, user domain.User, now time.Time) error {
	if !user.ReceivesWeeklyReports() {
		return ErrOptedOut
	}
	return d.run(ctx, user, now)
}

// Status returns the user's current state, resetting sent/error to idle once ResetAfter has elapsed.
func (d *Dispatcher) Status(userID string, now time.Time) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.stateLocked(userID, now)
	return Status{Stream: d.stream.Name, State: st.state, Since: st.since, LastError: st.lastError}
}

// Marker returns the stored last-sent marker for the user, "" when none.
func (d *Dispatcher) Marker(ctx context.Context, userID string) (string, error) {
	return d.markers.Get(ctx, d.stream.Key(userID))
}

func (d *Dispatcher) stateLocked(userID string, now time.Time) *userState {
	st, ok := d.states[userID]
	if !ok {
		st = &userState{state: StateIdle}
		d.states[userID] = st
	}
	if (st.state == StateSent || st.state == StateError) && !now.Before(st.since.Add(d.stream.ResetAfter)) {
		st.state = StateIdle
		st.since = now
		st.lastError = ""
	}
	return st
}

func (d *Dispatcher) transition(userID string, to State, now time.Time, cause error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.stateLocked(userID, now)
	st.state = to
	st.since = now
	st.lastError = ""
	if cause != nil {
		st.lastError = cause.Error()
	}
}

func (d *Dispatcher) begin(userID string, now time.Time) (userState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.stateLocked(userID, now)
	previous := *st
	if st.state == StateAnalyzing || st.state == StateSending {
		return previous, ErrInProgress
	}
	st.state = StateAnalyzing
	st.since = now
	st.lastError = ""
	return previous, nil
}

// restore puts back the state seen by begin when a dispatch turned out to be a no-op.
func (d *Dispatcher) restore(userID string, previous userState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.states[userID]; ok {
		*st = previous
	}
}

func (d *Dispatcher) run(ctx context.Context, user domain.User, now time.Time) error {
	key := d.stream.Key(user.ID)
	weekKey := d.keyer.Key(now)

	// Cheap pre-check so a stream already sent this week never leaves idle.
	if marker, err := d.markers.Get(ctx, key); err != nil {
		d.logger.Printf("read marker %s: %v", key, err)
	} else if marker == weekKey {
		recordOutcome(d.stream.Name, outcomeSkipped)
		return ErrAlreadySent
	}

	previous, err := d.begin(user.ID, now)
	if err != nil {
		return err
	}

	started := time.Now()
	var delivered domain.WeeklyReport
	err = d.markers.Update(ctx, key, func(ctx context.Context, current string) (string, error) {
		if current == weekKey {
			return "", ErrAlreadySent
		}
		week := d.weeks.Week(ctx, user.ID, weekly.WeekStart(now, d.firstDay))
		report := d.buildReport(user, week, now)

		d.transition(user.ID, StateSending, now, nil)
		if err := d.send(ctx, report); err != nil {
			return "", err
		}
		delivered = report
		return weekKey, nil
	})

	switch {
	case err == nil:
		d.transition(user.ID, StateSent, now, nil)
		recordSent(d.stream.Name, started, time.Now())
		d.afterSend(ctx, delivered, now)
		return nil
	case errors.Is(err, ErrAlreadySent):
		d.restore(user.ID, previous)
		recordOutcome(d.stream.Name, outcomeSkipped)
		return err
	case errors.Is(err, domain.ErrMarkerBusy):
		d.restore(user.ID, previous)
		recordOutcome(d.stream.Name, outcomeSkipped)
		return fmt.Errorf("%w: %w", ErrInProgress, err)
	default:
		d.transition(user.ID, StateError, now, err)
		recordOutcome(d.stream.Name, outcomeFailed)
		d.logger.Printf("stream=%s user=%s week=%s: %v", d.stream.Name, user.ID, weekKey, err)
		return err
	}
}

// send bounds the delivery with the send timeout even if the sender ignores its context.
func (d *Dispatcher) send(ctx context.Context, report domain.WeeklyReport) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.sender.Send(sendCtx, report)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrSendTimeout, err)
		}
		if err != nil {
			return fmt.Errorf("send report: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrSendTimeout, d.sendTimeout)
		}
		return sendCtx.Err()
	}
}

func (d *Dispatcher) buildReport(user domain.User, week weekly.Week, now time.Time) domain.WeeklyReport {
	year, number := d.keyer.Number(now)
	report := domain.WeeklyReport{
		Stream:     d.stream.Name,
		Variant:    d.stream.Variant,
		UserID:     user.ID,
		Email:      user.Email,
		Name:       displayName(user),
		WeekKey:    d.keyer.Key(now),
		WeekNumber: number,
		Year:       year,
		WeekStart:  week.Start,
		Summary:    week.Summary,
		Activities: week.Activities,
		FocusArea:  insight.FocusArea(week.Summary),
	}

	switch d.stream.Variant {
	case domain.ReportVariantAI:
		bundle := insight.Generate(week.Summary)
		report.Insights = &bundle
		report.NextWeekGoals = insight.CoachGoals(week.Summary, bundle.WeeklyScore)
	default:
		plain := insight.GenerateWith(insight.Plain, week.Summary)
		report.ConsistencyMessage = plain.ConsistencyInsight
		report.PerformanceInsight = plain.PerformanceInsight
		report.NextWeekGoals = insight.NextWeekGoals(week.Summary)
	}
	return report
}

func displayName(user domain.User) string {
	if name := user.FullName(); name != "" {
		return name
	}
	return user.Email
}

// afterSend publishes follow-up signals. Their failures never undo a delivered report.
func (d *Dispatcher) afterSend(ctx context.Context, report domain.WeeklyReport, now time.Time) {
	if d.publisher != nil {
		payload := events.ReportSent{
			Stream:        report.Stream,
			Variant:       string(report.Variant),
			UserID:        report.UserID,
			WeekKey:       report.WeekKey,
			TotalWorkouts: report.Summary.TotalWorkouts,
			ActiveDays:    report.Summary.ActiveDays,
			SentAt:        now.UTC(),
		}
		if report.Insights != nil {
			payload.WeeklyScore = report.Insights.WeeklyScore
		}
		envelope, err := events.NewEnvelope(events.TypeReportSent, report.UserID, report.UserID, payload)
		if err == nil {
			err = d.publisher.Publish(ctx, envelope)
		}
		if err != nil {
			d.logger.Printf("publish report.sent for user=%s: %v", report.UserID, err)
		}
	}

	if d.notifier != nil {
		title := "Weekly Summary Sent"
		if report.Variant == domain.ReportVariantAI {
			title = "AI Weekly Summary Sent"
		}
		n := domain.Notification{
			UserID:   report.UserID,
			Title:    title,
			Message:  fmt.Sprintf("Your summary for week %d is on its way to %s.", report.WeekNumber, report.Email),
			Category: domain.CategoryReport,
		}
		if err := d.notifier.Notify(ctx, n); err != nil {
			d.logger.Printf("notify report for user=%s: %v", report.UserID, err)
		}
	}
}
