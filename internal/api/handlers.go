// Package api exposes HTTP handlers for the fittrack service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"example.com/fittrack/internal/auth"
	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/report"
	"example.com/fittrack/internal/weekly"
)

// WeekLoader loads and summarises one user's week.
type WeekLoader interface {
	Week(ctx context.Context, userID string, weekStart time.Time) weekly.Week
}

// ReportDispatchers resolves the dispatcher of a report stream.
type ReportDispatchers interface {
	Dispatcher(stream string) (*report.Dispatcher, error)
}

// NotificationStream upgrades a request into a live notification feed for the user.
type NotificationStream interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithWeeks overrides the week loader. Defaults to an aggregator over the service.
func WithWeeks(weeks WeekLoader) Option {
	return func(h *Handler) {
		h.weeks = weeks
	}
}

// WithReports enables the /v1/reports endpoints.
func WithReports(reports ReportDispatchers) Option {
	return func(h *Handler) {
		h.reports = reports
	}
}

// WithNotificationStream enables the websocket feed.
func WithNotificationStream(stream NotificationStream) Option {
	return func(h *Handler) {
		h.stream = stream
	}
}

// WithCalendar sets the zone, first weekday and week numbering used for "this week".
func WithCalendar(loc *time.Location, firstDay time.Weekday, keyer weekly.Keyer) Option {
	return func(h *Handler) {
		if loc != nil {
			h.location = loc
		}
		h.firstDay = firstDay
		if keyer != nil {
			h.keyer = keyer
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service  *domain.Service
	weeks    WeekLoader
	reports  ReportDispatchers
	stream   NotificationStream
	location *time.Location
	firstDay time.Weekday
	keyer    weekly.Keyer
	now      func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, opts ...Option) *Handler {
	h := &Handler{
		service:  service,
		location: time.Local,
		firstDay: time.Sunday,
		keyer:    weekly.ISOKeyer{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.weeks == nil {
		h.weeks = weekly.NewAggregator(service)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", healthz)

	mux.HandleFunc("POST /v1/activities", h.createActivity)
	mux.HandleFunc("GET /v1/activities", h.listActivities)
	mux.HandleFunc("GET /v1/activities/stats", h.activityStats)
	mux.HandleFunc("GET /v1/weekly/summary", h.weeklySummary)

	mux.HandleFunc("POST /v1/users", h.createUser)
	mux.HandleFunc("GET /v1/users", h.findUser)
	mux.HandleFunc("GET /v1/users/{id}", h.getUser)
	mux.HandleFunc("PATCH /v1/users/{id}", h.updateUser)

	mux.HandleFunc("GET /v1/reminders", h.listReminders)
	mux.HandleFunc("POST /v1/reminders", h.createReminder)
	mux.HandleFunc("PUT /v1/reminders/{id}", h.updateReminder)
	mux.HandleFunc("DELETE /v1/reminders/{id}", h.deleteReminder)
	mux.HandleFunc("POST /v1/reminders/{id}/toggle", h.toggleReminder)

	mux.HandleFunc("GET /v1/notifications", h.listNotifications)
	mux.HandleFunc("POST /v1/notifications/{id}/read", h.markNotificationRead)
	mux.HandleFunc("POST /v1/notifications/read-all", h.markAllNotificationsRead)
	mux.HandleFunc("GET /v1/notifications/stream", h.notificationStream)

	mux.HandleFunc("GET /v1/reports/{stream}/status", h.reportStatus)
	mux.HandleFunc("POST /v1/reports/{stream}/send", h.sendReport)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// subject returns the caller's claims, writing a 401 when there are none. The token
// subject is the user id every /v1 resource is scoped to.
func subject(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	return claims, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

// writeDomainError maps service errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Detail)
	case errors.Is(err, domain.ErrActivityNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrReminderNotFound),
		errors.Is(err, domain.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrActivityExists),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrUserExists):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
