package api

import (
	"errors"
	"net/http"
	"time"

	"example.com/fittrack/internal/report"
)

// ReportStatusResponse describes a report stream for the caller.
type ReportStatusResponse struct {
	Stream       string    `json:"stream"`
	State        string    `json:"state"`
	Since        time.Time `json:"since,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
	LastSentWeek string    `json:"last_sent_week,omitempty"`
	CurrentWeek  string    `json:"current_week"`
	Due          bool      `json:"due"`
	NextSendAt   time.Time `json:"next_send_at"`
	NextSendIn   string    `json:"next_send_in"`
}

func (h *Handler) reportStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	dispatcher, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.reportStatusFor(r, dispatcher, claims.Subject))
}

// sendReport is the on-demand retry: it ignores the send window but never sends a
// stream twice in one week.
func (h *Handler) sendReport(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	dispatcher, ok := h.dispatcher(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	err = dispatcher.Dispatch(r.Context(), *user, h.now().In(h.location))
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, h.reportStatusFor(r, dispatcher, user.ID))
	case errors.Is(err, report.ErrOptedOut):
		writeError(w, http.StatusConflict, "opted_out", err.Error())
	case errors.Is(err, report.ErrAlreadySent):
		writeError(w, http.StatusConflict, "already_sent", err.Error())
	case errors.Is(err, report.ErrInProgress):
		writeError(w, http.StatusConflict, "in_progress", err.Error())
	default:
		writeError(w, http.StatusBadGateway, "delivery_failed", err.Error())
	}
}

func (h *Handler) dispatcher(w http.ResponseWriter, r *http.Request) (*report.Dispatcher, bool) {
	if h.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "reports are disabled")
		return nil, false
	}
	d, err := h.reports.Dispatcher(r.PathValue("stream"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return nil, false
	}
	return d, true
}

func (h *Handler) reportStatusFor(r *http.Request, d *report.Dispatcher, userID string) ReportStatusResponse {
	now := h.now().In(h.location)
	status := d.Status(userID, now)
	window := d.Stream().Window
	next := report.NextSendTime(now, window)

	resp := ReportStatusResponse{
		Stream:      status.Stream,
		State:       string(status.State),
		Since:       status.Since,
		LastError:   status.LastError,
		CurrentWeek: h.keyer.Key(now),
		NextSendAt:  next,
		NextSendIn:  report.Countdown(now, next),
	}
	// An unreadable marker reads as absent.
	if marker, err := d.Marker(r.Context(), userID); err == nil {
		resp.LastSentWeek = marker
	}
	resp.Due = report.IsDue(now, window, resp.LastSentWeek, h.keyer)
	return resp
}
