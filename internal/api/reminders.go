package api

import (
	"net/http"
	"time"

	"example.com/fittrack/internal/domain"
)

// ReminderRequest is the payload for creating or replacing a reminder.
type ReminderRequest struct {
	Title        string   `json:"title"`
	ActivityType string   `json:"activity_type"`
	Time         string   `json:"time"`
	Days         []string `json:"days"`
}

// ReminderView is the public shape of a reminder rule.
type ReminderView struct {
	ReminderID   string    `json:"reminder_id"`
	Title        string    `json:"title"`
	ActivityType string    `json:"activity_type"`
	Time         string    `json:"time"`
	Days         []string  `json:"days"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListRemindersResponse packages the caller's reminders.
type ListRemindersResponse struct {
	Items []ReminderView `json:"items"`
}

func (h *Handler) listReminders(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	rules, err := h.service.ListReminders(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := ListRemindersResponse{Items: make([]ReminderView, 0, len(rules))}
	for _, rule := range rules {
		resp.Items = append(resp.Items, toReminderView(rule))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createReminder(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	var req ReminderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rule, err := h.service.CreateReminder(r.Context(), req.input(claims.Subject))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReminderView(*rule))
}

func (h *Handler) updateReminder(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	var req ReminderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rule, err := h.service.UpdateReminder(r.Context(), r.PathValue("id"), req.input(claims.Subject))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReminderView(*rule))
}

func (h *Handler) deleteReminder(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteReminder(r.Context(), claims.Subject, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggleReminder(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	rule, err := h.service.ToggleReminder(r.Context(), claims.Subject, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReminderView(*rule))
}

func (req ReminderRequest) input(userID string) domain.ReminderInput {
	return domain.ReminderInput{
		UserID:       userID,
		Title:        req.Title,
		ActivityKind: req.ActivityType,
		TimeOfDay:    req.Time,
		Days:         req.Days,
	}
}

func toReminderView(rule domain.ReminderRule) ReminderView {
	return ReminderView{
		ReminderID:   rule.ID,
		Title:        rule.Title,
		ActivityType: rule.ActivityKind,
		Time:         rule.TimeOfDay,
		Days:         rule.DayNames(),
		Active:       rule.Active,
		CreatedAt:    rule.CreatedAt,
	}
}
