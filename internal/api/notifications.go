package api

import (
	"net/http"
	"strconv"

	"example.com/fittrack/internal/notify"
)

// ListNotificationsResponse packages the caller's newest notifications.
type ListNotificationsResponse struct {
	Items       []notify.Message `json:"items"`
	UnreadCount int              `json:"unread_count"`
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items, err := h.service.ListNotifications(r.Context(), claims.Subject, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	unread, err := h.service.UnreadCount(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := ListNotificationsResponse{Items: make([]notify.Message, 0, len(items)), UnreadCount: unread}
	for _, n := range items {
		resp.Items = append(resp.Items, notify.NewMessage(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkNotificationRead(r.Context(), claims.Subject, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	changed, err := h.service.MarkAllNotificationsRead(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked_read": changed})
}

func (h *Handler) notificationStream(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	if h.stream == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "live notifications are disabled")
		return
	}
	h.stream.Serve(w, r, claims.Subject)
}
