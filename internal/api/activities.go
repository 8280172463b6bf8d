package api

import (
	"net/http"
	"strconv"
	"time"

	"example.com/fittrack/internal/auth"
	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/observability"
	"example.com/fittrack/internal/persistence"
)

// CreateActivityRequest is the payload for POST /v1/activities.
type CreateActivityRequest struct {
	ActivityType string   `json:"activity_type"`
	Title        string   `json:"title"`
	DurationMin  int      `json:"duration_min"`
	DistanceKm   *float64 `json:"distance_km,omitempty"`
	Calories     int      `json:"calories"`
	Date         string   `json:"date"`
}

// ActivityView exposes full details about an activity.
type ActivityView struct {
	ActivityID   string    `json:"activity_id"`
	UserID       string    `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	Title        string    `json:"title"`
	DurationMin  int       `json:"duration_min"`
	DistanceKm   *float64  `json:"distance_km,omitempty"`
	Calories     int       `json:"calories"`
	Date         string    `json:"date"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ActivityStatsResponse is the all-time aggregate of a user.
type ActivityStatsResponse struct {
	TotalActivities int     `json:"total_activities"`
	TotalDuration   int     `json:"total_duration"`
	TotalDistance   float64 `json:"total_distance"`
	TotalCalories   int     `json:"total_calories"`
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	if !claims.HasScope(auth.ScopeActivitiesWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope activities:write required")
		return
	}

	var req CreateActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var date time.Time
	if req.Date != "" {
		parsed, err := domain.ParseDate(req.Date)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		date = parsed
	} else {
		date = h.now().In(h.location)
	}

	activity, err := h.service.CreateActivity(r.Context(), domain.CreateActivityInput{
		UserID:      claims.Subject,
		Kind:        req.ActivityType,
		Title:       req.Title,
		DurationMin: req.DurationMin,
		DistanceKm:  req.DistanceKm,
		Calories:    req.Calories,
		Date:        date,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.RecordActivityRecorded(activity.CreatedAt)
	writeJSON(w, http.StatusCreated, toActivityView(*activity))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	if !canReadActivities(claims) {
		writeError(w, http.StatusForbidden, "forbidden", "scope activities:read required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	activities, next, err := h.service.ListActivities(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		items = append(items, toActivityView(a))
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) activityStats(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	if !canReadActivities(claims) {
		writeError(w, http.StatusForbidden, "forbidden", "scope activities:read required")
		return
	}

	stats, err := h.service.ActivityStats(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityStatsResponse{
		TotalActivities: stats.TotalActivities,
		TotalDuration:   stats.TotalDuration,
		TotalDistance:   stats.TotalDistance,
		TotalCalories:   stats.TotalCalories,
	})
}

func canReadActivities(claims *auth.Claims) bool {
	return claims.HasScope(auth.ScopeActivitiesRead) || claims.HasScope(auth.ScopeActivitiesWrite)
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ActivityID:   a.ID,
		UserID:       a.UserID,
		ActivityType: string(a.Kind),
		Title:        a.Title,
		DurationMin:  a.DurationMin,
		DistanceKm:   a.DistanceKm,
		Calories:     a.Calories,
		Date:         a.DateKey(),
		CreatedAt:    a.CreatedAt,
	}
}
