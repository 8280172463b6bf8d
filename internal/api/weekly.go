package api

import (
	"net/http"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/insight"
	"example.com/fittrack/internal/weekly"
)

// WeeklySummaryView mirrors domain.WeeklySummary.
type WeeklySummaryView struct {
	TotalWorkouts         int     `json:"total_workouts"`
	TotalDuration         int     `json:"total_duration"`
	TotalCalories         int     `json:"total_calories"`
	TotalDistance         float64 `json:"total_distance"`
	ActiveDays            int     `json:"active_days"`
	ConsistencyPercentage int     `json:"consistency_percentage"`
	AverageDuration       float64 `json:"average_duration"`
}

// InsightsView carries the coach insight bundle.
type InsightsView struct {
	ConsistencyInsight  string  `json:"consistency_insight"`
	PerformanceInsight  string  `json:"performance_insight"`
	MotivationalMessage string  `json:"motivational_message"`
	WeeklyScore         float64 `json:"weekly_score"`
}

// WeeklySummaryResponse is returned by GET /v1/weekly/summary.
type WeeklySummaryResponse struct {
	WeekStart          string            `json:"week_start"`
	WeekEnd            string            `json:"week_end"`
	Summary            WeeklySummaryView `json:"summary"`
	Insights           InsightsView      `json:"insights"`
	ConsistencyMessage string            `json:"consistency_message"`
	FocusArea          string            `json:"focus_area"`
	NextWeekGoals      string            `json:"next_week_goals"`
	CoachGoals         string            `json:"coach_goals"`
	Activities         []ActivityView    `json:"activities"`
}

func (h *Handler) weeklySummary(w http.ResponseWriter, r *http.Request) {
	claims, ok := subject(w, r)
	if !ok {
		return
	}
	if !canReadActivities(claims) {
		writeError(w, http.StatusForbidden, "forbidden", "scope activities:read required")
		return
	}

	start := weekly.WeekStart(h.now().In(h.location), h.firstDay)
	if raw := r.URL.Query().Get("week_start"); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		start = parsed
	}

	week := h.weeks.Week(r.Context(), claims.Subject, start)
	bundle := insight.Generate(week.Summary)
	plain := insight.GenerateWith(insight.Plain, week.Summary)

	resp := WeeklySummaryResponse{
		WeekStart: week.Start.Format(domain.DateLayout),
		WeekEnd:   week.End.Format(domain.DateLayout),
		Summary: WeeklySummaryView{
			TotalWorkouts:         week.Summary.TotalWorkouts,
			TotalDuration:         week.Summary.TotalDuration,
			TotalCalories:         week.Summary.TotalCalories,
			TotalDistance:         week.Summary.TotalDistance,
			ActiveDays:            week.Summary.ActiveDays,
			ConsistencyPercentage: week.Summary.ConsistencyPercentage,
			AverageDuration:       insight.AverageDuration(week.Summary),
		},
		Insights: InsightsView{
			ConsistencyInsight:  bundle.ConsistencyInsight,
			PerformanceInsight:  bundle.PerformanceInsight,
			MotivationalMessage: bundle.MotivationalMessage,
			WeeklyScore:         bundle.WeeklyScore,
		},
		ConsistencyMessage: plain.ConsistencyInsight,
		FocusArea:          insight.FocusArea(week.Summary),
		NextWeekGoals:      insight.NextWeekGoals(week.Summary),
		CoachGoals:         insight.CoachGoals(week.Summary, bundle.WeeklyScore),
		Activities:         make([]ActivityView, 0, len(week.Activities)),
	}
	for _, a := range week.Activities {
		resp.Activities = append(resp.Activities, toActivityView(a))
	}
	writeJSON(w, http.StatusOK, resp)
}
