package domain

import "time"

// WeeklySummary is derived from a week of activities and never persisted.
type WeeklySummary struct {
	TotalWorkouts         int
	TotalDuration         int
	TotalCalories         int
	TotalDistance         float64
	ActiveDays            int
	ConsistencyPercentage int
}

// InsightBundle holds the narrative strings and score computed from a summary.
type InsightBundle struct {
	ConsistencyInsight  string
	PerformanceInsight  string
	MotivationalMessage string
	WeeklyScore         float64
}

// ReportVariant selects the template family a weekly report is rendered with.
type ReportVariant string

const (
	ReportVariantPlain ReportVariant = "plain"
	ReportVariantAI    ReportVariant = "ai"
)

// WeeklyReport is the payload handed to an email delivery collaborator.
type WeeklyReport struct {
	Stream     string
	Variant    ReportVariant
	UserID     string
	Email      string
	Name       string
	WeekKey    string
	WeekNumber int
	Year       int
	WeekStart  time.Time
	Summary    WeeklySummary
	Activities []Activity
	// Insights is set for the AI variant only.
	Insights *InsightBundle
	// Plain variant copy.
	ConsistencyMessage string
	PerformanceInsight string
	NextWeekGoals      string
	FocusArea          string
}
