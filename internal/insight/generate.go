package insight

import (
	"math"

	"example.com/fittrack/internal/domain"
)

// MaxScore caps the weekly score.
const MaxScore = 100

// Generate builds the coach insight bundle for a summary.
func Generate(s domain.WeeklySummary) domain.InsightBundle {
	return GenerateWith(Coach, s)
}

// GenerateWith builds an insight bundle using the given catalog.
func GenerateWith(c Catalog, s domain.WeeklySummary) domain.InsightBundle {
	f := FactsOf(s)
	return domain.InsightBundle{
		ConsistencyInsight:  c.Consistency.Select(f),
		PerformanceInsight:  c.Performance.Select(f),
		MotivationalMessage: c.Motivation.Select(f),
		WeeklyScore:         Score(s),
	}
}

// Score is min(100, activeDays*15 + totalDuration/10 + totalCalories/50), unrounded.
func Score(s domain.WeeklySummary) float64 {
	raw := float64(s.ActiveDays)*15 + float64(s.TotalDuration)/10 + float64(s.TotalCalories)/50
	return math.Min(MaxScore, raw)
}

// AverageDuration is minutes per workout, 0 for an empty week.
func AverageDuration(s domain.WeeklySummary) float64 {
	if s.TotalWorkouts == 0 {
		return 0
	}
	return float64(s.TotalDuration) / float64(s.TotalWorkouts)
}
