package insight

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"example.com/fittrack/internal/domain"
)

var printer = message.NewPrinter(language.English)

var focusAreas = []struct {
	match   func(domain.WeeklySummary) bool
	message string
}{
	{func(s domain.WeeklySummary) bool { return s.ConsistencyPercentage < 50 }, "Build consistency - aim for regular workout schedule"},
	{func(s domain.WeeklySummary) bool { return AverageDuration(s) < 30 }, "Increase workout duration for better results"},
	{func(s domain.WeeklySummary) bool { return s.TotalCalories < 1500 }, "Boost intensity to maximize calorie burn"},
	{func(domain.WeeklySummary) bool { return true }, "Maintain excellence and push new boundaries"},
}

// FocusArea names the single thing to work on next week.
func FocusArea(s domain.WeeklySummary) string {
	for _, area := range focusAreas {
		if area.match(s) {
			return area.message
		}
	}
	return ""
}

// NextWeekGoals renders the target block of the plain weekly report.
func NextWeekGoals(s domain.WeeklySummary) string {
	lines := []string{
		fmt.Sprintf("🎯 Target: %d workout days", max(s.ActiveDays+1, 5)),
		fmt.Sprintf("⏱️ Duration: %s total", FormatDuration(max(s.TotalDuration+60, 300))),
		fmt.Sprintf("🔥 Calories: %s calories", FormatNumber(max(s.TotalCalories+500, 2000))),
		fmt.Sprintf("📈 Consistency: Beat %d%%", s.ConsistencyPercentage),
	}
	return strings.Join(lines, "\n")
}

// CoachGoals renders the target block of the AI weekly report.
func CoachGoals(s domain.WeeklySummary, score float64) string {
	lines := []string{
		"🎯 AI Recommended Targets:",
		fmt.Sprintf("📅 Workout Days: %d days (consistency is key!)", min(7, max(s.ActiveDays+1, 5))),
		fmt.Sprintf("⏱️ Total Duration: %s ", FormatDuration(max(s.TotalDuration+90, 350))),
		fmt.Sprintf("🔥 Calories: %s calories", FormatNumber(max(s.TotalCalories+750, 2500))),
		fmt.Sprintf("🏆 Performance Score: %d/100", int(math.Round(math.Min(MaxScore, score+15)))),
		fmt.Sprintf("💪 Focus: %s", FocusArea(s)),
	}
	return strings.Join(lines, "\n")
}

// FormatDuration renders minutes as "2h 15m", or "45m" below an hour.
func FormatDuration(minutes int) string {
	hours, mins := minutes/60, minutes%60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// FormatNumber renders n with thousands separators, "2,500".
func FormatNumber(n int) string {
	return printer.Sprintf("%d", n)
}
