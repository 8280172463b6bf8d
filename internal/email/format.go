// Package email delivers weekly reports over EmailJS, Amazon SES or the process log.
package email

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"example.com/fittrack/internal/domain"
	"example.com/fittrack/internal/insight"
)

// Sender delivers one rendered weekly report.
type Sender interface {
	Send(ctx context.Context, report domain.WeeklyReport) error
}

// NoActivities replaces the activity list of an empty week.
const NoActivities = "No activities recorded this week"

const activityDateLayout = "Mon, Jan 2"

// FormatNumber renders n with thousands separators, "2,500".
func FormatNumber(n int) string {
	return insight.FormatNumber(n)
}

// FormatActivities renders one bullet per activity, e.g.
// "• Run on Mon, Mar 10: 45m - 8.2km (420 cal)".
func FormatActivities(activities []domain.Activity) string {
	if len(activities) == 0 {
		return NoActivities
	}
	lines := make([]string, 0, len(activities))
	for _, a := range activities {
		lines = append(lines, fmt.Sprintf("• %s on %s: %s%s (%d cal)",
			a.Kind.Title(),
			a.Date.Format(activityDateLayout),
			insight.FormatDuration(a.DurationMin),
			distanceSuffix(a),
			a.Calories,
		))
	}
	return strings.Join(lines, "\n")
}

func distanceSuffix(a domain.Activity) string {
	if a.DistanceKm == nil || *a.DistanceKm == 0 {
		return ""
	}
	return " - " + strconv.FormatFloat(*a.DistanceKm, 'f', -1, 64) + "km"
}

// Subject is the mail subject line of a report.
func Subject(report domain.WeeklyReport) string {
	if report.Variant == domain.ReportVariantAI {
		return fmt.Sprintf("🤖 AI Weekly Summary: %d%% Consistency - Week %d", report.Summary.ConsistencyPercentage, report.WeekNumber)
	}
	return fmt.Sprintf("📊 Weekly Summary - Week %d", report.WeekNumber)
}

// TemplateParams builds the template variables of a report. The AI variant carries the
// insight bundle and subject; the plain variant carries its fixed consistency and
// performance copy.
func TemplateParams(report domain.WeeklyReport) map[string]any {
	s := report.Summary
	params := map[string]any{
		"to_email":               report.Email,
		"to_name":                report.Name,
		"week_number":            report.WeekNumber,
		"year":                   report.Year,
		"total_workouts":         s.TotalWorkouts,
		"total_duration":         insight.FormatDuration(s.TotalDuration),
		"total_calories":         FormatNumber(s.TotalCalories),
		"workout_days":           s.ActiveDays,
		"consistency_percentage": s.ConsistencyPercentage,
		"activities_list":        FormatActivities(report.Activities),
		"next_week_goals":        report.NextWeekGoals,
	}

	if report.Variant == domain.ReportVariantAI {
		var bundle domain.InsightBundle
		if report.Insights != nil {
			bundle = *report.Insights
		}
		params["weekly_score"] = bundle.WeeklyScore
		params["ai_consistency_insight"] = bundle.ConsistencyInsight
		params["ai_performance_insight"] = bundle.PerformanceInsight
		params["ai_motivational_message"] = bundle.MotivationalMessage
		params["email_subject"] = Subject(report)
		return params
	}

	params["consistency_message"] = report.ConsistencyMessage
	params["performance_insight"] = report.PerformanceInsight
	return params
}

// Body renders a report as plain text. Used by senders without a hosted template.
func Body(report domain.WeeklyReport) string {
	s := report.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", report.Name)
	fmt.Fprintf(&b, "Here is your summary for week %d of %d.\n\n", report.WeekNumber, report.Year)
	fmt.Fprintf(&b, "Workouts: %d\n", s.TotalWorkouts)
	fmt.Fprintf(&b, "Duration: %s\n", insight.FormatDuration(s.TotalDuration))
	fmt.Fprintf(&b, "Calories: %s\n", FormatNumber(s.TotalCalories))
	fmt.Fprintf(&b, "Workout days: %d/7 (%d%%)\n\n", s.ActiveDays, s.ConsistencyPercentage)

	if report.Insights != nil {
		fmt.Fprintf(&b, "%s\n%s\n%s\n", report.Insights.ConsistencyInsight, report.Insights.PerformanceInsight, report.Insights.MotivationalMessage)
		fmt.Fprintf(&b, "Weekly score: %d/100\n\n", roundScore(report.Insights.WeeklyScore))
	} else {
		fmt.Fprintf(&b, "%s\n%s\n\n", report.ConsistencyMessage, report.PerformanceInsight)
	}

	fmt.Fprintf(&b, "Activities:\n%s\n\n", FormatActivities(report.Activities))
	fmt.Fprintf(&b, "Next week:\n%s\n", report.NextWeekGoals)
	return b.String()
}

func roundScore(score float64) int {
	return int(math.Round(score))
}
