package email

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"example.com/fittrack/internal/domain"
)

var rule = strings.Repeat("=", 50)

// LogSender writes the report to a logger instead of mailing it. Used in development.
type LogSender struct {
	logger *log.Logger
}

// NewLogSender constructs a LogSender writing to w, or the default log output when nil.
func NewLogSender(w io.Writer) *LogSender {
	if w == nil {
		w = log.Writer()
	}
	return &LogSender{logger: log.New(w, "", 0)}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, report domain.WeeklyReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Print(Render(report))
	deliveries.WithLabelValues(transportLog, resultOK).Inc()
	return nil
}

// Render is the console form of a report.
func Render(report domain.WeeklyReport) string {
	s := report.Summary
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("📧 WEEKLY EMAIL REPORT 📧")
	line(rule)
	line("To: %s", report.Email)
	line("Name: %s", report.Name)
	line(rule)
	line("📊 WEEKLY STATS:")
	line("• Total Workouts: %d", s.TotalWorkouts)
	line("• Total Duration: %dh %dm", s.TotalDuration/60, s.TotalDuration%60)
	line("• Total Calories: %s", FormatNumber(s.TotalCalories))
	line("• Total Distance: %.1f km", s.TotalDistance)
	line("• Workout Days: %d/7", s.ActiveDays)
	line("• Consistency: %d%%", s.ConsistencyPercentage)
	line(rule)
	if report.Insights != nil {
		line("🤖 AI INSIGHTS:")
		line("• Consistency: %s", report.Insights.ConsistencyInsight)
		line("• Performance: %s", report.Insights.PerformanceInsight)
		line("• Motivation: %s", report.Insights.MotivationalMessage)
		line("• Weekly Score: %d/100", int(math.Round(report.Insights.WeeklyScore)))
	} else {
		line("💡 INSIGHTS:")
		line("• %s", report.ConsistencyMessage)
		line("• %s", report.PerformanceInsight)
	}
	line(rule)
	line("📅 ACTIVITIES THIS WEEK:")
	for _, a := range report.Activities {
		line("• %s on %s: %dmin%s (%d cal)", a.Kind.Title(), a.Date.Format(activityDateLayout), a.DurationMin, distanceSuffix(a), a.Calories)
	}
	line(rule)
	return b.String()
}
