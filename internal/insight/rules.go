// Package insight turns a weekly summary into coaching messages, a weekly score and
// next-week targets. Message selection is table driven: each table is an ordered list of
// rules and the first matching rule wins.
package insight

import "example.com/fittrack/internal/domain"

// Facts are the derived metrics the rule predicates look at.
type Facts struct {
	ActiveDays      int
	AverageDuration float64
	TotalCalories   int
}

// FactsOf derives Facts from a summary.
func FactsOf(s domain.WeeklySummary) Facts {
	return Facts{
		ActiveDays:      s.ActiveDays,
		AverageDuration: AverageDuration(s),
		TotalCalories:   s.TotalCalories,
	}
}

// Rule pairs a predicate with the message used when it matches.
type Rule struct {
	Match   func(Facts) bool
	Message string
}

// Table is an ordered rule list. The last rule should match everything.
type Table []Rule

// Select returns the message of the first matching rule, or "" when none match.
func (t Table) Select(f Facts) string {
	for _, rule := range t {
		if rule.Match(f) {
			return rule.Message
		}
	}
	return ""
}

// Catalog bundles the three tables used to build an InsightBundle.
type Catalog struct {
	Consistency Table
	Performance Table
	Motivation  Table
}

func activeDaysAtLeast(n int) func(Facts) bool {
	return func(f Facts) bool { return f.ActiveDays >= n }
}

func averageAbove(minutes float64) func(Facts) bool {
	return func(f Facts) bool { return f.AverageDuration > minutes }
}

func caloriesAbove(n int) func(Facts) bool {
	return func(f Facts) bool { return f.TotalCalories > n }
}

func always(Facts) bool { return true }
