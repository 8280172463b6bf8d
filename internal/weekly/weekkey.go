package weekly

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Keyer derives the week identifier stored in last-sent markers. Two dates share a key
// exactly when they fall into the same reporting week.
type Keyer interface {
	Key(t time.Time) string
	// Number returns the year and week number the key is built from.
	Number(t time.Time) (year, week int)
}

// ISOKeyer numbers weeks per ISO-8601 ("2025-W07").
type ISOKeyer struct{}

// Key implements Keyer.
func (ISOKeyer) Key(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Number implements Keyer.
func (ISOKeyer) Number(t time.Time) (int, int) {
	return t.ISOWeek()
}

// LegacyKeyer reproduces the week numbering of the first release of the app so that markers
// it wrote ("2025-W7") keep matching: ceil((daysSinceJan1 + weekday(Jan 1) + 1) / 7),
// where daysSinceJan1 includes the fraction of the current day.
type LegacyKeyer struct{}

// Key implements Keyer.
func (k LegacyKeyer) Key(t time.Time) string {
	year, week := k.Number(t)
	return fmt.Sprintf("%d-W%d", year, week)
}

// Number implements Keyer.
func (LegacyKeyer) Number(t time.Time) (int, int) {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	pastDays := float64(t.Sub(jan1)) / float64(24*time.Hour)
	return t.Year(), int(math.Ceil((pastDays + float64(jan1.Weekday()) + 1) / DaysPerWeek))
}

// KeyerFor selects a Keyer by configuration name.
func KeyerFor(name string) (Keyer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "iso":
		return ISOKeyer{}, nil
	case "legacy":
		return LegacyKeyer{}, nil
	default:
		return nil, fmt.Errorf("unknown week numbering %q", name)
	}
}
