package period

import (
	"fmt"
	"strings"
	"time"
)

// Window is a closed interval [Start, End]; End is the last instant of the period.
type Window struct {
	Token Token     `json:"token,omitempty"`
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsUnbounded reports whether the window accepts every date.
func (w Window) IsUnbounded() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t lies in [Start, End]. Zero bounds are open.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Months returns the first instant of every calendar month the window touches.
func (w Window) Months() []time.Time {
	if w.IsUnbounded() {
		return nil
	}
	return MonthsBetween(w.Start, w.End)
}

// StartOfDay normalizes a timestamp to 00:00:00 of its day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay normalizes a timestamp to the last nanosecond of its day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// MonthStart normalizes a timestamp to the first instant of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// MonthEnd returns the last nanosecond of t's month.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// SubMonths moves t back n calendar months, clamping the day to the length of
// the target month (May 31 minus 3 months is Feb 29 in a leap year).
func SubMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, -n, 0)
	day := t.Day()
	if last := daysIn(target); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// MonthKey returns the stable bucket key of t's month ("2024-02").
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// MonthsBetween returns the month starts from a's month through b's month inclusive.
func MonthsBetween(a, b time.Time) []time.Time {
	if b.Before(a) {
		a, b = b, a
	}
	var months []time.Time
	end := MonthStart(b)
	for cur := MonthStart(a); !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		months = append(months, cur)
	}
	return months
}

// DaysBetween returns whole days from a to b, truncated toward zero.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Labeler renders month bucket labels ("Jan 24").
type Labeler struct {
	Names []string
}

// Label returns the short month name followed by the two-digit year.
func (l Labeler) Label(t time.Time) string {
	if len(l.Names) == 12 {
		return fmt.Sprintf("%s %s", l.Names[int(t.Month())-1], t.Format("06"))
	}
	return t.Format("Jan 06")
}

// ParseMonth parses a "YYYY-MM" selector in loc.
func ParseMonth(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", s, err)
	}
	return t, nil
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
