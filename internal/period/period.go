// Package period resolves symbolic period selectors into concrete windows.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token is a symbolic period selector.
type Token string

const (
	LastMonth    Token = "last1month"
	Last3Months  Token = "last3months"
	Last6Months  Token = "last6months"
	ThisYear     Token = "thisYear"
	Last12Months Token = "last12months"
	AllTime      Token = "all"
	MonthToken   Token = "month"
	CustomToken  Token = "custom"

	DefaultToken = Last12Months
)

const monthLayoutLen = len("2006-01")

// Tokens lists the selectable tokens in display order.
var Tokens = []Token{LastMonth, Last3Months, Last6Months, ThisYear, Last12Months}

// Alignment controls how "last N months" picks its first day.
type Alignment string

const (
	// AlignRolling starts at the same day-of-month N months back.
	AlignRolling Alignment = "rolling"
	// AlignCalendar starts at the first day of the month N months back.
	AlignCalendar Alignment = "calendar"
)

// ParseAlignment maps a config value to an Alignment; unknown values are rolling.
func ParseAlignment(s string) Alignment {
	if Alignment(strings.ToLower(strings.TrimSpace(s))) == AlignCalendar {
		return AlignCalendar
	}
	return AlignRolling
}

// Options tune resolution.
type Options struct {
	Alignment Alignment
	// Labels overrides the label of a token.
	Labels map[string]string
}

// Resolve maps a token and a reference instant to a window. Unrecognized
// tokens fall back to the last 12 months.
func Resolve(token Token, now time.Time, opts Options) Window {
	end := EndOfDay(now)
	var w Window

	switch token {
	case LastMonth:
		w = Window{Token: token, Start: lookback(now, 1, opts.Alignment), End: end, Label: "Last 1 Month"}
	case Last3Months:
		w = Window{Token: token, Start: lookback(now, 3, opts.Alignment), End: end, Label: "Last 3 Months"}
	case Last6Months:
		w = Window{Token: token, Start: lookback(now, 6, opts.Alignment), End: end, Label: "Last 6 Months"}
	case ThisYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		w = Window{
			Token: token,
			Start: start,
			End:   time.Date(now.Year(), time.December, 31, 23, 59, 59, 999999999, now.Location()),
			Label: strconv.Itoa(now.Year()),
		}
	default:
		w = Window{Token: Last12Months, Start: lookback(now, 12, opts.Alignment), End: end, Label: "Last 12 Months"}
	}

	if l, ok := opts.Labels[string(w.Token)]; ok && l != "" {
		w.Label = l
	}
	return w
}

// Between builds a window from explicit dates. Reversed bounds are swapped.
func Between(from, to time.Time) Window {
	if to.Before(from) {
		from, to = to, from
	}
	return Window{
		Token: CustomToken,
		Start: StartOfDay(from),
		End:   EndOfDay(to),
		Label: fmt.Sprintf("%s..%s", from.Format("2006-01-02"), to.Format("2006-01-02")),
	}
}

// Month builds the window of a single calendar month.
func Month(t time.Time) Window {
	return Window{
		Token: MonthToken,
		Start: MonthStart(t),
		End:   MonthEnd(t),
		Label: t.Format("2006-01"),
	}
}

// All returns the unbounded window.
func All() Window {
	return Window{Token: AllTime, Label: "All Time"}
}

// Parse resolves a string selector: "all", "YYYY-MM", or a token.
func Parse(selector string, now time.Time, opts Options) (Window, error) {
	s := strings.TrimSpace(selector)
	switch {
	case s == "":
		return Resolve(DefaultToken, now, opts), nil
	case s == string(AllTime):
		return All(), nil
	case len(s) == monthLayoutLen && s[4] == '-':
		m, err := ParseMonth(s, now.Location())
		if err != nil {
			return Window{}, err
		}
		return Month(m), nil
	}
	return Resolve(Token(s), now, opts), nil
}

// Range resolves explicit from/to dates ("2006-01-02"); an empty side falls
// back to the token window's bound.
func Range(from, to string, token Token, now time.Time, opts Options) (Window, error) {
	base := Resolve(token, now, opts)
	if from == "" && to == "" {
		return base, nil
	}

	start, end := base.Start, base.End
	if from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, now.Location())
		if err != nil {
			return Window{}, fmt.Errorf("invalid from date %q: %w", from, err)
		}
		start = t
	}
	if to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, now.Location())
		if err != nil {
			return Window{}, fmt.Errorf("invalid to date %q: %w", to, err)
		}
		end = t
	}
	return Between(start, end), nil
}

func lookback(now time.Time, months int, align Alignment) time.Time {
	start := StartOfDay(SubMonths(now, months))
	if align == AlignCalendar {
		return MonthStart(start)
	}
	return start
}
