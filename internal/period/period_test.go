package period

import (
	"testing"
	"time"
)

func TestResolve_Tokens(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		token     Token
		wantStart time.Time
		wantEnd   time.Time
		wantToken Token
	}{
		{LastMonth, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), EndOfDay(now), LastMonth},
		{Last3Months, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), EndOfDay(now), Last3Months},
		{Last6Months, time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC), EndOfDay(now), Last6Months},
		{ThisYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 23, 59, 59, 999999999, time.UTC), ThisYear},
		{Last12Months, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), EndOfDay(now), Last12Months},
		{"bogus", time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), EndOfDay(now), Last12Months},
	}

	for _, tt := range tests {
		t.Run(string(tt.token), func(t *testing.T) {
			w := Resolve(tt.token, now, Options{})
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", w.Start, tt.wantStart)
			}
			if !w.End.Equal(tt.wantEnd) {
				t.Errorf("End = %v, want %v", w.End, tt.wantEnd)
			}
			if w.Token != tt.wantToken {
				t.Errorf("Token = %s, want %s", w.Token, tt.wantToken)
			}
			if w.Start.After(w.End) {
				t.Errorf("Start after End: %v > %v", w.Start, w.End)
			}
			if w.Label == "" {
				t.Errorf("Expected non-empty label")
			}
		})
	}
}

func TestResolve_ClampsDayOfMonth(t *testing.T) {
	now := time.Date(2024, 5, 31, 9, 0, 0, 0, time.UTC)
	w := Resolve(Last3Months, now, Options{})

	want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Errorf("Expected clamp to Feb 29, got %v", w.Start)
	}
}

func TestResolve_CalendarAlignment(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	w := Resolve(Last3Months, now, Options{Alignment: AlignCalendar})

	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Errorf("Expected calendar-aligned start %v, got %v", want, w.Start)
	}
}

func TestResolve_LabelOverride(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	w := Resolve(Last3Months, now, Options{Labels: map[string]string{"last3months": "Son 3 Ay"}})
	if w.Label != "Son 3 Ay" {
		t.Errorf("Expected overridden label, got %q", w.Label)
	}
}

func TestWindow_ContainsIsInclusive(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	w := Resolve(Last3Months, now, Options{})

	if !w.Contains(w.Start) {
		t.Errorf("Expected Start to be contained")
	}
	if !w.Contains(w.End) {
		t.Errorf("Expected End to be contained")
	}
	if w.Contains(w.Start.Add(-time.Nanosecond)) {
		t.Errorf("Expected instant before Start to be excluded")
	}
	if w.Contains(w.End.Add(time.Nanosecond)) {
		t.Errorf("Expected instant after End to be excluded")
	}
	if !All().Contains(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected unbounded window to contain everything")
	}
}

func TestParse(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	w, err := Parse("2024-02", now, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !w.Start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected month start %v", w.Start)
	}
	if !w.End.Equal(time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC)) {
		t.Errorf("Unexpected month end %v", w.End)
	}

	w, err = Parse("all", now, Options{})
	if err != nil || !w.IsUnbounded() {
		t.Errorf("Expected unbounded window, got %+v (err %v)", w, err)
	}

	if _, err := Parse("2024-13", now, Options{}); err == nil {
		t.Errorf("Expected error for invalid month")
	}

	w, _ = Parse("", now, Options{})
	if w.Token != Last12Months {
		t.Errorf("Expected default token, got %s", w.Token)
	}
}

func TestRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	w, err := Range("2024-04-10", "2024-04-01", Last3Months, now, Options{})
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if !w.Start.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected swapped start, got %v", w.Start)
	}
	if !w.End.Equal(EndOfDay(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))) {
		t.Errorf("Expected swapped end, got %v", w.End)
	}

	if _, err := Range("10/04/2024", "", Last3Months, now, Options{}); err == nil {
		t.Errorf("Expected error for malformed date")
	}
}

func TestMonthKey_StableAndUnique(t *testing.T) {
	a := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 2, 28, 23, 0, 0, 0, time.UTC)
	c := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if MonthKey(a) != MonthKey(b) {
		t.Errorf("Same month should share a key: %s vs %s", MonthKey(a), MonthKey(b))
	}
	if MonthKey(a) == MonthKey(c) {
		t.Errorf("Different months should not share a key")
	}
}

func TestMonthsBetween(t *testing.T) {
	a := time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)

	months := MonthsBetween(b, a)
	if len(months) != 4 {
		t.Fatalf("Expected 4 months (Nov..Feb), got %d", len(months))
	}
	if months[0].Month() != time.November || months[3].Month() != time.February {
		t.Errorf("Unexpected month range %v..%v", months[0], months[3])
	}
}

func TestLabeler(t *testing.T) {
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	if got := (Labeler{}).Label(d); got != "Jan 24" {
		t.Errorf("Expected Jan 24, got %q", got)
	}
	tr := Labeler{Names: []string{"Oca", "Şub", "Mar", "Nis", "May", "Haz", "Tem", "Ağu", "Eyl", "Eki", "Kas", "Ara"}}
	if got := tr.Label(d); got != "Oca 24" {
		t.Errorf("Expected Oca 24, got %q", got)
	}
}
