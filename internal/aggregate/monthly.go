package aggregate

import (
	"time"

	"qms-mcp/internal/period"
)

// Point is one month of a series.
type Point[V any] struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Value V      `json:"value"`
}

// Monthly accumulates per-month values. Every calendar month between the
// earliest and latest observed date gets a bucket, empty months included.
type Monthly[V any] struct {
	labeler  period.Labeler
	buckets  map[string]*V
	min, max time.Time
}

// NewMonthly creates an empty series.
func NewMonthly[V any](labeler period.Labeler) *Monthly[V] {
	return &Monthly[V]{labeler: labeler, buckets: make(map[string]*V)}
}

// At returns the bucket of t's month, creating it.
func (m *Monthly[V]) At(t time.Time) *V {
	key := period.MonthKey(t)
	v, ok := m.buckets[key]
	if !ok {
		v = new(V)
		m.buckets[key] = v
	}
	start := period.MonthStart(t)
	if m.min.IsZero() || start.Before(m.min) {
		m.min = start
	}
	if m.max.IsZero() || start.After(m.max) {
		m.max = start
	}
	return v
}

// Within returns the bucket of t's month only when that month lies inside
// the span already observed. It never widens the span.
func (m *Monthly[V]) Within(t time.Time) (*V, bool) {
	if m.min.IsZero() {
		return nil, false
	}
	start := period.MonthStart(t)
	if start.Before(m.min) || start.After(m.max) {
		return nil, false
	}
	key := period.MonthKey(t)
	v, ok := m.buckets[key]
	if !ok {
		v = new(V)
		m.buckets[key] = v
	}
	return v, true
}

// Get returns the value of t's month, or the zero value when nothing was
// recorded. It never widens the span.
func (m *Monthly[V]) Get(t time.Time) V {
	if v, ok := m.buckets[period.MonthKey(t)]; ok {
		return *v
	}
	var zero V
	return zero
}

// Observed returns the number of months that hold a bucket.
func (m *Monthly[V]) Observed() int {
	return len(m.buckets)
}

// Observe extends the span to t's month without adding a value.
func (m *Monthly[V]) Observe(t time.Time) {
	m.At(t)
}

// Len returns the number of months spanned.
func (m *Monthly[V]) Len() int {
	if m.min.IsZero() {
		return 0
	}
	return len(period.MonthsBetween(m.min, m.max))
}

// Points returns the series in chronological order. last > 0 keeps only the
// most recent months.
func (m *Monthly[V]) Points(last int) []Point[V] {
	if m.min.IsZero() {
		return []Point[V]{}
	}
	months := period.MonthsBetween(m.min, m.max)
	if last > 0 && len(months) > last {
		months = months[len(months)-last:]
	}

	out := make([]Point[V], 0, len(months))
	for _, month := range months {
		key := period.MonthKey(month)
		p := Point[V]{Key: key, Name: m.labeler.Label(month)}
		if v, ok := m.buckets[key]; ok {
			p.Value = *v
		}
		out = append(out, p)
	}
	return out
}

// CountMonthly counts dated items per month. Items whose date cannot be
// resolved are skipped.
func CountMonthly[T any](items []T, date func(T) (time.Time, bool), labeler period.Labeler, last int) []Point[Count] {
	m := NewMonthly[Count](labeler)
	for _, item := range items {
		if t, ok := date(item); ok {
			*m.At(t)++
		}
	}
	return m.Points(last)
}
