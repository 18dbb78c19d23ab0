// Package aggregate implements the group-by, ranking and monthly-series
// primitives shared by every analytics view.
package aggregate

import (
	"sort"
	"strings"
)

// DefaultUnspecified names the bucket of records with no key.
const DefaultUnspecified = "Unspecified"

// DefaultOther names the bucket that folds the tail of a ranking.
const DefaultOther = "Other"

// Metric is an additive, ordered accumulator. The zero value must be the
// additive identity.
type Metric[M any] interface {
	Add(M) M
	Cmp(M) int
}

// Count is an integer tally.
type Count int

func (c Count) Add(o Count) Count { return c + o }

func (c Count) Cmp(o Count) int {
	switch {
	case c < o:
		return -1
	case c > o:
		return 1
	}
	return 0
}

// Float is a float64 sum.
type Float float64

func (f Float) Add(o Float) Float { return f + o }

func (f Float) Cmp(o Float) int {
	switch {
	case f < o:
		return -1
	case f > o:
		return 1
	}
	return 0
}

// One counts an item.
func One[T any](T) Count { return 1 }

// Bucket is one group of an aggregation.
type Bucket[M any] struct {
	Name  string `json:"name"`
	Value M      `json:"value"`
	// Items is the number of input records that landed in the bucket.
	Items int  `json:"items"`
	Other bool `json:"other,omitempty"`
}

// Options control naming and truncation.
type Options struct {
	// TopN keeps the N largest groups; 0 keeps all.
	TopN int
	// Other names the fold bucket. An empty name drops the tail instead of folding it.
	Other string
	// Unspecified names the bucket of empty keys.
	Unspecified string
}

// WithOther returns options that keep n groups and fold the rest into "Other".
func WithOther(n int) Options {
	return Options{TopN: n, Other: DefaultOther, Unspecified: DefaultUnspecified}
}

// Limit returns options that keep n groups and drop the rest.
func Limit(n int) Options {
	return Options{TopN: n, Unspecified: DefaultUnspecified}
}

func (o Options) unspecified() string {
	if o.Unspecified == "" {
		return DefaultUnspecified
	}
	return o.Unspecified
}

// AggregateBy partitions items by key, accumulates metric per group, and ranks
// the groups by descending value. Ties keep first-appearance order. Every item
// lands in exactly one group: a blank key goes to the unspecified bucket.
//
// When TopN is set and there are more groups, the remainder is folded into a
// single Other bucket so the displayed total equals the full total. Other is
// omitted when nothing is folded.
func AggregateBy[T any, M Metric[M]](items []T, key func(T) string, metric func(T) M, opts Options) []Bucket[M] {
	index := make(map[string]int)
	var buckets []Bucket[M]

	for _, item := range items {
		k := strings.TrimSpace(key(item))
		if k == "" {
			k = opts.unspecified()
		}
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, Bucket[M]{Name: k})
		}
		buckets[i].Value = buckets[i].Value.Add(metric(item))
		buckets[i].Items++
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Value.Cmp(buckets[j].Value) > 0
	})

	return truncate(buckets, opts)
}

// CountBy is AggregateBy with a count metric.
func CountBy[T any](items []T, key func(T) string, opts Options) []Bucket[Count] {
	return AggregateBy(items, key, One[T], opts)
}

// Tally is AggregateBy without ranking: groups stay in first-appearance order.
func Tally[T any](items []T, key func(T) string, unspecified string) []Bucket[Count] {
	index := make(map[string]int)
	var buckets []Bucket[Count]
	if unspecified == "" {
		unspecified = DefaultUnspecified
	}
	for _, item := range items {
		k := strings.TrimSpace(key(item))
		if k == "" {
			k = unspecified
		}
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, Bucket[Count]{Name: k})
		}
		buckets[i].Value++
		buckets[i].Items++
	}
	return buckets
}

func truncate[M Metric[M]](buckets []Bucket[M], opts Options) []Bucket[M] {
	if opts.TopN <= 0 || len(buckets) <= opts.TopN {
		return buckets
	}
	head := buckets[:opts.TopN:opts.TopN]
	if opts.Other == "" {
		return head
	}

	other := Bucket[M]{Name: opts.Other, Other: true}
	for _, b := range buckets[opts.TopN:] {
		other.Value = other.Value.Add(b.Value)
		other.Items += b.Items
	}
	return append(head, other)
}

// Sum totals the values of buckets.
func Sum[M Metric[M]](buckets []Bucket[M]) M {
	var total M
	for _, b := range buckets {
		total = total.Add(b.Value)
	}
	return total
}

// Items totals the record counts of buckets.
func Items[M any](buckets []Bucket[M]) int {
	n := 0
	for _, b := range buckets {
		n += b.Items
	}
	return n
}

// GroupRows partitions items into multi-field rows in first-seen order. newRow
// builds the empty row for a group name and update folds one item into it.
func GroupRows[T, R any](items []T, key func(T) string, unspecified string, newRow func(name string) R, update func(*R, T)) []R {
	if unspecified == "" {
		unspecified = DefaultUnspecified
	}
	index := make(map[string]int)
	var rows []R
	for _, item := range items {
		k := strings.TrimSpace(key(item))
		if k == "" {
			k = unspecified
		}
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, newRow(k))
		}
		update(&rows[i], item)
	}
	return rows
}

// Rank sorts rows by descending cmp (cmp(a, b) > 0 puts a first), keeping
// input order on ties, and keeps the first n. When fold is non-nil and rows
// are cut, fold receives the remainder and its row is appended.
func Rank[R any](rows []R, n int, cmp func(a, b R) int, fold func(rest []R) R) []R {
	out := make([]R, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return cmp(out[i], out[j]) > 0
	})
	if n <= 0 || len(out) <= n {
		return out
	}
	if fold == nil {
		return out[:n]
	}
	rest := out[n:]
	return append(out[:n:n], fold(rest))
}
