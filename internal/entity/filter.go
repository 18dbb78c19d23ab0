package entity

import (
	"time"

	"qms-mcp/internal/period"
	"qms-mcp/internal/record"
)

// ResolveDate walks the kind's fallback chain and returns the first parseable date.
func ResolveDate(r record.Record, k Kind, loc *time.Location) (time.Time, bool) {
	return ResolveWith(r, Policy(k), loc)
}

// ResolveWith is ResolveDate for an explicit policy.
func ResolveWith(r record.Record, p DatePolicy, loc *time.Location) (time.Time, bool) {
	if len(p.Fields) == 0 {
		return time.Time{}, false
	}
	return r.Time(loc, p.Fields...)
}

// Filter returns the records of kind k that fall inside w, in input order.
// Collections that are not date-scoped pass through as a copy. The input
// slice and its records are never modified.
func Filter(records []record.Record, k Kind, w period.Window, loc *time.Location) []record.Record {
	return FilterPolicy(records, Policy(k), w, loc)
}

// FilterPolicy is Filter for an explicit policy.
func FilterPolicy(records []record.Record, p DatePolicy, w period.Window, loc *time.Location) []record.Record {
	return FilterFunc(records, func(r record.Record) bool {
		return InWindow(r, p, w, loc)
	})
}

// InWindow reports whether a single record is selected by w under p.
func InWindow(r record.Record, p DatePolicy, w period.Window, loc *time.Location) bool {
	if !p.Scoped() {
		return true
	}
	t, ok := ResolveWith(r, p, loc)
	if !ok {
		return p.Missing == Include
	}
	return w.Contains(t)
}

// FilterFunc returns the records for which keep reports true, in input order.
func FilterFunc(records []record.Record, keep func(record.Record) bool) []record.Record {
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Flatten collects the nested child collection field of every parent. Each
// child is cloned and annotated with the parent's id under parentKey so the
// parent rows stay untouched.
func Flatten(parents []record.Record, field, parentKey string) []record.Record {
	var out []record.Record
	for _, p := range parents {
		for _, c := range p.Children(field) {
			child := c
			if parentKey != "" {
				child = c.Clone()
				if !child.Has(parentKey) {
					child[parentKey] = p.Get("id")
				}
			}
			out = append(out, child)
		}
	}
	return out
}
