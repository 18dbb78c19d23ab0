// Package record provides typed access to loosely-typed entity rows.
//
// Rows arrive as decoded JSON objects with no shared schema. Every accessor is
// total: a missing or malformed value yields the zero value (or the documented
// sentinel) and never an error, so a single bad row cannot abort an aggregation.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one row as returned by the query collaborator.
type Record map[string]any

// Get resolves a dotted path ("department.unit_name") through embedded objects.
func (r Record) Get(path string) any {
	if r == nil {
		return nil
	}
	if !strings.Contains(path, ".") {
		return r[path]
	}

	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// String returns the first non-empty value among fields, formatted as text.
func (r Record) String(fields ...string) string {
	for _, f := range fields {
		if s := toString(r.Get(f)); s != "" {
			return s
		}
	}
	return ""
}

// ID returns the "id" field as text.
func (r Record) ID() string {
	return r.String("id")
}

// Has reports whether any of fields holds a non-empty value.
func (r Record) Has(fields ...string) bool {
	return r.String(fields...) != ""
}

// Bool returns the field as a boolean. Strings "true"/"1" count as true.
func (r Record) Bool(field string) bool {
	switch v := r.Get(field).(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	case float64:
		return v != 0
	}
	return false
}

// IsFalse reports whether the field is explicitly false. Absent fields are not false.
func (r Record) IsFalse(field string) bool {
	v, ok := r.Get(field).(bool)
	return ok && !v
}

// Number returns the field as a float and whether it held a usable number.
func (r Record) Number(field string) (float64, bool) {
	return toNumber(r.Get(field))
}

// Float returns the field as a float, or 0.
func (r Record) Float(field string) float64 {
	f, _ := r.Number(field)
	return f
}

// FirstFloat returns the first field holding a non-zero number, or 0.
func (r Record) FirstFloat(fields ...string) float64 {
	for _, f := range fields {
		if v, ok := r.Number(f); ok && v != 0 {
			return v
		}
	}
	return 0
}

// Decimal returns a monetary field. Unparseable values yield zero.
func (r Record) Decimal(field string) decimal.Decimal {
	switch v := r.Get(field).(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		s, ok := NormalizeNumber(v)
		if !ok {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	return decimal.Zero
}

// Quantity returns a count field with sentinel 1 for missing, zero or
// unparseable values.
func (r Record) Quantity(field string) float64 {
	v, ok := r.Number(field)
	if !ok || v == 0 {
		return 1
	}
	return v
}

// Time returns the first parseable timestamp among fields.
func (r Record) Time(loc *time.Location, fields ...string) (time.Time, bool) {
	for _, f := range fields {
		s := toString(r.Get(f))
		if s == "" {
			continue
		}
		if t, ok := ParseTime(s, loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Map returns an embedded object.
func (r Record) Map(field string) Record {
	m, ok := asMap(r.Get(field))
	if !ok {
		return nil
	}
	return Record(m)
}

// Children returns an embedded collection. A single embedded object is
// returned as a one-element slice.
func (r Record) Children(field string) []Record {
	switch v := r.Get(field).(type) {
	case []any:
		out := make([]Record, 0, len(v))
		for _, item := range v {
			if m, ok := asMap(item); ok {
				out = append(out, Record(m))
			}
		}
		return out
	case []Record:
		return v
	case []map[string]any:
		out := make([]Record, 0, len(v))
		for _, m := range v {
			out = append(out, Record(m))
		}
		return out
	default:
		if m, ok := asMap(v); ok {
			return []Record{Record(m)}
		}
	}
	return nil
}

// Clone returns a shallow copy so callers can annotate without touching input rows.
func (r Record) Clone() Record {
	out := make(Record, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the timestamp formats the collaborator emits. Values
// without a zone are read in loc.
func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeNumber turns a locale-formatted number into a plain decimal string.
// The tr-TR convention applies: "." groups thousands and "," is the decimal
// separator, so "1.234,50" becomes "1234.50". Currency markers are dropped.
func NormalizeNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, marker := range []string{"₺", "TRY", "TL", "$", "€", " ", " "} {
		s = strings.ReplaceAll(s, marker, "")
	}
	if s == "" {
		return "", false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return "", false
	}
	return s, true
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s, ok := NormalizeNumber(n)
		if !ok {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case int, int64:
		return fmt.Sprintf("%d", s)
	}
	return ""
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return m, true
	}
	return nil, false
}
