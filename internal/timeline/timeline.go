// Package timeline measures inspection and rework durations from vehicle
// timeline events.
package timeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"qms-mcp/internal/record"
	"qms-mcp/internal/vocab"
)

// Event types written by the inspection station.
const (
	ControlStart = "control_start"
	ControlEnd   = "control_end"
	ReworkStart  = "rework_start"
	ReworkEnd    = "rework_end"
)

// Span is a matched start/end pair.
type Span struct {
	InspectionID string    `json:"inspectionId,omitempty"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

// Duration returns the length of the span.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

type event struct {
	kind string
	at   time.Time
}

// Pair matches start and end events in chronological order. A start opens a
// span and the next end closes it; a second start while a span is open is
// ignored, as is an end with no open span. Events without a parseable
// timestamp are skipped.
func Pair(events []record.Record, startType, endType string, loc *time.Location) []Span {
	var evs []event
	for _, e := range events {
		kind := e.String("event_type")
		if kind != startType && kind != endType {
			continue
		}
		at, ok := e.Time(loc, "event_timestamp")
		if !ok {
			continue
		}
		evs = append(evs, event{kind: kind, at: at})
	}
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].at.Before(evs[j].at) })

	var spans []Span
	var open *time.Time
	for i := range evs {
		switch evs[i].kind {
		case startType:
			if open == nil {
				open = &evs[i].at
			}
		case endType:
			if open != nil {
				spans = append(spans, Span{Start: *open, End: evs[i].at})
				open = nil
			}
		}
	}
	return spans
}

// PairByInspection pairs events separately for each inspection_id so a start
// on one vehicle never closes on another.
func PairByInspection(events []record.Record, startType, endType string, loc *time.Location) []Span {
	groups := make(map[string][]record.Record)
	var order []string
	for _, e := range events {
		id := e.String("inspection_id")
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], e)
	}

	var spans []Span
	for _, id := range order {
		for _, s := range Pair(groups[id], startType, endType, loc) {
			s.InspectionID = id
			spans = append(spans, s)
		}
	}
	return spans
}

// TotalMinutes sums span lengths in whole minutes, rounded.
func TotalMinutes(spans []Span) int {
	var total time.Duration
	for _, s := range spans {
		total += s.Duration()
	}
	return int(math.Round(total.Minutes()))
}

// InspectionMinutes is the total control time of one vehicle's events.
func InspectionMinutes(events []record.Record, loc *time.Location) int {
	return TotalMinutes(Pair(events, ControlStart, ControlEnd, loc))
}

// ReworkMinutes is the total rework time of one vehicle's events.
func ReworkMinutes(events []record.Record, loc *time.Location) int {
	return TotalMinutes(Pair(events, ReworkStart, ReworkEnd, loc))
}

// Averages summarizes control and rework time over vehicles that have any.
type Averages struct {
	AvgControlMin       int    `json:"avgControlTimeMin"`
	AvgReworkMin        int    `json:"avgReworkTimeMin"`
	AvgControlFormatted string `json:"avgControlTimeFormatted"`
	AvgReworkFormatted  string `json:"avgReworkTimeFormatted"`
	VehiclesWithControl int    `json:"vehiclesWithControl"`
	VehiclesWithRework  int    `json:"vehiclesWithRework"`
}

// Average reads the embedded timeline of each vehicle. Vehicles with no
// control (or rework) time do not count toward that average.
func Average(vehicles []record.Record, field string, loc *time.Location, labels vocab.Labels) Averages {
	var a Averages
	var control, rework int
	for _, v := range vehicles {
		events := v.Children(field)
		if len(events) == 0 {
			continue
		}
		if m := InspectionMinutes(events, loc); m > 0 {
			control += m
			a.VehiclesWithControl++
		}
		if m := ReworkMinutes(events, loc); m > 0 {
			rework += m
			a.VehiclesWithRework++
		}
	}
	a.AvgControlMin = roundedMean(control, a.VehiclesWithControl)
	a.AvgReworkMin = roundedMean(rework, a.VehiclesWithRework)
	a.AvgControlFormatted = FormatMinutes(a.AvgControlMin, labels)
	a.AvgReworkFormatted = FormatMinutes(a.AvgReworkMin, labels)
	return a
}

// FormatMinutes renders "1h 5min" for an hour or more and "45 min" otherwise.
func FormatMinutes(minutes int, labels vocab.Labels) string {
	if minutes >= 60 {
		return fmt.Sprintf("%d%s %d%s", minutes/60, labels.Hour, minutes%60, labels.Minute)
	}
	return fmt.Sprintf("%d %s", minutes, labels.Minute)
}

func roundedMean(total, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(n)))
}
