package report

import (
	"sort"
	"time"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/entity"
	"qms-mcp/internal/period"
	"qms-mcp/internal/record"
)

// StatusRow splits a group into open and closed records.
type StatusRow struct {
	Name   string `json:"name"`
	Open   int    `json:"open"`
	Closed int    `json:"closed"`
	Total  int    `json:"total"`
}

// NCMonth counts opened and closed non-conformities in a month.
type NCMonth struct {
	Opened int `json:"opened"`
	Closed int `json:"closed"`
}

// WallRow is a department on the quality wall.
type WallRow struct {
	StatusRow
	ClosureRate float64 `json:"closureRate"`
}

// OverdueRow is an open non-conformity with its delay.
type OverdueRow struct {
	ID          string     `json:"id"`
	NCNumber    string     `json:"ncNumber,omitempty"`
	Title       string     `json:"title,omitempty"`
	Type        string     `json:"type,omitempty"`
	Status      string     `json:"status"`
	Department  string     `json:"department,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	DaysOverdue int        `json:"daysOverdue,omitempty"`
}

func statusRank(x, y StatusRow) int { return x.Total - y.Total }

func foldStatus(name string) func([]StatusRow) StatusRow {
	return func(rest []StatusRow) StatusRow {
		o := StatusRow{Name: name}
		for _, r := range rest {
			o.Open += r.Open
			o.Closed += r.Closed
			o.Total += r.Total
		}
		return o
	}
}

func (b *Builder) statusRows(items []record.Record, key func(record.Record) string) []StatusRow {
	return aggregate.GroupRows(items, key, b.unspecified(),
		func(name string) StatusRow { return StatusRow{Name: name} },
		func(row *StatusRow, r record.Record) {
			row.Total++
			if b.Vocab.IsClosed(r.String("status")) {
				row.Closed++
			} else {
				row.Open++
			}
		})
}

func (b *Builder) buildNC(r *Report, s *scope, now time.Time) {
	lim := b.Limits

	byDept := b.statusRows(s.nc, func(n record.Record) string {
		return n.String("department", "requesting_unit")
	})
	r.NCByDept = aggregate.Rank(byDept, lim.NCByDept, statusRank, foldStatus(b.other()))

	byType := b.statusRows(s.nc, func(n record.Record) string { return n.String("type") })
	r.NCByType = aggregate.Rank(byType, 0, statusRank, nil)

	monthly := aggregate.NewMonthly[NCMonth](b.Labeler)
	for _, n := range s.nc {
		opened, ok := b.date(n, entity.NonConformities)
		if !ok {
			continue
		}
		monthly.At(opened).Opened++
		if !b.Vocab.IsClosed(n.String("status")) {
			continue
		}
		// A closure outside the window would stretch the series past it.
		if closed, ok := n.Time(b.Location, "closed_at"); ok && s.window.Contains(closed) {
			monthly.At(closed).Closed++
		}
	}
	r.NCMonthly = monthly.Points(lim.NCMonths)

	wall := b.statusRows(
		entity.FilterFunc(s.nc, func(n record.Record) bool { return n.String("status") != b.Vocab.Status.Rejected }),
		func(n record.Record) string { return n.String("requesting_unit", "department") },
	)
	ranked := aggregate.Rank(wall, lim.QualityWall, statusRank, foldStatus(b.other()))
	r.QualityWall = make([]WallRow, 0, len(ranked))
	for _, row := range ranked {
		r.QualityWall = append(r.QualityWall, WallRow{
			StatusRow:   row,
			ClosureRate: aggregate.Round(aggregate.Percent(float64(row.Closed), float64(row.Total)), 0),
		})
	}

	var overdue []OverdueRow
	for _, n := range s.nc {
		if b.Vocab.IsClosed(n.String("status")) {
			continue
		}
		row := b.overdueRow(n, now)
		if row.DaysOverdue > 0 {
			overdue = append(overdue, row)
		}
	}
	r.OverdueNC = aggregate.Rank(overdue, lim.OverdueNC, func(x, y OverdueRow) int { return x.DaysOverdue - y.DaysOverdue }, nil)

	// The open list covers every non-conformity regardless of period.
	var open []OverdueRow
	for _, n := range s.raw.Get(entity.NonConformities) {
		st := n.String("status")
		if b.Vocab.IsClosed(st) || st == b.Vocab.Status.Rejected || n.Has("supplier_id") {
			continue
		}
		open = append(open, b.overdueRow(n, now))
	}
	sort.SliceStable(open, func(i, j int) bool {
		a, c := open[i], open[j]
		if (a.DaysOverdue > 0) != (c.DaysOverdue > 0) {
			return a.DaysOverdue > 0
		}
		if a.DaysOverdue > 0 {
			return a.DaysOverdue > c.DaysOverdue
		}
		return after(a.CreatedAt, c.CreatedAt)
	})
	r.OpenNCTotal = len(open)
	for _, o := range open {
		if o.DaysOverdue > 0 {
			r.OpenNCOverdue++
		}
	}
	if len(open) > lim.OpenNC {
		open = open[:lim.OpenNC]
	}
	r.OpenNC = nonNil(open)
}

func (b *Builder) overdueRow(n record.Record, now time.Time) OverdueRow {
	row := OverdueRow{
		ID:         n.ID(),
		NCNumber:   n.String("nc_number"),
		Title:      n.String("title", "description"),
		Type:       n.String("type"),
		Status:     b.statusOr(n),
		Department: n.String("department", "requesting_unit"),
	}
	if c, ok := n.Time(b.Location, "created_at"); ok {
		row.CreatedAt = &c
	}
	if due, ok := n.Time(b.Location, "due_at", "target_close_date"); ok {
		row.DueDate = &due
		if d := period.DaysBetween(due, now); d > 0 {
			row.DaysOverdue = d
		}
	}
	return row
}

// after orders undated rows last.
func after(a, c *time.Time) bool {
	switch {
	case a == nil:
		return false
	case c == nil:
		return true
	}
	return a.After(*c)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
