package report

import (
	"sort"
	"time"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/entity"
	"qms-mcp/internal/record"
)

// IncomingSection summarizes incoming inspections.
type IncomingSection struct {
	ByResult             []aggregate.Bucket[aggregate.Count] `json:"byResult"`
	TopRejectedSuppliers []aggregate.Bucket[aggregate.Count] `json:"topRejectedSuppliers"`
	Monthly              []aggregate.Point[IncomingMonth]    `json:"monthly"`
}

// IncomingMonth counts inspections and rejections in a month.
type IncomingMonth struct {
	Inspected int `json:"inspected"`
	Rejected  int `json:"rejected"`
}

// SupplierSection summarizes the active supplier base.
type SupplierSection struct {
	GradeDistribution           []aggregate.Bucket[aggregate.Count] `json:"gradeDistribution"`
	TopSuppliersNC              []SupplierNCRow                     `json:"topSuppliersNC"`
	SuppliersWithNCCount        int                                 `json:"suppliersWithNCCount"`
	SuppliersWithRejectionCount int                                 `json:"suppliersWithRejectionCount"`
	GradeABCount                int                                 `json:"gradeABCount"`
}

// SupplierNCRow counts a supplier's non-conformities.
type SupplierNCRow struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Open  int    `json:"open"`
}

// decision returns the inspection outcome; undecided inspections are pending.
func (b *Builder) decision(r record.Record) string {
	if d := r.String("decision"); d != "" {
		return d
	}
	return b.Vocab.Decision.Pending
}

func (b *Builder) buildIncoming(r *Report, s *scope) {
	d := b.Vocab.Decision
	counts := map[string]int{}
	for _, i := range s.incoming {
		counts[b.decision(i)]++
	}
	r.Incoming.ByResult = []aggregate.Bucket[aggregate.Count]{
		{Name: d.Accepted, Value: aggregate.Count(counts[d.Accepted]), Items: counts[d.Accepted]},
		{Name: d.Conditional, Value: aggregate.Count(counts[d.Conditional]), Items: counts[d.Conditional]},
		{Name: d.Rejected, Value: aggregate.Count(counts[d.Rejected]), Items: counts[d.Rejected]},
		{Name: d.Pending, Value: aggregate.Count(counts[d.Pending]), Items: counts[d.Pending]},
	}

	rejected := entity.FilterFunc(s.incoming, func(i record.Record) bool {
		return i.String("decision") == d.Rejected
	})
	r.Incoming.TopRejectedSuppliers = aggregate.CountBy(rejected, func(i record.Record) string {
		return i.String("supplier_name", "supplier.name")
	}, b.topN(b.Limits.TopSuppliers))

	monthly := aggregate.NewMonthly[IncomingMonth](b.Labeler)
	for _, i := range s.incoming {
		t, ok := b.date(i, entity.IncomingInspections)
		if !ok {
			continue
		}
		m := monthly.At(t)
		m.Inspected++
		if i.String("decision") == d.Rejected {
			m.Rejected++
		}
	}
	r.Incoming.Monthly = monthly.Points(b.Limits.SeriesMonths)

	r.Suppliers.SuppliersWithRejectionCount = len(aggregate.CountBy(rejected, func(i record.Record) string {
		return i.String("supplier_name", "supplier.name")
	}, b.all()))
}

func (b *Builder) buildSuppliers(r *Report, s *scope) {
	grades := make(map[string]int)
	for _, sup := range s.suppliers {
		grades[b.latestGrade(sup)]++
	}
	na := b.Vocab.Labels.NotAvailable
	for _, g := range append(append([]string{}, b.Vocab.Grades...), na) {
		if n := grades[g]; n > 0 {
			r.Suppliers.GradeDistribution = append(r.Suppliers.GradeDistribution,
				aggregate.Bucket[aggregate.Count]{Name: g, Value: aggregate.Count(n), Items: n})
		}
	}
	r.Suppliers.GradeDistribution = nonNil(r.Suppliers.GradeDistribution)
	if len(b.Vocab.Grades) >= 2 {
		r.Suppliers.GradeABCount = grades[b.Vocab.Grades[0]] + grades[b.Vocab.Grades[1]]
	}

	names := make(map[string]string)
	for _, sup := range s.raw.Get(entity.Suppliers) {
		names[sup.ID()] = sup.String("name")
	}
	rows := aggregate.GroupRows(s.supplierNC,
		func(nc record.Record) string {
			if n := nc.String("supplier.name"); n != "" {
				return n
			}
			return names[nc.String("supplier_id")]
		},
		b.unspecified(),
		func(name string) SupplierNCRow { return SupplierNCRow{Name: name} },
		func(row *SupplierNCRow, nc record.Record) {
			row.Count++
			if !b.Vocab.IsClosed(nc.String("status")) {
				row.Open++
			}
		})
	r.Suppliers.SuppliersWithNCCount = len(rows)
	r.Suppliers.TopSuppliersNC = aggregate.Rank(rows, b.Limits.TopSuppliers,
		func(x, y SupplierNCRow) int { return x.Count - y.Count },
		func(rest []SupplierNCRow) SupplierNCRow {
			o := SupplierNCRow{Name: b.other()}
			for _, row := range rest {
				o.Count += row.Count
				o.Open += row.Open
			}
			return o
		})
}

// latestGrade picks the grade of the most recent score period. Grades outside
// the vocabulary count as not available.
func (b *Builder) latestGrade(sup record.Record) string {
	scores := sup.Children(entity.ScoresField)
	if len(scores) == 0 {
		return b.Vocab.Labels.NotAvailable
	}
	type dated struct {
		r record.Record
		t time.Time
	}
	ds := make([]dated, 0, len(scores))
	for _, sc := range scores {
		t, _ := sc.Time(b.Location, "period")
		ds = append(ds, dated{sc, t})
	}
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].t.After(ds[j].t) })

	g := ds[0].r.String("grade")
	for _, known := range b.Vocab.Grades {
		if g == known {
			return g
		}
	}
	return b.Vocab.Labels.NotAvailable
}
