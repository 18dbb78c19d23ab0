package report

import (
	"sort"
	"time"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/entity"
	"qms-mcp/internal/period"
	"qms-mcp/internal/record"
	"qms-mcp/internal/timeline"
)

// VehicleSection summarizes produced-vehicle inspections.
type VehicleSection struct {
	FaultByCategory []FaultCategoryRow              `json:"faultByCategory"`
	Monthly         []aggregate.Point[VehicleMonth] `json:"monthly"`
}

// FaultCategoryRow counts fault quantity and affected vehicles of a category.
type FaultCategoryRow struct {
	Name     string  `json:"name"`
	Count    float64 `json:"count"`
	Vehicles int     `json:"vehicles"`
	Other    bool    `json:"other,omitempty"`

	seen map[string]struct{}
}

// VehicleMonth counts inspected and fault-free vehicles in a month.
type VehicleMonth struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
}

// ComplaintSection summarizes customer complaints.
type ComplaintSection struct {
	ByStatus []aggregate.Bucket[aggregate.Count] `json:"byStatus"`
	Monthly  []aggregate.Point[aggregate.Count]  `json:"monthly"`
}

// KaizenSection summarizes improvement entries.
type KaizenSection struct {
	ByStatus []aggregate.Bucket[aggregate.Count] `json:"byStatus"`
	ByDept   []KaizenDeptRow                     `json:"byDept"`
}

// KaizenDeptRow splits a department's kaizen entries by completion.
type KaizenDeptRow struct {
	Name      string `json:"name"`
	Completed int    `json:"completed"`
	Active    int    `json:"active"`
	Other     bool   `json:"other,omitempty"`
}

// DeviationSection summarizes deviation requests.
type DeviationSection struct {
	ByStatus []aggregate.Bucket[aggregate.Count] `json:"byStatus"`
	ByUnit   []aggregate.Bucket[aggregate.Count] `json:"byUnit"`
}

// NCModuleSection summarizes the detailed non-conformity records.
type NCModuleSection struct {
	Total         int                                 `json:"total"`
	Open          int                                 `json:"open"`
	ByStatus      []aggregate.Bucket[aggregate.Count] `json:"byStatus"`
	BySeverity    []aggregate.Bucket[aggregate.Count] `json:"bySeverity"`
	RecentRecords []NCRecordRow                       `json:"recentRecords"`
}

// NCRecordRow is one recent non-conformity record.
type NCRecordRow struct {
	Date        *time.Time `json:"date,omitempty"`
	Part        string     `json:"part,omitempty"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Area        string     `json:"area,omitempty"`
	Severity    string     `json:"severity,omitempty"`
	Status      string     `json:"status"`
	Responsible string     `json:"responsible,omitempty"`
}

// QuarantineRow is a lot currently held in quarantine.
type QuarantineRow struct {
	ID       string     `json:"id"`
	Part     string     `json:"part,omitempty"`
	Lot      string     `json:"lot,omitempty"`
	Quantity float64    `json:"quantity,omitempty"`
	Unit     string     `json:"unit,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
}

// CalibrationRow is a calibration past its next due date.
type CalibrationRow struct {
	Equipment   string    `json:"equipment"`
	DueDate     time.Time `json:"dueDate"`
	DaysOverdue int       `json:"daysOverdue"`
}

// QualityActivities summarizes the work of the quality team itself.
type QualityActivities struct {
	IncomingControlPlans int `json:"totalIncomingControlPlans"`
	ProcessControlPlans  int `json:"totalProcessControlPlans"`
	ControlPlans         int `json:"totalControlPlans"`

	timeline.Averages

	AuditFindingsByDept []aggregate.Bucket[aggregate.Count] `json:"auditFindingsByDept"`
	SupplierAudits      []SupplierAuditRow                  `json:"supplierAuditDetails"`
	CompletedTrainings  int                                 `json:"completedTrainings"`
	PlannedTrainings    int                                 `json:"plannedTrainings"`
	TotalTrainings      int                                 `json:"totalTrainings"`
	Trainings           []TrainingRow                       `json:"trainingDetails"`
}

// SupplierAuditRow is a completed supplier audit.
type SupplierAuditRow struct {
	Supplier string    `json:"supplierName"`
	Date     time.Time `json:"date"`
	Score    *float64  `json:"score,omitempty"`
}

// TrainingRow is one training session.
type TrainingRow struct {
	Title         string     `json:"title"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	Status        string     `json:"status"`
	Instructor    string     `json:"instructor,omitempty"`
	DurationHours float64    `json:"durationHours,omitempty"`
	Participants  int        `json:"participantsCount"`
}

func (b *Builder) buildVehicles(r *Report, s *scope) {
	var faults []record.Record
	for _, v := range s.vehicles {
		for _, f := range v.Children(entity.FaultsField) {
			f = f.Clone()
			f["vehicle_id"] = v.ID()
			faults = append(faults, f)
		}
	}
	rows := aggregate.GroupRows(faults,
		func(f record.Record) string { return f.String("fault_category.name", "fault_type") },
		b.unspecified(),
		func(name string) FaultCategoryRow {
			return FaultCategoryRow{Name: name, seen: map[string]struct{}{}}
		},
		func(row *FaultCategoryRow, f record.Record) {
			row.Count += f.Quantity("quantity")
			row.seen[f.String("vehicle_id")] = struct{}{}
			row.Vehicles = len(row.seen)
		})
	r.Vehicles.FaultByCategory = aggregate.Rank(rows, b.Limits.FaultCategories, func(x, y FaultCategoryRow) int {
		return aggregate.Float(x.Count).Cmp(aggregate.Float(y.Count))
	}, func(rest []FaultCategoryRow) FaultCategoryRow {
		o := FaultCategoryRow{Name: b.other(), Other: true, seen: map[string]struct{}{}}
		for _, row := range rest {
			o.Count += row.Count
			for id := range row.seen {
				o.seen[id] = struct{}{}
			}
		}
		o.Vehicles = len(o.seen)
		return o
	})

	monthly := aggregate.NewMonthly[VehicleMonth](b.Labeler)
	for _, v := range s.vehicles {
		t, ok := b.date(v, entity.ProducedVehicles)
		if !ok {
			continue
		}
		m := monthly.At(t)
		m.Total++
		if passed(v) {
			m.Passed++
		}
	}
	r.Vehicles.Monthly = monthly.Points(b.Limits.SeriesMonths)
}

// passed reports whether an inspected vehicle has no recorded faults.
func passed(v record.Record) bool {
	return len(v.Children(entity.FaultsField)) == 0
}

func (b *Builder) byStatus(items []record.Record) []aggregate.Bucket[aggregate.Count] {
	return aggregate.CountBy(items, b.statusOr, b.all())
}

func (b *Builder) buildComplaints(r *Report, s *scope) {
	r.Complaints.ByStatus = b.byStatus(s.complaints)
	// Only the complaint date places a complaint on the chart.
	r.Complaints.Monthly = aggregate.CountMonthly(s.complaints, func(c record.Record) (time.Time, bool) {
		return c.Time(b.Location, "complaint_date")
	}, b.Labeler, b.Limits.SeriesMonths)
}

func (b *Builder) buildKaizen(r *Report, s *scope) {
	r.Kaizen.ByStatus = aggregate.CountBy(s.kaizen, func(k record.Record) string {
		return k.String("status")
	}, b.all())

	rows := aggregate.GroupRows(s.kaizen,
		func(k record.Record) string { return k.String("department.unit_name") },
		b.unspecified(),
		func(name string) KaizenDeptRow { return KaizenDeptRow{Name: name} },
		func(row *KaizenDeptRow, k record.Record) {
			if k.String("status") == b.Vocab.Status.Completed {
				row.Completed++
			} else {
				row.Active++
			}
		})
	r.Kaizen.ByDept = aggregate.Rank(rows, b.Limits.KaizenByDept, func(x, y KaizenDeptRow) int {
		return (x.Completed + x.Active) - (y.Completed + y.Active)
	}, func(rest []KaizenDeptRow) KaizenDeptRow {
		o := KaizenDeptRow{Name: b.other(), Other: true}
		for _, row := range rest {
			o.Completed += row.Completed
			o.Active += row.Active
		}
		return o
	})
}

func (b *Builder) buildDeviations(r *Report, s *scope) {
	r.Deviations.ByStatus = b.byStatus(s.deviations)
	r.Deviations.ByUnit = aggregate.CountBy(s.deviations, func(d record.Record) string {
		return d.String("requesting_unit")
	}, b.topN(b.Limits.DeviationUnits))
}

func (b *Builder) buildNCModule(r *Report, s *scope) {
	m := &r.NonconformityModule
	m.Total = len(s.ncRecords)
	for _, n := range s.ncRecords {
		if !b.Vocab.IsClosed(n.String("status")) {
			m.Open++
		}
	}
	m.ByStatus = b.byStatus(s.ncRecords)
	m.BySeverity = aggregate.CountBy(s.ncRecords, func(n record.Record) string {
		return n.String("severity")
	}, b.all())

	rows := make([]NCRecordRow, 0, len(s.ncRecords))
	for _, n := range s.ncRecords {
		row := NCRecordRow{
			Part:        n.String("part_code", "part_name"),
			Description: truncate(n.String("description"), 40),
			Category:    n.String("category"),
			Area:        n.String("detection_area"),
			Severity:    n.String("severity"),
			Status:      n.String("status"),
			Responsible: n.String("responsible_person", "department"),
		}
		if t, ok := b.date(n, entity.NonconformityRecords); ok {
			row.Date = &t
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return after(rows[i].Date, rows[j].Date) })
	if len(rows) > b.Limits.RecentRecords {
		rows = rows[:b.Limits.RecentRecords]
	}
	m.RecentRecords = rows
}

// buildQuarantine lists every lot still held, regardless of period.
func (b *Builder) buildQuarantine(r *Report, s *scope) {
	rows := []QuarantineRow{}
	for _, q := range s.raw.Get(entity.QuarantineRecords) {
		if q.String("status") != b.Vocab.Status.Quarantined {
			continue
		}
		row := QuarantineRow{
			ID:       q.ID(),
			Part:     q.String("part_code", "part_name"),
			Lot:      q.String("lot_no"),
			Quantity: q.Float("quantity"),
			Unit:     q.String("unit", "source_department"),
		}
		if t, ok := q.Time(b.Location, "quarantine_date"); ok {
			row.Date = &t
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return after(rows[i].Date, rows[j].Date) })
	r.ActiveQuarantine = rows
}

func (b *Builder) buildCalibrations(r *Report, s *scope, now time.Time) {
	var rows []CalibrationRow
	for _, eq := range s.raw.Get(entity.Equipments) {
		for _, cal := range eq.Children(entity.CalibrationsField) {
			due, ok := cal.Time(b.Location, "next_calibration_date")
			if !ok {
				continue
			}
			if d := period.DaysBetween(due, now); d > 0 {
				rows = append(rows, CalibrationRow{Equipment: eq.String("name"), DueDate: due, DaysOverdue: d})
			}
		}
	}
	r.KPIs.OverdueCalCount = len(rows)
	r.OverdueCalibrations = nonNil(aggregate.Rank(rows, b.Limits.Calibrations, func(x, y CalibrationRow) int {
		return x.DaysOverdue - y.DaysOverdue
	}, nil))
}

func (b *Builder) buildPersonnel(r *Report, s *scope) {
	r.PersonnelByDept = aggregate.CountBy(s.personnel, func(p record.Record) string {
		return p.String("department")
	}, b.topN(b.Limits.PersonnelDepts))
}

func (b *Builder) buildActivities(r *Report, s *scope, w period.Window) {
	a := &r.QualityActivities

	plans := s.raw.Get(entity.IncomingControlPlans)
	for _, p := range plans {
		if !p.IsFalse("is_current") {
			a.IncomingControlPlans++
		}
	}
	if a.IncomingControlPlans == 0 {
		a.IncomingControlPlans = len(plans)
	}
	a.ProcessControlPlans = len(s.raw.Get(entity.ProcessControlPlans))
	a.ControlPlans = a.IncomingControlPlans + a.ProcessControlPlans

	a.Averages = timeline.Average(s.vehicles, entity.TimelineField, b.Location, b.Vocab.Labels)

	audits := make(map[string]string, len(s.audits))
	for _, au := range s.audits {
		audits[au.ID()] = au.String("department.unit_name")
	}
	findings := entity.FilterFunc(s.raw.Get(entity.AuditFindings), func(f record.Record) bool {
		_, ok := audits[f.String("audit_id")]
		return ok
	})
	a.AuditFindingsByDept = aggregate.CountBy(findings, func(f record.Record) string {
		return audits[f.String("audit_id")]
	}, b.topN(b.Limits.AuditDepts))

	plan := entity.Policy(entity.SupplierAuditPlans)
	a.SupplierAudits = []SupplierAuditRow{}
	for _, sup := range s.raw.Get(entity.Suppliers) {
		for _, p := range sup.Children(entity.AuditPlansField) {
			if p.String("status") != b.Vocab.Status.Completed || !entity.InWindow(p, plan, w, b.Location) {
				continue
			}
			t, ok := entity.ResolveWith(p, plan, b.Location)
			if !ok {
				continue
			}
			row := SupplierAuditRow{Supplier: sup.String("name"), Date: t}
			if row.Supplier == "" {
				row.Supplier = b.unspecified()
			}
			if sc, ok := p.Number("score"); ok {
				row.Score = &sc
			}
			a.SupplierAudits = append(a.SupplierAudits, row)
		}
	}
	sort.SliceStable(a.SupplierAudits, func(i, j int) bool {
		return a.SupplierAudits[i].Date.After(a.SupplierAudits[j].Date)
	})

	a.TotalTrainings = len(s.trainings)
	a.Trainings = make([]TrainingRow, 0, len(s.trainings))
	for _, t := range s.trainings {
		if t.String("status") == b.Vocab.Status.Completed {
			a.CompletedTrainings++
		} else {
			a.PlannedTrainings++
		}
		row := TrainingRow{
			Title:         t.String("title"),
			Status:        t.String("status"),
			Instructor:    t.String("instructor"),
			DurationHours: t.Float("duration_hours"),
			Participants:  participants(t),
		}
		if st, ok := t.Time(b.Location, "start_date"); ok {
			row.StartDate = &st
		}
		if end, ok := t.Time(b.Location, "end_date"); ok {
			row.EndDate = &end
		}
		a.Trainings = append(a.Trainings, row)
	}
	sort.SliceStable(a.Trainings, func(i, j int) bool {
		return after(a.Trainings[i].StartDate, a.Trainings[j].StartDate)
	})
}

// participants reads the embedded participant count aggregate.
func participants(t record.Record) int {
	for _, c := range t.Children("training_participants") {
		if n, ok := c.Number("count"); ok {
			return int(n)
		}
	}
	return 0
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
