// Package report assembles the A3 quality-board report: the full set of KPIs,
// grouped series and rankings for one period.
//
// Build is a pure function of its inputs. It performs no I/O and never
// fails; malformed records are coerced and missing categories land in the
// vocabulary's unspecified bucket.
package report

import (
	"time"

	"github.com/google/uuid"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/copq"
	"qms-mcp/internal/entity"
	"qms-mcp/internal/period"
	"qms-mcp/internal/record"
	"qms-mcp/internal/vocab"
)

// Limits caps the length of rankings and monthly series.
type Limits struct {
	NCByDept        int
	CostByUnit      int
	TopSuppliers    int
	FaultCategories int
	KaizenByDept    int
	DeviationUnits  int
	PersonnelDepts  int
	QualityWall     int
	AuditDepts      int
	OverdueNC       int
	OpenNC          int
	Calibrations    int
	RecentRecords   int
	NCMonths        int
	SeriesMonths    int
}

// DefaultLimits mirrors the quality board layout.
func DefaultLimits() Limits {
	return Limits{
		NCByDept:        12,
		CostByUnit:      12,
		TopSuppliers:    8,
		FaultCategories: 15,
		KaizenByDept:    8,
		DeviationUnits:  10,
		PersonnelDepts:  8,
		QualityWall:     12,
		AuditDepts:      10,
		OverdueNC:       8,
		OpenNC:          20,
		Calibrations:    8,
		RecentRecords:   15,
		NCMonths:        10,
		SeriesMonths:    8,
	}
}

// Builder produces reports. It holds only configuration and is safe for
// concurrent use.
type Builder struct {
	Vocab    *vocab.Vocabulary
	Location *time.Location
	Limits   Limits
	Labeler  period.Labeler

	costs *copq.Analyzer
}

// NewBuilder creates a builder with default limits.
func NewBuilder(v *vocab.Vocabulary, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{
		Vocab:    v,
		Location: loc,
		Limits:   DefaultLimits(),
		Labeler:  period.Labeler{Names: v.MonthNames},
		costs:    copq.NewAnalyzer(v),
	}
}

// Meta identifies one report run.
type Meta struct {
	RunID          string        `json:"runId"`
	PeriodLabel    string        `json:"periodLabel"`
	Period         period.Window `json:"period"`
	GeneratedAt    time.Time     `json:"generatedAt"`
	TotalPersonnel int           `json:"totalPersonnel"`
}

// Report is the aggregator output. Grouped series are ordered by descending
// magnitude and monthly series chronologically.
type Report struct {
	Meta                Meta                                `json:"meta"`
	KPIs                KPIs                                `json:"kpis"`
	NCByDept            []StatusRow                         `json:"ncByDept"`
	NCByType            []StatusRow                         `json:"ncByType"`
	NCMonthly           []aggregate.Point[NCMonth]          `json:"ncMonthly"`
	CostByType          []aggregate.Bucket[Money]           `json:"costByType"`
	CostByUnit          []aggregate.Bucket[Money]           `json:"costByUnit"`
	CostByCategory      []aggregate.Bucket[Money]           `json:"costByCategory"`
	CostMonthly         []aggregate.Point[Money]            `json:"costMonthly"`
	COPQ                copq.Summary                        `json:"copq"`
	PartCostLeaders     []copq.PartLeader                   `json:"partCostLeaders"`
	CostAnomalies       []copq.Anomaly                      `json:"costAnomalies"`
	Incoming            IncomingSection                     `json:"incoming"`
	Suppliers           SupplierSection                     `json:"suppliers"`
	Vehicles            VehicleSection                      `json:"vehicles"`
	Complaints          ComplaintSection                    `json:"complaints"`
	Kaizen              KaizenSection                       `json:"kaizen"`
	Deviations          DeviationSection                    `json:"deviations"`
	NonconformityModule NCModuleSection                     `json:"nonconformityModule"`
	QualityWall         []WallRow                           `json:"qualityWall"`
	OverdueNC           []OverdueRow                        `json:"overdueNC"`
	OpenNC              []OverdueRow                        `json:"openNC"`
	OpenNCTotal         int                                 `json:"openNCTotal"`
	OpenNCOverdue       int                                 `json:"openNCOverdue"`
	ActiveQuarantine    []QuarantineRow                     `json:"activeQuarantine"`
	OverdueCalibrations []CalibrationRow                    `json:"overdueCalibrations"`
	PersonnelByDept     []aggregate.Bucket[aggregate.Count] `json:"personnelByDept"`
	QualityActivities   QualityActivities                   `json:"qualityActivities"`
}

// scope is the input restricted to the report window. Kinds that the board
// reads unfiltered are taken from raw.
type scope struct {
	window     period.Window
	raw        entity.Collections
	nc         []record.Record
	ncRecords  []record.Record
	costs      []record.Record
	quarantine []record.Record
	incoming   []record.Record
	vehicles   []record.Record
	complaints []record.Record
	kaizen     []record.Record
	deviations []record.Record
	audits     []record.Record
	tasks      []record.Record
	supplierNC []record.Record
	trainings  []record.Record
	suppliers  []record.Record
	personnel  []record.Record
}

func (b *Builder) scope(data entity.Collections, w period.Window) *scope {
	f := func(k entity.Kind) []record.Record {
		return entity.Filter(data.Get(k), k, w, b.Location)
	}
	return &scope{
		window:     w,
		raw:        data,
		nc:         f(entity.NonConformities),
		ncRecords:  f(entity.NonconformityRecords),
		costs:      f(entity.QualityCosts),
		quarantine: f(entity.QuarantineRecords),
		incoming:   f(entity.IncomingInspections),
		vehicles:   f(entity.ProducedVehicles),
		complaints: f(entity.CustomerComplaints),
		kaizen:     f(entity.KaizenEntries),
		deviations: f(entity.Deviations),
		audits:     f(entity.Audits),
		tasks:      f(entity.Tasks),
		supplierNC: f(entity.SupplierNonConformities),
		trainings:  f(entity.Trainings),
		suppliers: entity.FilterFunc(data.Get(entity.Suppliers), func(r record.Record) bool {
			return b.Vocab.IsActiveSupplier(r.String("status"))
		}),
		personnel: entity.FilterFunc(data.Get(entity.Personnel), func(r record.Record) bool {
			return !r.IsFalse("is_active")
		}),
	}
}

// Build computes the report for window w. now is the reference instant for
// overdue and SLA checks.
func (b *Builder) Build(data entity.Collections, w period.Window, now time.Time) *Report {
	s := b.scope(data, w)

	r := &Report{
		Meta: Meta{
			RunID:          uuid.NewString(),
			PeriodLabel:    w.Label,
			Period:         w,
			GeneratedAt:    now,
			TotalPersonnel: len(s.personnel),
		},
	}

	b.buildNC(r, s, now)
	b.buildCosts(r, s, now)
	b.buildIncoming(r, s)
	b.buildSuppliers(r, s)
	b.buildVehicles(r, s)
	b.buildComplaints(r, s)
	b.buildKaizen(r, s)
	b.buildDeviations(r, s)
	b.buildNCModule(r, s)
	b.buildQuarantine(r, s)
	b.buildCalibrations(r, s, now)
	b.buildPersonnel(r, s)
	b.buildActivities(r, s, w)
	b.buildKPIs(r, s, now)
	return r
}

func (b *Builder) date(r record.Record, k entity.Kind) (time.Time, bool) {
	return entity.ResolveDate(r, k, b.Location)
}

func (b *Builder) unspecified() string {
	return b.Vocab.Labels.Unspecified
}

func (b *Builder) other() string {
	return b.Vocab.Labels.Other
}

func (b *Builder) topN(n int) aggregate.Options {
	return aggregate.Options{TopN: n, Other: b.other(), Unspecified: b.unspecified()}
}

func (b *Builder) all() aggregate.Options {
	return aggregate.Options{Unspecified: b.unspecified()}
}

// statusOr returns the record's status, or the open status when it has none.
func (b *Builder) statusOr(r record.Record) string {
	if st := r.String("status"); st != "" {
		return st
	}
	return b.Vocab.Status.Open
}
