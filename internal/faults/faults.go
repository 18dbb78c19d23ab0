// Package faults computes vehicle fault analytics for a month or for all time.
package faults

import (
	"time"

	"github.com/shopspring/decimal"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/entity"
	"qms-mcp/internal/period"
	"qms-mcp/internal/record"
	"qms-mcp/internal/timeline"
	"qms-mcp/internal/vocab"
)

// DefaultTopN is the number of groups each ranking keeps before folding.
const DefaultTopN = 10

// Input holds the collections the analytics read. Faults and events are flat
// and reference their vehicle through inspection_id.
type Input struct {
	Faults       []record.Record
	Vehicles     []record.Record
	Events       []record.Record
	Departments  []record.Record
	CostSettings []record.Record
}

// FromVehicles flattens the faults and timeline events embedded in vehicle
// rows. Each child is annotated with its vehicle id and each fault with the
// vehicle type.
func FromVehicles(vehicles, departments, costSettings []record.Record) Input {
	in := Input{Vehicles: vehicles, Departments: departments, CostSettings: costSettings}
	for _, v := range vehicles {
		for _, f := range v.Children(entity.FaultsField) {
			c := f.Clone()
			if !c.Has("inspection_id") {
				c["inspection_id"] = v.Get("id")
			}
			if !c.Has("vehicle_type", "inspection.vehicle_type") {
				c["vehicle_type"] = v.Get("vehicle_type")
			}
			in.Faults = append(in.Faults, c)
		}
	}
	in.Events = entity.Flatten(vehicles, entity.TimelineField, "inspection_id")
	return in
}

// DepartmentRow is the per-department fault summary.
type DepartmentRow struct {
	Name             string  `json:"name"`
	TotalFaults      float64 `json:"totalFaults"`
	FaultyVehicles   int     `json:"faultyVehicles"`
	VehiclesInPeriod int     `json:"vehiclesInPeriod"`
	FaultsPerVehicle float64 `json:"faultsPerVehicle"`

	vehicles map[string]struct{}
}

// TrendValue is one month of the fault trend.
type TrendValue struct {
	FaultCount        float64 `json:"faultCount"`
	VehicleCount      int     `json:"vehicleCount"`
	AvgInspectionMin  float64 `json:"avgInspectionMin"`
	AvgReworkMin      float64 `json:"avgReworkMin"`
	InspectionSamples int     `json:"inspectionSamples"`
	ReworkSamples     int     `json:"reworkSamples"`
}

type monthAcc struct {
	faults   float64
	vehicles int
	events   []record.Record
}

// Analytics is the result of one run.
type Analytics struct {
	Period                    period.Window                       `json:"period"`
	ByDepartment              []DepartmentRow                     `json:"byDepartment"`
	ByDepartmentTotal         []aggregate.Bucket[aggregate.Float] `json:"byDepartmentTotalFaults"`
	ByFaultCategory           []aggregate.Bucket[aggregate.Float] `json:"byFaultCategory"`
	ByVehicleType             []aggregate.Bucket[aggregate.Float] `json:"byVehicleType"`
	TotalFaults               float64                             `json:"totalFaults"`
	FaultyVehicleCount        int                                 `json:"faultyVehicleCount"`
	FaultyVehicleRate         float64                             `json:"faultyVehicleRate"`
	AvgFaultsPerFaultyVehicle float64                             `json:"avgFaultsPerFaultyVehicle"`
	TotalVehiclesInPeriod     int                                 `json:"totalVehiclesInPeriod"`
	MonthlyTrend              []aggregate.Point[TrendValue]       `json:"monthlyTrendData"`
	EstimatedQualityCost      decimal.Decimal                     `json:"estimatedQualityCost"`
	CostlyVehicles            []timeline.CostEstimate             `json:"costlyVehicles"`
}

// Analyzer runs fault analytics.
type Analyzer struct {
	Vocab    *vocab.Vocabulary
	Location *time.Location
	Labeler  period.Labeler
	TopN     int
}

// NewAnalyzer builds an analyzer with the default ranking size.
func NewAnalyzer(v *vocab.Vocabulary, loc *time.Location) *Analyzer {
	return &Analyzer{
		Vocab:    v,
		Location: loc,
		Labeler:  period.Labeler{Names: v.MonthNames},
		TopN:     DefaultTopN,
	}
}

// Analyze restricts the input to w and summarizes it. Faults with no
// resolvable date are kept in every window; vehicles and events need a date.
func (a *Analyzer) Analyze(in Input, w period.Window) *Analytics {
	faults := entity.Filter(in.Faults, entity.VehicleFaults, w, a.Location)
	vehicles := entity.Filter(in.Vehicles, entity.ProducedVehicles, w, a.Location)
	events := entity.Filter(in.Events, entity.VehicleTimelineEvents, w, a.Location)
	labels := a.Vocab.Labels

	res := &Analytics{
		Period:                w,
		TotalVehiclesInPeriod: len(vehicles),
		EstimatedQualityCost:  decimal.Zero,
	}

	departments := a.departmentRows(faults, in.Departments, len(vehicles))
	res.ByDepartmentTotal = aggregate.Rank(
		departmentBuckets(departments),
		a.TopN,
		func(x, y aggregate.Bucket[aggregate.Float]) int { return x.Value.Cmp(y.Value) },
		func(rest []aggregate.Bucket[aggregate.Float]) aggregate.Bucket[aggregate.Float] {
			o := aggregate.Bucket[aggregate.Float]{Name: labels.Other, Other: true}
			for _, b := range rest {
				o.Value += b.Value
				o.Items += b.Items
			}
			return o
		},
	)
	for _, d := range departments {
		if d.TotalFaults > 0 {
			res.ByDepartment = append(res.ByDepartment, d)
		}
	}
	res.ByDepartment = aggregate.Rank(res.ByDepartment, 0, func(x, y DepartmentRow) int {
		return aggregate.Float(x.TotalFaults).Cmp(aggregate.Float(y.TotalFaults))
	}, nil)

	opts := aggregate.Options{TopN: a.TopN, Other: labels.Other, Unspecified: labels.Unknown}
	res.ByFaultCategory = aggregate.AggregateBy(faults, func(f record.Record) string {
		return f.String("category.name", "fault_category.name", "fault_type")
	}, faultQuantity, aggregate.Options{TopN: a.TopN, Other: labels.Other, Unspecified: labels.Uncategorized})
	res.ByVehicleType = aggregate.AggregateBy(faults, func(f record.Record) string {
		return f.String("inspection.vehicle_type", "vehicle_type")
	}, faultQuantity, opts)

	faulty := make(map[string]struct{})
	for _, f := range faults {
		res.TotalFaults += float64(faultQuantity(f))
		if id := vehicleOf(f); id != "" {
			faulty[id] = struct{}{}
		}
	}
	res.FaultyVehicleCount = len(faulty)
	res.FaultyVehicleRate = aggregate.Percent(float64(res.FaultyVehicleCount), float64(res.TotalVehiclesInPeriod))
	res.AvgFaultsPerFaultyVehicle = aggregate.Ratio(res.TotalFaults, float64(res.FaultyVehicleCount), 2)

	res.MonthlyTrend = a.trend(faults, vehicles, events)
	res.EstimatedQualityCost, res.CostlyVehicles = a.costs(vehicles, in.CostSettings)
	return res
}

func (a *Analyzer) departmentRows(faults, departments []record.Record, vehicles int) []DepartmentRow {
	index := make(map[string]int)
	var rows []DepartmentRow
	add := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		index[name] = len(rows)
		rows = append(rows, DepartmentRow{Name: name, VehiclesInPeriod: vehicles, vehicles: make(map[string]struct{})})
		return len(rows) - 1
	}
	for _, d := range departments {
		if name := d.String("name"); name != "" {
			add(name)
		}
	}

	for _, f := range faults {
		name := f.String("department.name", "department_name")
		if name == "" {
			name = a.Vocab.Labels.Unknown
		}
		i := add(name)
		rows[i].TotalFaults += float64(faultQuantity(f))
		if id := vehicleOf(f); id != "" {
			rows[i].vehicles[id] = struct{}{}
		}
	}

	for i := range rows {
		rows[i].FaultyVehicles = len(rows[i].vehicles)
		rows[i].FaultsPerVehicle = aggregate.Ratio(rows[i].TotalFaults, float64(vehicles), 2)
	}
	return rows
}

func departmentBuckets(rows []DepartmentRow) []aggregate.Bucket[aggregate.Float] {
	out := make([]aggregate.Bucket[aggregate.Float], 0, len(rows))
	for _, r := range rows {
		out = append(out, aggregate.Bucket[aggregate.Float]{Name: r.Name, Value: aggregate.Float(r.TotalFaults), Items: r.FaultyVehicles})
	}
	return out
}

// trend spans the months between the earliest and latest dated fault or
// vehicle. Timeline events only land in months already spanned.
func (a *Analyzer) trend(faults, vehicles, events []record.Record) []aggregate.Point[TrendValue] {
	m := aggregate.NewMonthly[monthAcc](a.Labeler)

	for _, f := range faults {
		if t, ok := entity.ResolveDate(f, entity.VehicleFaults, a.Location); ok {
			m.At(t).faults += float64(faultQuantity(f))
		}
	}
	for _, v := range vehicles {
		if t, ok := entity.ResolveDate(v, entity.ProducedVehicles, a.Location); ok {
			m.At(t).vehicles++
		}
	}
	for _, e := range events {
		t, ok := entity.ResolveDate(e, entity.VehicleTimelineEvents, a.Location)
		if !ok {
			continue
		}
		if acc, ok := m.Within(t); ok {
			acc.events = append(acc.events, e)
		}
	}

	points := m.Points(0)
	out := make([]aggregate.Point[TrendValue], 0, len(points))
	for _, p := range points {
		tv := TrendValue{FaultCount: p.Value.faults, VehicleCount: p.Value.vehicles}
		inspections := timeline.PairByInspection(p.Value.events, timeline.ControlStart, timeline.ControlEnd, a.Location)
		reworks := timeline.PairByInspection(p.Value.events, timeline.ReworkStart, timeline.ReworkEnd, a.Location)
		tv.InspectionSamples = len(inspections)
		tv.ReworkSamples = len(reworks)
		tv.AvgInspectionMin = meanMinutes(inspections)
		tv.AvgReworkMin = meanMinutes(reworks)
		out = append(out, aggregate.Point[TrendValue]{Key: p.Key, Name: p.Name, Value: tv})
	}
	return out
}

func (a *Analyzer) costs(vehicles, settings []record.Record) (decimal.Decimal, []timeline.CostEstimate) {
	total := decimal.Zero
	if len(settings) == 0 {
		return total, []timeline.CostEstimate{}
	}
	rates := timeline.NewRates(settings)
	var estimates []timeline.CostEstimate
	for _, v := range vehicles {
		est := timeline.Estimate(v, entity.FaultsField, entity.TimelineField, rates,
			a.Vocab.Units.QualityControl, a.Vocab.Units.Production, a.Location)
		if !est.Total.IsPositive() {
			continue
		}
		total = total.Add(est.Total)
		estimates = append(estimates, est)
	}
	estimates = aggregate.Rank(estimates, a.TopN, func(x, y timeline.CostEstimate) int { return x.Total.Cmp(y.Total) }, nil)
	return total, estimates
}

func meanMinutes(spans []timeline.Span) float64 {
	if len(spans) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range spans {
		total += s.Duration()
	}
	return aggregate.Round(total.Minutes()/float64(len(spans)), 1)
}

func faultQuantity(f record.Record) aggregate.Float {
	return aggregate.Float(f.Quantity("quantity"))
}

func vehicleOf(f record.Record) string {
	return f.String("inspection.id", "inspection_id")
}
