// Package export renders a report as an XLSX workbook with one sheet per
// board section.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/report"
)

// Sheet names in workbook order.
const (
	SheetSummary    = "Summary"
	SheetNC         = "Nonconformities"
	SheetCosts      = "Quality Costs"
	SheetSupply     = "Incoming & Suppliers"
	SheetOperations = "Operations"
	SheetActions    = "Open Actions"
)

// Sheets lists the sheet names in workbook order.
var Sheets = []string{SheetSummary, SheetNC, SheetCosts, SheetSupply, SheetOperations, SheetActions}

const dateLayout = "2006-01-02"

// sheet appends rows to one worksheet. The first error sticks.
type sheet struct {
	f    *excelize.File
	name string
	row  int
	err  error
}

func (s *sheet) write(values ...any) {
	if s.err != nil {
		return
	}
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		s.err = err
		return
	}
	for i, v := range values {
		values[i] = cellValue(v)
	}
	s.err = s.f.SetSheetRow(s.name, cell, &values)
}

// title writes a section heading followed by the column headings.
func (s *sheet) title(heading string, columns ...string) {
	if s.row > 0 {
		s.row++
	}
	s.write(heading)
	if len(columns) == 0 {
		return
	}
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	s.write(row...)
}

func cellValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case aggregate.Count:
		return int(x)
	case aggregate.Float:
		return float64(x)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(dateLayout)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(dateLayout)
	case *float64:
		if x == nil {
			return ""
		}
		return *x
	}
	return v
}

// Workbook builds the workbook for r.
func Workbook(r *report.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	for _, name := range Sheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	writers := []struct {
		name string
		fn   func(*sheet, *report.Report)
	}{
		{SheetSummary, writeSummary},
		{SheetNC, writeNC},
		{SheetCosts, writeCosts},
		{SheetSupply, writeSupply},
		{SheetOperations, writeOperations},
		{SheetActions, writeActions},
	}
	for _, w := range writers {
		s := &sheet{f: f, name: w.name}
		w.fn(s, r)
		if s.err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %s: %w", w.name, s.err)
		}
	}
	return f, nil
}

// Write streams the workbook for r to w.
func Write(w io.Writer, r *report.Report) error {
	f, err := Workbook(r)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// Save writes the workbook for r to path.
func Save(path string, r *report.Report) error {
	f, err := Workbook(r)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSummary(s *sheet, r *report.Report) {
	k := r.KPIs
	s.title("A3 Quality Report", "Field", "Value")
	s.write("Period", r.Meta.PeriodLabel)
	s.write("Start", r.Meta.Period.Start)
	s.write("End", r.Meta.Period.End)
	s.write("Generated", r.Meta.GeneratedAt.Format(time.RFC3339))
	s.write("Run ID", r.Meta.RunID)
	s.write("Personnel", r.Meta.TotalPersonnel)

	s.title("KPIs", "KPI", "Value")
	rows := []struct {
		name  string
		value any
	}{
		{"Open DF", k.OpenDF},
		{"Open 8D", k.Open8D},
		{"Total NC", k.TotalNC},
		{"Closed NC", k.ClosedNC},
		{"Avg closure days", k.AvgClosureDays},
		{"Total cost", k.TotalCost},
		{"Total COPQ", k.TotalCOPQ},
		{"Cost per vehicle", k.CostPerVehicle},
		{"In quarantine", k.InQuarantine},
		{"Total quarantine", k.TotalQuarantine},
		{"Open complaints", k.OpenComplaints},
		{"Total complaints", k.TotalComplaints},
		{"SLA overdue", k.SLAOverdue},
		{"Incoming inspections", k.TotalIncoming},
		{"Incoming rejection rate %", k.IncomingRejectionRate},
		{"Incoming PPM", k.IncomingPPM},
		{"Vehicles", k.TotalVehicles},
		{"Vehicle pass rate %", k.VehiclePassRate},
		{"Completed kaizen", k.CompletedKaizen},
		{"Active kaizen", k.ActiveKaizen},
		{"Kaizen savings", k.KaizenSavings},
		{"Open deviations", k.OpenDeviations},
		{"Completed audits", k.CompletedAudits},
		{"Open audit findings", k.OpenAuditFindings},
		{"Open tasks", k.OpenTasks},
		{"Overdue tasks", k.OverdueTasks},
		{"Overdue calibrations", k.OverdueCalCount},
		{"Active suppliers", k.ActiveSuppliers},
		{"Supplier NC", k.TotalSupplierNC},
		{"Open supplier NC", k.OpenSupplierNC},
	}
	for _, row := range rows {
		s.write(row.name, row.value)
	}
}

func writeNC(s *sheet, r *report.Report) {
	statusRows := func(heading string, rows []report.StatusRow) {
		s.title(heading, "Name", "Open", "Closed", "Total")
		for _, row := range rows {
			s.write(row.Name, row.Open, row.Closed, row.Total)
		}
	}
	statusRows("By department", r.NCByDept)
	statusRows("By type", r.NCByType)

	s.title("Monthly", "Month", "Opened", "Closed")
	for _, p := range r.NCMonthly {
		s.write(p.Name, p.Value.Opened, p.Value.Closed)
	}

	s.title("Quality wall", "Department", "Open", "Closed", "Total", "Closure rate %")
	for _, row := range r.QualityWall {
		s.write(row.Name, row.Open, row.Closed, row.Total, row.ClosureRate)
	}

	m := r.NonconformityModule
	s.title("Nonconformity records", "Date", "Part", "Description", "Category", "Severity", "Status", "Responsible")
	for _, row := range m.RecentRecords {
		s.write(row.Date, row.Part, row.Description, row.Category, row.Severity, row.Status, row.Responsible)
	}
	buckets(s, "Records by severity", m.BySeverity)
}

func writeCosts(s *sheet, r *report.Report) {
	buckets(s, "By cost type", r.CostByType)
	buckets(s, "By unit", r.CostByUnit)
	buckets(s, "By COPQ category", r.CostByCategory)

	s.title("Monthly", "Month", "Amount")
	for _, p := range r.CostMonthly {
		s.write(p.Name, p.Value)
	}

	c := r.COPQ
	s.title("COPQ", "Field", "Value")
	s.write("Internal failure", c.InternalFailure)
	s.write("External failure", c.ExternalFailure)
	s.write("Appraisal", c.Appraisal)
	s.write("Prevention", c.Prevention)
	s.write("Total", c.Total)
	s.write("Vehicles", c.Vehicles)
	s.write("Cost per vehicle", c.CostPerVehicle)

	s.title("Part cost leaders", "Rank", "Part code", "Part name", "Count", "Total")
	for _, p := range r.PartCostLeaders {
		rank := any(p.Rank)
		if p.Other {
			rank = ""
		}
		s.write(rank, p.PartCode, p.PartName, p.Count, p.Total)
	}

	s.title("Cost anomalies", "Type", "Unit", "Month", "This month", "Baseline", "Change %", "Severity")
	for _, a := range r.CostAnomalies {
		s.write(string(a.Kind), a.Unit, a.Month, a.Current, a.Baseline, a.Change, string(a.Severity))
	}
}

func writeSupply(s *sheet, r *report.Report) {
	in := r.Incoming
	buckets(s, "Incoming by result", in.ByResult)
	buckets(s, "Top rejected suppliers", in.TopRejectedSuppliers)
	s.title("Incoming monthly", "Month", "Inspected", "Rejected")
	for _, p := range in.Monthly {
		s.write(p.Name, p.Value.Inspected, p.Value.Rejected)
	}

	sup := r.Suppliers
	buckets(s, "Supplier grades", sup.GradeDistribution)
	s.title("Supplier NC", "Supplier", "Count", "Open")
	for _, row := range sup.TopSuppliersNC {
		s.write(row.Name, row.Count, row.Open)
	}
}

func writeOperations(s *sheet, r *report.Report) {
	s.title("Vehicle faults by category", "Category", "Faults", "Vehicles")
	for _, row := range r.Vehicles.FaultByCategory {
		s.write(row.Name, row.Count, row.Vehicles)
	}
	s.title("Vehicles monthly", "Month", "Total", "Passed")
	for _, p := range r.Vehicles.Monthly {
		s.write(p.Name, p.Value.Total, p.Value.Passed)
	}

	buckets(s, "Complaints by status", r.Complaints.ByStatus)
	buckets(s, "Kaizen by status", r.Kaizen.ByStatus)
	s.title("Kaizen by department", "Department", "Completed", "Active")
	for _, row := range r.Kaizen.ByDept {
		s.write(row.Name, row.Completed, row.Active)
	}
	buckets(s, "Deviations by unit", r.Deviations.ByUnit)
	buckets(s, "Personnel by department", r.PersonnelByDept)

	a := r.QualityActivities
	s.title("Quality activities", "Field", "Value")
	s.write("Control plans", a.ControlPlans)
	s.write("Avg control time", a.AvgControlFormatted)
	s.write("Avg rework time", a.AvgReworkFormatted)
	s.write("Completed trainings", a.CompletedTrainings)
	s.write("Planned trainings", a.PlannedTrainings)
	buckets(s, "Audit findings by department", a.AuditFindingsByDept)
	s.title("Trainings", "Title", "Start", "End", "Status", "Participants")
	for _, t := range a.Trainings {
		s.write(t.Title, t.StartDate, t.EndDate, t.Status, t.Participants)
	}
}

func writeActions(s *sheet, r *report.Report) {
	overdue := func(heading string, rows []report.OverdueRow) {
		s.title(heading, "Number", "Title", "Type", "Status", "Department", "Due", "Days overdue")
		for _, row := range rows {
			s.write(row.NCNumber, row.Title, row.Type, row.Status, row.Department, row.DueDate, row.DaysOverdue)
		}
	}
	overdue("Overdue NC", r.OverdueNC)
	overdue("Open NC", r.OpenNC)

	s.title("Active quarantine", "Part", "Lot", "Quantity", "Unit", "Date")
	for _, q := range r.ActiveQuarantine {
		s.write(q.Part, q.Lot, q.Quantity, q.Unit, q.Date)
	}
	s.title("Overdue calibrations", "Equipment", "Due", "Days overdue")
	for _, c := range r.OverdueCalibrations {
		s.write(c.Equipment, c.DueDate, c.DaysOverdue)
	}
}

func buckets[M any](s *sheet, heading string, rows []aggregate.Bucket[M]) {
	s.title(heading, "Name", "Value", "Records")
	for _, b := range rows {
		s.write(b.Name, b.Value, b.Items)
	}
}
