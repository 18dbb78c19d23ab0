package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/copq"
	"qms-mcp/internal/entity"
	"qms-mcp/internal/period"
	"qms-mcp/internal/record"
	"qms-mcp/internal/vocab"
)

var now = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func newBuilder() *Builder {
	return NewBuilder(vocab.Default(), time.UTC)
}

func thisYear() period.Window {
	return period.Resolve(period.ThisYear, now, period.Options{})
}

func TestBuild_NCTimeline(t *testing.T) {
	data := entity.Collections{
		entity.NonConformities: {
			{"id": "1", "type": "DF", "status": "Açık", "created_at": "2024-01-10T09:00:00Z"},
			{"id": "2", "type": "8D", "status": "Kapatıldı", "created_at": "2024-02-05T09:00:00Z", "closed_at": "2024-02-25T09:00:00Z"},
			{"id": "3", "type": "DF", "status": "Açık", "created_at": "2024-02-20T09:00:00Z"},
		},
	}

	r := newBuilder().Build(data, thisYear(), now)

	assert.Equal(t, 3, r.KPIs.TotalNC)
	assert.Equal(t, 1, r.KPIs.ClosedNC)
	assert.Equal(t, 2, r.KPIs.OpenDF)
	assert.Equal(t, 0, r.KPIs.Open8D)
	assert.Equal(t, 20, r.KPIs.AvgClosureDays)

	require.Len(t, r.NCMonthly, 2)
	assert.Equal(t, "Jan 24", r.NCMonthly[0].Name)
	assert.Equal(t, 1, r.NCMonthly[0].Value.Opened)
	assert.Equal(t, "Feb 24", r.NCMonthly[1].Name)
	assert.Equal(t, 2, r.NCMonthly[1].Value.Opened)
	assert.Equal(t, 1, r.NCMonthly[1].Value.Closed)

	assert.Equal(t, "2024", r.Meta.PeriodLabel)
	assert.NotEmpty(t, r.Meta.RunID)
}

func TestBuild_NCByDeptKeepsTotals(t *testing.T) {
	var ncs []record.Record
	for i := 0; i < 15; i++ {
		status := "Açık"
		if i >= 9 {
			status = "Kapatıldı"
		}
		ncs = append(ncs, record.Record{
			"id":         fmt.Sprint(i),
			"department": fmt.Sprintf("Dept %02d", i),
			"status":     status,
			"created_at": "2024-03-01",
		})
	}

	r := newBuilder().Build(entity.Collections{entity.NonConformities: ncs}, thisYear(), now)

	require.Len(t, r.NCByDept, 13)
	assert.Equal(t, "Other", r.NCByDept[12].Name)

	var open, closed, total int
	for _, row := range r.NCByDept {
		open += row.Open
		closed += row.Closed
		total += row.Total
		assert.Equal(t, row.Total, row.Open+row.Closed, row.Name)
	}
	assert.Equal(t, 9, open)
	assert.Equal(t, 6, closed)
	assert.Equal(t, 15, total)
}

func TestBuild_EmptyInput(t *testing.T) {
	r := newBuilder().Build(entity.Collections{}, thisYear(), now)

	assert.Zero(t, r.KPIs.IncomingRejectionRate)
	assert.Zero(t, r.KPIs.IncomingPPM)
	assert.Zero(t, r.KPIs.VehiclePassRate)
	assert.True(t, r.KPIs.CostPerVehicle.IsZero())
	require.Len(t, r.Incoming.ByResult, 4)
	for _, b := range r.Incoming.ByResult {
		assert.Zero(t, b.Items, b.Name)
	}
	assert.NotNil(t, r.OpenNC)
	assert.NotNil(t, r.ActiveQuarantine)
	assert.NotNil(t, r.OverdueCalibrations)
}

func TestBuild_COPQ(t *testing.T) {
	data := entity.Collections{
		entity.QualityCosts: {
			{"id": "c1", "cost_type": "Hurda Maliyeti", "amount": 1000.0, "unit": "Kaynak", "cost_date": "2024-02-01"},
			{"id": "c2", "cost_type": "Garanti Maliyeti", "amount": "500", "unit": "Satış", "cost_date": "2024-03-01"},
			{"id": "c3", "cost_type": "Garanti Maliyeti", "amount": 300.0, "is_supplier_nc": true, "supplier_id": "s1", "cost_date": "2024-03-10"},
			{"id": "old", "cost_type": "Hurda Maliyeti", "amount": 9999.0, "cost_date": "2023-03-10"},
		},
		entity.ProducedVehicles: {
			{"id": "v1", "created_at": "2024-02-10"},
			{"id": "v2", "created_at": "2024-04-10"},
			{"id": "v3", "created_at": "2023-04-10"},
		},
	}

	r := newBuilder().Build(data, thisYear(), now)

	assert.True(t, decimal.NewFromInt(1800).Equal(r.KPIs.TotalCost), r.KPIs.TotalCost.String())
	assert.True(t, decimal.NewFromInt(1800).Equal(r.COPQ.Total))
	assert.True(t, decimal.NewFromInt(1300).Equal(r.COPQ.InternalFailure))
	assert.True(t, decimal.NewFromInt(500).Equal(r.COPQ.ExternalFailure))
	assert.True(t, decimal.NewFromInt(900).Equal(r.KPIs.CostPerVehicle))

	require.Len(t, r.CostByCategory, 4)
	assert.Equal(t, string(copq.InternalFailure), r.CostByCategory[0].Name)
	assert.Equal(t, 2, r.CostByCategory[0].Items)

	require.Len(t, r.CostByType, 2)
	assert.Equal(t, "Hurda Maliyeti", r.CostByType[0].Name)

	require.Len(t, r.CostMonthly, 2)
	assert.Equal(t, "Feb 24", r.CostMonthly[0].Name)
	assert.True(t, decimal.NewFromInt(800).Equal(r.CostMonthly[1].Value))
}

func TestBuild_Incoming(t *testing.T) {
	data := entity.Collections{
		entity.IncomingInspections: {
			{"id": "1", "decision": "Kabul", "supplier_name": "Alfa", "quantity_received": 100.0, "inspection_date": "2024-01-05"},
			{"id": "2", "decision": "Ret", "supplier_name": "Beta", "quantity_received": 100.0, "quantity_rejected": 4.0, "inspection_date": "2024-01-09"},
			{"id": "3", "decision": "Ret", "supplier_name": "Beta", "total_quantity": 100.0, "quantity_rejected": 1.0, "inspection_date": "2024-03-09"},
			{"id": "4", "supplier_name": "Alfa", "quantity_received": "100", "inspection_date": "2024-03-12"},
		},
	}

	r := newBuilder().Build(data, thisYear(), now)

	k := r.KPIs
	assert.Equal(t, 4, k.TotalIncoming)
	assert.Equal(t, 1, k.AcceptedIncoming)
	assert.Equal(t, 2, k.RejectedIncoming)
	assert.Equal(t, 1, k.PendingIncoming)
	assert.Equal(t, 50.0, k.IncomingRejectionRate)
	assert.Equal(t, 400.0, k.TotalPartsInspected)
	assert.Equal(t, 5.0, k.TotalPartsRejected)
	assert.Equal(t, 12500.0, k.IncomingPPM)

	names := []string{}
	for _, b := range r.Incoming.ByResult {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"Kabul", "Şartlı Kabul", "Ret", "Beklemede"}, names)

	require.Len(t, r.Incoming.TopRejectedSuppliers, 1)
	assert.Equal(t, "Beta", r.Incoming.TopRejectedSuppliers[0].Name)
	assert.Equal(t, 1, r.Suppliers.SuppliersWithRejectionCount)

	require.Len(t, r.Incoming.Monthly, 3)
	assert.Equal(t, IncomingMonth{Inspected: 2, Rejected: 1}, r.Incoming.Monthly[0].Value)
	assert.Equal(t, IncomingMonth{}, r.Incoming.Monthly[1].Value)
}

func TestBuild_Vehicles(t *testing.T) {
	data := entity.Collections{
		entity.ProducedVehicles: {
			{"id": "v1", "created_at": "2024-02-10", entity.FaultsField: []any{
				map[string]any{"fault_category": map[string]any{"name": "Boya"}, "quantity": 2.0},
				map[string]any{"fault_type": "Montaj"},
			}},
			{"id": "v2", "created_at": "2024-02-11", entity.FaultsField: []any{
				map[string]any{"fault_category": map[string]any{"name": "Boya"}, "quantity": "1.000"},
			}},
			{"id": "v3", "created_at": "2024-03-11"},
			{"id": "v4", "created_at": "2024-03-12", entity.FaultsField: []any{}},
		},
	}

	r := newBuilder().Build(data, thisYear(), now)

	assert.Equal(t, 4, r.KPIs.TotalVehicles)
	assert.Equal(t, 2, r.KPIs.PassedVehicles)
	assert.Equal(t, 2, r.KPIs.FailedVehicles)
	assert.Equal(t, 50.0, r.KPIs.VehiclePassRate)

	require.Len(t, r.Vehicles.FaultByCategory, 2)
	top := r.Vehicles.FaultByCategory[0]
	assert.Equal(t, "Boya", top.Name)
	assert.Equal(t, 1002.0, top.Count)
	assert.Equal(t, 2, top.Vehicles)

	require.Len(t, r.Vehicles.Monthly, 2)
	assert.Equal(t, VehicleMonth{Total: 2, Passed: 0}, r.Vehicles.Monthly[0].Value)
	assert.Equal(t, VehicleMonth{Total: 2, Passed: 2}, r.Vehicles.Monthly[1].Value)
}

func TestBuild_OpenNCIgnoresPeriod(t *testing.T) {
	data := entity.Collections{
		entity.NonConformities: {
			{"id": "a", "status": "Açık", "created_at": "2022-01-01", "due_at": "2022-02-01"},
			{"id": "b", "status": "Açık", "created_at": "2024-05-01"},
			{"id": "c", "status": "Açık", "created_at": "2024-05-02", "supplier_id": "s1"},
			{"id": "d", "status": "Reddedildi", "created_at": "2024-05-03"},
			{"id": "e", "status": "Kapatıldı", "created_at": "2024-05-04"},
			{"id": "f", "status": "Açık", "created_at": "2024-05-20"},
		},
	}

	r := newBuilder().Build(data, thisYear(), now)

	assert.Equal(t, 3, r.OpenNCTotal)
	assert.Equal(t, 1, r.OpenNCOverdue)
	require.Len(t, r.OpenNC, 3)
	assert.Equal(t, "a", r.OpenNC[0].ID)
	assert.Equal(t, "f", r.OpenNC[1].ID)
	assert.Equal(t, "b", r.OpenNC[2].ID)

	// The overdue ranking only sees the period.
	assert.Empty(t, r.OverdueNC)
}

func TestBuild_QuarantineAndCalibrations(t *testing.T) {
	data := entity.Collections{
		entity.QuarantineRecords: {
			{"id": "q1", "status": "Karantinada", "quarantine_date": "2021-05-01", "part_code": "P-1"},
			{"id": "q2", "status": "Karantinada", "quarantine_date": "2024-05-01"},
			{"id": "q3", "status": "Serbest Bırakıldı", "quarantine_date": "2024-05-02"},
		},
		entity.Equipments: {
			{"name": "Kumpas", entity.CalibrationsField: []any{
				map[string]any{"next_calibration_date": "2024-05-22"},
				map[string]any{"next_calibration_date": "2024-12-01"},
			}},
			{"name": "Mikrometre", entity.CalibrationsField: []any{
				map[string]any{"next_calibration_date": "2024-01-01"},
				map[string]any{"next_calibration_date": "bozuk"},
			}},
		},
	}

	r := newBuilder().Build(data, thisYear(), now)

	require.Len(t, r.ActiveQuarantine, 2)
	assert.Equal(t, "q2", r.ActiveQuarantine[0].ID)
	assert.Equal(t, 2, r.KPIs.InQuarantine)

	require.Len(t, r.OverdueCalibrations, 2)
	assert.Equal(t, "Mikrometre", r.OverdueCalibrations[0].Equipment)
	assert.Equal(t, 10, r.OverdueCalibrations[1].DaysOverdue)
	assert.Equal(t, 2, r.KPIs.OverdueCalCount)
}

func TestBuild_Suppliers(t *testing.T) {
	data := entity.Collections{
		entity.Suppliers: {
			{"id": "s1", "name": "Alfa", "status": "Onaylı", entity.ScoresField: []any{
				map[string]any{"grade": "C", "period": "2023-01-01"},
				map[string]any{"grade": "A", "period": "2024-01-01"},
			}},
			{"id": "s2", "name": "Beta", "status": "Alternatif"},
			{"id": "s3", "name": "Gama", "status": "Askıda", entity.ScoresField: []any{
				map[string]any{"grade": "A", "period": "2024-01-01"},
			}},
		},
		entity.SupplierNonConformities: {
			{"id": "n1", "supplier_id": "s1", "status": "Açık", "created_at": "2024-02-01"},
			{"id": "n2", "supplier_id": "s1", "status": "Kapatıldı", "created_at": "2024-02-01"},
			{"id": "n3", "supplier": map[string]any{"name": "Beta"}, "status": "Açık", "created_at": "2024-02-01"},
		},
	}

	r := newBuilder().Build(data, thisYear(), now)

	assert.Equal(t, 2, r.KPIs.ActiveSuppliers)
	assert.Equal(t, 3, r.KPIs.TotalSupplierNC)
	assert.Equal(t, 2, r.KPIs.OpenSupplierNC)
	assert.Equal(t, 1, r.Suppliers.GradeABCount)
	require.Len(t, r.Suppliers.GradeDistribution, 2)
	assert.Equal(t, "A", r.Suppliers.GradeDistribution[0].Name)
	assert.Equal(t, "N/A", r.Suppliers.GradeDistribution[1].Name)

	assert.Equal(t, 2, r.Suppliers.SuppliersWithNCCount)
	require.Len(t, r.Suppliers.TopSuppliersNC, 2)
	assert.Equal(t, SupplierNCRow{Name: "Alfa", Count: 2, Open: 1}, r.Suppliers.TopSuppliersNC[0])
}

func TestBuild_Activities(t *testing.T) {
	data := entity.Collections{
		entity.IncomingControlPlans: {{"part_code": "A", "is_current": false}, {"part_code": "B"}},
		entity.ProcessControlPlans:  {{"id": "p1"}, {"id": "p2"}},
		entity.Audits: {
			{"id": "a1", "status": "Tamamlandı", "audit_date": "2024-03-01", "department": map[string]any{"unit_name": "Kaynak"}},
			{"id": "a2", "status": "Planlandı", "audit_date": "2023-03-01"},
		},
		entity.AuditFindings: {
			{"audit_id": "a1", "status": "Açık"},
			{"audit_id": "a1", "status": "Kapatıldı"},
			{"audit_id": "a2", "status": "Açık"},
		},
		entity.Trainings: {
			{"title": "5S", "status": "Tamamlandı", "start_date": "2024-02-01", "training_participants": []any{map[string]any{"count": 12.0}}},
			{"title": "SPC", "status": "Planlandı", "start_date": "2024-04-01"},
		},
	}

	r := newBuilder().Build(data, thisYear(), now)

	a := r.QualityActivities
	assert.Equal(t, 1, a.IncomingControlPlans)
	assert.Equal(t, 2, a.ProcessControlPlans)
	assert.Equal(t, 3, a.ControlPlans)

	require.Len(t, a.AuditFindingsByDept, 1)
	assert.Equal(t, "Kaynak", a.AuditFindingsByDept[0].Name)
	assert.Equal(t, 1, r.KPIs.OpenAuditFindings)
	assert.Equal(t, 1, r.KPIs.CompletedAudits)
	assert.Equal(t, 1, r.KPIs.TotalAudits)

	assert.Equal(t, 1, a.CompletedTrainings)
	assert.Equal(t, 1, a.PlannedTrainings)
	require.Len(t, a.Trainings, 2)
	assert.Equal(t, "SPC", a.Trainings[0].Title)
	assert.Equal(t, 12, a.Trainings[1].Participants)
}

func TestBuild_NCTimelineIgnoresClosuresOutsideWindow(t *testing.T) {
	data := entity.Collections{
		entity.NonConformities: {
			{"id": "1", "status": "Açık", "created_at": "2024-01-10T09:00:00Z"},
			{"id": "2", "status": "Kapatıldı", "created_at": "2024-02-05T09:00:00Z", "closed_at": "2025-06-20T09:00:00Z"},
		},
	}

	r := newBuilder().Build(data, thisYear(), now)

	require.Len(t, r.NCMonthly, 2)
	assert.Equal(t, "Jan 24", r.NCMonthly[0].Name)
	assert.Equal(t, "Feb 24", r.NCMonthly[1].Name)
	opened, closed := 0, 0
	for _, p := range r.NCMonthly {
		opened += p.Value.Opened
		closed += p.Value.Closed
	}
	assert.Equal(t, 2, opened)
	assert.Zero(t, closed)
	assert.Equal(t, 1, r.KPIs.ClosedNC)
}

func TestBuild_RankingsFoldTail(t *testing.T) {
	completed := vocab.Default().Status.Completed
	data := entity.Collections{}
	for i := 0; i < 12; i++ {
		unit := fmt.Sprintf("Unit %02d", i)
		status := "Aktif"
		if i%3 == 0 {
			status = completed
		}
		data[entity.KaizenEntries] = append(data[entity.KaizenEntries], record.Record{
			"id": fmt.Sprint("k", i), "status": status, "created_at": "2024-03-01",
			"department": map[string]any{"unit_name": unit},
		})
		data[entity.Deviations] = append(data[entity.Deviations], record.Record{
			"id": fmt.Sprint("d", i), "requesting_unit": unit, "created_at": "2024-03-01",
		})
		auditID := fmt.Sprint("a", i)
		data[entity.Audits] = append(data[entity.Audits], record.Record{
			"id": auditID, "audit_date": "2024-03-01", "department": map[string]any{"unit_name": unit},
		})
		data[entity.AuditFindings] = append(data[entity.AuditFindings], record.Record{"audit_id": auditID, "status": "Açık"})
	}
	var faults []any
	for i := 0; i < 20; i++ {
		faults = append(faults, map[string]any{
			"fault_category": map[string]any{"name": fmt.Sprintf("Cat %02d", i)},
			"quantity":       2.0,
		})
	}
	data[entity.ProducedVehicles] = []record.Record{
		{"id": "v1", "created_at": "2024-03-01", entity.FaultsField: faults[:10]},
		{"id": "v2", "created_at": "2024-03-02", entity.FaultsField: faults[10:]},
	}

	b := newBuilder()
	r := b.Build(data, thisYear(), now)

	kaizen := r.Kaizen.ByDept
	require.Len(t, kaizen, b.Limits.KaizenByDept+1)
	last := kaizen[len(kaizen)-1]
	assert.True(t, last.Other)
	assert.Equal(t, "Other", last.Name)
	var completedSum, activeSum int
	for _, row := range kaizen {
		completedSum += row.Completed
		activeSum += row.Active
	}
	assert.Equal(t, 4, completedSum)
	assert.Equal(t, 8, activeSum)

	require.Len(t, r.Deviations.ByUnit, b.Limits.DeviationUnits+1)
	assert.True(t, r.Deviations.ByUnit[b.Limits.DeviationUnits].Other)
	assert.Equal(t, aggregate.Count(12), aggregate.Sum(r.Deviations.ByUnit))

	findings := r.QualityActivities.AuditFindingsByDept
	require.Len(t, findings, b.Limits.AuditDepts+1)
	assert.Equal(t, 12, aggregate.Items(findings))

	cats := r.Vehicles.FaultByCategory
	require.Len(t, cats, b.Limits.FaultCategories+1)
	other := cats[len(cats)-1]
	assert.True(t, other.Other)
	var count float64
	for _, row := range cats {
		count += row.Count
	}
	assert.Equal(t, 40.0, count)
	// Five folded categories, all on the second vehicle.
	assert.Equal(t, 10.0, other.Count)
	assert.Equal(t, 1, other.Vehicles)
}

func TestBuild_ComplaintMonthlyUsesComplaintDate(t *testing.T) {
	data := entity.Collections{
		entity.CustomerComplaints: {
			{"id": "c1", "status": "Açık", "complaint_date": "2024-02-10", "created_at": "2024-03-01"},
			{"id": "c2", "status": "Açık", "created_at": "2024-04-01"},
		},
	}

	r := newBuilder().Build(data, thisYear(), now)

	assert.Equal(t, 2, aggregate.Items(r.Complaints.ByStatus))
	require.Len(t, r.Complaints.Monthly, 1)
	assert.Equal(t, "Feb 24", r.Complaints.Monthly[0].Name)
	assert.Equal(t, aggregate.Count(1), r.Complaints.Monthly[0].Value)
}
