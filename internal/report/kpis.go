package report

import (
	"time"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/entity"
	"qms-mcp/internal/period"
	"qms-mcp/internal/record"
)

// KPIs are the headline figures of the board.
type KPIs struct {
	OpenDF          int   `json:"openDF"`
	Open8D          int   `json:"open8D"`
	TotalNC         int   `json:"totalNc"`
	ClosedNC        int   `json:"closedNc"`
	AvgClosureDays  int   `json:"avgClosureDays"`
	TotalCost       Money `json:"totalCost"`
	InQuarantine    int   `json:"inQuarantine"`
	TotalQuarantine int   `json:"totalQuarantine"`
	OpenComplaints  int   `json:"openComplaints"`
	TotalComplaints int   `json:"totalComplaints"`
	SLAOverdue      int   `json:"slaOverdue"`

	TotalIncoming         int     `json:"totalIncoming"`
	AcceptedIncoming      int     `json:"acceptedIncoming"`
	ConditionalIncoming   int     `json:"conditionalIncoming"`
	RejectedIncoming      int     `json:"rejectedIncoming"`
	PendingIncoming       int     `json:"pendingIncoming"`
	TotalPartsInspected   float64 `json:"totalPartsInspected"`
	TotalPartsRejected    float64 `json:"totalPartsRejected"`
	IncomingRejectionRate float64 `json:"incomingRejectionRate"`
	IncomingPPM           float64 `json:"incomingPPM"`

	TotalVehicles   int     `json:"totalVehicles"`
	PassedVehicles  int     `json:"passedVehicles"`
	FailedVehicles  int     `json:"failedVehicles"`
	VehiclePassRate float64 `json:"vehiclePassRate"`

	CompletedKaizen int   `json:"completedKaizen"`
	ActiveKaizen    int   `json:"activeKaizen"`
	KaizenSavings   Money `json:"kaizenSavings"`
	TotalKaizen     int   `json:"totalKaizen"`

	OpenDeviations    int `json:"openDeviations"`
	TotalDeviations   int `json:"totalDeviations"`
	CompletedAudits   int `json:"completedAudits"`
	OpenAuditFindings int `json:"openAuditFindings"`
	TotalAudits       int `json:"totalAudits"`
	OpenTasks         int `json:"openTasks"`
	OverdueTasks      int `json:"overdueTasks"`
	OverdueCalCount   int `json:"overdueCalCount"`
	ActiveSuppliers   int `json:"activeSuppliers"`
	TotalSupplierNC   int `json:"totalSupplierNC"`
	OpenSupplierNC    int `json:"openSupplierNC"`

	TotalCOPQ      Money `json:"totalCOPQ"`
	CostPerVehicle Money `json:"costPerVehicle"`
}

func (b *Builder) buildKPIs(r *Report, s *scope, now time.Time) {
	k := &r.KPIs
	v := b.Vocab
	loc := b.Location

	k.TotalNC = len(s.nc)
	var closureDays, closedDated int
	for _, n := range s.nc {
		st := n.String("status")
		if v.IsClosed(st) {
			k.ClosedNC++
			created, ok1 := n.Time(loc, "created_at")
			closed, ok2 := n.Time(loc, "closed_at")
			if ok1 && ok2 {
				closureDays += period.DaysBetween(created, closed)
				closedDated++
			}
			continue
		}
		switch n.String("type") {
		case v.NCTypes.CorrectiveAction:
			k.OpenDF++
		case v.NCTypes.EightD:
			k.Open8D++
		}
	}
	if closedDated > 0 {
		k.AvgClosureDays = int(aggregate.Round(float64(closureDays)/float64(closedDated), 0))
	}

	k.TotalCost = aggregate.Sum(r.CostByType)

	k.InQuarantine = len(r.ActiveQuarantine)
	k.TotalQuarantine = k.InQuarantine

	k.TotalComplaints = len(s.complaints)
	for _, c := range s.complaints {
		st := c.String("status")
		if !v.IsClosed(st) && st != v.Status.Rejected {
			k.OpenComplaints++
		}
		if due, ok := c.Time(loc, "sla_resolution_due"); ok && now.After(due) {
			k.SLAOverdue++
		}
	}

	k.TotalIncoming = len(s.incoming)
	for _, i := range s.incoming {
		switch b.decision(i) {
		case v.Decision.Accepted:
			k.AcceptedIncoming++
		case v.Decision.Conditional:
			k.ConditionalIncoming++
		case v.Decision.Rejected:
			k.RejectedIncoming++
		case v.Decision.Pending:
			k.PendingIncoming++
		}
		k.TotalPartsInspected += i.FirstFloat("quantity_received", "total_quantity")
		k.TotalPartsRejected += i.Float("quantity_rejected")
	}
	k.IncomingRejectionRate = aggregate.Percent(float64(k.RejectedIncoming), float64(k.TotalIncoming))
	k.IncomingPPM = aggregate.PPM(k.TotalPartsRejected, k.TotalPartsInspected)

	k.TotalVehicles = len(s.vehicles)
	for _, veh := range s.vehicles {
		if passed(veh) {
			k.PassedVehicles++
		} else {
			k.FailedVehicles++
		}
	}
	k.VehiclePassRate = aggregate.Percent(float64(k.PassedVehicles), float64(k.TotalVehicles))

	k.TotalKaizen = len(s.kaizen)
	for _, z := range s.kaizen {
		st := z.String("status")
		switch {
		case st == v.Status.Completed:
			k.CompletedKaizen++
		case v.IsInProgress(st):
			k.ActiveKaizen++
		}
		k.KaizenSavings = k.KaizenSavings.Add(z.Decimal("total_yearly_gain"))
	}

	k.TotalDeviations = len(s.deviations)
	for _, d := range s.deviations {
		if !v.IsDeviationClosed(d.String("status")) {
			k.OpenDeviations++
		}
	}

	k.TotalAudits = len(s.audits)
	inRange := make(map[string]bool, len(s.audits))
	for _, a := range s.audits {
		inRange[a.ID()] = true
		if a.String("status") == v.Status.Completed {
			k.CompletedAudits++
		}
	}
	for _, f := range s.raw.Get(entity.AuditFindings) {
		if inRange[f.String("audit_id")] && !v.IsClosed(f.String("status")) {
			k.OpenAuditFindings++
		}
	}

	for _, t := range s.tasks {
		st := t.String("status")
		if st == v.Status.Completed {
			continue
		}
		if st != v.Status.Cancelled {
			k.OpenTasks++
		}
		if due, ok := t.Time(loc, "due_date"); ok && now.After(due) {
			k.OverdueTasks++
		}
	}

	k.ActiveSuppliers = len(s.suppliers)
	k.TotalSupplierNC = len(s.supplierNC)
	k.OpenSupplierNC = count(s.supplierNC, func(n record.Record) bool {
		return !v.IsClosed(n.String("status"))
	})

	k.TotalCOPQ = r.COPQ.Total
	k.CostPerVehicle = r.COPQ.CostPerVehicle
}

func count(items []record.Record, keep func(record.Record) bool) int {
	n := 0
	for _, r := range items {
		if keep(r) {
			n++
		}
	}
	return n
}
