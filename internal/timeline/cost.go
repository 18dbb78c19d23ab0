package timeline

import (
	"time"

	"github.com/shopspring/decimal"

	"qms-mcp/internal/record"
)

// CostEstimate is the poor-quality cost of one vehicle derived from its
// control and rework time and the per-minute rate of the responsible unit.
type CostEstimate struct {
	VehicleID         string          `json:"vehicleId"`
	InspectionMinutes int             `json:"inspectionDuration"`
	ReworkMinutes     int             `json:"reworkDuration"`
	InspectionCost    decimal.Decimal `json:"inspectionCost"`
	ReworkCost        decimal.Decimal `json:"reworkCost"`
	Total             decimal.Decimal `json:"totalCost"`
	FaultCount        float64         `json:"faultCount"`
	QualityUnit       string          `json:"qualityUnit"`
	ReworkUnit        string          `json:"reworkUnit"`
}

// Rates maps unit names to their cost per minute.
type Rates map[string]decimal.Decimal

// NewRates reads cost_per_minute from unit cost settings keyed by unit_name.
func NewRates(settings []record.Record) Rates {
	r := make(Rates, len(settings))
	for _, s := range settings {
		name := s.String("unit_name")
		if name == "" {
			continue
		}
		if rate := s.Decimal("cost_per_minute"); rate.IsPositive() {
			r[name] = rate
		}
	}
	return r
}

// Cost prices minutes at the unit's rate. Unknown units cost nothing.
func (r Rates) Cost(minutes int, unit string) decimal.Decimal {
	rate, ok := r[unit]
	if !ok || minutes <= 0 {
		return decimal.Zero
	}
	return rate.Mul(decimal.NewFromInt(int64(minutes)))
}

// Estimate prices a vehicle with unresolved faults. Rework is charged to the
// unit owning most unresolved faults (first seen wins a tie), or fallbackUnit.
// Vehicles whose faults are all resolved cost nothing.
func Estimate(vehicle record.Record, faultsField, eventsField string, rates Rates, qualityUnit, fallbackUnit string, loc *time.Location) CostEstimate {
	est := CostEstimate{
		VehicleID:      vehicle.ID(),
		InspectionCost: decimal.Zero,
		ReworkCost:     decimal.Zero,
		Total:          decimal.Zero,
		QualityUnit:    qualityUnit,
	}

	var unresolved []record.Record
	for _, f := range vehicle.Children(faultsField) {
		if !f.Bool("is_resolved") {
			unresolved = append(unresolved, f)
		}
	}
	if len(unresolved) == 0 {
		return est
	}

	events := vehicle.Children(eventsField)
	est.InspectionMinutes = InspectionMinutes(events, loc)
	est.ReworkMinutes = ReworkMinutes(events, loc)
	est.ReworkUnit = dominantUnit(unresolved, fallbackUnit)

	for _, f := range unresolved {
		est.FaultCount += f.Quantity("quantity")
	}

	est.InspectionCost = rates.Cost(est.InspectionMinutes, qualityUnit)
	est.ReworkCost = rates.Cost(est.ReworkMinutes, est.ReworkUnit)
	est.Total = est.InspectionCost.Add(est.ReworkCost)
	return est
}

func dominantUnit(faults []record.Record, fallback string) string {
	counts := make(map[string]int)
	best, bestN := "", 0
	for _, f := range faults {
		u := f.String("department.name", "department_name")
		if u == "" {
			continue
		}
		counts[u]++
		if counts[u] > bestN {
			best, bestN = u, counts[u]
		}
	}
	if best == "" {
		return fallback
	}
	return best
}
