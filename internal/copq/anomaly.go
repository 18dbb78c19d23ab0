package copq

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/entity"
	"qms-mcp/internal/period"
	"qms-mcp/internal/record"
)

// DefaultAnomalyThreshold is the change in percent that flags a month.
const DefaultAnomalyThreshold = 50.0

// baselineMonths is the number of complete months averaged as the baseline.
const baselineMonths = 3

// AnomalyKind names the comparison that raised an anomaly.
type AnomalyKind string

const (
	// AnomalyMonthOverMonth compares the current month with the previous one.
	AnomalyMonthOverMonth AnomalyKind = "month_over_month"
	// AnomalyAverage compares the current month with the baseline average.
	AnomalyAverage AnomalyKind = "average"
	// AnomalyUnit is a month-over-month change of a single unit.
	AnomalyUnit AnomalyKind = "unit"
)

// Severity is "high" for increases and "low" for decreases.
type Severity string

const (
	SeverityHigh Severity = "high"
	SeverityLow  Severity = "low"
)

// Anomaly is a month whose cost moved past the threshold.
type Anomaly struct {
	Kind     AnomalyKind     `json:"type"`
	Severity Severity        `json:"severity"`
	Unit     string          `json:"unit,omitempty"`
	Month    string          `json:"month"`
	Current  decimal.Decimal `json:"thisMonth"`
	Baseline decimal.Decimal `json:"baseline"`
	Change   float64         `json:"changePercent"`
	Message  string          `json:"message"`
}

// Anomalies compares the cost of now's month with the previous month and with
// the average of the three complete months before it, overall and per unit.
// A comparison with a zero baseline is skipped. A unit is only compared when
// its costs span at least two months. costs should not be period-filtered.
func (a *Analyzer) Anomalies(costs []record.Record, now time.Time, loc *time.Location, threshold float64) []Anomaly {
	if loc == nil {
		loc = time.Local
	}
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}
	current := period.MonthStart(now.In(loc))
	previous := current.AddDate(0, -1, 0)
	month := period.MonthKey(current)

	total := aggregate.NewMonthly[decimal.Decimal](period.Labeler{})
	units := make(map[string]*aggregate.Monthly[decimal.Decimal])
	for _, c := range costs {
		t, ok := entity.ResolveDate(c, entity.QualityCosts, loc)
		if !ok {
			continue
		}
		amount := c.Decimal("amount")
		v := total.At(t)
		*v = v.Add(amount)

		unit := c.String("unit", "responsible_unit")
		if unit == "" {
			unit = a.labels.Unknown
		}
		m, ok := units[unit]
		if !ok {
			m = aggregate.NewMonthly[decimal.Decimal](period.Labeler{})
			units[unit] = m
		}
		u := m.At(t)
		*u = u.Add(amount)
	}

	var out []Anomaly
	this := total.Get(current)
	if an, ok := compare(AnomalyMonthOverMonth, this, total.Get(previous), threshold); ok {
		an.Month = month
		an.Message = fmt.Sprintf("Cost this month is %.1f%% %s last month", abs(an.Change), direction(an.Change, "above", "below"))
		out = append(out, an)
	}

	baseline := decimal.Zero
	for i := 1; i <= baselineMonths; i++ {
		baseline = baseline.Add(total.Get(current.AddDate(0, -i, 0)))
	}
	baseline = baseline.Div(decimal.NewFromInt(baselineMonths)).Round(2)
	if an, ok := compare(AnomalyAverage, this, baseline, threshold); ok {
		an.Month = month
		an.Message = fmt.Sprintf("Cost this month is %.1f%% %s the %d-month average", abs(an.Change), direction(an.Change, "above", "below"), baselineMonths)
		out = append(out, an)
	}

	names := make([]string, 0, len(units))
	for name := range units {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := units[name]
		if m.Observed() < 2 {
			continue
		}
		an, ok := compare(AnomalyUnit, m.Get(current), m.Get(previous), threshold)
		if !ok {
			continue
		}
		an.Unit = name
		an.Month = month
		an.Message = fmt.Sprintf("%s cost this month %s %.1f%% against last month", name, direction(an.Change, "rose", "fell"), abs(an.Change))
		out = append(out, an)
	}
	if out == nil {
		return []Anomaly{}
	}
	return out
}

// compare flags current when it differs from a positive baseline by at least
// threshold percent.
func compare(kind AnomalyKind, current, baseline decimal.Decimal, threshold float64) (Anomaly, bool) {
	if !baseline.IsPositive() {
		return Anomaly{}, false
	}
	change := aggregate.Percent(current.Sub(baseline).InexactFloat64(), baseline.InexactFloat64())
	if abs(change) < threshold {
		return Anomaly{}, false
	}
	sev := SeverityHigh
	if change < 0 {
		sev = SeverityLow
	}
	return Anomaly{Kind: kind, Severity: sev, Current: current, Baseline: baseline, Change: change}, true
}

func direction(change float64, up, down string) string {
	if change < 0 {
		return down
	}
	return up
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
