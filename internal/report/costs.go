package report

import (
	"time"

	"github.com/shopspring/decimal"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/copq"
	"qms-mcp/internal/entity"
	"qms-mcp/internal/record"
)

// Money is a monetary metric in the run's single currency.
type Money = decimal.Decimal

func amount(r record.Record) Money {
	return r.Decimal("amount")
}

func (b *Builder) buildCosts(r *Report, s *scope, now time.Time) {
	r.CostByType = aggregate.AggregateBy(s.costs, func(c record.Record) string {
		return c.String("cost_type")
	}, amount, b.all())

	r.CostByUnit = aggregate.AggregateBy(s.costs, func(c record.Record) string {
		return c.String("unit", "responsible_unit")
	}, amount, b.topN(b.Limits.CostByUnit))

	monthly := aggregate.NewMonthly[Money](b.Labeler)
	for _, c := range s.costs {
		if t, ok := b.date(c, entity.QualityCosts); ok {
			v := monthly.At(t)
			*v = v.Add(amount(c))
		}
	}
	r.CostMonthly = monthly.Points(0)

	// Vehicles are filtered by the same window as the costs.
	r.COPQ = b.costs.Summarize(s.costs, s.vehicles)
	r.PartCostLeaders = b.costs.PartLeaders(s.costs, copq.DefaultPartLeaders)
	// Anomalies compare calendar months up to now, whatever the period.
	r.CostAnomalies = b.costs.Anomalies(s.raw.Get(entity.QualityCosts), now, b.Location, copq.DefaultAnomalyThreshold)

	cats := make([]aggregate.Bucket[Money], 0, len(copq.Categories))
	for _, c := range copq.Categories {
		cats = append(cats, aggregate.Bucket[Money]{
			Name:  string(c),
			Value: r.COPQ.Of(c),
			Items: len(r.COPQ.Breakdown[c]),
		})
	}
	r.CostByCategory = aggregate.Rank(cats, 0, func(x, y aggregate.Bucket[Money]) int { return x.Value.Cmp(y.Value) }, nil)
}
