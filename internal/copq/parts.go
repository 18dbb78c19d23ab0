package copq

import (
	"github.com/shopspring/decimal"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/record"
)

const (
	// DefaultPartLeaders is the number of parts ranked before folding.
	DefaultPartLeaders = 10
	// partCostTypes is the number of cost types listed per part before folding.
	partCostTypes = 3
)

// PartLeader is a part ranked by its total quality cost.
type PartLeader struct {
	Rank      int                                 `json:"rank,omitempty"`
	PartCode  string                              `json:"partCode"`
	PartName  string                              `json:"partName,omitempty"`
	Total     decimal.Decimal                     `json:"totalCost"`
	Count     int                                 `json:"count"`
	CostTypes []aggregate.Bucket[decimal.Decimal] `json:"costTypes"`
	Other     bool                                `json:"other,omitempty"`

	costs []record.Record
}

// PartLeaders ranks parts by total cost and keeps the top n, folding the rest
// into an unranked Other row. Costs without a part code are grouped under the
// unknown label. Each part lists its three largest cost types and folds the
// remaining types.
func (a *Analyzer) PartLeaders(costs []record.Record, n int) []PartLeader {
	rows := aggregate.GroupRows(costs,
		func(c record.Record) string { return c.String("part_code") },
		a.labels.Unknown,
		func(code string) PartLeader { return PartLeader{PartCode: code, Total: decimal.Zero} },
		func(p *PartLeader, c record.Record) {
			if p.PartName == "" {
				p.PartName = c.String("part_name")
			}
			p.Total = p.Total.Add(c.Decimal("amount"))
			p.Count++
			p.costs = append(p.costs, c)
		})

	ranked := aggregate.Rank(rows, n, func(x, y PartLeader) int { return x.Total.Cmp(y.Total) },
		func(rest []PartLeader) PartLeader {
			o := PartLeader{PartCode: a.labels.Other, Total: decimal.Zero, Other: true}
			for _, p := range rest {
				o.Total = o.Total.Add(p.Total)
				o.Count += p.Count
				o.costs = append(o.costs, p.costs...)
			}
			return o
		})

	for i := range ranked {
		p := &ranked[i]
		if !p.Other {
			p.Rank = i + 1
		}
		p.CostTypes = aggregate.AggregateBy(p.costs, func(c record.Record) string {
			return c.String("cost_type")
		}, amountOf, aggregate.Options{TopN: partCostTypes, Other: a.labels.Other, Unspecified: a.labels.Unspecified})
		p.costs = nil
	}
	return ranked
}

func amountOf(r record.Record) decimal.Decimal {
	return r.Decimal("amount")
}
