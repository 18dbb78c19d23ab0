package copq

import (
	"fmt"

	"github.com/shopspring/decimal"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/record"
)

// DefaultSliceThreshold is the share in percent under which a unit is folded
// into the Other slice.
const DefaultSliceThreshold = 3.0

// UnitCost is the cost attributed to one responsible unit.
type UnitCost struct {
	Unit       string          `json:"unit"`
	Total      decimal.Decimal `json:"totalCost"`
	Count      int             `json:"count"`
	Internal   decimal.Decimal `json:"internalCost"`
	External   decimal.Decimal `json:"externalCost"`
	Appraisal  decimal.Decimal `json:"appraisalCost"`
	Prevention decimal.Decimal `json:"preventionCost"`
	Percentage float64         `json:"percentage"`
	Rank       int             `json:"rank"`
}

// Distribution is the per-unit split of a cost collection.
type Distribution struct {
	Units []UnitCost      `json:"unitData"`
	Total decimal.Decimal `json:"totalCost"`
}

// Slice is one wedge of a share chart.
type Slice struct {
	Name       string          `json:"name"`
	Value      decimal.Decimal `json:"value"`
	Percentage float64         `json:"percentage"`
	Count      int             `json:"count"`
	Other      bool            `json:"other,omitempty"`
}

type contribution struct {
	unit     string
	amount   decimal.Decimal
	category Category
}

// Distribute attributes every cost to its responsible units. Itemized costs
// are split by line item: supplier-attributed items go to a "Supplier: name"
// unit and non-positive items are ignored. Otherwise allocations split the
// amount by explicit amount or percentage, and failing that the record's unit
// takes the whole amount.
func (a *Analyzer) Distribute(costs []record.Record) Distribution {
	var parts []contribution
	total := decimal.Zero

	for _, r := range costs {
		amount := r.Decimal("amount")
		costType := r.String("cost_type")

		if items := r.Children("cost_line_items"); len(items) > 0 {
			for _, li := range items {
				itemAmount := li.Decimal("amount")
				if !itemAmount.IsPositive() {
					continue
				}
				total = total.Add(itemAmount)

				supplier := li.String("responsible_type") == "supplier"
				unit := li.String("responsible_unit")
				if supplier {
					unit = a.supplierUnit(li.String("responsible_supplier_name", "supplier_name"), r.String("supplier.name"))
				}
				cat, _ := a.classifier.ClassifyType(costType, supplier)
				parts = append(parts, contribution{unit: unit, amount: itemAmount, category: cat})
			}
			continue
		}

		total = total.Add(amount)
		cat, _ := a.classifier.ClassifyType(costType, IsSupplierCost(r))

		if allocs := r.Children("cost_allocations"); len(allocs) > 0 {
			for _, al := range allocs {
				share := al.Decimal("amount")
				if al.Get("amount") == nil {
					share = amount.Mul(al.Decimal("percentage")).Div(decimal.NewFromInt(100))
				}
				parts = append(parts, contribution{unit: al.String("unit"), amount: share, category: cat})
			}
			continue
		}

		parts = append(parts, contribution{unit: r.String("unit"), amount: amount, category: cat})
	}

	rows := aggregate.GroupRows(parts,
		func(c contribution) string { return c.unit },
		a.labels.Unspecified,
		func(name string) UnitCost {
			return UnitCost{
				Unit:       name,
				Total:      decimal.Zero,
				Internal:   decimal.Zero,
				External:   decimal.Zero,
				Appraisal:  decimal.Zero,
				Prevention: decimal.Zero,
			}
		},
		func(u *UnitCost, c contribution) {
			u.Total = u.Total.Add(c.amount)
			u.Count++
			switch c.category {
			case InternalFailure:
				u.Internal = u.Internal.Add(c.amount)
			case ExternalFailure:
				u.External = u.External.Add(c.amount)
			case Appraisal:
				u.Appraisal = u.Appraisal.Add(c.amount)
			case Prevention:
				u.Prevention = u.Prevention.Add(c.amount)
			}
		},
	)

	units := aggregate.Rank(rows, 0, func(x, y UnitCost) int { return x.Total.Cmp(y.Total) }, nil)
	for i := range units {
		units[i].Rank = i + 1
		units[i].Percentage = share(units[i].Total, total)
	}
	return Distribution{Units: units, Total: total}
}

// Slices returns chart wedges: units with a share at or above threshold
// percent, plus one Other wedge folding the rest when it is non-zero.
func (d Distribution) Slices(threshold float64, other string) []Slice {
	if other == "" {
		other = aggregate.DefaultOther
	}
	rest := Slice{Name: other, Value: decimal.Zero, Other: true}
	var out []Slice
	for _, u := range d.Units {
		if u.Percentage >= threshold {
			out = append(out, Slice{Name: u.Unit, Value: u.Total, Percentage: u.Percentage, Count: u.Count})
			continue
		}
		rest.Value = rest.Value.Add(u.Total)
		rest.Percentage += u.Percentage
		rest.Count += u.Count
	}
	if !rest.Value.IsZero() {
		rest.Percentage = aggregate.Round(rest.Percentage, 2)
		out = append(out, rest)
	}
	return aggregate.Rank(out, 0, func(x, y Slice) int { return x.Value.Cmp(y.Value) }, nil)
}

func (a *Analyzer) supplierUnit(names ...string) string {
	name := a.labels.Unknown
	for _, n := range names {
		if n != "" {
			name = n
			break
		}
	}
	return fmt.Sprintf("%s: %s", a.labels.SupplierUnit, name)
}

func share(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	f, _ := part.Div(total).Mul(decimal.NewFromInt(100)).Float64()
	return aggregate.Round(f, 2)
}
