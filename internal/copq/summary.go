package copq

import (
	"github.com/shopspring/decimal"

	"qms-mcp/internal/record"
	"qms-mcp/internal/vocab"
)

// Item is one cost record in a category breakdown.
type Item struct {
	ID       string          `json:"id"`
	CostType string          `json:"costType"`
	Unit     string          `json:"unit,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Reason   Reason          `json:"reason"`
}

// Summary is the COPQ split of a cost collection.
type Summary struct {
	InternalFailure decimal.Decimal     `json:"internalFailure"`
	ExternalFailure decimal.Decimal     `json:"externalFailure"`
	Appraisal       decimal.Decimal     `json:"appraisal"`
	Prevention      decimal.Decimal     `json:"prevention"`
	Total           decimal.Decimal     `json:"totalCOPQ"`
	Vehicles        float64             `json:"vehicles"`
	CostPerVehicle  decimal.Decimal     `json:"costPerVehicle"`
	Breakdown       map[Category][]Item `json:"breakdown"`
}

// Of returns the total of one category.
func (s Summary) Of(c Category) decimal.Decimal {
	switch c {
	case InternalFailure:
		return s.InternalFailure
	case ExternalFailure:
		return s.ExternalFailure
	case Appraisal:
		return s.Appraisal
	case Prevention:
		return s.Prevention
	}
	return decimal.Zero
}

// Analyzer computes COPQ summaries and unit distributions.
type Analyzer struct {
	classifier *Classifier
	labels     vocab.Labels
}

// NewAnalyzer builds an analyzer from the vocabulary.
func NewAnalyzer(v *vocab.Vocabulary) *Analyzer {
	return &Analyzer{classifier: NewClassifier(v.Costs), labels: v.Labels}
}

// Classifier exposes the rule table.
func (a *Analyzer) Classifier() *Classifier {
	return a.classifier
}

// Summarize splits costs by category and divides the total by the number of
// vehicles. Costs and vehicles must already be restricted to the same window.
func (a *Analyzer) Summarize(costs, vehicles []record.Record) Summary {
	s := Summary{
		InternalFailure: decimal.Zero,
		ExternalFailure: decimal.Zero,
		Appraisal:       decimal.Zero,
		Prevention:      decimal.Zero,
		Total:           decimal.Zero,
		CostPerVehicle:  decimal.Zero,
		Breakdown:       make(map[Category][]Item, len(Categories)),
	}
	for _, c := range Categories {
		s.Breakdown[c] = []Item{}
	}

	for _, r := range costs {
		amount := r.Decimal("amount")
		cat, reason := a.classifier.Classify(r)
		switch cat {
		case InternalFailure:
			s.InternalFailure = s.InternalFailure.Add(amount)
		case ExternalFailure:
			s.ExternalFailure = s.ExternalFailure.Add(amount)
		case Appraisal:
			s.Appraisal = s.Appraisal.Add(amount)
		case Prevention:
			s.Prevention = s.Prevention.Add(amount)
		}
		s.Breakdown[cat] = append(s.Breakdown[cat], Item{
			ID:       r.ID(),
			CostType: r.String("cost_type"),
			Unit:     r.String("unit", "responsible_unit"),
			Amount:   amount,
			Reason:   reason,
		})
	}

	s.Total = s.InternalFailure.Add(s.ExternalFailure).Add(s.Appraisal).Add(s.Prevention)
	s.Vehicles = CountVehicles(vehicles)
	s.CostPerVehicle = PerVehicle(s.Total, s.Vehicles)
	return s
}

// CountVehicles counts each vehicle record by its positive quantity, or as one.
func CountVehicles(vehicles []record.Record) float64 {
	var n float64
	for _, v := range vehicles {
		if q, ok := v.Number("quantity"); ok && q > 0 {
			n += q
		} else {
			n++
		}
	}
	return n
}

// PerVehicle divides total by vehicles, rounded to cents. No vehicles yields 0.
func PerVehicle(total decimal.Decimal, vehicles float64) decimal.Decimal {
	if vehicles <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromFloat(vehicles)).Round(2)
}
