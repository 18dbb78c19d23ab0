package copq

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qms-mcp/internal/record"
	"qms-mcp/internal/vocab"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassifier(t *testing.T) {
	c := NewClassifier(vocab.Default().Costs)

	tests := []struct {
		name       string
		rec        record.Record
		wantCat    Category
		wantReason Reason
	}{
		{"Warranty", record.Record{"cost_type": "Garanti Maliyeti"}, ExternalFailure, ReasonVocabulary},
		{"Scrap", record.Record{"cost_type": "Hurda Maliyeti"}, InternalFailure, ReasonVocabulary},
		{"IncomingControl", record.Record{"cost_type": "Girdi Kalite Kontrol Maliyeti"}, Appraisal, ReasonVocabulary},
		{"Training", record.Record{"cost_type": "Eğitim Maliyeti"}, Prevention, ReasonVocabulary},
		{"Substring", record.Record{"cost_type": "Müşteri Reklaması - Bayi"}, ExternalFailure, ReasonVocabulary},
		{"SupplierOverridesType", record.Record{"cost_type": "Garanti Maliyeti", "is_supplier_nc": true, "supplier_id": "s1"}, InternalFailure, ReasonSupplier},
		{"SupplierFlagWithoutSupplier", record.Record{"cost_type": "Garanti Maliyeti", "is_supplier_nc": true}, ExternalFailure, ReasonVocabulary},
		{"Unknown", record.Record{"cost_type": "Kargo"}, InternalFailure, ReasonDefault},
		{"Missing", record.Record{}, InternalFailure, ReasonDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, reason := c.Classify(tt.rec)
			assert.Equal(t, tt.wantCat, cat)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestClassifier_SyntheticVocabulary(t *testing.T) {
	c := NewClassifier(vocab.CostVocabulary{
		ExternalFailure: []string{"warranty"},
		Prevention:      []string{"training"},
	})

	cat, _ := c.ClassifyType("field warranty claim", false)
	assert.Equal(t, ExternalFailure, cat)
	cat, _ = c.ClassifyType("operator training", false)
	assert.Equal(t, Prevention, cat)
}

func TestSummarize(t *testing.T) {
	a := NewAnalyzer(vocab.Default())
	costs := []record.Record{
		{"id": "1", "cost_type": "Hurda Maliyeti", "amount": 1000.0},
		{"id": "2", "cost_type": "Garanti Maliyeti", "amount": "2.500,50"},
		{"id": "3", "cost_type": "Garanti Maliyeti", "amount": 300.0, "is_supplier_nc": true, "supplier_id": "s1"},
		{"id": "4", "cost_type": "Eğitim Maliyeti", "amount": "bad"},
	}
	vehicles := []record.Record{{"id": "v1", "quantity": 2.0}, {"id": "v2"}, {"id": "v3", "quantity": 0.0}}

	s := a.Summarize(costs, vehicles)

	assert.True(t, s.InternalFailure.Equal(dec("1300")), "internal %s", s.InternalFailure)
	assert.True(t, s.ExternalFailure.Equal(dec("2500.5")), "external %s", s.ExternalFailure)
	assert.True(t, s.Prevention.IsZero())
	assert.True(t, s.Total.Equal(dec("3800.5")), "total %s", s.Total)
	assert.Equal(t, 4.0, s.Vehicles)
	assert.True(t, s.CostPerVehicle.Equal(dec("950.13")), "per vehicle %s", s.CostPerVehicle)
	require.Len(t, s.Breakdown[InternalFailure], 2)
	assert.Equal(t, ReasonSupplier, s.Breakdown[InternalFailure][1].Reason)
	assert.Len(t, s.Breakdown[Prevention], 1)
}

func TestSummarize_NoVehicles(t *testing.T) {
	a := NewAnalyzer(vocab.Default())
	s := a.Summarize([]record.Record{{"amount": 10.0}}, nil)
	assert.True(t, s.CostPerVehicle.IsZero())
	assert.True(t, s.Total.Equal(dec("10")))
}

func TestDistribute(t *testing.T) {
	a := NewAnalyzer(vocab.Default())
	costs := []record.Record{
		{
			"cost_type": "Hurda Maliyeti",
			"amount":    900.0,
			"supplier":  map[string]any{"name": "Acme"},
			"cost_line_items": []any{
				map[string]any{"amount": "400", "responsible_unit": "Kaynak"},
				map[string]any{"amount": 500.0, "responsible_type": "supplier"},
				map[string]any{"amount": 0.0, "responsible_unit": "Boya"},
			},
		},
		{
			"cost_type": "Garanti Maliyeti",
			"amount":    1000.0,
			"cost_allocations": []any{
				map[string]any{"unit": "Montaj", "percentage": 60.0},
				map[string]any{"unit": "Kaynak", "amount": 400.0},
			},
		},
		{"cost_type": "Eğitim Maliyeti", "amount": 30.0, "unit": "Kalite"},
		{"cost_type": "Eğitim Maliyeti", "amount": 20.0},
	}

	d := a.Distribute(costs)

	assert.True(t, d.Total.Equal(dec("1950")), "total %s", d.Total)

	sum := decimal.Zero
	byUnit := map[string]UnitCost{}
	for _, u := range d.Units {
		sum = sum.Add(u.Total)
		byUnit[u.Unit] = u
	}
	assert.True(t, sum.Equal(d.Total), "unit totals %s != %s", sum, d.Total)

	require.Contains(t, byUnit, "Kaynak")
	kaynak := byUnit["Kaynak"]
	assert.True(t, kaynak.Total.Equal(dec("800")))
	assert.True(t, kaynak.Internal.Equal(dec("400")))
	assert.True(t, kaynak.External.Equal(dec("400")))
	assert.Equal(t, 1, kaynak.Rank)

	require.Contains(t, byUnit, "Supplier: Acme")
	assert.True(t, byUnit["Supplier: Acme"].Internal.Equal(dec("500")))
	assert.True(t, byUnit["Montaj"].Total.Equal(dec("600")))
	assert.True(t, byUnit["Unspecified"].Prevention.Equal(dec("20")))
	assert.NotContains(t, byUnit, "Boya")
}

func TestDistribution_Slices(t *testing.T) {
	a := NewAnalyzer(vocab.Default())
	costs := []record.Record{
		{"amount": 970.0, "unit": "A"},
		{"amount": 20.0, "unit": "B"},
		{"amount": 10.0, "unit": "C"},
	}

	slices := a.Distribute(costs).Slices(DefaultSliceThreshold, "")

	require.Len(t, slices, 2)
	assert.Equal(t, "A", slices[0].Name)
	assert.True(t, slices[1].Other)
	assert.True(t, slices[1].Value.Equal(dec("30")))
	assert.Equal(t, 2, slices[1].Count)
}
