package aggregate

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qms-mcp/internal/period"
)

type nc struct {
	dept   string
	status string
	amount float64
}

func deptOf(n nc) string { return n.dept }

func TestAggregateBy_EveryRecordInOneGroup(t *testing.T) {
	var items []nc
	for i := 0; i < 6; i++ {
		items = append(items, nc{dept: "Montaj", status: "Açık"})
	}
	for i := 0; i < 3; i++ {
		items = append(items, nc{dept: "Boya", status: "Kapatıldı"})
	}
	items = append(items, nc{dept: "", status: "Kapatıldı"})

	got := CountBy(items, deptOf, Options{})

	require.Len(t, got, 3)
	assert.Equal(t, "Montaj", got[0].Name)
	assert.Equal(t, Count(6), got[0].Value)
	assert.Equal(t, DefaultUnspecified, got[2].Name)
	assert.Equal(t, Count(10), Sum(got))
	assert.Equal(t, 10, Items(got))
}

func TestAggregateBy_StableTies(t *testing.T) {
	items := []nc{{dept: "C"}, {dept: "A"}, {dept: "B"}, {dept: "A"}, {dept: "C"}, {dept: "B"}}

	got := CountBy(items, deptOf, Options{})

	names := []string{got[0].Name, got[1].Name, got[2].Name}
	assert.Equal(t, []string{"C", "A", "B"}, names)
}

func TestAggregateBy_TopNPlusOther(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		var items []nc
		groups := rng.Intn(20) + 1
		count := rng.Intn(200) + 1
		for i := 0; i < count; i++ {
			items = append(items, nc{dept: fmt.Sprintf("D%d", rng.Intn(groups)), amount: float64(rng.Intn(1000))})
		}
		n := rng.Intn(12) + 1

		all := AggregateBy(items, deptOf, func(n nc) Float { return Float(n.amount) }, Options{})
		top := AggregateBy(items, deptOf, func(n nc) Float { return Float(n.amount) }, WithOther(n))

		assert.InDelta(t, float64(Sum(all)), float64(Sum(top)), 1e-9, "trial %d", trial)
		assert.Equal(t, len(items), Items(top))

		if len(all) <= n {
			assert.Len(t, top, len(all))
			for _, b := range top {
				assert.False(t, b.Other, "Other must be omitted when groups <= N")
			}
		} else {
			require.Len(t, top, n+1)
			assert.True(t, top[n].Other)
			assert.Equal(t, DefaultOther, top[n].Name)
		}
	}
}

func TestAggregateBy_LimitDropsTail(t *testing.T) {
	items := []nc{{dept: "A"}, {dept: "A"}, {dept: "B"}, {dept: "C"}}
	got := CountBy(items, deptOf, Limit(2))
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
}

func TestAggregateBy_Decimal(t *testing.T) {
	type cost struct {
		unit   string
		amount decimal.Decimal
	}
	costs := []cost{
		{"Kalite", decimal.RequireFromString("0.1")},
		{"Kalite", decimal.RequireFromString("0.2")},
		{"Üretim", decimal.RequireFromString("0.25")},
	}

	got := AggregateBy(costs, func(c cost) string { return c.unit }, func(c cost) decimal.Decimal { return c.amount }, Options{})

	require.Len(t, got, 2)
	assert.Equal(t, "Kalite", got[0].Name)
	assert.True(t, got[0].Value.Equal(decimal.RequireFromString("0.3")), "got %s", got[0].Value)
}

func TestTally_KeepsFirstSeenOrder(t *testing.T) {
	items := []nc{{status: "Kapatıldı"}, {status: "Açık"}, {status: "Açık"}}
	got := Tally(items, func(n nc) string { return n.status }, "")
	require.Len(t, got, 2)
	assert.Equal(t, "Kapatıldı", got[0].Name)
	assert.Equal(t, Count(2), got[1].Value)
}

func TestGroupRowsAndRank(t *testing.T) {
	type row struct {
		Name   string
		Open   int
		Closed int
		Total  int
	}
	items := []nc{
		{dept: "A", status: "Açık"},
		{dept: "B", status: "Kapatıldı"},
		{dept: "B", status: "Açık"},
		{dept: "C", status: "Açık"},
	}

	rows := GroupRows(items, deptOf, "", func(name string) row { return row{Name: name} }, func(r *row, n nc) {
		r.Total++
		if n.status == "Kapatıldı" {
			r.Closed++
		} else {
			r.Open++
		}
	})
	require.Len(t, rows, 3)

	ranked := Rank(rows, 2, func(a, b row) int { return a.Total - b.Total }, func(rest []row) row {
		o := row{Name: "Other"}
		for _, r := range rest {
			o.Total += r.Total
			o.Open += r.Open
		}
		return o
	})
	require.Len(t, ranked, 3)
	assert.Equal(t, "B", ranked[0].Name)
	assert.Equal(t, "A", ranked[1].Name)
	assert.Equal(t, "Other", ranked[2].Name)
	assert.Equal(t, 1, ranked[2].Total)

	assert.Equal(t, "A", rows[0].Name, "Rank must not reorder its input")
}

func TestMonthly_FillsGapsChronologically(t *testing.T) {
	m := NewMonthly[Count](period.Labeler{})
	*m.At(time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)) += 2
	*m.At(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) += 1

	got := m.Points(0)

	require.Len(t, got, 4)
	assert.Equal(t, "Jan 24", got[0].Name)
	assert.Equal(t, "2024-02", got[1].Key)
	assert.Equal(t, Count(0), got[1].Value)
	assert.Equal(t, Count(2), got[3].Value)

	recent := m.Points(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "Mar 24", recent[0].Name)
}

func TestCountMonthly_BucketsBySameMonth(t *testing.T) {
	dates := []string{"2024-01-10", "2024-02-05", "2024-02-20", "bad"}
	got := CountMonthly(dates, func(s string) (time.Time, bool) {
		d, err := time.Parse("2006-01-02", s)
		return d, err == nil
	}, period.Labeler{}, 0)

	require.Len(t, got, 2)
	assert.Equal(t, "Jan 24", got[0].Name)
	assert.Equal(t, Count(1), got[0].Value)
	assert.Equal(t, "Feb 24", got[1].Name)
	assert.Equal(t, Count(2), got[1].Value)
}

func TestMonthly_Empty(t *testing.T) {
	m := NewMonthly[Count](period.Labeler{})
	assert.Empty(t, m.Points(8))
	assert.Equal(t, 0, m.Len())
}

func TestRates(t *testing.T) {
	assert.Equal(t, 0.0, Percent(5, 0))
	assert.Equal(t, "0.0", PercentString(0, 0))
	assert.Equal(t, 33.3, Percent(1, 3))
	assert.Equal(t, "66.7", PercentString(2, 3))
	assert.Equal(t, 0.0, Ratio(1, 0, 2))
	assert.Equal(t, 1.5, Ratio(3, 2, 2))
	assert.Equal(t, 2500.0, PPM(5, 2000))
	assert.Equal(t, 0.0, PPM(5, 0))
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
}
