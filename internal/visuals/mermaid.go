package visuals

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/copq"
	"qms-mcp/internal/faults"
	"qms-mcp/internal/report"
)

// maxPoints keeps xychart labels readable.
const maxPoints = 24

// series is one bar or line of an xychart.
type series struct {
	kind   string // bar or line
	values []float64
}

// xyChart renders a Mermaid xychart-beta block. Returns "" when there is nothing to plot.
func xyChart(title, yLabel string, labels []string, data ...series) string {
	if len(labels) == 0 {
		return ""
	}
	if len(labels) > maxPoints {
		cut := len(labels) - maxPoints
		labels = labels[cut:]
		for i := range data {
			data[i].values = data[i].values[cut:]
		}
	}

	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("\"%s\"", escape(l))
	}

	maxVal := 0.0
	for _, s := range data {
		for _, v := range s.values {
			maxVal = math.Max(maxVal, v)
		}
	}
	if maxVal == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", escape(title)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(quoted, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %d\n", yLabel, int(math.Ceil(maxVal*1.2))))
	for _, s := range data {
		values := make([]string, len(s.values))
		for i, v := range s.values {
			values[i] = fmt.Sprintf("%.1f", v)
		}
		sb.WriteString(fmt.Sprintf("    %s [%s]\n", s.kind, strings.Join(values, ", ")))
	}
	sb.WriteString("```")
	return sb.String()
}

// pie renders a Mermaid pie block, skipping empty slices.
func pie(title string, names []string, values []float64) string {
	var sb strings.Builder
	n := 0
	for i, v := range values {
		if v <= 0 {
			continue
		}
		if n == 0 {
			sb.WriteString("```mermaid\n")
			sb.WriteString(fmt.Sprintf("pie title %s\n", escape(title)))
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" : %.2f\n", escape(names[i]), v))
		n++
	}
	if n == 0 {
		return ""
	}
	sb.WriteString("```")
	return sb.String()
}

// escape drops the characters that break Mermaid string literals.
func escape(s string) string {
	return strings.NewReplacer("\"", "'", "\n", " ", "[", "(", "]", ")").Replace(s)
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// GenerateNCTrendChart plots opened non-conformities as bars and closures as a line.
func GenerateNCTrendChart(points []aggregate.Point[report.NCMonth]) string {
	labels := make([]string, len(points))
	opened := make([]float64, len(points))
	closed := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Name
		opened[i] = float64(p.Value.Opened)
		closed[i] = float64(p.Value.Closed)
	}
	return xyChart("Non-conformities (Opened vs Closed)", "Records", labels,
		series{"bar", opened}, series{"line", closed})
}

// GenerateCostTrendChart plots the monthly quality cost.
func GenerateCostTrendChart(points []aggregate.Point[report.Money]) string {
	labels := make([]string, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Name
		values[i] = money(p.Value)
	}
	return xyChart("Quality Cost per Month", "Cost", labels, series{"bar", values})
}

// GenerateIncomingChart plots inspected and rejected incoming lots per month.
func GenerateIncomingChart(points []aggregate.Point[report.IncomingMonth]) string {
	labels := make([]string, len(points))
	inspected := make([]float64, len(points))
	rejected := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Name
		inspected[i] = float64(p.Value.Inspected)
		rejected[i] = float64(p.Value.Rejected)
	}
	return xyChart("Incoming Inspection", "Lots", labels,
		series{"bar", inspected}, series{"line", rejected})
}

// GenerateRankingChart plots a descending ranking as bars.
func GenerateRankingChart[M any](title, yLabel string, buckets []aggregate.Bucket[M], value func(M) float64) string {
	labels := make([]string, len(buckets))
	values := make([]float64, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Name
		values[i] = value(b.Value)
	}
	return xyChart(title, yLabel, labels, series{"bar", values})
}

// GenerateCOPQPie shows the split of the cost of poor quality by category.
func GenerateCOPQPie(s copq.Summary) string {
	names := make([]string, len(copq.Categories))
	values := make([]float64, len(copq.Categories))
	for i, c := range copq.Categories {
		names[i] = string(c)
		values[i] = money(s.Of(c))
	}
	return pie("Cost of Poor Quality", names, values)
}

// GenerateUnitCostPie shows the unit cost distribution after small units are folded.
func GenerateUnitCostPie(slices []copq.Slice) string {
	names := make([]string, len(slices))
	values := make([]float64, len(slices))
	for i, s := range slices {
		names[i] = s.Name
		values[i] = money(s.Value)
	}
	return pie("Cost by Unit", names, values)
}

// GenerateFaultTrendChart plots faults as bars and produced vehicles as a line.
func GenerateFaultTrendChart(points []aggregate.Point[faults.TrendValue]) string {
	labels := make([]string, len(points))
	faultCounts := make([]float64, len(points))
	vehicles := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Name
		faultCounts[i] = p.Value.FaultCount
		vehicles[i] = float64(p.Value.VehicleCount)
	}
	return xyChart("Vehicle Faults per Month", "Count", labels,
		series{"bar", faultCounts}, series{"line", vehicles})
}

// GenerateReportCharts renders every chart of the board that has data,
// separated by blank lines.
func GenerateReportCharts(r *report.Report) string {
	count := func(c aggregate.Count) float64 { return float64(c) }
	charts := []string{
		GenerateNCTrendChart(r.NCMonthly),
		GenerateCostTrendChart(r.CostMonthly),
		GenerateCOPQPie(r.COPQ),
		GenerateRankingChart("Cost by Unit", "Cost", r.CostByUnit, money),
		GenerateIncomingChart(r.Incoming.Monthly),
		GenerateRankingChart("Top Rejected Suppliers", "Rejections", r.Incoming.TopRejectedSuppliers, count),
		GenerateRankingChart("Complaints by Status", "Complaints", r.Complaints.ByStatus, count),
	}

	var out []string
	for _, c := range charts {
		if c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, "\n\n")
}
