package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"qms-mcp/internal/aggregate"
	"qms-mcp/internal/copq"
	"qms-mcp/internal/entity"
	"qms-mcp/internal/faults"
	"qms-mcp/internal/period"
	"qms-mcp/internal/record"
	"qms-mcp/internal/report"
	"qms-mcp/internal/visuals"
)

// Trend metrics accepted by get_monthly_trend.
const (
	TrendNC         = "nc"
	TrendCost       = "cost"
	TrendIncoming   = "incoming"
	TrendVehicles   = "vehicles"
	TrendComplaints = "complaints"
)

// TrendMetrics lists the trend metrics in display order.
var TrendMetrics = []string{TrendNC, TrendCost, TrendIncoming, TrendVehicles, TrendComplaints}

type CostDistributionArgs struct {
	Period    string   `json:"period,omitempty" jsonschema:"Period token or YYYY-MM month (see get_a3_report)"`
	From      string   `json:"from,omitempty" jsonschema:"Optional start date (YYYY-MM-DD)"`
	To        string   `json:"to,omitempty" jsonschema:"Optional end date (YYYY-MM-DD)"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"Share in percent under which units are folded into Other in the chart slices (default 3)"`
}

type FaultArgs struct {
	Month string `json:"month,omitempty" jsonschema:"Month as YYYY-MM, 'all' for all time, or a period token. Default: all"`
}

type TrendArgs struct {
	Metric string `json:"metric" jsonschema:"Series to return: nc, cost, incoming, vehicles or complaints"`
	Period string `json:"period,omitempty" jsonschema:"Period token or YYYY-MM month (see get_a3_report)"`
	From   string `json:"from,omitempty" jsonschema:"Optional start date (YYYY-MM-DD)"`
	To     string `json:"to,omitempty" jsonschema:"Optional end date (YYYY-MM-DD)"`
}

// scoped hydrates the snapshot and resolves the window in one step.
func (s *Server) scoped(ctx context.Context, args PeriodArgs) (entity.Collections, period.Window, ResponseContext, []string, error) {
	w, warnings, err := s.window(args)
	if err != nil {
		return nil, period.Window{}, ResponseContext{}, nil, err
	}
	snap, rc, stale, err := s.load(ctx, false)
	if err != nil {
		return nil, period.Window{}, ResponseContext{}, nil, err
	}
	rc.Period = &w
	return snap.Collections, w, rc, append(warnings, stale...), nil
}

func (s *Server) buildReport(ctx context.Context, args PeriodArgs) (*report.Report, ResponseContext, []string, error) {
	data, w, rc, warnings, err := s.scoped(ctx, args)
	if err != nil {
		return nil, rc, nil, err
	}
	r := s.builder.Build(data, w, s.clock())
	log.Debug().Str("period", w.Label).Int("nc", r.KPIs.TotalNC).Str("runId", r.Meta.RunID).Msg("A3 report built")
	if r.KPIs.TotalNC == 0 && r.KPIs.TotalCost.IsZero() && r.KPIs.TotalVehicles == 0 {
		warnings = append(warnings, fmt.Sprintf("No non-conformities, costs or vehicles fall in %s. Try a wider period.", w.Label))
	}
	return r, rc, warnings, nil
}

// Report builds the A3 report outside of a tool call, returning the
// warnings a tool response would carry.
func (s *Server) Report(ctx context.Context, args PeriodArgs) (*report.Report, []string, error) {
	r, _, warnings, err := s.buildReport(ctx, args)
	return r, warnings, err
}

func (s *Server) handleGetA3Report(ctx context.Context, args PeriodArgs) (ResponseEnvelope, error) {
	r, rc, warnings, err := s.buildReport(ctx, args)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	guidance := []string{
		"Grouped series are sorted by descending value; monthly series are chronological.",
		"openNC, overdueNC and activeQuarantine list current open items regardless of the period.",
		"Percentages are rounded to one decimal; PPM to an integer.",
	}
	env := WrapResponse(r, rc, warnings, guidance)
	env.Charts = []string{visuals.GenerateReportCharts(r)}
	return env, nil
}

func (s *Server) handleGetCOPQSummary(ctx context.Context, args PeriodArgs) (ResponseEnvelope, error) {
	data, w, rc, warnings, err := s.scoped(ctx, args)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	costs := entity.Filter(data.Get(entity.QualityCosts), entity.QualityCosts, w, s.cfg.Location)
	vehicles := entity.Filter(data.Get(entity.ProducedVehicles), entity.ProducedVehicles, w, s.cfg.Location)
	summary := s.costs.Summarize(costs, vehicles)

	if summary.Vehicles == 0 {
		warnings = append(warnings, "No produced vehicles in the period; cost per vehicle is reported as 0.")
	}
	guidance := []string{
		"Categories are matched from the cost type; supplier-attributed costs always count as internal failure.",
		"Unmatched cost types default to internal failure (reason 'default' in the breakdown).",
	}
	env := WrapResponse(summary, rc, warnings, guidance)
	env.Charts = []string{visuals.GenerateCOPQPie(summary)}
	return env, nil
}

// CostDistribution is the get_cost_distribution payload.
type CostDistribution struct {
	copq.Distribution
	Slices      []copq.Slice      `json:"slices"`
	PartLeaders []copq.PartLeader `json:"partLeaders"`
	Anomalies   []copq.Anomaly    `json:"anomalies"`
}

func (s *Server) handleGetCostDistribution(ctx context.Context, args CostDistributionArgs) (ResponseEnvelope, error) {
	threshold := copq.DefaultSliceThreshold
	if args.Threshold != nil {
		if *args.Threshold < 0 || *args.Threshold > 100 {
			return ResponseEnvelope{}, fmt.Errorf("threshold must be between 0 and 100, got %v", *args.Threshold)
		}
		threshold = *args.Threshold
	}

	data, w, rc, warnings, err := s.scoped(ctx, PeriodArgs{Period: args.Period, From: args.From, To: args.To})
	if err != nil {
		return ResponseEnvelope{}, err
	}
	costs := entity.Filter(data.Get(entity.QualityCosts), entity.QualityCosts, w, s.cfg.Location)
	d := s.costs.Distribute(costs)
	res := CostDistribution{
		Distribution: d,
		Slices:       d.Slices(threshold, s.cfg.Vocabulary.Labels.Other),
		PartLeaders:  s.costs.PartLeaders(costs, copq.DefaultPartLeaders),
		Anomalies:    s.costs.Anomalies(data.Get(entity.QualityCosts), s.clock(), s.cfg.Location, copq.DefaultAnomalyThreshold),
	}
	for _, a := range res.Anomalies {
		warnings = append(warnings, "Cost anomaly: "+a.Message)
	}

	guidance := []string{
		"Itemized costs are attributed per line item; allocated costs are split by their allocation shares.",
		fmt.Sprintf("Slices fold units below %.1f%% of the total into %q.", threshold, s.cfg.Vocabulary.Labels.Other),
		"Anomalies compare the current calendar month with the previous month and the 3-month average, whatever the period.",
	}
	env := WrapResponse(res, rc, warnings, guidance)
	env.Charts = []string{visuals.GenerateUnitCostPie(res.Slices)}
	return env, nil
}

func (s *Server) handleGetVehicleFaultAnalytics(ctx context.Context, args FaultArgs) (ResponseEnvelope, error) {
	selector := args.Month
	if selector == "" {
		selector = string(period.AllTime)
	}
	data, w, rc, warnings, err := s.scoped(ctx, PeriodArgs{Period: selector})
	if err != nil {
		return ResponseEnvelope{}, err
	}

	in := faults.FromVehicles(
		data.Get(entity.ProducedVehicles),
		data.Get(entity.ProductionDepartments),
		data.Get(entity.CostSettings),
	)
	res := s.faults.Analyze(in, w)
	if res.TotalVehiclesInPeriod == 0 {
		warnings = append(warnings, fmt.Sprintf("No vehicles were produced in %s; rates are reported as 0.", w.Label))
	}

	guidance := []string{
		"Fault quantities default to 1 when missing or invalid.",
		"Faults without a date are counted in every period.",
	}
	env := WrapResponse(res, rc, warnings, guidance)
	env.Charts = []string{
		visuals.GenerateFaultTrendChart(res.MonthlyTrend),
		visuals.GenerateRankingChart("Faults by Department", "Faults", res.ByDepartmentTotal, func(f aggregate.Float) float64 { return float64(f) }),
	}
	return env, nil
}

func (s *Server) handleGetMonthlyTrend(ctx context.Context, args TrendArgs) (ResponseEnvelope, error) {
	metric := strings.ToLower(strings.TrimSpace(args.Metric))
	r, rc, warnings, err := s.buildReport(ctx, PeriodArgs{Period: args.Period, From: args.From, To: args.To})
	if err != nil {
		return ResponseEnvelope{}, err
	}

	var series any
	var chart string
	switch metric {
	case TrendNC:
		series, chart = r.NCMonthly, visuals.GenerateNCTrendChart(r.NCMonthly)
	case TrendCost:
		series, chart = r.CostMonthly, visuals.GenerateCostTrendChart(r.CostMonthly)
	case TrendIncoming:
		series, chart = r.Incoming.Monthly, visuals.GenerateIncomingChart(r.Incoming.Monthly)
	case TrendVehicles:
		series = r.Vehicles.Monthly
	case TrendComplaints:
		series = r.Complaints.Monthly
	default:
		return ResponseEnvelope{}, fmt.Errorf("unknown metric %q. Available metrics: %s", args.Metric, strings.Join(TrendMetrics, ", "))
	}

	res := map[string]any{
		"metric": metric,
		"series": series,
	}
	env := WrapResponse(res, rc, warnings, []string{"Points are keyed YYYY-MM in chronological order; months without records are included with zero values."})
	env.Charts = []string{chart}
	return env, nil
}

// countRecords is used by refresh_snapshot to summarize a collection set.
func countRecords(c entity.Collections) map[entity.Kind]int {
	counts := c.Counts()
	for _, spec := range entity.Fetchable() {
		if _, ok := counts[spec.Kind]; !ok {
			counts[spec.Kind] = 0
		}
	}
	return counts
}

// nested reports the number of embedded children across a collection.
func nested(rows []record.Record, field string) int {
	n := 0
	for _, r := range rows {
		n += len(r.Children(field))
	}
	return n
}
