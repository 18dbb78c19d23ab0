package mcp

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"qms-mcp/internal/period"
)

// Tool names.
const (
	ToolListPeriods      = "list_periods"
	ToolA3Report         = "get_a3_report"
	ToolCOPQSummary      = "get_copq_summary"
	ToolCostDistribution = "get_cost_distribution"
	ToolVehicleFaults    = "get_vehicle_fault_analytics"
	ToolMonthlyTrend     = "get_monthly_trend"
	ToolRefreshSnapshot  = "refresh_snapshot"
	ToolExportReport     = "export_report_xlsx"
)

// schemaFor infers the input schema of T and lets tweak refine its properties.
func schemaFor[T any](tweak func(props map[string]*jsonschema.Schema)) *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("mcp: cannot infer input schema for %T: %v", *new(T), err))
	}
	if tweak != nil && schema.Properties != nil {
		tweak(schema.Properties)
	}
	return schema
}

// periodEnum documents the tokens without restricting YYYY-MM selectors.
func periodEnum(props map[string]*jsonschema.Schema) {
	p, ok := props["period"]
	if !ok {
		return
	}
	var tokens []any
	for _, t := range period.Tokens {
		tokens = append(tokens, string(t))
	}
	tokens = append(tokens, string(period.AllTime))
	p.Examples = append(tokens, "2024-03")
	p.Pattern = `^(all|last1month|last3months|last6months|thisYear|last12months|\d{4}-\d{2})?$`
}

func (s *Server) registerTools(server *sdk.Server) {
	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolListPeriods,
		Description: "List the selectable reporting periods resolved against today's date. Call this first when the user names a period loosely (e.g. 'this quarter').",
		InputSchema: schemaFor[struct{}](nil),
	}, handler(s, ToolListPeriods, s.handleListPeriods))

	sdk.AddTool(server, &sdk.Tool{
		Name: ToolA3Report,
		Description: "Build the A3 quality-board report for a period: KPIs (open DF/8D, closure days, costs, COPQ, quarantine, complaints, incoming PPM, vehicle pass rate, kaizen, audits, tasks), " +
			"grouped series (NC by department/type, cost by type/unit/category, supplier grades, fault categories) and monthly trends. \n\n" +
			"Use this as the entry point for any quality overview. For a single topic prefer the focused tools (get_copq_summary, get_cost_distribution, get_vehicle_fault_analytics, get_monthly_trend).",
		InputSchema: schemaFor[PeriodArgs](periodEnum),
	}, handler(s, ToolA3Report, s.handleGetA3Report))

	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolCOPQSummary,
		Description: "Cost of Poor Quality for a period: totals per category (internal failure, external failure, appraisal, prevention), the classified record breakdown and cost per produced vehicle.",
		InputSchema: schemaFor[PeriodArgs](periodEnum),
	}, handler(s, ToolCOPQSummary, s.handleGetCOPQSummary))

	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolCostDistribution,
		Description: "Distribute quality costs of a period over the responsible units (including supplier attribution), with the COPQ category split, share and rank of each unit.",
		InputSchema: schemaFor[CostDistributionArgs](func(props map[string]*jsonschema.Schema) {
			periodEnum(props)
			if p, ok := props["threshold"]; ok {
				lo, hi := 0.0, 100.0
				p.Minimum, p.Maximum = &lo, &hi
			}
		}),
	}, handler(s, ToolCostDistribution, s.handleGetCostDistribution))

	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolVehicleFaults,
		Description: "Vehicle fault analytics for one month or all time: faults per department, category and vehicle type (top 10 + Other), faulty-vehicle rate and a monthly trend with average inspection and rework minutes.",
		InputSchema: schemaFor[FaultArgs](func(props map[string]*jsonschema.Schema) {
			if p, ok := props["month"]; ok {
				p.Pattern = `^(all|\d{4}-\d{2}|last1month|last3months|last6months|thisYear|last12months)?$`
			}
		}),
	}, handler(s, ToolVehicleFaults, s.handleGetVehicleFaultAnalytics))

	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolMonthlyTrend,
		Description: "Return one monthly series of the A3 report (non-conformities opened/closed, quality cost, incoming inspections, produced vehicles or complaints) in chronological order.",
		InputSchema: schemaFor[TrendArgs](func(props map[string]*jsonschema.Schema) {
			periodEnum(props)
			if p, ok := props["metric"]; ok {
				for _, m := range TrendMetrics {
					p.Enum = append(p.Enum, m)
				}
			}
		}),
	}, handler(s, ToolMonthlyTrend, s.handleGetMonthlyTrend))

	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolRefreshSnapshot,
		Description: "Refetch every table from the database and replace the cached snapshot. Only needed when the user reports that recent records are missing.",
		InputSchema: schemaFor[struct{}](nil),
	}, handler(s, ToolRefreshSnapshot, s.handleRefreshSnapshot))

	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolExportReport,
		Description: "Write the A3 report of a period to an XLSX workbook (one sheet per board section) and return its path.",
		InputSchema: schemaFor[ExportArgs](periodEnum),
	}, handler(s, ToolExportReport, s.handleExportReport))
}
