package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"qms-mcp/internal/export"
	"qms-mcp/internal/mcp"
	"qms-mcp/internal/report"
	"qms-mcp/internal/visuals"
)

// Report output formats.
const (
	FormatJSON    = "json"
	FormatXLSX    = "xlsx"
	FormatMermaid = "mermaid"
)

var reportOpts struct {
	period string
	from   string
	to     string
	format string
	out    string
	open   bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the A3 report once and write it to a file or stdout",
	Example: `  qms-mcp report --period last3months
  qms-mcp report --from 2024-01-01 --to 2024-06-30 --format xlsx --out a3.xlsx --open`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(reportOpts.format)
		if format != FormatJSON && format != FormatXLSX && format != FormatMermaid {
			return fmt.Errorf("unknown format %q (use json, xlsx or mermaid)", reportOpts.format)
		}
		if format == FormatXLSX && reportOpts.out == "" {
			return fmt.Errorf("--out is required for xlsx output")
		}

		r, warnings, err := newServer().Report(cmd.Context(), mcp.PeriodArgs{
			Period: reportOpts.period,
			From:   reportOpts.from,
			To:     reportOpts.to,
		})
		if err != nil {
			return err
		}
		for _, w := range warnings {
			log.Warn().Msg(w)
		}

		if reportOpts.out == "" {
			return writeReport(cmd.OutOrStdout(), format, r)
		}
		if err := os.MkdirAll(filepath.Dir(reportOpts.out), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		f, err := os.Create(reportOpts.out)
		if err != nil {
			return err
		}
		if err := writeReport(f, format, r); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Info().Str("path", reportOpts.out).Str("period", r.Meta.PeriodLabel).Str("runId", r.Meta.RunID).Msg("Report written")

		if reportOpts.open {
			if err := browser.OpenFile(reportOpts.out); err != nil {
				log.Warn().Err(err).Msg("Failed to open report")
			}
		}
		return nil
	},
}

func writeReport(w io.Writer, format string, r *report.Report) error {
	switch format {
	case FormatXLSX:
		return export.Write(w, r)
	case FormatMermaid:
		_, err := fmt.Fprintln(w, visuals.GenerateReportCharts(r))
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportOpts.period, "period", "", "period token (last1month, last3months, last6months, thisYear, last12months), YYYY-MM or all")
	f.StringVar(&reportOpts.from, "from", "", "start date (YYYY-MM-DD)")
	f.StringVar(&reportOpts.to, "to", "", "end date (YYYY-MM-DD)")
	f.StringVarP(&reportOpts.format, "format", "f", FormatJSON, "output format: json, xlsx or mermaid")
	f.StringVarP(&reportOpts.out, "out", "o", "", "output file (default stdout)")
	f.BoolVar(&reportOpts.open, "open", false, "open the written file with the default application")
}
