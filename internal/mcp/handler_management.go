package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"qms-mcp/internal/entity"
	"qms-mcp/internal/export"
	"qms-mcp/internal/period"
)

type ExportArgs struct {
	Period string `json:"period,omitempty" jsonschema:"Period token or YYYY-MM month (see get_a3_report)"`
	From   string `json:"from,omitempty" jsonschema:"Optional start date (YYYY-MM-DD)"`
	To     string `json:"to,omitempty" jsonschema:"Optional end date (YYYY-MM-DD)"`
	Path   string `json:"path,omitempty" jsonschema:"Optional output file. Default: <DATA_PATH>/exports/a3-<period>-<timestamp>.xlsx"`
}

// PeriodInfo is one selectable period resolved against the current date.
type PeriodInfo struct {
	Token period.Token `json:"token"`
	Label string       `json:"label"`
	Start time.Time    `json:"start"`
	End   time.Time    `json:"end"`
}

func (s *Server) handleListPeriods(_ context.Context, _ struct{}) (ResponseEnvelope, error) {
	now := s.clock()
	opts := s.cfg.PeriodOptions()

	periods := make([]PeriodInfo, 0, len(period.Tokens))
	for _, t := range period.Tokens {
		w := period.Resolve(t, now, opts)
		periods = append(periods, PeriodInfo{Token: w.Token, Label: w.Label, Start: w.Start, End: w.End})
	}

	res := map[string]any{
		"periods":   periods,
		"default":   period.DefaultToken,
		"alignment": s.cfg.Alignment,
		"timezone":  s.cfg.Location.String(),
	}
	guidance := []string{
		"Pass 'all' for an unbounded window or 'YYYY-MM' for a single calendar month.",
		"from/to (YYYY-MM-DD) override the bounds of the selected token.",
	}
	return WrapResponse(res, ResponseContext{Source: s.cfg.Source, Offline: s.provider.Offline()}, nil, guidance), nil
}

func (s *Server) handleRefreshSnapshot(ctx context.Context, _ struct{}) (ResponseEnvelope, error) {
	if s.provider.Offline() {
		return ResponseEnvelope{}, fmt.Errorf("refresh is not available in offline mode; regenerate the cached snapshot instead")
	}
	snap, rc, warnings, err := s.load(ctx, true)
	if err != nil {
		return ResponseEnvelope{}, err
	}

	vehicles := snap.Collections.Get(entity.ProducedVehicles)
	res := map[string]any{
		"message": fmt.Sprintf("%d records fetched from %d tables", snap.Collections.Total(), len(snap.Collections)),
		"counts":  countRecords(snap.Collections),
		"nested": map[string]int{
			entity.FaultsField:   nested(vehicles, entity.FaultsField),
			entity.TimelineField: nested(vehicles, entity.TimelineField),
		},
	}
	return WrapResponse(res, rc, warnings, nil), nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (s *Server) handleExportReport(ctx context.Context, args ExportArgs) (ResponseEnvelope, error) {
	r, rc, warnings, err := s.buildReport(ctx, PeriodArgs{Period: args.Period, From: args.From, To: args.To})
	if err != nil {
		return ResponseEnvelope{}, err
	}

	path := args.Path
	if path == "" {
		name := fmt.Sprintf("a3-%s-%s.xlsx", unsafeName.ReplaceAllString(r.Meta.PeriodLabel, "_"), s.clock().Format("20060102-150405"))
		path = filepath.Join(s.cfg.DataPath, "exports", name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return ResponseEnvelope{}, fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := export.Save(path, r); err != nil {
		return ResponseEnvelope{}, err
	}

	res := map[string]any{
		"path":   path,
		"runId":  r.Meta.RunID,
		"period": r.Meta.PeriodLabel,
		"sheets": export.Sheets,
	}
	return WrapResponse(res, rc, warnings, nil), nil
}
