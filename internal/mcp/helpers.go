package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"qms-mcp/internal/metrics"
	"qms-mcp/internal/period"
	"qms-mcp/internal/snapshot"
)

// PeriodArgs selects the analysis window of a tool call.
type PeriodArgs struct {
	Period string `json:"period,omitempty" jsonschema:"Period token: last1month, last3months, last6months, thisYear, last12months (default), all, or a month as YYYY-MM"`
	From   string `json:"from,omitempty" jsonschema:"Optional start date (YYYY-MM-DD). Overrides the start of the period token"`
	To     string `json:"to,omitempty" jsonschema:"Optional end date (YYYY-MM-DD). Overrides the end of the period token"`
}

// ResponseContext describes the data a response was computed from.
type ResponseContext struct {
	Source      string         `json:"source"`
	Period      *period.Window `json:"period,omitempty"`
	FetchedAt   time.Time      `json:"snapshotFetchedAt"`
	SnapshotAge string         `json:"snapshotAge"`
	Offline     bool           `json:"offline,omitempty"`
}

// ResponseEnvelope is the JSON body of every tool result.
type ResponseEnvelope struct {
	Context  ResponseContext `json:"context"`
	Data     any             `json:"data"`
	Warnings []string        `json:"warnings,omitempty"`
	Guidance []string        `json:"guidance,omitempty"`

	// Charts are sent as separate text blocks, not inside the JSON.
	Charts []string `json:"-"`
}

// WrapResponse builds an envelope around data.
func WrapResponse(data any, ctx ResponseContext, warnings, guidance []string) ResponseEnvelope {
	return ResponseEnvelope{Context: ctx, Data: data, Warnings: warnings, Guidance: guidance}
}

// staleAfter is the snapshot age that triggers a warning when the TTL does not apply.
const staleAfter = 24 * time.Hour

// load hydrates the configured source and describes it.
func (s *Server) load(ctx context.Context, force bool) (*snapshot.Snapshot, ResponseContext, []string, error) {
	snap, err := s.provider.Hydrate(ctx, s.cfg.Source, force)
	if err != nil {
		return nil, ResponseContext{}, nil, fmt.Errorf("failed to load data for source %q: %w", s.cfg.Source, err)
	}

	age := snap.Age(s.clock())
	rc := ResponseContext{
		Source:      snap.Source,
		FetchedAt:   snap.FetchedAt,
		SnapshotAge: age.Round(time.Second).String(),
		Offline:     s.provider.Offline(),
	}

	var warnings []string
	if age > staleAfter && (s.provider.Offline() || s.cfg.Snapshot.TTL <= 0) {
		warnings = append(warnings, fmt.Sprintf("STALE DATA WARNING: the snapshot was fetched %s ago (%s). Figures may not reflect recent records.",
			age.Round(time.Hour), snap.FetchedAt.Format("2006-01-02 15:04")))
	}
	return snap, rc, warnings, nil
}

// window resolves the period arguments against the current time.
func (s *Server) window(args PeriodArgs) (period.Window, []string, error) {
	now := s.clock()
	opts := s.cfg.PeriodOptions()

	var warnings []string
	if !knownSelector(args.Period) {
		warnings = append(warnings, fmt.Sprintf("Unknown period %q; using %s.", args.Period, period.DefaultToken))
	}

	if args.From != "" || args.To != "" {
		w, err := period.Range(args.From, args.To, period.Token(args.Period), now, opts)
		return w, warnings, err
	}
	w, err := period.Parse(args.Period, now, opts)
	return w, warnings, err
}

func knownSelector(p string) bool {
	if p == "" || p == string(period.AllTime) {
		return true
	}
	if _, err := period.ParseMonth(p, time.UTC); err == nil {
		return true
	}
	for _, t := range period.Tokens {
		if string(t) == p {
			return true
		}
	}
	return false
}

// formatResult renders the envelope as indented JSON.
func (s *Server) formatResult(data any) (string, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(out), nil
}

func errorResult(err error) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
	}
}

// handler adapts a tool implementation to the SDK: it records the run,
// renders the envelope and turns failures into tool errors.
func handler[In any](s *Server, name string, h func(context.Context, In) (ResponseEnvelope, error)) func(context.Context, *sdk.CallToolRequest, In) (*sdk.CallToolResult, any, error) {
	return func(ctx context.Context, _ *sdk.CallToolRequest, in In) (*sdk.CallToolResult, any, error) {
		start := time.Now()
		defer metrics.ObserveRun(name, start)

		env, err := h(ctx, in)
		if err != nil {
			log.Error().Err(err).Str("tool", name).Msg("Tool call failed")
			return errorResult(err), nil, nil
		}

		text, err := s.formatResult(env)
		if err != nil {
			return errorResult(err), nil, nil
		}
		content := []sdk.Content{&sdk.TextContent{Text: text}}
		if s.cfg.EnableMermaidCharts {
			for _, c := range env.Charts {
				if c != "" {
					content = append(content, &sdk.TextContent{Text: c})
				}
			}
		}
		log.Debug().Str("tool", name).Dur("elapsed", time.Since(start)).Msg("Tool call complete")
		return &sdk.CallToolResult{Content: content}, nil, nil
	}
}
