// Package mcp exposes the quality analytics as Model Context Protocol tools.
package mcp

import (
	"context"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"qms-mcp/internal/config"
	"qms-mcp/internal/copq"
	"qms-mcp/internal/faults"
	"qms-mcp/internal/report"
	"qms-mcp/internal/snapshot"
)

// ServerName is announced to MCP clients.
const ServerName = "qms-mcp"

// Server holds the state for the MCP server.
type Server struct {
	cfg      *config.AppConfig
	provider *snapshot.Provider
	builder  *report.Builder
	faults   *faults.Analyzer
	costs    *copq.Analyzer

	// Version is reported in the initialize handshake.
	Version string

	now func() time.Time
}

// NewServer creates a new MCP server over a snapshot provider.
func NewServer(cfg *config.AppConfig, provider *snapshot.Provider) *Server {
	return &Server{
		cfg:      cfg,
		provider: provider,
		builder:  report.NewBuilder(cfg.Vocabulary, cfg.Location),
		faults:   faults.NewAnalyzer(cfg.Vocabulary, cfg.Location),
		costs:    copq.NewAnalyzer(cfg.Vocabulary),
		Version:  "dev",
		now:      time.Now,
	}
}

// Start serves MCP over stdio until the client disconnects or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	log.Info().Str("source", s.cfg.Source).Bool("offline", s.provider.Offline()).Msg("MCP Server starting Stdio loop")
	return s.protocolServer().Run(ctx, &sdk.StdioTransport{})
}

// protocolServer builds the SDK server with every tool registered.
func (s *Server) protocolServer() *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{Name: ServerName, Version: s.Version}, nil)
	s.registerTools(server)
	return server
}

// clock returns the reference instant in the configured location.
func (s *Server) clock() time.Time {
	return s.now().In(s.cfg.Location)
}
