package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"qms-mcp/internal/config"
	"qms-mcp/internal/logging"
	"qms-mcp/internal/mcp"
	"qms-mcp/internal/metrics"
	"qms-mcp/internal/snapshot"
	"qms-mcp/internal/supabase"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig

	provider *snapshot.Provider
)

var rootCmd = &cobra.Command{
	Use:   "qms-mcp",
	Short: "QMS-MCP serves quality management analytics over MCP",
	Long: `An MCP Server that turns a snapshot of the quality management database
(non-conformities, quality costs, incoming inspection, vehicles, suppliers)
into period-scoped A3 reports, COPQ summaries and monthly trends.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		// Money serializes as a JSON number.
		decimal.MarshalJSONWithoutQuotes = true

		var client supabase.Client
		if !cfg.Snapshot.Offline {
			client = supabase.NewClient(cfg.Supabase)
		}
		provider = snapshot.NewProvider(client, snapshot.NewStore(), cfg.Snapshot)

		metrics.SetBuildInfo(Version, Commit, BuildDate)
		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("source", cfg.Source).
			Msg("QMS-MCP starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.MetricsAddr != "" {
			ms := metrics.NewServer(cfg.MetricsAddr)
			go func() {
				if err := ms.Start(); err != nil {
					log.Error().Err(err).Msg("Metrics server stopped")
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = ms.Shutdown(shutdownCtx)
			}()
		}

		server := newServer()
		return server.Start(ctx)
	},
}

func newServer() *mcp.Server {
	server := mcp.NewServer(cfg, provider)
	server.Version = Version
	return server
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(reportCmd, versionCmd)
}
