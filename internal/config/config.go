package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"qms-mcp/internal/period"
	"qms-mcp/internal/snapshot"
	"qms-mcp/internal/supabase"
	"qms-mcp/internal/vocab"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Supabase supabase.Config
	Snapshot snapshot.Options
	// Source names the snapshot in the cache directory.
	Source string

	Vocabulary *vocab.Vocabulary
	Alignment  period.Alignment
	Location   *time.Location

	DataPath            string
	LogDir              string
	CacheDir            string
	MetricsAddr         string
	EnableMermaidCharts bool
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return FromEnv(exeDir)
}

// FromEnv builds the configuration from the process environment. exeDir is
// the default data path.
func FromEnv(exeDir string) (*AppConfig, error) {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := filepath.Join(dataPath, "logs")
	cacheDir := filepath.Join(dataPath, "cache")

	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cacheDir).Msg("Failed to create cache directory")
	}

	v := vocab.Default()
	if path := getEnv("VOCABULARY_FILE", ""); path != "" {
		loaded, err := vocab.Load(path)
		if err != nil {
			return nil, fmt.Errorf("vocabulary: %w", err)
		}
		v = loaded
	}

	loc := time.Local
	if tz := getEnv("QMS_TIMEZONE", ""); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid QMS_TIMEZONE %q: %w", tz, err)
		}
		loc = l
	}

	cfg := &AppConfig{
		Supabase: supabase.Config{
			BaseURL:      getEnv("SUPABASE_URL", ""),
			APIKey:       getEnv("SUPABASE_KEY", ""),
			Schema:       getEnv("SUPABASE_SCHEMA", ""),
			PageSize:     getEnvInt("SUPABASE_PAGE_SIZE", 1000),
			RequestDelay: getEnvDuration("SUPABASE_REQUEST_DELAY_MS", 0, time.Millisecond),
			Timeout:      getEnvDuration("SUPABASE_TIMEOUT_SECONDS", 90, time.Second),
		},
		Snapshot: snapshot.Options{
			CacheDir:    cacheDir,
			TTL:         getEnvDuration("SNAPSHOT_TTL_MINUTES", 15, time.Minute),
			Offline:     getEnvBool("QMS_OFFLINE", false),
			Concurrency: getEnvInt("SUPABASE_CONCURRENCY", 4),
		},
		Source:              getEnv("QMS_SOURCE", "default"),
		Vocabulary:          v,
		Alignment:           period.ParseAlignment(getEnv("PERIOD_ALIGNMENT", string(period.AlignRolling))),
		Location:            loc,
		DataPath:            dataPath,
		LogDir:              logDir,
		CacheDir:            cacheDir,
		MetricsAddr:         getEnv("METRICS_ADDR", ""),
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
	}

	if cfg.Supabase.BaseURL == "" && !cfg.Snapshot.Offline {
		log.Warn().Msg("SUPABASE_URL is not set; only cached snapshots can be served")
	}
	return cfg, nil
}

// PeriodOptions returns the period resolver options of this configuration.
func (c *AppConfig) PeriodOptions() period.Options {
	return period.Options{Alignment: c.Alignment, Labels: c.Vocabulary.PeriodLabels}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric setting")
	}
	return fallback
}

// getEnvDuration reads an integer count of unit.
func getEnvDuration(key string, fallback int, unit time.Duration) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * unit
}
