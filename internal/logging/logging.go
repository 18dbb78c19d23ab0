// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFile is the name of the rotating log file inside the log directory.
const LogFile = "qms-mcp.log"

// Options configure the console and file sinks.
type Options struct {
	Level zerolog.Level
	Dir   string

	// Rotation
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Console receives human-readable output. It must not be stdout, which
	// belongs to the MCP stdio transport.
	Console io.Writer
	NoColor bool
}

// OptionsFromEnv reads LOG_LEVEL, LOGS_FOLDER and the LOG_MAX_* rotation
// settings. verbose selects debug unless LOG_LEVEL says otherwise.
func OptionsFromEnv(verbose bool, exeDir string) Options {
	opts := Options{
		Level:      zerolog.InfoLevel,
		Dir:        os.Getenv("LOGS_FOLDER"),
		MaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 16),
		MaxBackups: envInt("LOG_MAX_BACKUPS", 32),
		MaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 365),
		Console:    os.Stderr,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
	if verbose {
		opts.Level = zerolog.DebugLevel
	}
	if lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil && lvl != zerolog.NoLevel {
		opts.Level = lvl
	}
	if opts.Dir == "" {
		opts.Dir = filepath.Join(exeDir, "logs")
	}
	return opts
}

// New builds a logger writing to the console and a rotating file in opts.Dir.
// The returned closer flushes the file sink.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	file, err := newFileWriter(opts)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	console := zerolog.ConsoleWriter{
		Out:        opts.Console,
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor,
	}
	logger := zerolog.New(zerolog.MultiLevelWriter(console, file)).
		Level(opts.Level).
		With().
		Timestamp().
		Logger()
	return logger, file, nil
}

// Init installs the global logger. It runs before config.Load, so the
// binary's .env is read here for the logging settings.
func Init(verbose bool) {
	exeDir := "."
	if exePath, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exePath)
		_ = godotenv.Load(filepath.Join(exeDir, ".env"))
	}

	opts := OptionsFromEnv(verbose, exeDir)
	logger, _, err := New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	zerolog.SetGlobalLevel(opts.Level)
	log.Logger = logger
}

// newFileWriter checks that the log directory is writable and returns a
// rotating writer in it.
func newFileWriter(opts Options) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", opts.Dir, err)
	}

	check := filepath.Join(opts.Dir, ".write-test")
	if err := os.WriteFile(check, []byte("test"), 0644); err != nil {
		return nil, fmt.Errorf("log directory %q is not writable: %w", opts.Dir, err)
	}
	_ = os.Remove(check)

	return &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, LogFile),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}, nil
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}
