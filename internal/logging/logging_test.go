package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOGS_FOLDER", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_MAX_SIZE_MB", "4")
	t.Setenv("LOG_MAX_BACKUPS", "zero")

	opts := OptionsFromEnv(true, "/opt/qms")
	if opts.Level != zerolog.DebugLevel {
		t.Errorf("Expected debug level when verbose, got %s", opts.Level)
	}
	if opts.Dir != filepath.Join("/opt/qms", "logs") {
		t.Errorf("Expected logs next to the binary, got %s", opts.Dir)
	}
	if opts.MaxSizeMB != 4 || opts.MaxBackups != 32 {
		t.Errorf("Expected size 4 and default backups 32, got %d and %d", opts.MaxSizeMB, opts.MaxBackups)
	}

	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOGS_FOLDER", "/var/log/qms")
	opts = OptionsFromEnv(true, "/opt/qms")
	if opts.Level != zerolog.WarnLevel {
		t.Errorf("Expected LOG_LEVEL to win over verbose, got %s", opts.Level)
	}
	if opts.Dir != "/var/log/qms" {
		t.Errorf("Expected LOGS_FOLDER, got %s", opts.Dir)
	}
}

func TestNew_WritesBothSinks(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, closer, err := New(Options{
		Level:      zerolog.InfoLevel,
		Dir:        dir,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
		Console:    &console,
		NoColor:    true,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Debug().Msg("hidden")
	logger.Info().Str("source", "mock").Msg("Hydration complete")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.Contains(console.String(), "Hydration complete") {
		t.Errorf("Expected console output, got %q", console.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, LogFile))
	if err != nil {
		t.Fatalf("Expected log file: %v", err)
	}
	if !strings.Contains(string(data), `"source":"mock"`) {
		t.Errorf("Expected JSON line in file, got %q", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("Debug message should be filtered at info level")
	}
	if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
		t.Error("Write check file should be removed")
	}
}

func TestNew_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := New(Options{Dir: filepath.Join(file, "logs")}); err == nil {
		t.Error("Expected an error for a log dir below a file")
	}
}
