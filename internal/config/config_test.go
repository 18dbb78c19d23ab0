package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"qms-mcp/internal/period"
)

func TestFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon")
	t.Setenv("SUPABASE_PAGE_SIZE", "250")
	t.Setenv("SNAPSHOT_TTL_MINUTES", "5")
	t.Setenv("QMS_OFFLINE", "true")
	t.Setenv("PERIOD_ALIGNMENT", "calendar")
	t.Setenv("QMS_TIMEZONE", "Europe/Istanbul")
	t.Setenv("SUPABASE_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := FromEnv("")
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if cfg.Supabase.BaseURL != "https://example.supabase.co" || cfg.Supabase.APIKey != "anon" {
		t.Errorf("Unexpected supabase config: %+v", cfg.Supabase)
	}
	if cfg.Supabase.PageSize != 250 {
		t.Errorf("Expected page size 250, got %d", cfg.Supabase.PageSize)
	}
	if cfg.Supabase.Timeout != 90*time.Second {
		t.Errorf("Expected default timeout for malformed value, got %v", cfg.Supabase.Timeout)
	}
	if cfg.Snapshot.TTL != 5*time.Minute {
		t.Errorf("Expected TTL 5m, got %v", cfg.Snapshot.TTL)
	}
	if !cfg.Snapshot.Offline {
		t.Error("Expected offline mode")
	}
	if cfg.Snapshot.CacheDir != filepath.Join(dir, "cache") {
		t.Errorf("Expected cache dir under data path, got %s", cfg.Snapshot.CacheDir)
	}
	if _, err := os.Stat(cfg.CacheDir); err != nil {
		t.Errorf("Expected cache dir to be created: %v", err)
	}
	if cfg.Alignment != period.AlignCalendar {
		t.Errorf("Expected calendar alignment, got %s", cfg.Alignment)
	}
	if cfg.Location.String() != "Europe/Istanbul" {
		t.Errorf("Expected Europe/Istanbul, got %s", cfg.Location)
	}
	if cfg.Source != "default" {
		t.Errorf("Expected default source, got %s", cfg.Source)
	}
	if cfg.Vocabulary == nil || cfg.Vocabulary.Status.Closed != "Kapatıldı" {
		t.Error("Expected the default vocabulary")
	}
}

func TestFromEnv_VocabularyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	if err := os.WriteFile(path, []byte("labels:\n  other: Diğer\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATA_PATH", dir)
	t.Setenv("VOCABULARY_FILE", path)

	cfg, err := FromEnv("")
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Vocabulary.Labels.Other != "Diğer" {
		t.Errorf("Expected overlay label, got %q", cfg.Vocabulary.Labels.Other)
	}
	if cfg.Vocabulary.Labels.Unspecified != "Unspecified" {
		t.Errorf("Expected default label to survive, got %q", cfg.Vocabulary.Labels.Unspecified)
	}
}

func TestFromEnv_Errors(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("QMS_TIMEZONE", "Mars/Olympus")
	if _, err := FromEnv(""); err == nil {
		t.Error("Expected an error for an unknown timezone")
	}

	t.Setenv("QMS_TIMEZONE", "")
	t.Setenv("VOCABULARY_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := FromEnv(""); err == nil {
		t.Error("Expected an error for a missing vocabulary file")
	}
}
