package vocab

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	content := `
labels:
  unspecified: Belirtilmemiş
  other: Diğer
costs:
  prevention: ["Eğitim Maliyeti"]
month_names: [Oca, Şub, Mar, Nis, May, Haz, Tem, Ağu, Eyl, Eki, Kas, Ara]
period_labels:
  last3months: Son 3 Ay
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	v, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if v.Labels.Unspecified != "Belirtilmemiş" {
		t.Errorf("Expected overlay label, got %q", v.Labels.Unspecified)
	}
	if v.Labels.Unknown != "Unknown" {
		t.Errorf("Expected default Unknown label to survive, got %q", v.Labels.Unknown)
	}
	if len(v.Costs.Prevention) != 1 {
		t.Errorf("Expected prevention list to be replaced, got %v", v.Costs.Prevention)
	}
	if len(v.Costs.ExternalFailure) == 0 {
		t.Errorf("Expected default external failure list to survive")
	}
	if v.PeriodLabel("last3months", "x") != "Son 3 Ay" {
		t.Errorf("Expected period label override")
	}
	if v.PeriodLabel("thisYear", "2024") != "2024" {
		t.Errorf("Expected fallback period label")
	}
}

func TestLoad_RejectsPartialMonthNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	if err := os.WriteFile(path, []byte("month_names: [Oca, Şub]\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for partial month names")
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	v, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v.Status.Closed != "Kapatıldı" {
		t.Errorf("Expected default closed status, got %q", v.Status.Closed)
	}
}

func TestStatusPredicates(t *testing.T) {
	v := Default()
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"Closed", v.IsClosed("Kapatıldı"), true},
		{"OpenIsNotClosed", v.IsClosed("Açık"), false},
		{"InProgressLower", v.IsInProgress("Devam ediyor"), true},
		{"DeviationClosed", v.IsDeviationClosed("Kapandı"), true},
		{"ActiveSupplier", v.IsActiveSupplier("Alternatif"), true},
		{"InactiveSupplier", v.IsActiveSupplier("Askıda"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
