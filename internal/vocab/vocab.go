// Package vocab holds the label and status tables the analytics depend on.
//
// Stored statuses and cost types are Turkish strings written by the hosted
// application, so the defaults match those values. Display labels default to
// English and can be replaced from a YAML file.
package vocab

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary is injected into every builder instead of package-level tables.
type Vocabulary struct {
	Labels   Labels         `yaml:"labels"`
	Status   Statuses       `yaml:"status"`
	Decision Decisions      `yaml:"decision"`
	NCTypes  NCTypes        `yaml:"nc_types"`
	Costs    CostVocabulary `yaml:"costs"`
	Units    Units          `yaml:"units"`
	Grades   []string       `yaml:"grades"`
	// MonthNames replaces the English short month names when all twelve are set.
	MonthNames []string `yaml:"month_names"`
	// PeriodLabels overrides the label of a period token (e.g. "last3months": "Son 3 Ay").
	PeriodLabels map[string]string `yaml:"period_labels"`
}

// Labels are the names of synthetic buckets and duration units.
type Labels struct {
	Unspecified   string `yaml:"unspecified"`
	Other         string `yaml:"other"`
	Unknown       string `yaml:"unknown"`
	Uncategorized string `yaml:"uncategorized"`
	SupplierUnit  string `yaml:"supplier_unit"` // prefix for supplier-attributed cost units
	Hour          string `yaml:"hour"`
	Minute        string `yaml:"minute"`
	NotAvailable  string `yaml:"not_available"`
}

// Statuses are the stored lifecycle values.
type Statuses struct {
	Open            string   `yaml:"open"`
	Closed          string   `yaml:"closed"`
	Rejected        string   `yaml:"rejected"`
	Completed       string   `yaml:"completed"`
	Cancelled       string   `yaml:"cancelled"`
	InProgress      []string `yaml:"in_progress"`
	DeviationClosed []string `yaml:"deviation_closed"`
	Quarantined     string   `yaml:"quarantined"`
	ActiveSupplier  []string `yaml:"active_supplier"`
}

// Units are stored unit names the vehicle cost estimate charges.
type Units struct {
	QualityControl string `yaml:"quality_control"`
	Production     string `yaml:"production"`
}

// Decisions are incoming-inspection outcomes.
type Decisions struct {
	Accepted    string `yaml:"accepted"`
	Conditional string `yaml:"conditional"`
	Rejected    string `yaml:"rejected"`
	Pending     string `yaml:"pending"`
}

// NCTypes are the non-conformity type tags counted separately.
type NCTypes struct {
	CorrectiveAction string `yaml:"corrective_action"`
	EightD           string `yaml:"eight_d"`
}

// CostVocabulary lists the cost-type substrings of each COPQ category.
type CostVocabulary struct {
	InternalFailure []string `yaml:"internal_failure"`
	ExternalFailure []string `yaml:"external_failure"`
	Appraisal       []string `yaml:"appraisal"`
	Prevention      []string `yaml:"prevention"`
}

// Default returns the vocabulary used by the hosted application.
func Default() *Vocabulary {
	return &Vocabulary{
		Labels: Labels{
			Unspecified:   "Unspecified",
			Other:         "Other",
			Unknown:       "Unknown",
			Uncategorized: "Uncategorized",
			SupplierUnit:  "Supplier",
			Hour:          "h",
			Minute:        "min",
			NotAvailable:  "N/A",
		},
		Status: Statuses{
			Open:            "Açık",
			Closed:          "Kapatıldı",
			Rejected:        "Reddedildi",
			Completed:       "Tamamlandı",
			Cancelled:       "İptal",
			InProgress:      []string{"Devam Ediyor", "Devam ediyor"},
			DeviationClosed: []string{"Kapandı", "Reddedildi", "Kapatıldı"},
			Quarantined:     "Karantinada",
			ActiveSupplier:  []string{"Onaylı", "Alternatif"},
		},
		Decision: Decisions{
			Accepted:    "Kabul",
			Conditional: "Şartlı Kabul",
			Rejected:    "Ret",
			Pending:     "Beklemede",
		},
		Units: Units{
			QualityControl: "Kalite Kontrol",
			Production:     "Üretim",
		},
		NCTypes: NCTypes{
			CorrectiveAction: "DF",
			EightD:           "8D",
		},
		Costs: CostVocabulary{
			InternalFailure: []string{
				"Hurda Maliyeti",
				"Yeniden İşlem Maliyeti",
				"Fire Maliyeti",
				"İç Kalite Kontrol Maliyeti",
				"Final Hataları Maliyeti",
				"İç Hata Maliyeti",
				"Tedarikçi Hata Maliyeti",
			},
			ExternalFailure: []string{
				"Garanti Maliyeti",
				"İade Maliyeti",
				"Şikayet Maliyeti",
				"Dış Hata Maliyeti",
				"Geri Çağırma Maliyeti",
				"Müşteri Kaybı Maliyeti",
				"Müşteri Reklaması",
			},
			Appraisal: []string{
				"Girdi Kalite Kontrol Maliyeti",
				"Üretim Kalite Kontrol Maliyeti",
				"Test ve Ölçüm Maliyeti",
				"Kalite Kontrol Maliyeti",
			},
			Prevention: []string{
				"Eğitim Maliyeti",
				"Kalite Planlama Maliyeti",
				"Tedarikçi Değerlendirme Maliyeti",
				"İyileştirme Projeleri Maliyeti",
				"Kalite Sistem Maliyeti",
			},
		},
		Grades: []string{"A", "B", "C", "D"},
	}
}

// Load reads a YAML file and overlays it on the defaults. Empty fields keep
// their default value.
func Load(path string) (*Vocabulary, error) {
	v := Default()
	if path == "" {
		return v, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var overlay Vocabulary
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary file %s: %w", path, err)
	}

	v.merge(overlay)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks the tables that cannot be partially specified.
func (v *Vocabulary) Validate() error {
	if len(v.MonthNames) != 0 && len(v.MonthNames) != 12 {
		return fmt.Errorf("month_names must list 12 names, got %d", len(v.MonthNames))
	}
	return nil
}

// IsClosed reports whether an NC-style status is the closed terminal state.
func (v *Vocabulary) IsClosed(status string) bool {
	return status == v.Status.Closed
}

// IsInProgress reports whether a kaizen status counts as active.
func (v *Vocabulary) IsInProgress(status string) bool {
	return contains(v.Status.InProgress, status)
}

// IsDeviationClosed reports whether a deviation status is terminal.
func (v *Vocabulary) IsDeviationClosed(status string) bool {
	return contains(v.Status.DeviationClosed, status)
}

// IsActiveSupplier reports whether a supplier status counts as approved.
func (v *Vocabulary) IsActiveSupplier(status string) bool {
	return contains(v.Status.ActiveSupplier, status)
}

// PeriodLabel returns the override for a token, or fallback.
func (v *Vocabulary) PeriodLabel(token, fallback string) string {
	if l, ok := v.PeriodLabels[token]; ok && l != "" {
		return l
	}
	return fallback
}

func (v *Vocabulary) merge(o Vocabulary) {
	setString(&v.Labels.Unspecified, o.Labels.Unspecified)
	setString(&v.Labels.Other, o.Labels.Other)
	setString(&v.Labels.Unknown, o.Labels.Unknown)
	setString(&v.Labels.Uncategorized, o.Labels.Uncategorized)
	setString(&v.Labels.SupplierUnit, o.Labels.SupplierUnit)
	setString(&v.Labels.Hour, o.Labels.Hour)
	setString(&v.Labels.Minute, o.Labels.Minute)
	setString(&v.Labels.NotAvailable, o.Labels.NotAvailable)

	setString(&v.Status.Open, o.Status.Open)
	setString(&v.Status.Closed, o.Status.Closed)
	setString(&v.Status.Rejected, o.Status.Rejected)
	setString(&v.Status.Completed, o.Status.Completed)
	setString(&v.Status.Cancelled, o.Status.Cancelled)
	setString(&v.Status.Quarantined, o.Status.Quarantined)
	setSlice(&v.Status.InProgress, o.Status.InProgress)
	setSlice(&v.Status.DeviationClosed, o.Status.DeviationClosed)
	setSlice(&v.Status.ActiveSupplier, o.Status.ActiveSupplier)

	setString(&v.Decision.Accepted, o.Decision.Accepted)
	setString(&v.Decision.Conditional, o.Decision.Conditional)
	setString(&v.Decision.Rejected, o.Decision.Rejected)
	setString(&v.Decision.Pending, o.Decision.Pending)

	setString(&v.Units.QualityControl, o.Units.QualityControl)
	setString(&v.Units.Production, o.Units.Production)

	setString(&v.NCTypes.CorrectiveAction, o.NCTypes.CorrectiveAction)
	setString(&v.NCTypes.EightD, o.NCTypes.EightD)

	setSlice(&v.Costs.InternalFailure, o.Costs.InternalFailure)
	setSlice(&v.Costs.ExternalFailure, o.Costs.ExternalFailure)
	setSlice(&v.Costs.Appraisal, o.Costs.Appraisal)
	setSlice(&v.Costs.Prevention, o.Costs.Prevention)

	setSlice(&v.Grades, o.Grades)
	setSlice(&v.MonthNames, o.MonthNames)

	if len(o.PeriodLabels) > 0 {
		v.PeriodLabels = o.PeriodLabels
	}
}

func setString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func setSlice(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
