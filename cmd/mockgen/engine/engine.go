// Package engine generates synthetic quality-management snapshots for
// offline runs and tests.
package engine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"qms-mcp/internal/entity"
	"qms-mcp/internal/record"
	"qms-mcp/internal/snapshot"
	"qms-mcp/internal/timeline"
	"qms-mcp/internal/vocab"
)

type GeneratorConfig struct {
	// Scenario is "steady" or "spike". A spike doubles faults and scrap
	// costs in the most recent two months.
	Scenario string
	// Count scales every collection; non-conformities get exactly Count rows.
	Count  int
	Months int
	Seed   int64
	Now    time.Time
}

var (
	departments  = []string{"Kaynak", "Boya", "Montaj", "Elektrik", "Kalite Kontrol", "Üretim"}
	suppliers    = []string{"Alfa Metal", "Beta Plastik", "Gama Kablo", "Delta Cam", "Epsilon Boya"}
	vehicleTypes = []string{"Kamyon", "Otobüs", "Midibüs", "Çekici"}
	faultTypes   = []string{"Boya Hatası", "Kaynak Hatası", "Elektrik Arızası", "Montaj Eksikliği", "Sızdırmazlık"}
	severities   = []string{"Düşük", "Orta", "Yüksek", "Kritik"}
)

type generator struct {
	cfg GeneratorConfig
	rnd *rand.Rand
	v   *vocab.Vocabulary
	seq int
}

// Generate builds a full set of collections spread over the last cfg.Months months.
func Generate(cfg GeneratorConfig) entity.Collections {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Count <= 0 {
		cfg.Count = 200
	}
	if cfg.Months <= 0 {
		cfg.Months = 14
	}
	g := &generator{cfg: cfg, rnd: rand.New(rand.NewSource(cfg.Seed)), v: vocab.Default()}

	c := entity.Collections{
		entity.ProductionDepartments:   g.productionDepartments(),
		entity.CostSettings:            g.costSettings(),
		entity.Personnel:               g.personnel(),
		entity.Suppliers:               g.suppliers(),
		entity.NonConformities:         g.nonConformities(),
		entity.NonconformityRecords:    g.nonconformityRecords(),
		entity.QualityCosts:            g.qualityCosts(),
		entity.QuarantineRecords:       g.quarantine(),
		entity.IncomingInspections:     g.incoming(),
		entity.ProducedVehicles:        g.vehicles(),
		entity.CustomerComplaints:      g.complaints(),
		entity.KaizenEntries:           g.kaizen(),
		entity.Deviations:              g.deviations(),
		entity.Equipments:              g.equipments(),
		entity.Tasks:                   g.tasks(),
		entity.SupplierNonConformities: g.supplierNC(),
		entity.IncomingControlPlans:    g.controlPlans("part_code"),
		entity.ProcessControlPlans:     g.controlPlans("process_name"),
		entity.Trainings:               g.trainings(),
	}
	c[entity.Audits], c[entity.AuditFindings] = g.audits()
	return c
}

// Save writes the collections as the cached snapshot of source in outDir.
func Save(outDir, source string, c entity.Collections, fetchedAt time.Time) error {
	snap := &snapshot.Snapshot{Source: source, FetchedAt: fetchedAt, Collections: c}
	return snapshot.WriteFile(snapshot.CachePath(outDir, source), snap)
}

func (g *generator) id(prefix string) string {
	g.seq++
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s-%d-%d", prefix, g.cfg.Seed, g.seq))).String()
}

func (g *generator) pick(options []string) string {
	return options[g.rnd.Intn(len(options))]
}

// date returns a random instant in the generated span. Later months are
// slightly more likely so trends have a direction.
func (g *generator) date() time.Time {
	span := g.cfg.Now.Sub(g.cfg.Now.AddDate(0, -g.cfg.Months, 0))
	u := math.Sqrt(g.rnd.Float64())
	return g.cfg.Now.Add(-time.Duration((1 - u) * float64(span))).Truncate(time.Minute)
}

// recent reports whether t falls in the spike months.
func (g *generator) recent(t time.Time) bool {
	return g.cfg.Scenario == "spike" && t.After(g.cfg.Now.AddDate(0, -2, 0))
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}

func money(x float64) float64 {
	return math.Round(x*100) / 100
}

func (g *generator) productionDepartments() []record.Record {
	out := make([]record.Record, 0, len(departments))
	for _, d := range departments {
		out = append(out, record.Record{"id": g.id("dept"), "name": d})
	}
	return out
}

func (g *generator) costSettings() []record.Record {
	out := make([]record.Record, 0, len(departments))
	for _, d := range departments {
		out = append(out, record.Record{"id": g.id("unit"), "unit_name": d, "cost_per_minute": money(5 + g.rnd.Float64()*10)})
	}
	return out
}

func (g *generator) personnel() []record.Record {
	n := g.cfg.Count / 4
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, record.Record{
			"id":         g.id("person"),
			"full_name":  fmt.Sprintf("Personel %d", i+1),
			"department": g.pick(departments),
			"is_active":  g.rnd.Float64() > 0.1,
		})
	}
	return out
}

func (g *generator) suppliers() []record.Record {
	out := make([]record.Record, 0, len(suppliers))
	for i, name := range suppliers {
		status := g.v.Status.ActiveSupplier[i%len(g.v.Status.ActiveSupplier)]
		var scores []any
		for q := 0; q < 4; q++ {
			p := g.cfg.Now.AddDate(0, -3*q, 0)
			scores = append(scores, map[string]any{
				"final_score": float64(60 + g.rnd.Intn(40)),
				"grade":       g.pick(g.v.Grades),
				"period":      day(p),
			})
		}
		plan := g.date()
		out = append(out, record.Record{
			"id":               g.id("supplier"),
			"name":             name,
			"status":           status,
			entity.ScoresField: scores,
			entity.AuditPlansField: []any{map[string]any{
				"status":       g.v.Status.Completed,
				"planned_date": day(plan),
				"actual_date":  day(plan.AddDate(0, 0, g.rnd.Intn(10))),
				"score":        float64(50 + g.rnd.Intn(50)),
			}},
		})
	}
	return out
}

func (g *generator) nonConformities() []record.Record {
	types := []string{g.v.NCTypes.CorrectiveAction, g.v.NCTypes.EightD}
	out := make([]record.Record, 0, g.cfg.Count)
	for i := 0; i < g.cfg.Count; i++ {
		created := g.date()
		r := record.Record{
			"id":              g.id("nc"),
			"nc_number":       fmt.Sprintf("%s-%d-%03d", types[i%2], created.Year(), i+1),
			"type":            types[i%2],
			"title":           fmt.Sprintf("%s uygunsuzluğu", g.pick(faultTypes)),
			"department":      g.pick(departments),
			"requesting_unit": g.pick(departments),
			"created_at":      stamp(created),
			"due_at":          stamp(created.AddDate(0, 0, 15+g.rnd.Intn(30))),
			"status":          g.v.Status.Open,
		}
		switch x := g.rnd.Float64(); {
		case x < 0.55:
			closed := created.AddDate(0, 0, 3+g.rnd.Intn(40))
			if closed.Before(g.cfg.Now) {
				r["status"] = g.v.Status.Closed
				r["closed_at"] = stamp(closed)
			}
		case x < 0.6:
			r["status"] = g.v.Status.Rejected
		}
		out = append(out, r)
	}
	return out
}

func (g *generator) nonconformityRecords() []record.Record {
	n := g.cfg.Count / 2
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		status := g.v.Status.Open
		if g.rnd.Float64() < 0.5 {
			status = g.v.Status.Closed
		}
		out = append(out, record.Record{
			"id":                 g.id("ncr"),
			"detection_date":     day(g.date()),
			"part_code":          fmt.Sprintf("P-%04d", g.rnd.Intn(500)),
			"description":        fmt.Sprintf("%s tespit edildi", g.pick(faultTypes)),
			"category":           g.pick(faultTypes),
			"detection_area":     g.pick(departments),
			"severity":           g.pick(severities),
			"status":             status,
			"responsible_person": fmt.Sprintf("Personel %d", g.rnd.Intn(20)+1),
		})
	}
	return out
}

func (g *generator) qualityCosts() []record.Record {
	cv := g.v.Costs
	types := [][]string{cv.InternalFailure, cv.ExternalFailure, cv.Appraisal, cv.Prevention}
	weights := []float64{0.55, 0.2, 0.15, 0.1}

	out := make([]record.Record, 0, g.cfg.Count)
	for i := 0; i < g.cfg.Count; i++ {
		d := g.date()
		x, group := g.rnd.Float64(), 0
		for acc := weights[0]; x > acc && group < len(weights)-1; {
			group++
			acc += weights[group]
		}
		amount := 200 + g.rnd.ExpFloat64()*1500
		if group == 0 && g.recent(d) {
			amount *= 2
		}
		r := record.Record{
			"id":        g.id("cost"),
			"cost_type": g.pick(types[group]),
			"amount":    money(amount),
			"unit":      g.pick(departments),
			"cost_date": day(d),
			"quantity":  float64(1 + g.rnd.Intn(3)),
		}
		if group == 0 && g.rnd.Float64() < 0.15 {
			name := g.pick(suppliers)
			r["is_supplier_nc"] = true
			r["supplier_id"] = g.id("supplier-ref")
			r["supplier"] = map[string]any{"name": name}
		}
		out = append(out, r)
	}
	return out
}

func (g *generator) quarantine() []record.Record {
	n := g.cfg.Count / 10
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		status := g.v.Status.Quarantined
		if g.rnd.Float64() < 0.6 {
			status = g.v.Status.Completed
		}
		out = append(out, record.Record{
			"id":              g.id("quarantine"),
			"part_code":       fmt.Sprintf("P-%04d", g.rnd.Intn(500)),
			"lot_no":          fmt.Sprintf("LOT-%05d", g.rnd.Intn(99999)),
			"quantity":        float64(1 + g.rnd.Intn(200)),
			"unit":            g.pick(departments),
			"quarantine_date": day(g.date()),
			"status":          status,
		})
	}
	return out
}

func (g *generator) incoming() []record.Record {
	d := g.v.Decision
	decisions := []string{d.Accepted, d.Accepted, d.Accepted, d.Accepted, d.Conditional, d.Rejected, d.Pending}
	out := make([]record.Record, 0, g.cfg.Count)
	for i := 0; i < g.cfg.Count; i++ {
		decision := g.pick(decisions)
		received := float64(50 + g.rnd.Intn(950))
		rejected := 0.0
		if decision == d.Rejected || decision == d.Conditional {
			rejected = math.Ceil(received * g.rnd.Float64() * 0.1)
		}
		out = append(out, record.Record{
			"id":                g.id("incoming"),
			"inspection_date":   day(g.date()),
			"decision":          decision,
			"supplier_name":     g.pick(suppliers),
			"quantity_received": received,
			"quantity_rejected": rejected,
		})
	}
	return out
}

func (g *generator) vehicles() []record.Record {
	n := g.cfg.Count / 2
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		id := g.id("vehicle")
		created := g.date()
		vType := g.pick(vehicleTypes)

		faultCount := g.rnd.Intn(3)
		if g.recent(created) {
			faultCount *= 2
		}
		var faults []any
		for f := 0; f < faultCount; f++ {
			faults = append(faults, map[string]any{
				"id":             g.id("fault"),
				"quantity":       float64(1 + g.rnd.Intn(2)),
				"fault_category": map[string]any{"name": g.pick(faultTypes)},
				"department":     map[string]any{"name": g.pick(departments)},
				"fault_date":     stamp(created),
			})
		}

		start := created.Add(30 * time.Minute)
		end := start.Add(time.Duration(40+g.rnd.Intn(80)) * time.Minute)
		events := []any{
			map[string]any{"id": g.id("event"), "inspection_id": id, "event_type": timeline.ControlStart, "event_timestamp": stamp(start)},
			map[string]any{"id": g.id("event"), "inspection_id": id, "event_type": timeline.ControlEnd, "event_timestamp": stamp(end)},
		}
		if faultCount > 0 {
			rs := end.Add(15 * time.Minute)
			re := rs.Add(time.Duration(20+g.rnd.Intn(120)) * time.Minute)
			events = append(events,
				map[string]any{"id": g.id("event"), "inspection_id": id, "event_type": timeline.ReworkStart, "event_timestamp": stamp(rs)},
				map[string]any{"id": g.id("event"), "inspection_id": id, "event_type": timeline.ReworkEnd, "event_timestamp": stamp(re)},
			)
		}

		out = append(out, record.Record{
			"id":                 id,
			"serial_no":          fmt.Sprintf("SN%06d", i+1),
			"vehicle_type":       vType,
			"created_at":         stamp(created),
			entity.FaultsField:   faults,
			entity.TimelineField: events,
		})
	}
	return out
}

func (g *generator) complaints() []record.Record {
	statuses := []string{g.v.Status.Open, g.v.Status.Open, g.v.Status.Closed, g.v.Status.Closed, g.v.Status.Rejected, "İnceleniyor"}
	n := g.cfg.Count / 5
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		d := g.date()
		out = append(out, record.Record{
			"id":                 g.id("complaint"),
			"complaint_date":     day(d),
			"status":             g.pick(statuses),
			"sla_resolution_due": stamp(d.AddDate(0, 0, 20)),
			"customer":           map[string]any{"name": fmt.Sprintf("Müşteri %d", g.rnd.Intn(10)+1)},
		})
	}
	return out
}

func (g *generator) kaizen() []record.Record {
	statuses := []string{g.v.Status.Completed, g.v.Status.InProgress[0], "Beklemede"}
	n := g.cfg.Count / 5
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, record.Record{
			"id":                g.id("kaizen"),
			"created_at":        stamp(g.date()),
			"status":            g.pick(statuses),
			"total_yearly_gain": money(g.rnd.Float64() * 50000),
			"department":        map[string]any{"unit_name": g.pick(departments)},
		})
	}
	return out
}

func (g *generator) deviations() []record.Record {
	statuses := append([]string{g.v.Status.Open, "Onay Bekliyor"}, g.v.Status.DeviationClosed...)
	n := g.cfg.Count / 8
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, record.Record{
			"id":              g.id("deviation"),
			"created_at":      stamp(g.date()),
			"status":          g.pick(statuses),
			"requesting_unit": g.pick(departments),
		})
	}
	return out
}

func (g *generator) equipments() []record.Record {
	names := []string{"Kumpas", "Mikrometre", "Tork Anahtarı", "Kalınlık Ölçer", "Multimetre"}
	out := make([]record.Record, 0, len(names))
	for _, name := range names {
		next := g.cfg.Now.AddDate(0, 0, g.rnd.Intn(120)-40)
		out = append(out, record.Record{
			"id":   g.id("equipment"),
			"name": name,
			entity.CalibrationsField: []any{map[string]any{
				"calibration_date":      day(next.AddDate(-1, 0, 0)),
				"next_calibration_date": day(next),
			}},
		})
	}
	return out
}

func (g *generator) audits() ([]record.Record, []record.Record) {
	n := g.cfg.Count / 20
	audits := make([]record.Record, 0, n)
	var findings []record.Record
	for i := 0; i < n; i++ {
		id := g.id("audit")
		status := g.v.Status.Completed
		if g.rnd.Float64() < 0.3 {
			status = "Planlandı"
		}
		audits = append(audits, record.Record{
			"id":            id,
			"report_number": fmt.Sprintf("IA-%03d", i+1),
			"audit_date":    day(g.date()),
			"status":        status,
			"department":    map[string]any{"unit_name": g.pick(departments)},
		})
		for f := 0; f < g.rnd.Intn(4); f++ {
			fs := g.v.Status.Open
			if g.rnd.Float64() < 0.5 {
				fs = g.v.Status.Closed
			}
			findings = append(findings, record.Record{"id": g.id("finding"), "audit_id": id, "status": fs})
		}
	}
	return audits, findings
}

func (g *generator) tasks() []record.Record {
	statuses := []string{"Yapılacak", g.v.Status.InProgress[0], g.v.Status.Completed, g.v.Status.Cancelled}
	n := g.cfg.Count / 5
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		created := g.date()
		out = append(out, record.Record{
			"id":         g.id("task"),
			"title":      fmt.Sprintf("Görev %d", i+1),
			"created_at": stamp(created),
			"due_date":   day(created.AddDate(0, 0, 10+g.rnd.Intn(30))),
			"status":     g.pick(statuses),
		})
	}
	return out
}

func (g *generator) supplierNC() []record.Record {
	n := g.cfg.Count / 10
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		status := g.v.Status.Open
		if g.rnd.Float64() < 0.5 {
			status = g.v.Status.Closed
		}
		out = append(out, record.Record{
			"id":         g.id("snc"),
			"created_at": stamp(g.date()),
			"status":     status,
			"supplier":   map[string]any{"name": g.pick(suppliers)},
		})
	}
	return out
}

func (g *generator) controlPlans(field string) []record.Record {
	n := g.cfg.Count / 20
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, record.Record{field: fmt.Sprintf("CP-%03d", i+1), "is_current": true})
	}
	return out
}

func (g *generator) trainings() []record.Record {
	statuses := []string{g.v.Status.Completed, "Planlandı", g.v.Status.InProgress[0]}
	n := g.cfg.Count / 20
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		start := g.date()
		out = append(out, record.Record{
			"id":                    g.id("training"),
			"title":                 fmt.Sprintf("Kalite Eğitimi %d", i+1),
			"start_date":            day(start),
			"end_date":              day(start.AddDate(0, 0, 1)),
			"status":                g.pick(statuses),
			"instructor":            fmt.Sprintf("Eğitmen %d", g.rnd.Intn(5)+1),
			"duration_hours":        float64(2 + g.rnd.Intn(14)),
			"training_participants": []any{map[string]any{"count": float64(3 + g.rnd.Intn(20))}},
		})
	}
	return out
}
