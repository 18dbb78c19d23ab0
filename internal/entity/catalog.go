// Package entity describes the entity collections the analytics consume and
// restricts them to a period window.
package entity

import "sort"

// Kind names an entity collection.
type Kind string

const (
	NonConformities         Kind = "non_conformities"
	NonconformityRecords    Kind = "nonconformity_records"
	QualityCosts            Kind = "quality_costs"
	QuarantineRecords       Kind = "quarantine_records"
	IncomingInspections     Kind = "incoming_inspections"
	ProducedVehicles        Kind = "produced_vehicles"
	VehicleFaults           Kind = "vehicle_faults"
	VehicleTimelineEvents   Kind = "vehicle_timeline_events"
	CustomerComplaints      Kind = "customer_complaints"
	KaizenEntries           Kind = "kaizen_entries"
	Deviations              Kind = "deviations"
	Equipments              Kind = "equipments"
	Audits                  Kind = "audits"
	AuditFindings           Kind = "audit_findings"
	Personnel               Kind = "personnel"
	Tasks                   Kind = "tasks"
	Suppliers               Kind = "suppliers"
	SupplierAuditPlans      Kind = "supplier_audit_plans"
	SupplierNonConformities Kind = "supplier_non_conformities"
	IncomingControlPlans    Kind = "incoming_control_plans"
	ProcessControlPlans     Kind = "process_control_plans"
	Trainings               Kind = "trainings"
	ProductionDepartments   Kind = "production_departments"
	CostSettings            Kind = "cost_settings"
)

// Nested child collections embedded by the collaborator.
const (
	FaultsField       = "quality_inspection_faults"
	TimelineField     = "vehicle_timeline_events"
	CalibrationsField = "equipment_calibrations"
	ScoresField       = "supplier_scores"
	AuditPlansField   = "supplier_audit_plans"
)

// MissingPolicy decides what happens to a record whose date cannot be resolved.
type MissingPolicy int

const (
	// Exclude drops undated records from date-bounded collections.
	Exclude MissingPolicy = iota
	// Include keeps undated records regardless of the window.
	Include
)

func (p MissingPolicy) String() string {
	if p == Include {
		return "include"
	}
	return "exclude"
}

// DatePolicy is the fallback chain of date fields for a kind. Empty Fields
// mark a collection that is not date-scoped.
type DatePolicy struct {
	Fields  []string
	Missing MissingPolicy
}

// Scoped reports whether the kind is restricted by a window at all.
func (p DatePolicy) Scoped() bool {
	return len(p.Fields) > 0
}

// Spec is the collaborator contract of a kind.
type Spec struct {
	Kind Kind
	// Table is the relation to read; empty for nested kinds that arrive
	// embedded in their parent.
	Table  string
	Select string
	Date   DatePolicy
}

// Nested reports whether the kind is only available embedded in a parent row.
func (s Spec) Nested() bool {
	return s.Table == ""
}

func dated(fields ...string) DatePolicy {
	return DatePolicy{Fields: fields, Missing: Exclude}
}

var catalog = map[Kind]Spec{
	NonConformities: {
		Table:  "non_conformities",
		Select: "*",
		Date:   dated("created_at"),
	},
	NonconformityRecords: {
		Table:  "nonconformity_records",
		Select: "*",
		Date:   dated("detection_date", "created_at"),
	},
	QualityCosts: {
		Table:  "quality_costs",
		Select: "*, responsible_personnel:personnel!responsible_personnel_id(full_name), non_conformities(nc_number, id), supplier:suppliers!supplier_id(name)",
		Date:   dated("cost_date", "created_at"),
	},
	QuarantineRecords: {
		Table:  "quarantine_records_api",
		Select: "*",
		Date:   dated("quarantine_date", "created_at"),
	},
	IncomingInspections: {
		Table:  "incoming_inspections_with_supplier",
		Select: "*",
		Date:   dated("inspection_date", "created_at"),
	},
	ProducedVehicles: {
		Table:  "quality_inspections",
		Select: "*, quality_inspection_faults(*, fault_category:fault_categories(name)), vehicle_timeline_events(*)",
		Date:   dated("created_at"),
	},
	VehicleFaults: {
		Date: DatePolicy{Fields: []string{"fault_date", "created_at"}, Missing: Include},
	},
	VehicleTimelineEvents: {
		Date: dated("event_timestamp"),
	},
	CustomerComplaints: {
		Table:  "customer_complaints",
		Select: "*, customer:customer_id(name, customer_code), responsible_department:responsible_department_id(unit_name)",
		Date:   dated("complaint_date", "created_at"),
	},
	KaizenEntries: {
		Table:  "kaizen_entries",
		Select: "*, department:department_id(unit_name, cost_per_minute), supplier:supplier_id(name)",
		Date:   dated("created_at"),
	},
	Deviations: {
		Table:  "deviations",
		Select: "*",
		Date:   dated("created_at"),
	},
	Equipments: {
		Table:  "equipments",
		Select: "*, equipment_calibrations(*)",
	},
	Audits: {
		Table:  "audits",
		Select: "*, department:cost_settings(id, unit_name)",
		Date:   dated("audit_date", "created_at"),
	},
	AuditFindings: {
		Table:  "audit_findings",
		Select: "*, audits(report_number)",
	},
	Personnel: {
		Table:  "personnel",
		Select: "id, full_name, email, department, unit_id, is_active",
	},
	Tasks: {
		Table:  "tasks",
		Select: "*",
		Date:   dated("created_at"),
	},
	Suppliers: {
		Table:  "suppliers",
		Select: "*, supplier_scores(final_score, grade, period), supplier_audit_plans(*)",
	},
	SupplierAuditPlans: {
		Date: dated("actual_date", "planned_date"),
	},
	SupplierNonConformities: {
		Table:  "supplier_non_conformities",
		Select: "*, supplier:supplier_id(name)",
		Date:   dated("created_at"),
	},
	IncomingControlPlans: {
		Table:  "incoming_control_plans",
		Select: "part_code, is_current",
	},
	ProcessControlPlans: {
		Table:  "process_control_plans",
		Select: "*",
	},
	Trainings: {
		Table:  "trainings",
		Select: "*, training_participants(count)",
		Date:   dated("start_date", "end_date", "created_at"),
	},
	ProductionDepartments: {
		Table:  "production_departments",
		Select: "*",
	},
	CostSettings: {
		Table:  "cost_settings",
		Select: "*",
	},
}

// Lookup returns the spec of a kind.
func Lookup(k Kind) (Spec, bool) {
	s, ok := catalog[k]
	if !ok {
		return Spec{}, false
	}
	s.Kind = k
	return s, true
}

// Policy returns the date policy of a kind. Unknown kinds are not date-scoped.
func Policy(k Kind) DatePolicy {
	return catalog[k].Date
}

// Fetchable returns every kind with its own table, sorted by name.
func Fetchable() []Spec {
	out := make([]Spec, 0, len(catalog))
	for k, s := range catalog {
		if s.Table == "" {
			continue
		}
		s.Kind = k
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// All returns every kind, sorted by name.
func All() []Spec {
	out := make([]Spec, 0, len(catalog))
	for k, s := range catalog {
		s.Kind = k
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
