// Package copq classifies quality costs into cost-of-poor-quality categories
// and distributes them across responsible units.
package copq

import (
	"strings"

	"qms-mcp/internal/record"
	"qms-mcp/internal/vocab"
)

// Category is a COPQ cost category.
type Category string

const (
	InternalFailure Category = "internal_failure"
	ExternalFailure Category = "external_failure"
	Appraisal       Category = "appraisal"
	Prevention      Category = "prevention"
)

// Categories lists every category in classification order.
var Categories = []Category{InternalFailure, ExternalFailure, Appraisal, Prevention}

// Reason explains how a category was chosen.
type Reason string

const (
	ReasonSupplier   Reason = "supplier"
	ReasonVocabulary Reason = "vocabulary"
	ReasonDefault    Reason = "default"
)

type rule struct {
	category Category
	types    []string
}

// Classifier maps cost-type strings to categories by substring match against
// a finite table. Rules are checked in Categories order and the first match wins.
type Classifier struct {
	rules []rule
}

// NewClassifier builds the rule table from a cost vocabulary.
func NewClassifier(v vocab.CostVocabulary) *Classifier {
	return &Classifier{rules: []rule{
		{InternalFailure, v.InternalFailure},
		{ExternalFailure, v.ExternalFailure},
		{Appraisal, v.Appraisal},
		{Prevention, v.Prevention},
	}}
}

// ClassifyType classifies a cost type. Supplier-attributed costs are always
// internal failures; unmatched types default to internal failure.
func (c *Classifier) ClassifyType(costType string, supplier bool) (Category, Reason) {
	if supplier {
		return InternalFailure, ReasonSupplier
	}
	for _, r := range c.rules {
		for _, t := range r.types {
			if t != "" && strings.Contains(costType, t) {
				return r.category, ReasonVocabulary
			}
		}
	}
	return InternalFailure, ReasonDefault
}

// Classify classifies a quality-cost record.
func (c *Classifier) Classify(r record.Record) (Category, Reason) {
	return c.ClassifyType(r.String("cost_type"), IsSupplierCost(r))
}

// IsSupplierCost reports whether the record is flagged as a supplier
// non-conformity and names the supplier.
func IsSupplierCost(r record.Record) bool {
	return r.Bool("is_supplier_nc") && r.Has("supplier_id")
}
