package normalize

import (
	"fmt"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// ReferentialCheck declares that every non-null value of Column in a child
// dataset must appear among Referenced's values of ReferencedColumn (spec
// §4.3 "Referential integrity QC"). It does not fail the run: gaps are
// reported so the caller can log or, under --strict-enrichment, escalate.
type ReferentialCheck struct {
	Column           string
	ReferencedColumn string
}

// Gap names one referential integrity violation: a child-row value with no
// matching row in the referenced dataset.
type Gap struct {
	Column string
	Value  string
}

// CheckReferentialIntegrity reports every value of check.Column in child
// that does not appear in referenced's check.ReferencedColumn. Null values
// in the child column are never reported — referential checks only bind
// non-null foreign keys.
func CheckReferentialIntegrity(child *schema.Dataset, referenced *schema.Dataset, check ReferentialCheck) []Gap {
	known := make(map[string]struct{}, referenced.Len())

	for _, r := range referenced.Records {
		v := r.GetOrNull(check.ReferencedColumn)
		if v.IsNull() || v.Kind != schema.KindString {
			continue
		}

		known[v.Str] = struct{}{}
	}

	var gaps []Gap

	for _, r := range child.Records {
		v := r.GetOrNull(check.Column)
		if v.IsNull() {
			continue
		}

		key := renderKey(v)
		if _, ok := known[key]; !ok {
			gaps = append(gaps, Gap{Column: check.Column, Value: key})
		}
	}

	return gaps
}

func renderKey(v schema.Value) string {
	switch v.Kind {
	case schema.KindString:
		return v.Str
	default:
		return fmt.Sprintf("%v", v)
	}
}
