package normalize

import (
	"encoding/json"
	"sort"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// SourceField is one source's contribution to a single output column for a
// single row, keyed by the source identifier that produced it (spec §4.3
// "Multi-source merge").
type SourceField struct {
	Source string
	Value  schema.Value
}

// Precedence declares, per field, the ordered list of source identifiers
// from highest to lowest priority. A field absent from Precedence falls back
// to DefaultOrder.
type Precedence struct {
	DefaultOrder []string
	Fields       map[string][]string
}

// orderFor returns the precedence order for field, falling back to
// DefaultOrder when the field has no explicit entry.
func (p Precedence) orderFor(field string) []string {
	if order, ok := p.Fields[field]; ok {
		return order
	}

	return p.DefaultOrder
}

// EnrichmentWhitelist restricts which fields an enrichment source (anything
// other than the primary source) is permitted to contribute to. A source not
// present in the map may not enrich any field; an empty slice means "no
// restriction, any field".
type EnrichmentWhitelist map[string][]string

// allowed reports whether source may contribute to field.
func (w EnrichmentWhitelist) allowed(source, field string) bool {
	fields, ok := w[source]
	if !ok {
		return false
	}

	if len(fields) == 0 {
		return true
	}

	for _, f := range fields {
		if f == field {
			return true
		}
	}

	return false
}

// Merger combines per-source field values for a dataset's rows into a single
// merged record per row, applying precedence, enrichment whitelisting, and
// conflict detection (spec §4.3 "Multi-source merge").
type Merger struct {
	Precedence Precedence
	Whitelist  EnrichmentWhitelist
	Primary    string
}

// NewMerger constructs a Merger. primary names the source identifier treated
// as authoritative when no explicit precedence entry exists for a field.
func NewMerger(primary string, precedence Precedence, whitelist EnrichmentWhitelist) *Merger {
	return &Merger{Precedence: precedence, Whitelist: whitelist, Primary: primary}
}

// AuditEntry records one field's merge decision for the audit_trail column
// (spec §4.3 "Conflict detection").
type AuditEntry struct {
	Field    string   `json:"field"`
	Chosen   string   `json:"chosen_source"`
	Rejected []string `json:"rejected_sources,omitempty"`
	Conflict bool     `json:"conflict"`
}

// MergeRow merges per-source contributions for a single row's columns into
// out, setting the chosen value, a "<field>_source" companion column naming
// the winning source, and — when two or more non-null sources disagree — a
// "conflict_<field>" boolean plus an entry in the row's audit_trail.
//
// fields maps output column name to the list of source contributions
// observed for that row; a column absent from fields is left untouched in
// out (it may already carry a primary-source value set elsewhere).
func (m *Merger) MergeRow(out *schema.Record, fields map[string][]SourceField) error {
	var audit []AuditEntry

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, field := range names {
		contributions := fields[field]

		eligible := make([]SourceField, 0, len(contributions))

		for _, c := range contributions {
			if c.Source == m.Primary || m.Whitelist.allowed(c.Source, field) {
				eligible = append(eligible, c)
			}
		}

		chosen, rejected, conflict := m.resolve(field, eligible)

		if chosen == nil {
			out.Set(field, schema.Null())
			out.Set(field+"_source", schema.Null())

			continue
		}

		out.Set(field, chosen.Value)
		out.Set(field+"_source", schema.StringValue(chosen.Source))

		if conflict {
			out.Set("conflict_"+field, schema.BoolValue(true))
			audit = append(audit, AuditEntry{Field: field, Chosen: chosen.Source, Rejected: rejected, Conflict: true})
		}
	}

	if len(audit) > 0 {
		raw, err := json.Marshal(audit)
		if err != nil {
			return err
		}

		out.Set("audit_trail", schema.JSONValue(raw))
	}

	return nil
}

// resolve picks the winning contribution among eligible per field's
// precedence order, reporting the sources it rejected and whether those
// rejected sources disagreed (non-null, distinct value) with the winner —
// that disagreement is what spec §4.3 calls a conflict, as opposed to a
// source simply being absent.
func (m *Merger) resolve(field string, eligible []SourceField) (*SourceField, []string, bool) {
	order := m.Precedence.orderFor(field)

	rank := make(map[string]int, len(order))
	for i, src := range order {
		rank[src] = i
	}

	bySource := make(map[string]SourceField, len(eligible))
	for _, c := range eligible {
		if c.Value.IsNull() {
			continue
		}

		bySource[c.Source] = c
	}

	if len(bySource) == 0 {
		return nil, nil, false
	}

	var winner *SourceField
	best := len(order) + 1

	sourceNames := make([]string, 0, len(bySource))
	for src := range bySource {
		sourceNames = append(sourceNames, src)
	}

	sort.Strings(sourceNames)

	for _, src := range sourceNames {
		c := bySource[src]

		r, known := rank[src]
		if !known {
			r = len(order) // unranked sources lose to every ranked one
		}

		if r < best {
			best = r
			cc := c
			winner = &cc
		}
	}

	var rejected []string

	conflict := false

	for _, src := range sourceNames {
		if src == winner.Source {
			continue
		}

		c := bySource[src]
		if !c.Value.Equal(winner.Value) {
			conflict = true
			rejected = append(rejected, src)
		}
	}

	return winner, rejected, conflict
}
