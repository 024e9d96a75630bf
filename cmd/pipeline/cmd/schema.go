package cmd

import (
	"github.com/bioetl-io/bioetl/internal/pipeline"
	"github.com/bioetl-io/bioetl/internal/schema"
)

// bioactivitySchema is the one dataset type this CLI materializes: a
// primary-source activity record (molecule_chembl_id, standard_value, ...)
// enriched with a cross-referenced compound identifier (cid) from the
// configured enrichment source. Production schema pools are the caller's
// responsibility (spec §4.8 "registry is populated at startup from the
// declared pool of schemas") — this is that pool for the pipeline binary.
func bioactivitySchema() *schema.Schema {
	return &schema.Schema{
		ID:         "bioactivity",
		Version:    schema.Version{Major: 1, Minor: 0, Patch: 0},
		PrimaryKey: "molecule_chembl_id",
		SortKeys:   []string{"molecule_chembl_id"},
		Precision: map[string]int{
			"standard_value": 3,
			"pchembl_value":  2,
		},
		Columns: []schema.ColumnSpec{
			{Name: "molecule_chembl_id", Type: schema.ColumnString, Unique: true, Normalizers: []string{"identifier"}},
			{Name: "standard_type", Type: schema.ColumnString, Null: true, Normalizers: []string{"trim_collapse_whitespace"}},
			{Name: "standard_value", Type: schema.ColumnFloat, Null: true, Normalizers: []string{"numeric"}},
			{Name: "standard_units", Type: schema.ColumnString, Null: true, Normalizers: []string{"trim_collapse_whitespace"}},
			{Name: "standard_relation", Type: schema.ColumnString, Null: true, Enum: []string{"=", ">", ">=", "<", "<="}},
			{Name: "pchembl_value", Type: schema.ColumnFloat, Null: true, Normalizers: []string{"numeric"}},
			{Name: "assay_chembl_id", Type: schema.ColumnString, Null: true, Normalizers: []string{"identifier"}},
			{Name: "target_chembl_id", Type: schema.ColumnString, Null: true, Normalizers: []string{"identifier"}},
			{Name: "document_chembl_id", Type: schema.ColumnString, Null: true, Normalizers: []string{"identifier"}},
			{Name: "canonical_smiles", Type: schema.ColumnString, Null: true, Normalizers: []string{"chemical_structure"}},
			{Name: "activity_comment", Type: schema.ColumnString, Null: true, Normalizers: []string{"trim_collapse_whitespace"}},
			{Name: "published_at", Type: schema.ColumnInstant, Null: true, Normalizers: []string{"datetime"}},
			{Name: "cid", Type: schema.ColumnInt, Null: true},
			{Name: "cid_source", Type: schema.ColumnString, Null: true},
			{Name: "molecule_chembl_id_source", Type: schema.ColumnString, Null: true},
			{Name: "conflict_standard_value", Type: schema.ColumnBool, Null: true},
			{Name: "audit_trail", Type: schema.ColumnJSON, Null: true},
			{Name: "row_subtype", Type: schema.ColumnString, Null: true},
			{Name: "row_index", Type: schema.ColumnInt, Null: true},
			{Name: pipeline.HashRowColumn, Type: schema.ColumnString, Null: true},
			{Name: pipeline.HashBusinessKeyColumn, Type: schema.ColumnString, Null: true},
		},
	}
}

// buildSchemaRegistry returns the registry of every dataset type this
// binary knows how to materialize. It is rebuilt fresh per run rather than
// shared, matching the registry's "read-only after start" contract without
// needing a process-wide singleton.
func buildSchemaRegistry() *schema.Registry {
	registry := schema.NewRegistry()
	registry.Register(bioactivitySchema())

	return registry
}
