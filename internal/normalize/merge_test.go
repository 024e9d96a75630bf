package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioetl-io/bioetl/internal/schema"
)

func TestMerger_PrimaryWins(t *testing.T) {
	m := NewMerger("chembl", Precedence{DefaultOrder: []string{"chembl", "pubchem"}}, EnrichmentWhitelist{
		"pubchem": {"pref_name"},
	})

	out := schema.NewRecord()
	err := m.MergeRow(out, map[string][]SourceField{
		"pref_name": {
			{Source: "chembl", Value: schema.StringValue("Aspirin")},
			{Source: "pubchem", Value: schema.StringValue("Acetylsalicylic acid")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, schema.StringValue("Aspirin"), out.GetOrNull("pref_name"))
	assert.Equal(t, schema.StringValue("chembl"), out.GetOrNull("pref_name_source"))
	assert.Equal(t, schema.BoolValue(true), out.GetOrNull("conflict_pref_name"), "disagreement must be flagged")
}

func TestMerger_ConflictDetectionAndAuditTrail(t *testing.T) {
	m := NewMerger("chembl", Precedence{DefaultOrder: []string{"chembl", "pubchem"}}, EnrichmentWhitelist{
		"pubchem": {"pref_name"},
	})

	out := schema.NewRecord()
	err := m.MergeRow(out, map[string][]SourceField{
		"pref_name": {
			{Source: "chembl", Value: schema.StringValue("Aspirin")},
			{Source: "pubchem", Value: schema.StringValue("Acetylsalicylic acid")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, schema.BoolValue(true), out.GetOrNull("conflict_pref_name"))
	assert.False(t, out.GetOrNull("audit_trail").IsNull())
}

func TestMerger_EnrichmentWhitelistBlocksUnlistedField(t *testing.T) {
	m := NewMerger("chembl", Precedence{DefaultOrder: []string{"chembl", "pubchem"}}, EnrichmentWhitelist{
		"pubchem": {"pref_name"}, // pubchem may not touch molecular_formula
	})

	out := schema.NewRecord()
	err := m.MergeRow(out, map[string][]SourceField{
		"molecular_formula": {
			{Source: "pubchem", Value: schema.StringValue("C9H8O4")},
		},
	})
	require.NoError(t, err)

	assert.True(t, out.GetOrNull("molecular_formula").IsNull())
}

func TestMerger_NoConflictWhenSourcesAgree(t *testing.T) {
	m := NewMerger("chembl", Precedence{DefaultOrder: []string{"chembl", "pubchem"}}, EnrichmentWhitelist{
		"pubchem": {"pref_name"},
	})

	out := schema.NewRecord()
	err := m.MergeRow(out, map[string][]SourceField{
		"pref_name": {
			{Source: "chembl", Value: schema.StringValue("Aspirin")},
			{Source: "pubchem", Value: schema.StringValue("Aspirin")},
		},
	})
	require.NoError(t, err)

	assert.True(t, out.GetOrNull("conflict_pref_name").IsNull())
}

func TestMerger_AllNullYieldsNull(t *testing.T) {
	m := NewMerger("chembl", Precedence{DefaultOrder: []string{"chembl"}}, EnrichmentWhitelist{})

	out := schema.NewRecord()
	err := m.MergeRow(out, map[string][]SourceField{
		"pref_name": {{Source: "chembl", Value: schema.Null()}},
	})
	require.NoError(t, err)

	assert.True(t, out.GetOrNull("pref_name").IsNull())
	assert.True(t, out.GetOrNull("pref_name_source").IsNull())
}
