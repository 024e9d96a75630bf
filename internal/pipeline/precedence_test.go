package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bioetl-io/bioetl/internal/schema"
	"github.com/bioetl-io/bioetl/internal/sources"
)

func TestBuildMergePolicy_OrdersPrimaryFirstThenEnrichments(t *testing.T) {
	registry := sources.Registry{
		Primary: sources.Source{Name: "chembl"},
		Enrichments: []sources.Source{
			{Name: "pubchem", AllowedFields: []string{"cid"}},
			{Name: "uniprot"},
		},
	}

	precedence, whitelist := BuildMergePolicy(registry)

	assert.Equal(t, []string{"chembl", "pubchem", "uniprot"}, precedence.DefaultOrder)
	assert.Equal(t, []string{"cid"}, whitelist["pubchem"])
	assert.Nil(t, whitelist["uniprot"])
}

func TestEnrichmentIdentifiers_DedupsAndSortsNonNullValues(t *testing.T) {
	ds := schema.NewDataset()

	r1 := schema.NewRecord()
	r1.Set("cid", schema.StringValue("B"))
	ds.Append(r1)

	r2 := schema.NewRecord()
	r2.Set("cid", schema.StringValue("A"))
	ds.Append(r2)

	r3 := schema.NewRecord()
	r3.Set("cid", schema.StringValue("B"))
	ds.Append(r3)

	r4 := schema.NewRecord()
	r4.Set("cid", schema.Null())
	ds.Append(r4)

	assert.Equal(t, []string{"A", "B"}, enrichmentIdentifiers(ds, "cid"))
}
