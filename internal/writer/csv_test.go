package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioetl-io/bioetl/internal/schema"
)

func buildMoleculeSchema() *schema.Schema {
	return &schema.Schema{
		ID:         "molecule",
		Version:    schema.Version{Major: 1},
		PrimaryKey: "molecule_chembl_id",
		Columns: []schema.ColumnSpec{
			{Name: "molecule_chembl_id", Type: schema.ColumnString},
			{Name: "pref_name", Type: schema.ColumnString, Null: true},
			{Name: "max_phase", Type: schema.ColumnInt, Null: true},
		},
	}
}

func TestRenderCSV_HeaderMatchesColumnOrder(t *testing.T) {
	s := buildMoleculeSchema()
	ds := schema.NewDataset()

	rec := schema.NewRecord()
	rec.Set("molecule_chembl_id", schema.StringValue("CHEMBL1"))
	rec.Set("pref_name", schema.Null())
	rec.Set("max_phase", schema.IntValue(4))
	ds.Append(rec)

	out, err := RenderCSV(s, ds)
	require.NoError(t, err)

	assert.Equal(t, "molecule_chembl_id,pref_name,max_phase\nCHEMBL1,,4\n", string(out))
}

func TestRenderCSV_EmptyDatasetRendersHeaderOnly(t *testing.T) {
	s := buildMoleculeSchema()
	ds := schema.NewDataset()

	out, err := RenderCSV(s, ds)
	require.NoError(t, err)
	assert.Equal(t, "molecule_chembl_id,pref_name,max_phase\n", string(out))
}
