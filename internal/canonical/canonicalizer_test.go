package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioetl-io/bioetl/internal/schema"
)

func buildTestSchema() *schema.Schema {
	return &schema.Schema{
		ID:         "molecule",
		Version:    schema.Version{Major: 1},
		PrimaryKey: "molecule_chembl_id",
		Precision:  map[string]int{"alogp": 4},
		Columns: []schema.ColumnSpec{
			{Name: "molecule_chembl_id", Type: schema.ColumnString, Null: false},
			{Name: "pref_name", Type: schema.ColumnString, Null: true},
			{Name: "max_phase", Type: schema.ColumnInt, Null: true},
			{Name: "alogp", Type: schema.ColumnFloat, Null: true},
			{Name: "full_mwt", Type: schema.ColumnFloat, Null: true},
			{Name: "is_radical", Type: schema.ColumnBool, Null: true},
			{Name: "first_approval", Type: schema.ColumnInstant, Null: true},
			{Name: "audit_trail", Type: schema.ColumnJSON, Null: true},
		},
	}
}

func buildTestRecord() *schema.Record {
	r := schema.NewRecord()
	r.Set("molecule_chembl_id", schema.StringValue("CHEMBL25"))
	r.Set("pref_name", schema.Null())
	r.Set("max_phase", schema.IntValue(4))
	r.Set("alogp", schema.FloatValue(1.31))
	r.Set("full_mwt", schema.FloatValue(180.159))
	r.Set("is_radical", schema.Null())
	r.Set("first_approval", schema.InstantValue(time.Date(1899, 3, 6, 0, 0, 0, 0, time.UTC)))
	r.Set("audit_trail", schema.JSONValue([]byte(`{"b":2,"a":1}`)))

	return r
}

func TestRow_Determinism(t *testing.T) {
	s := buildTestSchema()

	out1, err := Row(s, buildTestRecord())
	require.NoError(t, err)

	out2, err := Row(s, buildTestRecord())
	require.NoError(t, err)

	assert.Equal(t, string(out1), string(out2))
	assert.Equal(t, HashRow(out1), HashRow(out2))
}

func TestRow_NullPolicy(t *testing.T) {
	s := buildTestSchema()
	r := buildTestRecord()

	out, err := Row(s, r)
	require.NoError(t, err)

	assert.Contains(t, string(out), `"pref_name":""`, "null string column must render empty string")
	assert.Contains(t, string(out), `"is_radical":null`, "null bool column must render JSON null")
}

func TestRow_FloatPrecision(t *testing.T) {
	s := buildTestSchema()
	r := buildTestRecord()

	out, err := Row(s, r)
	require.NoError(t, err)

	assert.Contains(t, string(out), `"alogp":1.3100`, "alogp has a schema-declared precision override of 4")
	assert.Contains(t, string(out), `"full_mwt":180.159000`, "full_mwt falls back to the default precision of 6")
}

func TestRow_NestedJSONCanonicalized(t *testing.T) {
	s := buildTestSchema()
	r := buildTestRecord()

	out, err := Row(s, r)
	require.NoError(t, err)

	assert.Contains(t, string(out), `"audit_trail":{"a":1,"b":2}`, "nested object keys must sort regardless of input order")
}

func TestRow_KeysSortedAlphabetically(t *testing.T) {
	s := buildTestSchema()
	r := buildTestRecord()

	out, err := Row(s, r)
	require.NoError(t, err)

	idxAlogp := indexOf(string(out), `"alogp"`)
	idxPrefName := indexOf(string(out), `"pref_name"`)
	idxMoleculeID := indexOf(string(out), `"molecule_chembl_id"`)

	require.GreaterOrEqual(t, idxAlogp, 0)
	require.GreaterOrEqual(t, idxPrefName, 0)
	require.GreaterOrEqual(t, idxMoleculeID, 0)

	assert.Less(t, idxAlogp, idxMoleculeID)
	assert.Less(t, idxMoleculeID, idxPrefName)
}

func TestHashBusinessKey_DependsOnlyOnIdentifier(t *testing.T) {
	assert.Equal(t, HashBusinessKey("CHEMBL25"), HashBusinessKey("CHEMBL25"))
	assert.NotEqual(t, HashBusinessKey("CHEMBL25"), HashBusinessKey("CHEMBL26"))
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}

	return -1
}
