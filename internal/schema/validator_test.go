package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	min := 0.0
	max := 14.0

	return &Schema{
		ID:      "document",
		Version: Version{1, 0, 0},
		PrimaryKey: "doc_id",
		Columns: []ColumnSpec{
			{Name: "doc_id", Type: ColumnString, Null: false, Unique: true},
			{Name: "title", Type: ColumnString, Null: true},
			{Name: "ph", Type: ColumnFloat, Null: true, Range: &Range{Min: &min, Max: &max}},
			{Name: "active", Type: ColumnBool, Null: true},
		},
	}
}

func TestValidator_Validate_CollectsAllFailures(t *testing.T) {
	s := testSchema()
	v := NewValidator()

	ds := NewDataset()

	r1 := NewRecord()
	r1.Set("doc_id", Null()) // required but missing
	r1.Set("title", StringValue("ok"))
	r1.Set("ph", FloatValue(20)) // out of range
	r1.Set("active", BoolValue(true))
	ds.Append(r1)

	r2 := NewRecord()
	r2.Set("doc_id", StringValue("CHEMBL1"))
	r2.Set("title", StringValue("ok"))
	r2.Set("ph", FloatValue(7))
	r2.Set("active", BoolValue(false))
	ds.Append(r2)

	err := v.Validate(s, ds)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Failures), 2)
}

func TestValidator_Validate_DuplicatePrimaryKey(t *testing.T) {
	s := testSchema()
	v := NewValidator()

	ds := NewDataset()

	for i := 0; i < 2; i++ {
		r := NewRecord()
		r.Set("doc_id", StringValue("CHEMBL1"))
		r.Set("title", StringValue("dup"))
		r.Set("ph", FloatValue(7))
		r.Set("active", BoolValue(true))
		ds.Append(r)
	}

	err := v.Validate(s, ds)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	found := false

	for _, f := range verr.Failures {
		if f.Column == "doc_id" {
			found = true
		}
	}

	assert.True(t, found, "expected a duplicate-key failure on doc_id")
}

func TestValidator_Validate_Passes(t *testing.T) {
	s := testSchema()
	v := NewValidator()

	ds := NewDataset()
	r := NewRecord()
	r.Set("doc_id", StringValue("CHEMBL1"))
	r.Set("title", Null())
	r.Set("ph", FloatValue(7.4))
	r.Set("active", BoolValue(true))
	ds.Append(r)

	assert.NoError(t, v.Validate(s, ds))
}

func TestValidateColumnOrder(t *testing.T) {
	s := testSchema()

	assert.NoError(t, ValidateColumnOrder(s, s.ColumnNames()))
	assert.Error(t, ValidateColumnOrder(s, []string{"doc_id", "title"}))
	assert.Error(t, ValidateColumnOrder(s, []string{"title", "doc_id", "ph", "active"}))
}

func TestRegistry_GetWithVersion_Drift(t *testing.T) {
	reg := NewRegistry()
	reg.Register(testSchema())

	_, err := reg.GetWithVersion("document", Version{Major: 2}, true)
	require.Error(t, err)

	var drift *DriftError
	require.ErrorAs(t, err, &drift)

	s, err := reg.GetWithVersion("document", Version{Major: 2}, false)
	require.NoError(t, err)
	assert.Equal(t, "document", s.ID)
}
