package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioetl-io/bioetl/internal/schema"
)

func TestExplodeNested_PreservesAllElementsWithStableIndex(t *testing.T) {
	raw := map[string]any{
		"molecule_chembl_id": "CHEMBL1",
		"activity_properties": []any{
			map[string]any{"type": "IC50", "value": 5.0},
			map[string]any{"type": "Ki", "value": 7.0},
		},
	}

	parent, children, err := ExplodeNested(raw, []ExplodeField{
		{Name: "activity_properties", RowSubtype: "activity_property"},
	}, "molecule_chembl_id", "CHEMBL1")
	require.NoError(t, err)

	_, stillPresent := parent["activity_properties"]
	assert.False(t, stillPresent)

	require.Len(t, children, 2)

	for i, child := range children {
		subtype, ok := child.Get(RowSubtypeColumn)
		require.True(t, ok)
		assert.Equal(t, schema.StringValue("activity_property"), subtype)

		idx, ok := child.Get(RowIndexColumn)
		require.True(t, ok)
		assert.Equal(t, schema.IntValue(int64(i)), idx)

		parentID, ok := child.Get("molecule_chembl_id")
		require.True(t, ok)
		assert.Equal(t, schema.StringValue("CHEMBL1"), parentID)
	}
}

func TestExplodeNested_AbsentFieldProducesNoChildren(t *testing.T) {
	raw := map[string]any{"molecule_chembl_id": "CHEMBL1"}

	_, children, err := ExplodeNested(raw, []ExplodeField{
		{Name: "activity_properties", RowSubtype: "activity_property"},
	}, "molecule_chembl_id", "CHEMBL1")
	require.NoError(t, err)
	assert.Empty(t, children)
}
