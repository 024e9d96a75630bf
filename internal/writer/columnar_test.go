package writer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioetl-io/bioetl/internal/schema"
)

func TestRenderColumnar_StartsWithMagicAndIsDeterministic(t *testing.T) {
	s := buildMoleculeSchema()
	ds := schema.NewDataset()

	rec := schema.NewRecord()
	rec.Set("molecule_chembl_id", schema.StringValue("CHEMBL1"))
	rec.Set("pref_name", schema.StringValue("Aspirin"))
	rec.Set("max_phase", schema.IntValue(4))
	ds.Append(rec)

	out1, err := RenderColumnar(s, ds)
	require.NoError(t, err)

	out2, err := RenderColumnar(s, ds)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out1, []byte(columnarMagic)))
	assert.Equal(t, out1, out2)
}
