package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioetl-io/bioetl/internal/schema"
)

func TestRenderQualityReport_EmptyFailuresStillRendersHeader(t *testing.T) {
	out, err := RenderQualityReport(nil)
	require.NoError(t, err)
	assert.Equal(t, "row_index,column,check,value\n", string(out))
}

func TestRenderQualityReport_IncludesEveryFailure(t *testing.T) {
	out, err := RenderQualityReport([]schema.FailureCase{
		{RowIdx: 0, Column: "max_phase", Check: "below minimum 0", Value: "-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "row_index,column,check,value\n0,max_phase,below minimum 0,-1\n", string(out))
}

func TestFailuresFromError_ExtractsFailures(t *testing.T) {
	verr := &schema.ValidationError{Failures: []schema.FailureCase{{RowIdx: 1, Column: "x"}}}

	assert.Len(t, FailuresFromError(verr), 1)
	assert.Empty(t, FailuresFromError(nil))
	assert.Empty(t, FailuresFromError(assert.AnError))
}
