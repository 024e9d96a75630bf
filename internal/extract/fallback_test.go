package extract

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioetl-io/bioetl/internal/httpclient"
	"github.com/bioetl-io/bioetl/internal/schema"
)

func TestBuildFallbackRecord_NotFound(t *testing.T) {
	err := &httpclient.FetchError{Kind: httpclient.KindNotFound, Status: 404, Attempt: 1}

	rec := BuildFallbackRecord("molecule_chembl_id", "CHEMBL999", "run-abc", err)

	id, ok := rec.Get("molecule_chembl_id")
	require.True(t, ok)
	assert.Equal(t, schema.StringValue("CHEMBL999"), id)

	system, ok := rec.Get(ColSourceSystem)
	require.True(t, ok)
	assert.Equal(t, schema.StringValue(FallbackSourceSystem), system)

	status, ok := rec.Get(ColHTTPStatus)
	require.True(t, ok)
	assert.Equal(t, schema.IntValue(404), status)

	code, ok := rec.Get(ColErrorCode)
	require.True(t, ok)
	assert.Equal(t, schema.StringValue("not_found"), code)
}

func TestBuildFallbackRecord_RetryAfterCarried(t *testing.T) {
	err := &httpclient.FetchError{Kind: httpclient.KindExhausted, Status: 503, Attempt: 5, RetryAfter: 30 * time.Second}

	rec := BuildFallbackRecord("molecule_chembl_id", "CHEMBL1", "run-abc", err)

	retryAfter, ok := rec.Get(ColRetryAfter)
	require.True(t, ok)
	assert.Equal(t, schema.FloatValue(30), retryAfter)
}

func TestBuildFallbackRecord_NonFetchErrorStillProducesRecord(t *testing.T) {
	rec := BuildFallbackRecord("molecule_chembl_id", "CHEMBL1", "run-abc", errors.New("boom"))

	code, ok := rec.Get(ColErrorCode)
	require.True(t, ok)
	assert.Equal(t, schema.StringValue("unknown"), code)
}

func TestIsFallbackEligible(t *testing.T) {
	assert.True(t, IsFallbackEligible(&httpclient.FetchError{Kind: httpclient.KindExhausted}))
	assert.True(t, IsFallbackEligible(&httpclient.FetchError{Kind: httpclient.KindCircuitOpen}))
	assert.True(t, IsFallbackEligible(&httpclient.FetchError{Kind: httpclient.KindNotFound}))
	assert.False(t, IsFallbackEligible(&httpclient.FetchError{Kind: httpclient.KindBadRequest}))
	assert.False(t, IsFallbackEligible(errors.New("boom")))
}
