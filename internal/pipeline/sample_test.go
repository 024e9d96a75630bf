package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplySampling_NoSampleOrLimitReturnsInputUnchanged(t *testing.T) {
	ids := []string{"a", "b", "c"}

	assert.Equal(t, ids, applySampling(ids, 0, 0, 0))
}

func TestApplySampling_SampleIsDeterministicForAFixedSeed(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = string(rune('a' + i%26))
	}

	first := applySampling(ids, 0, 0.3, 42)
	second := applySampling(ids, 0, 0.3, 42)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
	assert.Less(t, len(first), len(ids))
}

func TestApplySampling_LimitTruncatesAfterSampling(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	out := applySampling(ids, 2, 0, 0)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestApplySampling_LimitLargerThanInputIsNoOp(t *testing.T) {
	ids := []string{"a", "b"}

	out := applySampling(ids, 10, 0, 0)
	assert.Equal(t, ids, out)
}
