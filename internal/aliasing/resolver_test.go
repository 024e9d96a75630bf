package aliasing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_ResolvesKnownAlias(t *testing.T) {
	r, err := NewResolver([]Rule{
		{Source: "pubchem", Alias: map[string]string{"CID123": "CHEMBL25"}},
	}, nil)
	require.NoError(t, err)

	primary, ok := r.Resolve("pubchem", "CID123")
	assert.True(t, ok)
	assert.Equal(t, "CHEMBL25", primary)
}

func TestResolver_UnknownIdentifierFallsThrough(t *testing.T) {
	r, err := NewResolver([]Rule{
		{Source: "pubchem", Alias: map[string]string{"CID123": "CHEMBL25"}},
	}, nil)
	require.NoError(t, err)

	primary, ok := r.Resolve("pubchem", "CID999")
	assert.False(t, ok)
	assert.Equal(t, "CID999", primary)
}

func TestResolver_UnknownSourceFallsThrough(t *testing.T) {
	r, err := NewResolver(nil, nil)
	require.NoError(t, err)

	primary, ok := r.Resolve("unknown", "X")
	assert.False(t, ok)
	assert.Equal(t, "X", primary)
}

func TestResolver_NilResolverIsNoOp(t *testing.T) {
	var r *Resolver

	primary, ok := r.Resolve("pubchem", "CID123")
	assert.False(t, ok)
	assert.Equal(t, "CID123", primary)
	assert.Equal(t, 0, r.RuleCount())
}

func TestResolver_CachesRepeatedLookups(t *testing.T) {
	r, err := NewResolver([]Rule{
		{Source: "pubchem", Alias: map[string]string{"CID123": "CHEMBL25"}},
	}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		primary, ok := r.Resolve("pubchem", "CID123")
		assert.True(t, ok)
		assert.Equal(t, "CHEMBL25", primary)
	}
}
