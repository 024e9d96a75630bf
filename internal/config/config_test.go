package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioetl-io/bioetl/internal/sources"
)

const testProfile = `
output:
  directory: /tmp/bioetl-out
  format: csv
sources:
  chembl:
    kind: primary
    schema: molecule
    base_url: https://example.org/chembl
    batch_max_count: 20
    pagination: offset
    filter_param: molecule_chembl_id__in
    identifier_field: molecule_chembl_id
  pubchem:
    kind: enrichment
    schema: molecule
    base_url: https://example.org/pubchem
    pagination: none
    identifier_field: cid
`

func writeProfile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

func TestLoad_AppliesDefaultsWhenNoProfileGiven(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "./output", cfg.Output.Directory)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.InDelta(t, 1.0, cfg.Sample, 0)
}

func TestLoad_ReadsProfileFile(t *testing.T) {
	path := writeProfile(t, testProfile)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/bioetl-out", cfg.Output.Directory)
	require.Contains(t, cfg.Sources, "chembl")
	assert.Equal(t, "primary", cfg.Sources["chembl"].Kind)
}

func TestLoad_SetOverrideWinsOverProfile(t *testing.T) {
	path := writeProfile(t, testProfile)

	cfg, err := Load(path, []string{"output.directory=/tmp/override"})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override", cfg.Output.Directory)
}

func TestLoad_EnvOverrideWinsOverProfile(t *testing.T) {
	path := writeProfile(t, testProfile)

	t.Setenv("BIOETL_OUTPUT__DIRECTORY", "/tmp/from-env")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/from-env", cfg.Output.Directory)
}

func TestLoad_UnknownKeyIsHardError(t *testing.T) {
	path := writeProfile(t, testProfile+"\nbogus_top_level_key: 1\n")

	_, err := Load(path, nil)
	require.Error(t, err)

	var unknown *UnknownKeyError
	require.ErrorAs(t, err, &unknown)
}

func TestLoad_OutOfRangeSampleIsHardError(t *testing.T) {
	path := writeProfile(t, testProfile)

	_, err := Load(path, []string{"sample=1.5"})
	require.Error(t, err)

	var outOfRange *OutOfRangeError
	require.ErrorAs(t, err, &outOfRange)
}

func TestLoad_InvalidSetExpressionIsRejected(t *testing.T) {
	_, err := Load("", []string{"no-equals-sign"})
	require.Error(t, err)
}

func TestConfig_SourceRegistry_BuildsPrimaryAndEnrichments(t *testing.T) {
	path := writeProfile(t, testProfile)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	reg, err := cfg.SourceRegistry()
	require.NoError(t, err)

	assert.Equal(t, "chembl", reg.Primary.Name)
	assert.Equal(t, sources.PaginationOffset, reg.Primary.Pagination)
	require.Len(t, reg.Enrichments, 1)
	assert.Equal(t, "pubchem", reg.Enrichments[0].Name)
	assert.Equal(t, sources.KindEnrichment, reg.Enrichments[0].Kind)
}

func TestConfig_Validate_RejectsMultiplePrimarySources(t *testing.T) {
	cfg := &Config{
		Output: OutputSpec{Directory: "/tmp/x", Format: "csv"},
		Sample: 1,
		Sources: map[string]SourceSpec{
			"a": {Kind: "primary", BaseURL: "https://a", Pagination: "none"},
			"b": {Kind: "primary", BaseURL: "https://b", Pagination: "none"},
		},
	}

	err := cfg.Validate()
	require.Error(t, err)

	var outOfRange *OutOfRangeError
	require.ErrorAs(t, err, &outOfRange)
}
