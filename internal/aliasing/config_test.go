package aliasing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "aliases.yaml")

	content := `
aliases:
  - source: pubchem
    entries:
      - identifier: "CID123"
        primary: "CHEMBL25"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "pubchem", cfg.Sources[0].Source)
	assert.Equal(t, "CID123", cfg.Sources[0].Entries[0].Identifier)
	assert.Equal(t, "CHEMBL25", cfg.Sources[0].Entries[0].Primary)
}

func TestLoadConfig_MissingFileIsNotError(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Sources)
}

func TestLoadConfig_InvalidYAMLDegradesGracefully(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "aliases.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte("not: [valid yaml"), 0o644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Empty(t, cfg.Sources)
}

func TestConfig_Rules(t *testing.T) {
	cfg := &Config{Sources: []SourceAliases{
		{Source: "pubchem", Entries: []AliasEntry{{Identifier: "CID123", Primary: "CHEMBL25"}}},
	}}

	rules := cfg.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "pubchem", rules[0].Source)
	assert.Equal(t, "CHEMBL25", rules[0].Alias["CID123"])
}
