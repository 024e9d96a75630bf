package writer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioetl-io/bioetl/internal/schema"
)

func buildTestDataset() *schema.Dataset {
	ds := schema.NewDataset()

	rec := schema.NewRecord()
	rec.Set("molecule_chembl_id", schema.StringValue("CHEMBL1"))
	rec.Set("pref_name", schema.StringValue("Aspirin"))
	rec.Set("max_phase", schema.IntValue(4))
	ds.Append(rec)

	return ds
}

func TestCommitArtifactSet_BasicModeCommitsDatasetAndQualityReport(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "run-1")

	s := buildMoleculeSchema()

	result, err := CommitArtifactSet(w, ArtifactSetInput{
		RunID:                  "run-1",
		Schema:                 s,
		Data:                   buildTestDataset(),
		Format:                 FormatCSV,
		DatasetFilename:        "output.molecule_2026-07-30.csv",
		QualityReportFilename: "output.molecule_2026-07-30_quality_report_table.csv",
	})
	require.NoError(t, err)

	assert.Contains(t, result.Checksums, "output.molecule_2026-07-30.csv")
	assert.Contains(t, result.Checksums, "output.molecule_2026-07-30_quality_report_table.csv")
	assert.Equal(t, "output.molecule_2026-07-30.csv", result.Manifest.Artifacts[ArtifactDataset])

	require.NoError(t, w.Cleanup())
}

func TestCommitArtifactSet_ExtendedModeCommitsMetadataAndManifest(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "run-1")

	s := buildMoleculeSchema()
	ds := buildTestDataset()

	meta := BuildMetadata(s, ds, "v1", "chembl", "35", "abc123",
		time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
		nil, map[string]int64{"success": 1}, map[string]time.Duration{"extract": time.Second})

	result, err := CommitArtifactSet(w, ArtifactSetInput{
		RunID:                  "run-1",
		Schema:                 s,
		Data:                   ds,
		Format:                 FormatCSV,
		DatasetFilename:        "output.molecule_2026-07-30.csv",
		QualityReportFilename: "output.molecule_2026-07-30_quality_report_table.csv",
		MetadataFilename:       "output.molecule_2026-07-30.meta.yaml",
		ManifestFilename:       "run_manifest_20260730.json",
		Extended:               true,
		Metadata:               meta,
	})
	require.NoError(t, err)

	assert.Contains(t, result.Checksums, "output.molecule_2026-07-30.meta.yaml")
	assert.Contains(t, result.Checksums, "run_manifest_20260730.json")
	assert.NotEmpty(t, meta.Checksums)
}

func TestCommitArtifactSet_MissingRequiredFilenameFails(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "run-1")

	s := buildMoleculeSchema()

	_, err := CommitArtifactSet(w, ArtifactSetInput{
		RunID:           "run-1",
		Schema:          s,
		Data:            buildTestDataset(),
		Format:          FormatCSV,
		DatasetFilename: "output.molecule_2026-07-30.csv",
		// QualityReportFilename intentionally left empty.
	})
	require.Error(t, err)
}
