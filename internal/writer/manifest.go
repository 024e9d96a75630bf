package writer

import "encoding/json"

// ManifestSchema carries the nullable schema id/version pair a run's
// manifest references (spec §4.6 "Manifest": "a `schema` object (`id`,
// `version`; both nullable when absent)").
type ManifestSchema struct {
	ID      *string `json:"id"`
	Version *string `json:"version"`
}

// Manifest is the JSON document spec §4.6 describes: the run identifier,
// the canonical artifact-key-to-filename map, a filename-to-checksum map,
// and the schema this run materialized.
type Manifest struct {
	RunID     string            `json:"run_id"`
	Artifacts map[string]string `json:"artifacts"`
	Checksums map[string]string `json:"checksums"`
	Schema    ManifestSchema    `json:"schema"`
}

// Canonical artifact keys (spec §4.6 "Manifest").
const (
	ArtifactDataset            = "dataset"
	ArtifactQualityReport      = "quality_report"
	ArtifactMetadata           = "metadata"
	ArtifactCorrelationReport  = "qc.correlation_report"
	ArtifactSummaryStatistics  = "qc.summary_statistics"
	ArtifactDebugDataset       = "debug_dataset"
	additionalDatasetKeyPrefix = "additional_datasets."
)

// AdditionalDatasetKey builds the manifest key for an additional dataset's
// format-specific artifact (spec §4.6: "additional_datasets.<name>.{csv,parquet}").
func AdditionalDatasetKey(name, format string) string {
	return additionalDatasetKeyPrefix + name + "." + format
}

// NewManifest builds an empty manifest for runID. schemaID/schemaVersion
// may be empty to record an absent schema reference.
func NewManifest(runID, schemaID, schemaVersion string) *Manifest {
	m := &Manifest{
		RunID:     runID,
		Artifacts: make(map[string]string),
		Checksums: make(map[string]string),
	}

	if schemaID != "" {
		m.Schema.ID = &schemaID
	}

	if schemaVersion != "" {
		m.Schema.Version = &schemaVersion
	}

	return m
}

// AddArtifact records one committed artifact's canonical key, final
// filename, and checksum.
func (m *Manifest) AddArtifact(key, filename, checksum string) {
	m.Artifacts[key] = filename
	m.Checksums[filename] = checksum
}

// MarshalJSON is the manifest's on-disk encoding — no custom behavior
// beyond the struct tags, named explicitly so the method exists as a
// stable extension point if the on-disk shape ever needs to diverge from
// the in-memory one.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	type alias Manifest
	return json.MarshalIndent((*alias)(m), "", "  ")
}
