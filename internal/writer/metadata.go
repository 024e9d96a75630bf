package writer

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// Metadata is the extended-mode `.meta.yaml` document of spec §4.6: enough
// to reproduce and audit one run without reopening its artifacts. ColumnOrder
// is always copied from the schema by BuildMetadata — the schema remains the
// single source of truth (spec §4.6 "the column order is always a copy of
// the schema's column order").
type Metadata struct {
	PipelineVersion string            `yaml:"pipeline_version"`
	SourceSystem    string            `yaml:"source_system"`
	ReleaseVersion  string            `yaml:"release_version"`
	GeneratedAt     time.Time         `yaml:"generated_at"`
	RowCount        int               `yaml:"row_count"`
	ColumnCount     int               `yaml:"column_count"`
	ColumnOrder     []string          `yaml:"column_order"`
	Checksums       map[string]string `yaml:"checksums"`
	Precision       map[string]int    `yaml:"precision"`
	NullPolicy      string            `yaml:"null_policy"`
	SortKeys        []string          `yaml:"sort_keys"`
	CommitSHA       string            `yaml:"commit_sha"`
	Metrics         map[string]int64  `yaml:"metrics"`
	StageDurations  map[string]string `yaml:"stage_durations"`
	SecretsPolicy   string            `yaml:"secrets_policy"`
}

// DefaultNullPolicy describes spec §4.3's null-rendering contract in the
// single-sentence form the metadata document carries as an attestation,
// rather than re-deriving it from schema.NullPolicy at read time.
const DefaultNullPolicy = "string columns render empty string for null; all other column types render empty CSV cell / JSON null for null"

// DefaultSecretsPolicy attests that no credentials or API keys are ever
// written into a materialized artifact.
const DefaultSecretsPolicy = "no credentials, API keys, or other secrets are present in any committed artifact"

// BuildMetadata assembles a Metadata document from a schema, the dataset it
// describes, and the run-level facts spec §4.6 requires alongside it.
func BuildMetadata(
	s *schema.Schema,
	ds *schema.Dataset,
	pipelineVersion, sourceSystem, releaseVersion, commitSHA string,
	generatedAt time.Time,
	checksums map[string]string,
	metrics map[string]int64,
	stageDurations map[string]time.Duration,
) *Metadata {
	sortKeys := s.SortKeys
	if len(sortKeys) == 0 {
		sortKeys = []string{s.PrimaryKey}
	}

	durations := make(map[string]string, len(stageDurations))
	for stage, d := range stageDurations {
		durations[stage] = d.String()
	}

	return &Metadata{
		PipelineVersion: pipelineVersion,
		SourceSystem:    sourceSystem,
		ReleaseVersion:  releaseVersion,
		GeneratedAt:     generatedAt.UTC(),
		RowCount:        ds.Len(),
		ColumnCount:     len(s.Columns),
		ColumnOrder:     s.ColumnNames(),
		Checksums:       checksums,
		Precision:       s.Precision,
		NullPolicy:      DefaultNullPolicy,
		SortKeys:        sortKeys,
		CommitSHA:       commitSHA,
		Metrics:         metrics,
		StageDurations:  durations,
		SecretsPolicy:   DefaultSecretsPolicy,
	}
}

// RenderYAML renders the metadata document as YAML bytes.
func (m *Metadata) RenderYAML() ([]byte, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("writer: marshal metadata: %w", err)
	}

	return out, nil
}
