package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bioetl-io/bioetl/internal/writer"
)

func TestBuildArtifactNames_MinimalModeOmitsExtendedArtifacts(t *testing.T) {
	start := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	names := BuildArtifactNames("bioactivity", writer.FormatCSV, start, false, false)

	assert.Equal(t, "output.bioactivity_20260305.csv", names.Dataset)
	assert.Equal(t, "output.bioactivity_20260305_quality_report_table.csv", names.Quality)
	assert.Empty(t, names.Correlation)
	assert.Empty(t, names.Metadata)
	assert.Empty(t, names.Manifest)
}

func TestBuildArtifactNames_ExtendedModeWithCorrelation(t *testing.T) {
	start := time.Date(2026, 3, 5, 12, 30, 45, 0, time.UTC)

	names := BuildArtifactNames("bioactivity", writer.FormatColumnar, start, true, true)

	assert.Equal(t, "output.bioactivity_20260305.parquet", names.Dataset)
	assert.Equal(t, "output.bioactivity_20260305_data_correlation_report_table.csv", names.Correlation)
	assert.Equal(t, "output.bioactivity_20260305.meta.yaml", names.Metadata)
	assert.Equal(t, "run_manifest_20260305T123045Z.json", names.Manifest)
}

func TestOutputFormat_RecognizesColumnarAliases(t *testing.T) {
	assert.Equal(t, writer.FormatColumnar, OutputFormat("columnar"))
	assert.Equal(t, writer.FormatColumnar, OutputFormat("parquet"))
	assert.Equal(t, writer.FormatCSV, OutputFormat("csv"))
	assert.Equal(t, writer.FormatCSV, OutputFormat(""))
}
