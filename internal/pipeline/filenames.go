package pipeline

import (
	"fmt"
	"time"

	"github.com/bioetl-io/bioetl/internal/writer"
)

// ArtifactNames is the rendered set of final filenames for one run (spec §6
// "Artifact names").
type ArtifactNames struct {
	Dataset     string
	Quality     string
	Correlation string
	Metadata    string
	Manifest    string
}

// BuildArtifactNames renders every artifact filename for one run. The date
// tag embedded in most names is startedAt in UTC formatted as YYYYMMDD; the
// manifest's timestamp is the same instant to the second, so every name
// derived from one run is reproducible from its run context alone.
func BuildArtifactNames(table string, format writer.DatasetFormat, startedAt time.Time, extended, correlationEnabled bool) ArtifactNames {
	dateTag := startedAt.UTC().Format("20060102")

	names := ArtifactNames{
		Dataset: fmt.Sprintf("output.%s_%s.%s", table, dateTag, format.Extension()),
		Quality: fmt.Sprintf("output.%s_%s_quality_report_table.csv", table, dateTag),
	}

	if correlationEnabled {
		names.Correlation = fmt.Sprintf("output.%s_%s_data_correlation_report_table.csv", table, dateTag)
	}

	if extended {
		names.Metadata = fmt.Sprintf("output.%s_%s.meta.yaml", table, dateTag)
		names.Manifest = fmt.Sprintf("run_manifest_%s.json", startedAt.UTC().Format("20060102T150405Z"))
	}

	return names
}

// OutputFormat converts the configuration file's string format name into
// writer.DatasetFormat.
func OutputFormat(name string) writer.DatasetFormat {
	if name == "columnar" || name == "parquet" {
		return writer.FormatColumnar
	}

	return writer.FormatCSV
}
