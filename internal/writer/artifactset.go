package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// DatasetFormat names the on-disk encoding of the primary dataset artifact.
type DatasetFormat int

const (
	FormatCSV DatasetFormat = iota
	FormatColumnar
)

// Extension returns the artifact filename suffix for f (spec §6 "Artifact
// names": `output.{table}_{date_tag}.csv` or `.parquet`), used by callers
// composing a dataset filename ahead of CommitArtifactSet.
func (f DatasetFormat) Extension() string {
	if f == FormatColumnar {
		return "parquet"
	}

	return "csv"
}

// ArtifactSetInput bundles everything one run needs to materialize its full
// artifact set (spec §4.6 "Artifact set atomicity").
type ArtifactSetInput struct {
	RunID  string
	Schema *schema.Schema
	Data   *schema.Dataset
	Format DatasetFormat

	// DatasetFilename, QualityReportFilename, CorrelationReportFilename,
	// MetadataFilename, and ManifestFilename are the final filenames spec
	// §6 "Artifact names" assigns. CorrelationReportFilename empty means the
	// optional correlation step did not run (spec §4.7 "disabled by
	// default"); no correlation artifact is committed.
	DatasetFilename           string
	QualityReportFilename    string
	CorrelationReportFilename string
	MetadataFilename         string
	ManifestFilename         string

	// ValidationFailures is the failure-case table to persist into the
	// quality report, empty when the dataset passed validation.
	ValidationFailures []schema.FailureCase

	// CorrelationReport, when non-nil, is committed verbatim under
	// CorrelationReportFilename.
	CorrelationReport []byte

	// Extended toggles whether the metadata document and manifest are
	// committed at all (spec §4.6: "in extended mode").
	Extended bool

	Metadata *Metadata
}

// ArtifactSetResult reports what an ArtifactSet commit produced.
type ArtifactSetResult struct {
	Manifest  *Manifest
	Checksums map[string]string
}

// CommitArtifactSet commits one run's full artifact set in the declared
// order of spec §4.6 ("dataset, then quality report, then (optionally)
// correlation report, then (in extended mode) metadata document, then (in
// extended mode) manifest"), then runs completeness validation. On any
// error, files committed before the failure stay at their final paths (the
// writer never rolls back); w.Cleanup and w.Abort remove only the temp
// directory's contents.
func CommitArtifactSet(w *Writer, in ArtifactSetInput) (*ArtifactSetResult, error) {
	manifest := NewManifest(in.RunID, in.Schema.ID, in.Schema.Version.String())

	datasetBytes, err := renderDataset(in.Schema, in.Data, in.Format)
	if err != nil {
		return nil, fmt.Errorf("writer: render dataset: %w", err)
	}

	if _, err := commitNamed(w, manifest, ArtifactDataset, in.DatasetFilename, datasetBytes); err != nil {
		return nil, err
	}

	qualityBytes, err := RenderQualityReport(in.ValidationFailures)
	if err != nil {
		return nil, fmt.Errorf("writer: render quality report: %w", err)
	}

	if _, err := commitNamed(w, manifest, ArtifactQualityReport, in.QualityReportFilename, qualityBytes); err != nil {
		return nil, err
	}

	if in.CorrelationReport != nil {
		if _, err := commitNamed(w, manifest, ArtifactCorrelationReport, in.CorrelationReportFilename, in.CorrelationReport); err != nil {
			return nil, err
		}
	}

	if in.Extended {
		if in.Metadata != nil {
			in.Metadata.Checksums = manifest.Checksums

			metaBytes, err := in.Metadata.RenderYAML()
			if err != nil {
				return nil, err
			}

			if _, err := commitNamed(w, manifest, ArtifactMetadata, in.MetadataFilename, metaBytes); err != nil {
				return nil, err
			}
		}

		manifestBytes := manifest.marshalForSelf()

		if _, err := w.Commit(in.ManifestFilename, manifestBytes, ""); err != nil {
			return nil, fmt.Errorf("writer: commit manifest: %w", err)
		}
	}

	if err := ValidateCompleteness(w, in); err != nil {
		return nil, err
	}

	return &ArtifactSetResult{Manifest: manifest, Checksums: w.Checksums()}, nil
}

func commitNamed(w *Writer, manifest *Manifest, key, filename string, content []byte) (string, error) {
	checksum, err := w.Commit(filename, content, "")
	if err != nil {
		return "", fmt.Errorf("writer: commit %s: %w", key, err)
	}

	manifest.AddArtifact(key, filename, checksum)

	return checksum, nil
}

func renderDataset(s *schema.Schema, ds *schema.Dataset, format DatasetFormat) ([]byte, error) {
	if format == FormatColumnar {
		return RenderColumnar(s, ds)
	}

	return RenderCSV(s, ds)
}

// marshalForSelf renders the manifest's own JSON bytes — a thin wrapper so
// artifactset.go doesn't need to import encoding/json directly just to
// commit the manifest file.
func (m *Manifest) marshalForSelf() []byte {
	data, err := m.MarshalJSON()
	if err != nil {
		// Manifest contains only strings and maps of strings; MarshalJSON
		// cannot fail on this shape.
		panic(fmt.Sprintf("writer: manifest marshal invariant violated: %v", err))
	}

	return data
}

// ValidateCompleteness runs spec §4.6's post-commit check: every required
// artifact named in in must exist at its final path with nonzero size, and
// in extended mode the metadata document's checksum map must cover every
// committed artifact.
func ValidateCompleteness(w *Writer, in ArtifactSetInput) error {
	required := []string{in.DatasetFilename, in.QualityReportFilename}

	if in.Extended {
		required = append(required, in.MetadataFilename, in.ManifestFilename)
	}

	outputDir := w.outputDir

	for _, filename := range required {
		if filename == "" {
			return fmt.Errorf("writer: completeness check: required artifact filename is empty")
		}

		path := filepath.Join(outputDir, filename)

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("writer: completeness check: required artifact %q missing: %w", filename, err)
		}

		if info.Size() == 0 {
			return fmt.Errorf("writer: completeness check: required artifact %q is empty", filename)
		}
	}

	if in.Extended && in.Metadata != nil {
		if len(in.Metadata.Checksums) == 0 {
			return fmt.Errorf("writer: completeness check: metadata document carries no checksums")
		}

		for _, filename := range w.CommittedOrder() {
			if filename == in.MetadataFilename || filename == in.ManifestFilename {
				continue
			}

			if _, ok := in.Metadata.Checksums[filename]; !ok {
				return fmt.Errorf("writer: completeness check: metadata checksum map missing artifact %q", filename)
			}
		}
	}

	return nil
}
