package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bioetl-io/bioetl/internal/writer"
)

// RunCompleted is the Kafka payload published for each run manifest
// observed: the run identifier, the release and row counts carried by the
// run's extended metadata document when present, and the checksums the
// manifest already carries for every committed artifact.
type RunCompleted struct {
	RunID       string            `json:"run_id"`
	Release     string            `json:"release,omitempty"`
	RowCount    int               `json:"row_count,omitempty"`
	ColumnCount int               `json:"column_count,omitempty"`
	Checksums   map[string]string `json:"checksums"`
	ObservedAt  time.Time         `json:"observed_at"`
}

// buildEvent loads one run_manifest_*.json from disk and assembles its
// RunCompleted event. Release and RowCount are only populated when the
// manifest references an extended metadata document (manifest.Artifacts
// [writer.ArtifactMetadata]) — basic-mode runs carry neither, and the
// event is published with both fields empty rather than failing the run.
func buildEvent(manifestPath, outputDir string) (RunCompleted, error) {
	raw, err := os.ReadFile(manifestPath) //nolint:gosec // path comes from a directory listing of outputDir
	if err != nil {
		return RunCompleted{}, fmt.Errorf("eventer: read manifest %q: %w", manifestPath, err)
	}

	var manifest writer.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return RunCompleted{}, fmt.Errorf("eventer: parse manifest %q: %w", manifestPath, err)
	}

	event := RunCompleted{
		RunID:      manifest.RunID,
		Checksums:  manifest.Checksums,
		ObservedAt: time.Now().UTC(),
	}

	metaName, ok := manifest.Artifacts[writer.ArtifactMetadata]
	if !ok {
		return event, nil
	}

	metaPath := filepath.Join(outputDir, metaName)

	metaRaw, err := os.ReadFile(metaPath) //nolint:gosec // path is manifest-referenced, confined to outputDir
	if err != nil {
		return event, fmt.Errorf("eventer: read metadata %q referenced by manifest %q: %w", metaPath, manifestPath, err)
	}

	var meta writer.Metadata
	if err := yaml.Unmarshal(metaRaw, &meta); err != nil {
		return event, fmt.Errorf("eventer: parse metadata %q: %w", metaPath, err)
	}

	event.Release = meta.ReleaseVersion
	event.RowCount = meta.RowCount
	event.ColumnCount = meta.ColumnCount

	return event, nil
}
