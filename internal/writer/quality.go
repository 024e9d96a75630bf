package writer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// qualityReportHeader is the fixed column order of the quality report CSV
// (spec §7 "On validation failure, the full failure-case table is
// persisted into the quality report ... so humans can debug").
var qualityReportHeader = []string{"row_index", "column", "check", "value"}

// RenderQualityReport renders a dataset's validation failures as CSV. An
// empty (nil) failures slice still renders a header-only CSV — the quality
// report is a required artifact on every run, success or failure.
func RenderQualityReport(failures []schema.FailureCase) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	if err := w.Write(qualityReportHeader); err != nil {
		return nil, fmt.Errorf("writer: write quality report header: %w", err)
	}

	for _, f := range failures {
		row := []string{fmt.Sprintf("%d", f.RowIdx), f.Column, f.Check, f.Value}

		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writer: write quality report row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writer: flush quality report: %w", err)
	}

	return buf.Bytes(), nil
}

// FailuresFromError extracts the failure-case table out of err when it is
// (or wraps) a *schema.ValidationError, returning nil for any other error
// (including nil, the success case).
func FailuresFromError(err error) []schema.FailureCase {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return verr.Failures
	}

	return nil
}
