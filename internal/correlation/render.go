package correlation

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// reportHeader is the fixed column order of the correlation report CSV
// (spec §6 "Artifact names": output.{table}_{date_tag}_data_correlation_report_table.csv).
var reportHeader = []string{"column_a", "column_b", "pearson_r", "n"}

// RenderCSV renders pairs as CSV in the order given (Generate returns them
// most significant relationship first). An
// empty slice still renders a header-only CSV, matching the quality
// report's "always materialize, even when there's nothing to say" shape.
func RenderCSV(pairs []Pair) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	if err := w.Write(reportHeader); err != nil {
		return nil, fmt.Errorf("correlation: write report header: %w", err)
	}

	for _, p := range pairs {
		row := []string{p.ColumnA, p.ColumnB, fmt.Sprintf("%.6f", p.PearsonR), fmt.Sprintf("%d", p.N)}

		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("correlation: write report row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("correlation: flush report: %w", err)
	}

	return buf.Bytes(), nil
}
