package writer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// RenderCSV renders dataset's records as CSV using s's declared column
// order, applying spec §4.3's null policy (empty cell for every column
// type, string or otherwise — CSV has no distinct "empty string" token) and
// schema-authoritative float precision. The header row is always s's
// column names, in declared order (spec §8 invariant 3: "actual_columns ==
// schema.column_order element-wise").
func RenderCSV(s *schema.Schema, ds *schema.Dataset) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	if err := w.Write(s.ColumnNames()); err != nil {
		return nil, fmt.Errorf("writer: write csv header: %w", err)
	}

	row := make([]string, len(s.Columns))

	for _, rec := range ds.Records {
		for i, col := range s.Columns {
			cell, err := csvCell(s, col, rec.GetOrNull(col.Name))
			if err != nil {
				return nil, fmt.Errorf("writer: render field %q: %w", col.Name, err)
			}

			row[i] = cell
		}

		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writer: write csv row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writer: flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// csvCell renders one value as a CSV cell per spec §4.3's null policy:
// every column type renders an empty cell for null — CSV has no way to
// distinguish an empty string from a null. Canonical JSON
// (internal/canonical) likewise renders a null string column as "" and
// uses JSON null only for the other column types.
func csvCell(s *schema.Schema, col schema.ColumnSpec, val schema.Value) (string, error) {
	if val.Kind == schema.KindNull {
		return "", nil
	}

	switch col.Type {
	case schema.ColumnString:
		return val.Str, nil
	case schema.ColumnInt:
		return fmt.Sprintf("%d", val.Int), nil
	case schema.ColumnFloat:
		precision := s.PrecisionFor(col.Name)

		f := val.Float
		if val.Kind == schema.KindInt {
			f = float64(val.Int)
		}

		return fmt.Sprintf("%.*f", precision, f), nil
	case schema.ColumnBool:
		if val.Bool {
			return "true", nil
		}

		return "false", nil
	case schema.ColumnInstant:
		return val.Inst.UTC().Format(time.RFC3339), nil
	case schema.ColumnJSON:
		return string(val.JSON), nil
	default:
		return "", fmt.Errorf("unsupported column type %s", col.Type)
	}
}
