package writer

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// columnarMagic identifies the columnar binary format's header, so a stray
// file extension never gets mistaken for one of these documents.
const columnarMagic = "BIOETLC1"

// columnarColumn is one column's full set of values, stored contiguously —
// the "columnar" in columnar binary output, as opposed to CSV's row-major
// layout (spec §4.6 "Cross-format atomicity": "the format handler only
// affects byte construction, not commit semantics").
type columnarColumn struct {
	Name   string
	Type   int
	Values []columnarCell
}

// columnarCell mirrors schema.Value's tagged sum in a gob-encodable shape
// (schema.Value itself is not registered with gob and carries a
// json.RawMessage, which gob handles as []byte without trouble, but a
// dedicated cell type keeps the on-disk format independent of the
// in-memory Value representation).
type columnarCell struct {
	Null  bool
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Inst  int64 // UnixNano, UTC
	JSON  []byte
}

func toColumnarCell(v schema.Value) columnarCell {
	if v.Kind == schema.KindNull {
		return columnarCell{Null: true}
	}

	return columnarCell{
		Str:   v.Str,
		Int:   v.Int,
		Float: v.Float,
		Bool:  v.Bool,
		Inst:  v.Inst.UTC().UnixNano(),
		JSON:  v.JSON,
	}
}

// RenderColumnar renders dataset as the module's columnar binary format: a
// magic header, then the row count as a big-endian int64, then one
// gob-encoded columnarColumn per schema column, in declared column order. This stands in for a true Parquet writer (spec
// §4.6 "e.g., Parquet-like formats") without an external columnar-format
// dependency — see DESIGN.md for why.
func RenderColumnar(s *schema.Schema, ds *schema.Dataset) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(columnarMagic)

	if err := binary.Write(&buf, binary.BigEndian, int64(ds.Len())); err != nil {
		return nil, fmt.Errorf("writer: write columnar row count: %w", err)
	}

	enc := gob.NewEncoder(&buf)

	for _, col := range s.Columns {
		column := columnarColumn{Name: col.Name, Type: int(col.Type)}
		column.Values = make([]columnarCell, len(ds.Records))

		for i, rec := range ds.Records {
			column.Values[i] = toColumnarCell(rec.GetOrNull(col.Name))
		}

		if err := enc.Encode(column); err != nil {
			return nil, fmt.Errorf("writer: encode columnar column %q: %w", col.Name, err)
		}
	}

	return buf.Bytes(), nil
}
