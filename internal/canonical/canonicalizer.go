// Package canonical implements the deterministic row serialization and
// content hashing of spec §4.5: given a validated row and its schema, produce
// a byte string that is bit-identical across runs on identical input.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// Row produces the canonical JSON bytes for one record, per the rules of
// spec §4.5 "Canonical row serialization":
//   - null in a string column -> JSON ""; null elsewhere -> JSON null.
//   - float -> fixed-point with the schema's precision for that field
//     (default 6 digits), rendered as a JSON number token, not a string.
//   - datetime -> ISO-8601 UTC with trailing Z.
//   - nested JSON -> recursively canonicalized (keys sorted, no whitespace).
//   - string/int/bool -> as-is.
//
// The resulting object is serialized via encoding/json's map marshaling,
// which is documented to emit map[string]T keys in sorted order with no
// indentation — this is how "sorted keys, compact separators" is achieved
// without hand-rolled key sorting.
func Row(s *schema.Schema, r *schema.Record) ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(s.Columns))

	for _, col := range s.Columns {
		val := r.GetOrNull(col.Name)

		raw, err := fieldValue(s, col, val)
		if err != nil {
			return nil, fmt.Errorf("canonical: field %q: %w", col.Name, err)
		}

		fields[col.Name] = raw
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal row: %w", err)
	}

	return out, nil
}

func fieldValue(s *schema.Schema, col schema.ColumnSpec, val schema.Value) (json.RawMessage, error) {
	if val.Kind == schema.KindNull {
		if col.Type == schema.ColumnString {
			return json.RawMessage(`""`), nil
		}

		return json.RawMessage(`null`), nil
	}

	switch col.Type {
	case schema.ColumnString:
		return json.Marshal(val.Str)
	case schema.ColumnInt:
		return json.RawMessage(fmt.Sprintf("%d", val.Int)), nil
	case schema.ColumnFloat:
		precision := s.PrecisionFor(col.Name)
		f := val.Float

		if val.Kind == schema.KindInt {
			f = float64(val.Int)
		}

		return json.RawMessage(fmt.Sprintf("%.*f", precision, f)), nil
	case schema.ColumnBool:
		if val.Bool {
			return json.RawMessage(`true`), nil
		}

		return json.RawMessage(`false`), nil
	case schema.ColumnInstant:
		return json.Marshal(val.Inst.UTC().Format("2006-01-02T15:04:05Z"))
	case schema.ColumnJSON:
		return canonicalizeJSON(val.JSON)
	default:
		return nil, fmt.Errorf("unsupported column type %s", col.Type)
	}
}

// canonicalizeJSON re-serializes an arbitrary JSON tree with object keys
// sorted recursively and no whitespace. Numbers are decoded with UseNumber
// so round-tripping never perturbs their textual representation.
func canonicalizeJSON(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage(`null`), nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode nested json: %w", err)
	}

	out, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode nested json: %w", err)
	}

	return out, nil
}

// HashRow computes hash_row: SHA-256 of the canonical row bytes, rendered as
// 64 lowercase hex characters (spec §4.5 "Row hash").
func HashRow(canonicalBytes []byte) string {
	sum := sha256.Sum256(canonicalBytes)
	return hex.EncodeToString(sum[:])
}

// HashBusinessKey computes hash_business_key: SHA-256 of the primary
// identifier bytes (spec §4.5 "Business-key hash").
func HashBusinessKey(primaryID string) string {
	sum := sha256.Sum256([]byte(primaryID))
	return hex.EncodeToString(sum[:])
}

// HashRecord is a convenience wrapping Row + HashRow + HashBusinessKey for
// one record, returning (rowHash, businessKeyHash, canonicalBytes, error).
func HashRecord(s *schema.Schema, r *schema.Record) (string, string, []byte, error) {
	canonicalBytes, err := Row(s, r)
	if err != nil {
		return "", "", nil, err
	}

	primary := r.GetOrNull(s.PrimaryKey)

	var primaryStr string

	switch primary.Kind {
	case schema.KindString:
		primaryStr = primary.Str
	case schema.KindNull:
		primaryStr = ""
	default:
		primaryStr = fmt.Sprintf("%v", primary)
	}

	return HashRow(canonicalBytes), HashBusinessKey(primaryStr), canonicalBytes, nil
}
