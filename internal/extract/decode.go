// Package extract implements the extraction orchestrator of spec §4.2:
// URL-length-aware batching, parallel per-source fetch, offset/cursor
// pagination, nested-array explosion to long format, and fallback record
// manufacturing for identifiers a source could not produce within its
// retry budget.
package extract

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// jsonToValue converts a decoded JSON scalar (string, float64, bool, nil) or
// any nested structure (map/slice) into a schema.Value. Nested structures
// are re-marshaled into a JSON tree value rather than flattened — callers
// that need specific nested fields flattened into named columns do so
// explicitly before calling this on the remainder.
func jsonToValue(raw any) (schema.Value, error) {
	switch v := raw.(type) {
	case nil:
		return schema.Null(), nil
	case string:
		return schema.StringValue(v), nil
	case float64:
		return schema.FloatValue(v), nil
	case bool:
		return schema.BoolValue(v), nil
	default:
		marshaled, err := json.Marshal(v)
		if err != nil {
			return schema.Value{}, fmt.Errorf("extract: marshal nested value: %w", err)
		}

		return schema.JSONValue(marshaled), nil
	}
}

// FlattenRow converts a single decoded JSON object into a Record, mapping
// every top-level key to a column of the same name. Nested objects/arrays
// that the caller has not already exploded via ExplodeNested are carried as
// a single JSON-tree column (spec §4.2 "Nested scalar structures are
// flattened in place into predeclared columns plus a JSON-string audit
// column" — the predeclared-column split is schema-specific and happens in
// Normalize; here we only guarantee no data is silently dropped).
func FlattenRow(raw map[string]any) (*schema.Record, error) {
	rec := schema.NewRecord()

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		v, err := jsonToValue(raw[k])
		if err != nil {
			return nil, err
		}

		rec.Set(k, v)
	}

	return rec, nil
}

// DecodeRows decodes a JSON array of objects, one map per element, in
// array order (spec §4.2 requires all elements preserved, never just the
// first).
func DecodeRows(body []byte) ([]map[string]any, error) {
	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("extract: decode rows: %w", err)
	}

	return rows, nil
}

// DecodeEnvelope decodes a {"<listField>": [...], ...} style response,
// returning the rows under listField. Used by sources whose list responses
// wrap rows in an envelope alongside page_meta/cursor fields.
func DecodeEnvelope(body []byte, listField string) ([]map[string]any, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("extract: decode envelope: %w", err)
	}

	raw, ok := envelope[listField]
	if !ok {
		return nil, nil
	}

	return DecodeRows(raw)
}
