package extract

import "github.com/bioetl-io/bioetl/internal/schema"

// RowSubtypeColumn and RowIndexColumn name the two companion columns added
// to every exploded child row (spec §4.2 "exploded to long format").
const (
	RowSubtypeColumn = "row_subtype"
	RowIndexColumn   = "row_index"
)

// ExplodeField names one nested-array field that carries semantic identity
// (spec §4.2: "parameters, classifications, alternative sequences") and
// must be exploded to one record per element rather than flattened or
// truncated to its first element.
type ExplodeField struct {
	// Name is the key under which the nested array appears in the raw
	// decoded row.
	Name string

	// RowSubtype is the row_subtype marker stamped on every record
	// produced by exploding this field.
	RowSubtype string
}

// ExplodeNested splits raw into a parent row (with every field in fields
// removed) and, for each field, one child row per array element — each
// child carrying the parent's identifier field, a row_subtype marker, and a
// stable zero-based row_index within the parent (spec §4.2 "stable
// zero-based row_index within the parent").
//
// identifierField and identifierValue are copied onto every child row so
// exploded rows remain joinable back to their parent after flattening.
func ExplodeNested(raw map[string]any, fields []ExplodeField, identifierField, identifierValue string) (parent map[string]any, children []*schema.Record, err error) {
	parent = make(map[string]any, len(raw))
	for k, v := range raw {
		parent[k] = v
	}

	for _, f := range fields {
		elements, ok := parent[f.Name].([]any)
		delete(parent, f.Name)

		if !ok {
			continue
		}

		for i, elem := range elements {
			obj, ok := elem.(map[string]any)
			if !ok {
				obj = map[string]any{"value": elem}
			}

			rec, buildErr := FlattenRow(obj)
			if buildErr != nil {
				return nil, nil, buildErr
			}

			rec.Set(identifierField, schema.StringValue(identifierValue))
			rec.Set(RowSubtypeColumn, schema.StringValue(f.RowSubtype))
			rec.Set(RowIndexColumn, schema.IntValue(int64(i)))

			children = append(children, rec)
		}
	}

	return parent, children, nil
}
