package pipeline

import (
	"fmt"
	"strconv"

	"github.com/bioetl-io/bioetl/internal/extract"
	"github.com/bioetl-io/bioetl/internal/normalize"
	"github.com/bioetl-io/bioetl/internal/schema"
	"github.com/bioetl-io/bioetl/internal/sources"
)

// joinIndex indexes one enrichment source's dataset by its configured join
// key value, so MergeDatasets can look up an enrichment row for a given
// primary identifier in O(1).
type joinIndex struct {
	source  string
	joinKey string
	byKey   map[string]*schema.Record
}

func newJoinIndex(src sources.Source, ds *schema.Dataset) joinIndex {
	idx := joinIndex{
		source:  src.Name,
		joinKey: src.JoinKey,
		byKey:   make(map[string]*schema.Record, ds.Len()),
	}

	for _, rec := range ds.Records {
		key, ok := rec.Get(src.JoinKey)
		if !ok || key.IsNull() {
			continue
		}

		idx.byKey[joinKeyString(key)] = rec
	}

	return idx
}

// MergeDatasets joins the primary dataset against zero or more enrichment
// extraction results on each source's configured join key, then delegates
// per-field resolution to merger (spec §4.3 "Multi-source merge"). The
// returned dataset carries one record per primary row, in the primary
// dataset's original order — applying the schema's declared sort order is a
// separate step (see SortDataset). A primary row with no matching enrichment
// row carries null for every field the enrichment datasets provide.
func MergeDatasets(merger *normalize.Merger, registry sources.Registry, primary *schema.Dataset, enrichments []extract.SourceResult) (*schema.Dataset, error) {
	indexes := make([]joinIndex, 0, len(enrichments))

	for _, result := range enrichments {
		src, ok := findSource(registry.Enrichments, result.Source)
		if !ok || result.Dataset == nil {
			continue
		}

		indexes = append(indexes, newJoinIndex(src, result.Dataset))
	}

	enrichFields := make(map[string]struct{})
	for _, idx := range indexes {
		for _, rec := range idx.byKey {
			for _, field := range rec.Fields() {
				if field != idx.joinKey {
					enrichFields[field] = struct{}{}
				}
			}
		}
	}

	out := schema.NewDataset()

	for _, primaryRec := range primary.Records {
		fields := make(map[string][]normalize.SourceField, primaryRec.Len())

		for _, field := range primaryRec.Fields() {
			fields[field] = append(fields[field], normalize.SourceField{
				Source: registry.Primary.Name,
				Value:  primaryRec.GetOrNull(field),
			})
		}

		if identifier, ok := primaryRec.Get(registry.Primary.IdentifierField); ok && !identifier.IsNull() {
			key := joinKeyString(identifier)

			for _, idx := range indexes {
				enrichRec, found := idx.byKey[key]
				if !found {
					continue
				}

				for _, field := range enrichRec.Fields() {
					if field == idx.joinKey {
						continue
					}

					fields[field] = append(fields[field], normalize.SourceField{
						Source: idx.source,
						Value:  enrichRec.GetOrNull(field),
					})
				}
			}
		}

		for field := range enrichFields {
			if _, seen := fields[field]; !seen {
				fields[field] = nil
			}
		}

		merged := primaryRec.Clone()

		if err := merger.MergeRow(merged, fields); err != nil {
			return nil, fmt.Errorf("pipeline: merge row: %w", err)
		}

		out.Append(merged)
	}

	return out, nil
}

func findSource(candidates []sources.Source, name string) (sources.Source, bool) {
	for _, s := range candidates {
		if s.Name == name {
			return s, true
		}
	}

	return sources.Source{}, false
}

// joinKeyString renders a join-key value into the string used as the index
// key. Join keys are always identifier-like scalars (string or int) in
// practice; any other kind falls back to a type-tagged rendering so a type
// mismatch never silently joins the wrong rows together.
func joinKeyString(v schema.Value) string {
	switch v.Kind {
	case schema.KindString:
		return v.Str
	case schema.KindInt:
		return strconv.FormatInt(v.Int, 10)
	default:
		return fmt.Sprintf("kind%d:%v", v.Kind, v)
	}
}
