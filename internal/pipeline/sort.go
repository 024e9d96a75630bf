package pipeline

import (
	"sort"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// SortDataset stably sorts ds in place by s's declared sort keys (spec §4.7
// "Sort determinism"), falling back to the schema's primary key when
// SortKeys is empty. A stable sort is required so that rows tying on every
// sort key retain their extraction order, keeping output byte-identical
// across runs over the same input.
func SortDataset(s *schema.Schema, ds *schema.Dataset) {
	keys := s.SortKeys
	if len(keys) == 0 {
		keys = []string{s.PrimaryKey}
	}

	sort.SliceStable(ds.Records, func(i, j int) bool {
		return lessRecord(ds.Records[i], ds.Records[j], keys)
	})
}

// lessRecord compares a and b key by key, nulls sorting last regardless of
// column type so a missing sort key never silently reorders to the front.
func lessRecord(a, b *schema.Record, keys []string) bool {
	for _, key := range keys {
		av := a.GetOrNull(key)
		bv := b.GetOrNull(key)

		if av.IsNull() && bv.IsNull() {
			continue
		}

		if av.IsNull() {
			return false
		}

		if bv.IsNull() {
			return true
		}

		switch cmp := compareValue(av, bv); {
		case cmp < 0:
			return true
		case cmp > 0:
			return false
		default:
			continue
		}
	}

	return false
}

// compareValue returns -1, 0, or 1 comparing a and b, assuming both carry
// the same kind (sort keys are schema-validated to a single column type, so
// a kind mismatch here would indicate a prior validation bug, not user
// input — it is treated as equal rather than panicking).
func compareValue(a, b schema.Value) int {
	switch a.Kind {
	case schema.KindString:
		switch {
		case a.Str < b.Str:
			return -1
		case a.Str > b.Str:
			return 1
		default:
			return 0
		}
	case schema.KindInt:
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		default:
			return 0
		}
	case schema.KindFloat:
		switch {
		case a.Float < b.Float:
			return -1
		case a.Float > b.Float:
			return 1
		default:
			return 0
		}
	case schema.KindBool:
		switch {
		case !a.Bool && b.Bool:
			return -1
		case a.Bool && !b.Bool:
			return 1
		default:
			return 0
		}
	case schema.KindInstant:
		switch {
		case a.Inst.Before(b.Inst):
			return -1
		case a.Inst.After(b.Inst):
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}
