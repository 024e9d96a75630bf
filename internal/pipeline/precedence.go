package pipeline

import (
	"sort"

	"github.com/bioetl-io/bioetl/internal/normalize"
	"github.com/bioetl-io/bioetl/internal/schema"
	"github.com/bioetl-io/bioetl/internal/sources"
)

// BuildMergePolicy derives a field precedence (primary first, enrichments
// afterward in registry order) and an enrichment whitelist straight from
// the configured sources, for callers that have not declared a per-field
// precedence override (spec §3 "Precedence Matrix" defaults to source
// declaration order when no override is configured).
func BuildMergePolicy(registry sources.Registry) (normalize.Precedence, normalize.EnrichmentWhitelist) {
	order := make([]string, 0, 1+len(registry.Enrichments))
	order = append(order, registry.Primary.Name)

	whitelist := make(normalize.EnrichmentWhitelist, len(registry.Enrichments))

	for _, src := range registry.Enrichments {
		order = append(order, src.Name)
		whitelist[src.Name] = src.AllowedFields
	}

	return normalize.Precedence{DefaultOrder: order}, whitelist
}

// enrichmentIdentifiers collects the distinct, sorted, non-null values of
// joinKey across ds — the set of identifiers an enrichment source must be
// queried for once the primary dataset is known (spec §4.3: enrichment
// sources are keyed against the primary dataset's JoinKey column).
func enrichmentIdentifiers(ds *schema.Dataset, joinKey string) []string {
	seen := make(map[string]struct{})

	for _, rec := range ds.Records {
		val, ok := rec.Get(joinKey)
		if !ok || val.IsNull() {
			continue
		}

		seen[joinKeyString(val)] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}

	sort.Strings(out)

	return out
}
