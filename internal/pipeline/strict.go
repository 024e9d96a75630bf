package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bioetl-io/bioetl/internal/extract"
	"github.com/bioetl-io/bioetl/internal/sources"
)

// CheckStrictEnrichment implements the `--strict-enrichment` flag (spec §6:
// "reject unexpected fields from enrichment sources"): any field an
// enrichment source's dataset carries outside its configured AllowedFields
// (and its own JoinKey, which is structural, not contributed data) is a
// hard failure rather than a value merge simply never selects it.
func CheckStrictEnrichment(registry sources.Registry, results []extract.SourceResult) error {
	allowed := make(map[string]map[string]struct{}, len(registry.Enrichments))

	for _, src := range registry.Enrichments {
		set := make(map[string]struct{}, len(src.AllowedFields)+1)
		set[src.JoinKey] = struct{}{}

		for _, f := range src.AllowedFields {
			set[f] = struct{}{}
		}

		allowed[src.Name] = set
	}

	var violations []string

	for _, result := range results {
		set, ok := allowed[result.Source]
		if !ok || result.Dataset == nil || len(set) <= 1 {
			// No AllowedFields configured at all means "no restriction" per
			// normalize.EnrichmentWhitelist.allowed, so there is nothing to
			// reject here either.
			continue
		}

		unexpected := make(map[string]struct{})

		for _, rec := range result.Dataset.Records {
			for _, field := range rec.Fields() {
				if _, ok := set[field]; !ok {
					unexpected[field] = struct{}{}
				}
			}
		}

		if len(unexpected) == 0 {
			continue
		}

		fields := make([]string, 0, len(unexpected))
		for f := range unexpected {
			fields = append(fields, f)
		}

		sort.Strings(fields)

		violations = append(violations, fmt.Sprintf("%s: %s", result.Source, strings.Join(fields, ", ")))
	}

	if len(violations) == 0 {
		return nil
	}

	return fmt.Errorf("pipeline: strict enrichment: unexpected field(s) from %s", strings.Join(violations, "; "))
}
