// Package aliasing resolves cross-source identifier aliases into the
// primary identifier used as a dataset's join key (spec §4.3 "Multi-source
// merge" requires one; documents/molecules/targets frequently arrive from an
// enrichment source under a different identifier than the primary source's).
package aliasing

import (
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Key identifies one (source, source-local identifier) pair.
type Key struct {
	Source     string
	Identifier string
}

// Rule declares that values of a field emitted by Source should be looked up
// against Alias as the join key into the primary identifier space, the way
// the teacher's dataset patterns map a tool-specific URN onto a canonical
// one.
type Rule struct {
	Source string
	Alias  map[string]string // alias identifier -> primary identifier
}

// Resolver maps (source, identifier) pairs to the primary identifier space,
// backed by an LRU cache so repeated lookups across a large dataset don't
// re-walk the same rule set. Immutable after construction, safe for
// concurrent use (the cache has its own internal locking).
type Resolver struct {
	rules map[string]map[string]string
	cache *lru.Cache[Key, string]
	log   *slog.Logger
}

// defaultCacheSize bounds the resolver's LRU so a pathological run with
// millions of distinct unresolved identifiers cannot grow memory unbounded.
const defaultCacheSize = 100_000

// NewResolver builds a Resolver from the given rules, one per enrichment
// source that requires alias resolution. A nil or empty rules map yields a
// no-op resolver: Resolve always falls through to returning the input
// unchanged.
func NewResolver(rules []Rule, log *slog.Logger) (*Resolver, error) {
	if log == nil {
		log = slog.Default()
	}

	cache, err := lru.New[Key, string](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("aliasing: build cache: %w", err)
	}

	bySource := make(map[string]map[string]string, len(rules))

	for _, r := range rules {
		if r.Source == "" {
			log.Warn("aliasing: skipping rule with empty source")
			continue
		}

		if len(r.Alias) == 0 {
			log.Debug("aliasing: skipping rule with no aliases", slog.String("source", r.Source))
			continue
		}

		bySource[r.Source] = r.Alias
	}

	return &Resolver{rules: bySource, cache: cache, log: log}, nil
}

// Resolve maps (source, identifier) to the primary identifier space. If no
// rule is registered for source, or the identifier is not present in that
// source's alias table, Resolve returns (identifier, false) — the caller is
// expected to surface this as a referential-integrity QC warning (spec
// §4.3), not a hard failure.
func (r *Resolver) Resolve(source, identifier string) (string, bool) {
	if r == nil || identifier == "" {
		return identifier, false
	}

	key := Key{Source: source, Identifier: identifier}

	if cached, ok := r.cache.Get(key); ok {
		return cached, true
	}

	alias, ok := r.rules[source]
	if !ok {
		return identifier, false
	}

	primary, ok := alias[identifier]
	if !ok {
		return identifier, false
	}

	r.cache.Add(key, primary)

	return primary, true
}

// RuleCount reports how many sources carry an alias table. Used in startup
// logging and diagnostics.
func (r *Resolver) RuleCount() int {
	if r == nil {
		return 0
	}

	return len(r.rules)
}
