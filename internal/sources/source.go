// Package sources declares the contract for primary and enrichment data
// sources (spec §6 "Sources"): their transport, pagination, batching, and
// resilience configuration.
package sources

import (
	"time"

	"github.com/bioetl-io/bioetl/internal/httpclient"
)

// Pagination names which pagination mechanism a source speaks.
type Pagination int

const (
	PaginationNone Pagination = iota
	PaginationOffset
	PaginationCursor
)

// Kind distinguishes the single primary source from zero or more
// enrichment sources (spec §4.3 "Multi-source merge").
type Kind int

const (
	KindPrimary Kind = iota
	KindEnrichment
)

// Source declares everything the extraction orchestrator needs to know
// about one data source.
type Source struct {
	Name   string
	Kind   Kind
	Schema string // registered schema id this source's rows target

	BaseURL       string
	BatchMaxCount int // max identifiers per list-filter batch
	MaxURLLength  int // default 2000, spec §4.2
	PageLimit     int // page size for list endpoints

	// FilterParam names the list-filter query parameter identifiers are
	// batched into (e.g. "molecule_chembl_id__in").
	FilterParam string

	// ListField names the key under which a paginated list response
	// carries its rows, alongside the page_meta/cursor envelope fields
	// (e.g. "activities"). Empty means the response body is itself a bare
	// JSON array of rows.
	ListField string

	// IdentifierField names the field a fetched row's primary identifier
	// is read from, and the field a fallback record's primary identifier
	// is written to (spec §3 "Fallback Record").
	IdentifierField string

	Pagination Pagination

	// JoinKey names the field enrichment rows are keyed on when merged
	// against the primary dataset (spec §4.3).
	JoinKey string

	// AllowedFields whitelists which fields this source may contribute
	// during merge (spec §4.3 "Whitelisted enrichment"). Empty means no
	// restriction — only meaningful for enrichment sources; the primary
	// source is always unrestricted.
	AllowedFields []string

	Resilience httpclient.SourceConfig

	RequestTimeout time.Duration

	// StatusPath is the relative path probed once at run start to capture
	// this source's release version (spec §3, §4.7). Only meaningful for
	// the primary source; empty means the conventional default.
	StatusPath string
}

// DefaultMaxURLLength is applied when a source config leaves MaxURLLength
// at zero.
const DefaultMaxURLLength = 2000

// DefaultStatusPath is applied when a source config leaves StatusPath
// unset.
const DefaultStatusPath = "/status.json"

// EffectiveMaxURLLength returns s.MaxURLLength, or DefaultMaxURLLength when
// unset.
func (s Source) EffectiveMaxURLLength() int {
	if s.MaxURLLength <= 0 {
		return DefaultMaxURLLength
	}

	return s.MaxURLLength
}

// EffectiveStatusPath returns s.StatusPath, or DefaultStatusPath when
// unset.
func (s Source) EffectiveStatusPath() string {
	if s.StatusPath == "" {
		return DefaultStatusPath
	}

	return s.StatusPath
}

// Registry is the set of sources configured for one run: exactly one
// primary and zero or more enrichment sources.
type Registry struct {
	Primary     Source
	Enrichments []Source
}

// All returns every configured source, primary first.
func (r Registry) All() []Source {
	all := make([]Source, 0, 1+len(r.Enrichments))
	all = append(all, r.Primary)
	all = append(all, r.Enrichments...)

	return all
}

// ByName returns the source registered under name.
func (r Registry) ByName(name string) (Source, bool) {
	if r.Primary.Name == name {
		return r.Primary, true
	}

	for _, s := range r.Enrichments {
		if s.Name == name {
			return s, true
		}
	}

	return Source{}, false
}
