package config

import (
	"fmt"
	"sort"

	"github.com/bioetl-io/bioetl/internal/extract"
	"github.com/bioetl-io/bioetl/internal/httpclient"
	"github.com/bioetl-io/bioetl/internal/sources"
)

// SourceRegistry builds a sources.Registry from the validated
// configuration. Callers must have already run Config.Validate (Load does
// this automatically), so the exactly-one-primary invariant is assumed to
// hold here.
func (c *Config) SourceRegistry() (sources.Registry, error) {
	var reg sources.Registry

	for name, spec := range c.Sources {
		src, err := spec.toSource(name)
		if err != nil {
			return sources.Registry{}, err
		}

		if spec.Kind == "primary" {
			reg.Primary = src
			continue
		}

		reg.Enrichments = append(reg.Enrichments, src)
	}

	return reg, nil
}

func (s SourceSpec) toSource(name string) (sources.Source, error) {
	kind := sources.KindEnrichment
	if s.Kind == "primary" {
		kind = sources.KindPrimary
	}

	pagination, err := s.pagination()
	if err != nil {
		return sources.Source{}, err
	}

	return sources.Source{
		Name:            name,
		Kind:            kind,
		Schema:          s.Schema,
		BaseURL:         s.BaseURL,
		BatchMaxCount:   s.BatchMaxCount,
		MaxURLLength:    s.MaxURLLength,
		PageLimit:       s.PageLimit,
		FilterParam:     s.FilterParam,
		ListField:       s.ListField,
		IdentifierField: s.IdentifierField,
		Pagination:      pagination,
		JoinKey:         s.JoinKey,
		AllowedFields:   s.AllowedFields,
		RequestTimeout:  s.RequestTimeout,
		StatusPath:      s.StatusPath,
		Resilience: httpclient.SourceConfig{
			Retry: httpclient.RetryConfig{
				MaxAttempts:   s.Retry.MaxAttempts,
				BaseDelay:     s.Retry.BaseDelay,
				Factor:        s.Retry.Factor,
				MaxDelay:      s.Retry.MaxDelay,
				RetryAfterCap: s.Retry.RetryAfterCap,
			},
			Limiter: httpclient.RateLimiterConfig{
				RequestsPerSecond: s.Limiter.RequestsPerSecond,
				Burst:             s.Limiter.Burst,
			},
			Breaker: httpclient.BreakerConfig{
				FailureThreshold: s.Breaker.FailureThreshold,
				SuccessThreshold: s.Breaker.SuccessThreshold,
				OpenTimeout:      s.Breaker.OpenTimeout,
			},
			Timeout: s.RequestTimeout,
		},
	}, nil
}

// ExplodeFields converts a source's configured nested-array fields into the
// extract package's ExplodeField shape, in a stable (sorted by field name)
// order so the same configuration always produces the same plan.
func (s SourceSpec) ExplodeFields() []extract.ExplodeField {
	if len(s.Explode) == 0 {
		return nil
	}

	names := make([]string, 0, len(s.Explode))
	for name := range s.Explode {
		names = append(names, name)
	}

	sort.Strings(names)

	fields := make([]extract.ExplodeField, 0, len(names))
	for _, name := range names {
		fields = append(fields, extract.ExplodeField{Name: name, RowSubtype: s.Explode[name]})
	}

	return fields
}

// EffectiveStatusPath returns s.StatusPath, or the conventional default
// when unset.
func (s SourceSpec) EffectiveStatusPath() string {
	if s.StatusPath == "" {
		return "/status.json"
	}

	return s.StatusPath
}

func (s SourceSpec) pagination() (sources.Pagination, error) {
	switch s.Pagination {
	case "", "none":
		return sources.PaginationNone, nil
	case "offset":
		return sources.PaginationOffset, nil
	case "cursor":
		return sources.PaginationCursor, nil
	default:
		return 0, fmt.Errorf("config: source %q: unknown pagination %q", s.Schema, s.Pagination)
	}
}
