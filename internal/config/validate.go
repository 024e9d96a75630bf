package config

import "fmt"

// Validate enforces spec §4.8's "permissible ranges are declared
// statically" rule: every field with a meaningful domain is checked here,
// and any violation is a hard OutOfRangeError rather than a silently
// clamped value.
func (c *Config) Validate() error {
	if c.Output.Directory == "" {
		return &OutOfRangeError{Key: "output.directory", Reason: "must not be empty"}
	}

	if c.Output.Format != "csv" && c.Output.Format != "columnar" {
		return &OutOfRangeError{Key: "output.format", Reason: `must be "csv" or "columnar"`}
	}

	if c.Sample < 0 || c.Sample > 1 {
		return &OutOfRangeError{Key: "sample", Reason: "must be in [0, 1]"}
	}

	if c.Limit < 0 {
		return &OutOfRangeError{Key: "limit", Reason: "must be >= 0"}
	}

	if len(c.Sources) > 0 {
		primaries := 0

		for _, s := range c.Sources {
			if s.Kind == "primary" {
				primaries++
			}
		}

		if primaries != 1 {
			return &OutOfRangeError{Key: "sources", Reason: "exactly one source must have kind \"primary\""}
		}
	}

	for name, s := range c.Sources {
		if err := s.validate(name); err != nil {
			return err
		}
	}

	if c.Ledger.Enabled && c.Ledger.DSN == "" {
		return &OutOfRangeError{Key: "ledger.dsn", Reason: "required when ledger.enabled is true"}
	}

	if c.Eventer.Enabled && len(c.Eventer.Brokers) == 0 {
		return &OutOfRangeError{Key: "eventer.brokers", Reason: "required when eventer.enabled is true"}
	}

	return nil
}

func (s SourceSpec) validate(name string) error {
	if s.BaseURL == "" {
		return &OutOfRangeError{Key: fmt.Sprintf("sources.%s.base_url", name), Reason: "must not be empty"}
	}

	if s.Kind != "primary" && s.Kind != "enrichment" {
		return &OutOfRangeError{Key: fmt.Sprintf("sources.%s.kind", name), Reason: `must be "primary" or "enrichment"`}
	}

	switch s.Pagination {
	case "none", "offset", "cursor":
	default:
		return &OutOfRangeError{Key: fmt.Sprintf("sources.%s.pagination", name), Reason: `must be "none", "offset", or "cursor"`}
	}

	if s.BatchMaxCount < 0 {
		return &OutOfRangeError{Key: fmt.Sprintf("sources.%s.batch_max_count", name), Reason: "must be >= 0"}
	}

	if s.Retry.MaxAttempts < 0 {
		return &OutOfRangeError{Key: fmt.Sprintf("sources.%s.retry.max_attempts", name), Reason: "must be >= 0"}
	}

	if s.Limiter.RequestsPerSecond < 0 {
		return &OutOfRangeError{Key: fmt.Sprintf("sources.%s.rate_limit.requests_per_second", name), Reason: "must be >= 0"}
	}

	return nil
}
