package config

import "time"

// Config is the fully resolved runtime configuration (spec §4.8
// "Configuration model"): base defaults, merged with a pipeline profile
// file, then environment-variable overrides, then `--set` overrides, in
// that order.
type Config struct {
	Profile string `mapstructure:"profile"`

	Sources     map[string]SourceSpec `mapstructure:"sources"`
	Output      OutputSpec            `mapstructure:"output"`
	Cache       CacheSpec             `mapstructure:"cache"`
	Postprocess PostprocessSpec       `mapstructure:"postprocess"`
	Ledger      LedgerSpec            `mapstructure:"ledger"`
	Metrics     MetricsSpec           `mapstructure:"metrics"`
	API         APISpec               `mapstructure:"api"`
	Eventer     EventerSpec           `mapstructure:"eventer"`
	Log         LogSpec               `mapstructure:"log"`

	// Limit, Sample, SampleSeed mirror the `pipeline run` CLI flags
	// (spec §6) for reducing input size during testing.
	Limit      int     `mapstructure:"limit"`
	Sample     float64 `mapstructure:"sample"`
	SampleSeed int64   `mapstructure:"sample_seed"`

	Golden string `mapstructure:"golden"`
	DryRun bool   `mapstructure:"dry_run"`

	FailOnSchemaDrift bool `mapstructure:"fail_on_schema_drift"`
	StrictEnrichment  bool `mapstructure:"strict_enrichment"`
}

// SourceSpec is the configuration-file shape of one source (spec §6
// "Source contracts"). Load converts this into sources.Source once every
// key has passed validation.
type SourceSpec struct {
	Kind   string `mapstructure:"kind"` // "primary" or "enrichment"
	Schema string `mapstructure:"schema"`

	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	BatchMaxCount int    `mapstructure:"batch_max_count"`
	MaxURLLength  int    `mapstructure:"max_url_length"`
	PageLimit     int    `mapstructure:"page_limit"`

	FilterParam     string `mapstructure:"filter_param"`
	ListField       string `mapstructure:"list_field"`
	IdentifierField string `mapstructure:"identifier_field"`
	Pagination      string `mapstructure:"pagination"` // "none", "offset", "cursor"
	JoinKey         string `mapstructure:"join_key"`

	AllowedFields []string `mapstructure:"allowed_fields"`

	// Explode maps a nested-array field name to the row_subtype marker
	// stamped on records produced by exploding it (spec §4.2 "exploded to
	// long format"). Only meaningful for the primary source.
	Explode map[string]string `mapstructure:"explode"`

	// StatusPath is the relative path probed once at run start to capture
	// this source's release version (spec §3, §4.7 "Run context setup").
	// Only meaningful for the primary source; defaults to "/status.json".
	StatusPath string `mapstructure:"status_path"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	Retry   RetrySpec   `mapstructure:"retry"`
	Limiter LimiterSpec `mapstructure:"rate_limit"`
	Breaker BreakerSpec `mapstructure:"breaker"`
}

// RetrySpec mirrors httpclient.RetryConfig with mapstructure tags.
type RetrySpec struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BaseDelay     time.Duration `mapstructure:"base_delay"`
	Factor        float64       `mapstructure:"factor"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	RetryAfterCap time.Duration `mapstructure:"retry_after_cap"`
}

// LimiterSpec mirrors httpclient.RateLimiterConfig with mapstructure tags.
type LimiterSpec struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// BreakerSpec mirrors httpclient.BreakerConfig with mapstructure tags.
type BreakerSpec struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// OutputSpec controls where the atomic writer commits artifacts (spec
// §6 "Persisted state layout").
type OutputSpec struct {
	Directory string `mapstructure:"directory"`
	Format    string `mapstructure:"format"` // "csv" or "columnar"
	Extended  bool   `mapstructure:"extended"`
	Table     string `mapstructure:"table"`
}

// CacheSpec controls the two-tier HTTP cache (spec §4.1).
type CacheSpec struct {
	Directory     string        `mapstructure:"directory"`
	L1Capacity    int           `mapstructure:"l1_capacity"`
	L1TTL         time.Duration `mapstructure:"l1_ttl"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
}

// PostprocessSpec gates the optional correlation report (spec §4.7
// "Optional correlation step").
type PostprocessSpec struct {
	Correlation CorrelationSpec `mapstructure:"correlation"`
}

// CorrelationSpec configures the disabled-by-default correlation
// post-processor.
type CorrelationSpec struct {
	Enabled bool `mapstructure:"enabled"`
}

// LedgerSpec configures the run-history audit store.
type LedgerSpec struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// MetricsSpec configures the Prometheus exposition endpoint.
type MetricsSpec struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// APISpec configures the optional operator HTTP surface.
type APISpec struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`

	// AuthEnabled gates API-key authentication on the operator surface.
	// When true, cmd/pipeline backs it with a Postgres-persisted key store
	// if DATABASE_URL is set, otherwise an in-memory store.
	AuthEnabled bool `mapstructure:"auth_enabled"`
}

// EventerSpec configures the Kafka run-completion event publisher.
type EventerSpec struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// LogSpec configures the structured logger.
type LogSpec struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"

	// Output selects the log sink: "stdout", "stderr", or "file". When
	// "file", records are written through a rotating writer at FilePath.
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`

	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}
