package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const envPrefix = "BIOETL"

// UnknownKeyError is returned when the merged configuration carries a key
// the static schema does not declare (spec §4.8: "loading a configuration
// with unknown keys ... is a hard error").
type UnknownKeyError struct {
	Keys []string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("config: unknown key(s): %s", strings.Join(e.Keys, ", "))
}

// OutOfRangeError is returned when a declared key's value falls outside
// its permissible range (spec §4.8).
type OutOfRangeError struct {
	Key    string
	Reason string
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("config: %s out of range: %s", e.Key, e.Reason)
}

// Load resolves the runtime configuration through the four-layer merge of
// spec §4.8: built-in defaults, an optional profile file at path, then
// environment variables prefixed BIOETL_ with "__" as the nested-path
// separator (e.g. BIOETL_OUTPUT__DIRECTORY), then the repeatable
// `--set key.path=value` overrides supplied by the CLI.
func Load(path string, overrides []string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	for _, setExpr := range overrides {
		key, value, err := parseSetOverride(setExpr)
		if err != nil {
			return nil, err
		}

		v.Set(key, value)
	}

	var (
		cfg  Config
		meta mapstructure.Metadata
	)

	if err := v.Unmarshal(&cfg, viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.Metadata = &meta
	})); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if len(meta.Unused) > 0 {
		return nil, &UnknownKeyError{Keys: meta.Unused}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// parseSetOverride splits one `--set key.path=value` expression.
func parseSetOverride(expr string) (key, value string, err error) {
	parts := strings.SplitN(expr, "=", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("config: invalid --set expression %q, want key.path=value", expr)
	}

	return parts[0], parts[1], nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("profile", "default")

	v.SetDefault("output.directory", "./output")
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.extended", true)
	v.SetDefault("output.table", "dataset")

	v.SetDefault("cache.directory", "./cache")
	v.SetDefault("cache.l1_capacity", 10000)
	v.SetDefault("cache.l1_ttl", "15m")
	v.SetDefault("cache.default_ttl", "24h")

	v.SetDefault("postprocess.correlation.enabled", false)

	v.SetDefault("ledger.enabled", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("api.enabled", false)
	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.auth_enabled", false)

	v.SetDefault("eventer.enabled", false)
	v.SetDefault("eventer.topic", "bioetl.runs")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("limit", 0)
	v.SetDefault("sample", 1.0)
	v.SetDefault("sample_seed", 0)
	v.SetDefault("dry_run", false)
	v.SetDefault("fail_on_schema_drift", false)
	v.SetDefault("strict_enrichment", false)
}
