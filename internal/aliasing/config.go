package aliasing

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// AliasEntry maps one enrichment-source identifier to the primary identifier
// space, declared in a source's configuration block.
type AliasEntry struct {
	Identifier string `yaml:"identifier"`
	Primary    string `yaml:"primary"`
}

// SourceAliases names the alias entries declared for one source.
type SourceAliases struct {
	Source  string       `yaml:"source"`
	Entries []AliasEntry `yaml:"entries"`
}

// Config holds the alias rules loaded from a run's configuration profile
// (spec §6 configuration layering — this is one block within the larger
// profile document, loaded separately here so aliasing stays independently
// testable, mirroring the teacher's standalone `.correlator.yaml`).
type Config struct {
	Sources []SourceAliases `yaml:"aliases"`
}

// LoadConfig loads alias configuration from a YAML file at path. A missing
// file is not an error: alias resolution is optional, exactly as the
// teacher's dataset-pattern config is optional.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Sources: []SourceAliases{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("aliasing: config file not found, continuing without aliases", slog.String("path", path))
			return cfg, nil
		}

		slog.Warn("aliasing: failed to read config file, continuing without aliases",
			slog.String("path", path), slog.String("error", err.Error()))

		return cfg, nil
	}

	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("aliasing: failed to parse config file, continuing without aliases",
			slog.String("path", path), slog.String("error", err.Error()))

		return &Config{Sources: []SourceAliases{}}, nil
	}

	if cfg.Sources == nil {
		cfg.Sources = []SourceAliases{}
	}

	return cfg, nil
}

// Rules converts the loaded configuration into Resolver rules.
func (c *Config) Rules() []Rule {
	rules := make([]Rule, 0, len(c.Sources))

	for _, s := range c.Sources {
		alias := make(map[string]string, len(s.Entries))
		for _, e := range s.Entries {
			alias[e.Identifier] = e.Primary
		}

		rules = append(rules, Rule{Source: s.Source, Alias: alias})
	}

	return rules
}
