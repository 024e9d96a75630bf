// Package cmd implements the pipeline CLI's cobra command tree: the root
// command plus the run and validate-config verbs (spec §6 "CLI surface").
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pipelineVersion string
	commitSHA       string
)

var (
	cfgPath      string
	cfgOverrides []string
)

var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Deterministic bioactivity ETL pipeline",
	Long: `pipeline extracts a primary bioactivity dataset plus zero or more
enrichment datasets, normalizes and merges them by a declared join key,
validates the result against a registered schema, and commits a
checksummed, reproducible artifact set.

Configuration is resolved in four layers (spec §4.8): built-in defaults,
an optional --config profile file, BIOETL_-prefixed environment
variables, then repeatable --set key.path=value overrides — each layer
taking precedence over the one before it.

Examples:
  pipeline run --config profiles/default.yaml
  pipeline run --config profiles/default.yaml --set output.directory=/tmp/out
  pipeline run --config profiles/default.yaml --limit 500 --sample 0.1
  pipeline run --config profiles/default.yaml --golden testdata/golden
  pipeline validate-config --config profiles/default.yaml

Exit Codes:
  0: success
  1: validation failure, schema drift, golden mismatch, or any other run error
  2: configuration error
`,
	SilenceUsage: true,
}

// Execute runs the root command, returning the first error any subcommand
// surfaces. Subcommands that need a specific process exit code call
// os.Exit directly (spec §6 "Exit codes").
func Execute() error {
	return rootCmd.Execute()
}

// SetBuildInfo records the version/commit the main package was built with,
// for `pipeline version` and for runctx's process fingerprint.
func SetBuildInfo(version, commit string) {
	pipelineVersion = version
	commitSHA = commit
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a pipeline profile (YAML)")
	rootCmd.PersistentFlags().StringArrayVar(&cfgOverrides, "set", nil, "override a configuration key as key.path=value (repeatable)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateConfigCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Printf("pipeline %s (%s)\n", pipelineVersion, commitSHA)
		return nil
	},
}
