// Command pipeline is the bioetl deterministic bioactivity ETL CLI (spec
// §6 "CLI surface"): `pipeline run` executes one Extract -> Normalize ->
// Validate -> Load run, `pipeline validate-config` checks a profile
// without running anything.
package main

import (
	"fmt"
	"os"

	"github.com/bioetl-io/bioetl/cmd/pipeline/cmd"
)

// version and commit are set at build time, e.g.:
//
//	go build -ldflags "-X main.version=$(git describe --tags) -X main.commit=$(git rev-parse HEAD)"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd.SetBuildInfo(version, commit)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
