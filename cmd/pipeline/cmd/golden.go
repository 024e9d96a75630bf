package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// compareGolden walks goldenDir and compares every file there, byte for
// byte, against the same-named file in outputDir (spec §6 "--golden <path>:
// compare output bit-exactly to a reference; exit 0 on match, nonzero with
// a diff report on mismatch").
func compareGolden(goldenDir, outputDir string) error {
	var mismatches []string

	err := filepath.Walk(goldenDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(goldenDir, path)
		if err != nil {
			return err
		}

		wantBytes, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		gotPath := filepath.Join(outputDir, rel)
		gotBytes, err := os.ReadFile(gotPath)
		if err != nil {
			mismatches = append(mismatches, fmt.Sprintf("%s: missing from output (%v)", rel, err))
			return nil
		}

		if !bytes.Equal(wantBytes, gotBytes) {
			mismatches = append(mismatches, fmt.Sprintf("%s: content differs (%d golden bytes, %d output bytes)", rel, len(wantBytes), len(gotBytes)))
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("pipeline: walk golden directory: %w", err)
	}

	if len(mismatches) > 0 {
		sort.Strings(mismatches)
		return fmt.Errorf("%d mismatch(es):\n  %s", len(mismatches), joinLines(mismatches))
	}

	return nil
}

func joinLines(lines []string) string {
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n  " + l
	}

	return out
}
