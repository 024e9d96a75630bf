// Package correlation implements the optional correlation report post-
// processing step (spec §4.7): a Pearson correlation matrix over every pair
// of numeric columns in a persisted dataset. Disabled by default, because
// its floating-point output is not guaranteed bit-exact across
// implementations (spec §4.7) — callers gate it on
// postprocess.correlation.enabled and never run it as part of the
// deterministic Extract→Normalize→Validate→Load path itself.
package correlation

// Pair is one row of the correlation report: the Pearson correlation
// coefficient between two numeric columns, computed over every record where
// both columns hold a non-null value.
type Pair struct {
	ColumnA  string
	ColumnB  string
	PearsonR float64
	N        int
}
