// Package normalize implements the deterministic, per-value normalization
// catalog and the multi-source merge engine of spec §4.3.
package normalize

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/bioetl-io/bioetl/internal/schema"
)

// Func is a pure, deterministic per-value normalization function. Catalog
// functions never carry state and never depend on anything but their input.
type Func func(schema.Value) schema.Value

var (
	identifierPattern = regexp.MustCompile(`^[A-Z][A-Z]+\d+$`)
	doiPattern        = regexp.MustCompile(`^10\.\d+/.+`)
	inchiPrefix       = "InChI="
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// catalog maps normalization-function names, as declared on a
// schema.ColumnSpec.Normalizers, to their implementation, so that Apply can
// resolve names with one map lookup.
var catalog = map[string]Func{
	"trim_collapse_whitespace": TrimCollapseWhitespace,
	"identifier":               Identifier,
	"chemical_structure":       ChemicalStructure,
	"numeric":                  Numeric,
	"datetime":                 Datetime,
	"boolean":                  Boolean,
}

// Apply runs the named catalog functions against val in declaration order,
// as spec §4.3 "Normalization catalog" requires ("applied in the order
// declared by a column's metadata").
func Apply(names []string, val schema.Value) schema.Value {
	for _, name := range names {
		fn, ok := catalog[name]
		if !ok {
			continue
		}

		val = fn(val)
	}

	return val
}

// TrimCollapseWhitespace trims outer whitespace, applies Unicode NFC
// normalization, and collapses interior whitespace runs to a single space.
// An empty result normalizes to null.
func TrimCollapseWhitespace(v schema.Value) schema.Value {
	if v.Kind != schema.KindString {
		return v
	}

	s := norm.NFC.String(v.Str)
	s = strings.TrimSpace(s)
	s = whitespaceRun.ReplaceAllString(s, " ")

	if s == "" {
		return schema.Null()
	}

	return schema.StringValue(s)
}

// Identifier trims, then uppercases values matching the ChEMBL-style
// identifier pattern ^[A-Z][A-Z]+\d+$ (case-insensitive match, canonical
// uppercase output), lowercases the domain part of DOI-like values
// (^10\.\d+/.+), and accepts bare numeric identifiers only when entirely
// digits.
func Identifier(v schema.Value) schema.Value {
	if v.Kind != schema.KindString {
		return v
	}

	s := strings.TrimSpace(v.Str)
	if s == "" {
		return schema.Null()
	}

	upper := strings.ToUpper(s)
	if identifierPattern.MatchString(upper) {
		return schema.StringValue(upper)
	}

	if doiPattern.MatchString(s) {
		return schema.StringValue(strings.ToLower(s))
	}

	if isAllDigits(s) {
		return schema.StringValue(s)
	}

	return schema.StringValue(s)
}

// ChemicalStructure trims and collapses whitespace in SMILES/InChI strings.
// Values that look like InChI (don't match the bare-SMILES heuristic) but
// fail to start with "InChI=" are rejected to null, per spec §4.3.
func ChemicalStructure(v schema.Value) schema.Value {
	if v.Kind != schema.KindString {
		return v
	}

	s := strings.TrimSpace(v.Str)
	s = whitespaceRun.ReplaceAllString(s, " ")

	if s == "" {
		return schema.Null()
	}

	if strings.Contains(s, "/") && strings.HasPrefix(strings.ToUpper(s), "INCHI") && !strings.HasPrefix(s, inchiPrefix) {
		return schema.Null()
	}

	return schema.StringValue(s)
}

// Numeric coerces a value to a 64-bit float, treating NaN as null. Range
// checking against the schema happens in internal/schema.Validator, not
// here — the catalog only performs coercion.
func Numeric(v schema.Value) schema.Value {
	var f float64

	switch v.Kind {
	case schema.KindFloat:
		f = v.Float
	case schema.KindInt:
		f = float64(v.Int)
	case schema.KindString:
		return v // non-numeric strings are left for the schema validator to reject
	default:
		return v
	}

	if math.IsNaN(f) {
		return schema.Null()
	}

	return schema.FloatValue(f)
}

// Datetime coerces a timestamp value to UTC. Rendering as ISO-8601 with a
// trailing Z happens at emission time (internal/canonical), not here.
func Datetime(v schema.Value) schema.Value {
	if v.Kind != schema.KindInstant {
		return v
	}

	return schema.InstantValue(v.Inst.UTC())
}

var boolTrue = map[string]bool{"true": true}
var boolFalse = map[string]bool{"false": true}

// Boolean accepts the canonical set {true, false, "true", "false", 0, 1};
// everything else normalizes to null. The string forms are matched after
// trimming, without regard to case.
func Boolean(v schema.Value) schema.Value {
	switch v.Kind {
	case schema.KindBool:
		return v
	case schema.KindString:
		lower := strings.ToLower(strings.TrimSpace(v.Str))

		if boolTrue[lower] {
			return schema.BoolValue(true)
		}

		if boolFalse[lower] {
			return schema.BoolValue(false)
		}

		return schema.Null()
	case schema.KindInt:
		switch v.Int {
		case 0:
			return schema.BoolValue(false)
		case 1:
			return schema.BoolValue(true)
		default:
			return schema.Null()
		}
	default:
		return schema.Null()
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
