package schema

import (
	"fmt"
	"strings"
)

// FailureCase describes one validation failure discovered while checking a
// dataset (spec §4.4 "Evaluation mode").
type FailureCase struct {
	Column string
	Check  string
	Value  string
	RowIdx int
}

func (f FailureCase) String() string {
	return fmt.Sprintf("row %d, column %q: %s (value=%q)", f.RowIdx, f.Column, f.Check, f.Value)
}

// ValidationError aggregates every failure found across one dataset. The
// validator never stops at the first failure ("Lazy" evaluation mode) so
// that callers can fix every reported problem at once.
type ValidationError struct {
	Failures []FailureCase
	Cap      int
	Truncated bool
}

func (e *ValidationError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "validation failed: %d failure(s)", len(e.Failures))

	for i, f := range e.Failures {
		if i >= 10 {
			fmt.Fprintf(&b, "; ... %d more", len(e.Failures)-10)
			break
		}

		fmt.Fprintf(&b, "; %s", f)
	}

	if e.Truncated {
		b.WriteString(" (failing-value cap reached, additional failures suppressed)")
	}

	return b.String()
}

// Validator enforces a Schema's declared constraints against a Dataset
// (spec §4.4 "Validation surface").
type Validator struct {
	// FailureCap bounds how many failures one Validate call reports, across
	// all checks, to keep diagnostics bounded on pathological inputs. Zero
	// means unlimited.
	FailureCap int
}

// NewValidator returns a Validator with the default (unbounded) failure cap.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every per-column check and every cross-column predicate
// against ds, collecting all failures before returning. Returns nil if the
// dataset satisfies every constraint.
func (v *Validator) Validate(s *Schema, ds *Dataset) error {
	var failures []FailureCase

	seen := make(map[string]map[string]int, len(s.Columns)) // unique columns: value -> first row index

	for _, col := range s.Columns {
		if col.Unique {
			seen[col.Name] = make(map[string]int)
		}
	}

	for rowIdx, rec := range ds.Records {
		for _, col := range s.Columns {
			val, present := rec.Get(col.Name)
			if !present {
				val = Null()
			}

			failures = append(failures, v.checkColumn(col, val, rowIdx)...)

			if col.Unique && val.Kind != KindNull {
				key := renderForUniqueness(val)

				if firstIdx, dup := seen[col.Name][key]; dup {
					failures = append(failures, FailureCase{
						Column: col.Name,
						Check:  fmt.Sprintf("duplicate value (first seen at row %d)", firstIdx),
						Value:  key,
						RowIdx: rowIdx,
					})
				} else {
					seen[col.Name][key] = rowIdx
				}
			}
		}

		for _, check := range s.CrossColumnChecks {
			if err := check.Check(rec); err != nil {
				failures = append(failures, FailureCase{
					Column: "*",
					Check:  fmt.Sprintf("%s: %s", check.Name, err.Error()),
					RowIdx: rowIdx,
				})
			}
		}
	}

	if len(failures) == 0 {
		return nil
	}

	truncated := false
	if v.FailureCap > 0 && len(failures) > v.FailureCap {
		failures = failures[:v.FailureCap]
		truncated = true
	}

	return &ValidationError{Failures: failures, Cap: v.FailureCap, Truncated: truncated}
}

// ValidateColumnOrder enforces spec §4.4 "Column order enforcement": the
// dataset's columns must equal the schema's column order element-wise. This
// runs immediately before Load and is distinct from per-value Validate.
func ValidateColumnOrder(s *Schema, actual []string) error {
	expected := s.ColumnNames()

	if len(actual) != len(expected) {
		return fmt.Errorf("%w: expected %d columns, got %d", ErrColumnOrderMismatch, len(expected), len(actual))
	}

	for i := range expected {
		if actual[i] != expected[i] {
			return fmt.Errorf("%w: position %d expected %q, got %q", ErrColumnOrderMismatch, i, expected[i], actual[i])
		}
	}

	return nil
}

func (v *Validator) checkColumn(col ColumnSpec, val Value, rowIdx int) []FailureCase {
	var failures []FailureCase

	if val.Kind == KindNull {
		if !col.Null {
			failures = append(failures, FailureCase{Column: col.Name, Check: "value is required (not nullable)", RowIdx: rowIdx})
		}

		return failures
	}

	if !kindMatchesType(val.Kind, col.Type) {
		failures = append(failures, FailureCase{
			Column: col.Name,
			Check:  fmt.Sprintf("expected type %s, got %s", col.Type, val.Kind),
			Value:  renderForUniqueness(val),
			RowIdx: rowIdx,
		})

		return failures
	}

	if col.Range != nil {
		f := numericValue(val)

		if col.Range.Min != nil && f < *col.Range.Min {
			failures = append(failures, FailureCase{Column: col.Name, Check: fmt.Sprintf("below minimum %v", *col.Range.Min), Value: renderForUniqueness(val), RowIdx: rowIdx})
		}

		if col.Range.Max != nil && f > *col.Range.Max {
			failures = append(failures, FailureCase{Column: col.Name, Check: fmt.Sprintf("above maximum %v", *col.Range.Max), Value: renderForUniqueness(val), RowIdx: rowIdx})
		}
	}

	if col.Pattern != nil && col.Type == ColumnString {
		if !col.Pattern.MatchString(val.Str) {
			failures = append(failures, FailureCase{Column: col.Name, Check: fmt.Sprintf("does not match pattern %s", col.Pattern.String()), Value: val.Str, RowIdx: rowIdx})
		}
	}

	if len(col.Enum) > 0 {
		ok := false
		rendered := renderForUniqueness(val)

		for _, allowed := range col.Enum {
			if allowed == rendered {
				ok = true
				break
			}
		}

		if !ok {
			failures = append(failures, FailureCase{Column: col.Name, Check: fmt.Sprintf("not in allowed set %v", col.Enum), Value: rendered, RowIdx: rowIdx})
		}
	}

	return failures
}

func kindMatchesType(k Kind, t ColumnType) bool {
	switch t {
	case ColumnString:
		return k == KindString
	case ColumnInt:
		return k == KindInt
	case ColumnFloat:
		return k == KindFloat || k == KindInt
	case ColumnBool:
		return k == KindBool
	case ColumnInstant:
		return k == KindInstant
	case ColumnJSON:
		return k == KindJSON
	default:
		return false
	}
}

func numericValue(v Value) float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}

	return v.Float
}

func renderForUniqueness(v Value) string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInstant:
		return v.Inst.Format("2006-01-02T15:04:05Z")
	case KindJSON:
		return string(v.JSON)
	default:
		return ""
	}
}
