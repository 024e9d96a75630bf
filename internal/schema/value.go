// Package schema provides the typed record model, the schema registry, and
// the schema-validated materialization checks (spec §4.4).
package schema

import (
	"encoding/json"
	"time"
)

// Kind identifies the tagged-sum representation of a record field value.
//
// A Record never stores a raw `any` — every value is mediated through this
// tagged sum so that null handling (spec §4.3 "Null policy") is explicit at
// every boundary instead of relying on Go's untyped nil.
type Kind int

const (
	// KindNull marks an absent value. Its serialized form depends on the
	// owning column's Type (see ColumnSpec and internal/canonical).
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindInstant
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindInstant:
		return "instant"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Value is the tagged-sum value type mediating every record field.
//
// Only the field matching Kind is meaningful; the others are zero. This
// mirrors the teacher's preference for small, explicit value objects over
// `interface{}` grab-bags (see internal/storage.APIKey).
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Inst  time.Time
	JSON  json.RawMessage
}

// Null returns the absent value.
func Null() Value { return Value{Kind: KindNull} }

// IsNull reports whether v represents an absent value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// StringValue builds a string value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// IntValue builds a 64-bit signed integer value.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// FloatValue builds a 64-bit float value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// BoolValue builds a boolean value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// InstantValue builds a UTC instant value. The time is normalized to UTC.
func InstantValue(t time.Time) Value { return Value{Kind: KindInstant, Inst: t.UTC()} }

// JSONValue builds a nested JSON-tree value from already-marshaled bytes.
func JSONValue(raw json.RawMessage) Value { return Value{Kind: KindJSON, JSON: raw} }

// Equal reports whether two values carry the same kind and content.
// Float comparisons are exact (bit-for-bit), matching the determinism
// requirement of spec §4.5 — callers that need tolerance-based comparison
// (e.g., QC reporting) must do so explicitly, not via Equal.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == other.Str
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindBool:
		return v.Bool == other.Bool
	case KindInstant:
		return v.Inst.Equal(other.Inst)
	case KindJSON:
		return string(v.JSON) == string(other.JSON)
	default:
		return false
	}
}
