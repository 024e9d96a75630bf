package extract

import (
	"errors"

	"github.com/bioetl-io/bioetl/internal/httpclient"
	"github.com/bioetl-io/bioetl/internal/schema"
)

// FallbackSourceSystem is the source_system marker a fallback record is
// stamped with (spec §8 S1: "fallback with source_system=primary_fallback").
const FallbackSourceSystem = "primary_fallback"

// Columns written on every fallback record (spec §3 "Fallback Record"). All
// other schema columns are left unset and render as their type's null
// representation once the record is Projected against the schema.
const (
	ColSourceSystem = "source_system"
	ColErrorCode    = "error_code"
	ColHTTPStatus   = "http_status"
	ColAttempt      = "attempt"
	ColRetryAfter   = "retry_after_seconds"
	ColRunID        = "run_id"
)

// BuildFallbackRecord manufactures the placeholder record spec §3 describes
// for an identifier that could not be resolved within the retry budget: the
// primary identifier, the primary_fallback source marker, an error
// classification, the final HTTP status observed (if any), the final
// attempt number, the retry-after hint (if any), and the run identifier.
func BuildFallbackRecord(identifierField, identifier, runID string, err error) *schema.Record {
	rec := schema.NewRecord()
	rec.Set(identifierField, schema.StringValue(identifier))
	rec.Set(ColSourceSystem, schema.StringValue(FallbackSourceSystem))
	rec.Set(ColRunID, schema.StringValue(runID))

	var fe *httpclient.FetchError
	if errors.As(err, &fe) {
		rec.Set(ColErrorCode, schema.StringValue(fe.Kind.String()))

		if fe.Status != 0 {
			rec.Set(ColHTTPStatus, schema.IntValue(int64(fe.Status)))
		}

		if fe.Attempt != 0 {
			rec.Set(ColAttempt, schema.IntValue(int64(fe.Attempt)))
		}

		if fe.RetryAfter > 0 {
			rec.Set(ColRetryAfter, schema.FloatValue(fe.RetryAfter.Seconds()))
		}

		return rec
	}

	rec.Set(ColErrorCode, schema.StringValue(httpclient.KindUnknown.String()))

	return rec
}

// IsFallbackEligible reports whether err represents a terminal,
// per-identifier failure that should be converted to a fallback record
// rather than failing the run (spec §4.2 "Fallback manufacturing"): retry
// exhaustion (which is how a persistent 5xx ends), circuit-open, timeout,
// or not-found.
func IsFallbackEligible(err error) bool {
	var fe *httpclient.FetchError
	if !errors.As(err, &fe) {
		return false
	}

	switch fe.Kind {
	case httpclient.KindExhausted, httpclient.KindCircuitOpen, httpclient.KindTimeout, httpclient.KindNotFound:
		return true
	default:
		return false
	}
}
