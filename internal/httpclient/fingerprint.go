package httpclient

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// CacheKey computes the composite cache key of spec §4.1: a deterministic,
// parameter-order-insensitive hash of source name, release tag, and request
// fingerprint (method + URL + sorted params + body).
func CacheKey(source, release, method, url string, params map[string]string, body []byte) string {
	h := sha256.New()

	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(release))
	h.Write([]byte{0})
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(sortedParams(params)))
	h.Write([]byte{0})
	h.Write(body)

	return hex.EncodeToString(h.Sum(nil))
}

// sortedParams renders params as "k1=v1&k2=v2..." with keys sorted
// lexicographically, so callers that build the same logical request with
// parameters in a different map-iteration order hash identically.
func sortedParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}

		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}

	return b.String()
}
