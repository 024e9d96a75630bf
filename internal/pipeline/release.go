package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bioetl-io/bioetl/internal/httpclient"
	"github.com/bioetl-io/bioetl/internal/sources"
)

// releaseFields lists the status-document keys, in priority order, that a
// source's status endpoint conventionally reports its release version
// under (spec §6's source classes use several different wire formats for
// this, e.g. ChEMBL's "chembl_db_version" vs. a generic "version").
var releaseFields = []string{"release", "version", "chembl_db_version", "db_version"}

// ProbeRelease fetches src's status endpoint once and extracts the release
// version string (spec §3 "capture /status ... once for the primary
// source, record the returned release version"). An empty release is not
// an error by itself — runctx.ObserveRelease tolerates "" as "no probe
// result yet" — but a source that never returns any of releaseFields is
// reported so callers can decide whether that is fatal.
func ProbeRelease(ctx context.Context, client *httpclient.Client, src sources.Source) (string, error) {
	resp, err := client.Fetch(ctx, httpclient.Request{
		Source: src.Name,
		Method: "GET",
		URL:    src.BaseURL + src.EffectiveStatusPath(),
	})
	if err != nil {
		return "", fmt.Errorf("pipeline: probe release for %q: %w", src.Name, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return "", fmt.Errorf("pipeline: probe release for %q: decode status document: %w", src.Name, err)
	}

	for _, field := range releaseFields {
		raw, ok := doc[field]
		if !ok {
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s, nil
		}

		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String(), nil
		}
	}

	return "", fmt.Errorf("pipeline: status document for %q carries none of %v", src.Name, releaseFields)
}
