// Package api provides the optional read-only operator HTTP surface.
package api

import (
	"time"

	"github.com/bioetl-io/bioetl/internal/httpclient"
)

// HealthStatus is the GET /healthz response body: server uptime plus the
// resilience state of every configured source (breaker state, outage
// duration).
type HealthStatus struct {
	Status    string         `json:"status"`
	UptimeSec float64        `json:"uptime_seconds"`
	Sources   []SourceHealth `json:"sources"`
}

// SourceHealth reports one source's circuit breaker and outage state, read
// from the httpclient.Client that backs the pipeline's extraction stage.
type SourceHealth struct {
	Name          string  `json:"name"`
	BreakerState  string  `json:"breaker_state"`
	OutageActive  bool    `json:"outage_active"`
	OutageSeconds float64 `json:"outage_seconds,omitempty"`
}

// sourceHealthFrom builds a SourceHealth snapshot for one source from a
// shared httpclient.Client.
func sourceHealthFrom(client *httpclient.Client, name string) SourceHealth {
	down := client.Outage().IsDown(name)

	h := SourceHealth{
		Name:         name,
		BreakerState: client.BreakerState(name).String(),
		OutageActive: down,
	}

	if down {
		h.OutageSeconds = client.Outage().Since(name).Seconds()
	}

	return h
}

// RunResponse is the GET /runs/{run_id} response body: the persisted
// run_history row for a completed (or in-flight) pipeline run.
type RunResponse struct {
	RunID       string            `json:"run_id"`
	Release     string            `json:"release"`
	ConfigHash  string            `json:"config_hash"`
	CommitSHA   string            `json:"commit_sha"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	Status      string            `json:"status"`
	RowCount    int               `json:"row_count"`
	Checksums   map[string]string `json:"checksums"`
	ErrorDetail string            `json:"error_detail,omitempty"`
}
