package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bioetl-io/bioetl/internal/httpclient"
	"github.com/bioetl-io/bioetl/internal/schema"
	"github.com/bioetl-io/bioetl/internal/sources"
)

// SourceResult is one source's extraction outcome: the flat dataset it
// produced (including any fallback records), its metrics snapshot, and a
// non-nil Warning when the source's hard timeout or a configuration problem
// forced an early, empty contribution (spec §4.2 "Parallel sources": "on
// per-source timeout, that source contributes an empty dataset and a
// warning, not a run failure").
type SourceResult struct {
	Source  string
	Dataset *schema.Dataset
	Metrics Metrics
	Warning string
}

// Orchestrator runs extraction for one or more sources against a shared
// resilient HTTP client.
type Orchestrator struct {
	Client *httpclient.Client
	Log    *slog.Logger

	// BatchWorkers bounds how many batches of a single source are
	// in flight at once (spec §4.2 "A bounded task pool (configurable
	// workers) caps concurrency").
	BatchWorkers int
}

// NewOrchestrator builds an Orchestrator. batchWorkers <= 0 defaults to 4.
func NewOrchestrator(client *httpclient.Client, log *slog.Logger, batchWorkers int) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}

	if batchWorkers <= 0 {
		batchWorkers = 4
	}

	return &Orchestrator{Client: client, Log: log, BatchWorkers: batchWorkers}
}

// ExtractSource turns identifiers into a flat dataset for one source,
// batching requests, paginating each batch, exploding declared nested
// arrays to long format, and manufacturing fallback records for
// identifiers the source could not resolve (spec §4.2).
//
// runID and an optional per-call timeout come from the run context; ctx
// should already carry the source's hard timeout via context.WithTimeout
// when the caller wants the "empty dataset plus warning" behavior for a
// source that never responds at all.
func (o *Orchestrator) ExtractSource(ctx context.Context, src sources.Source, identifiers []string, explode []ExplodeField, runID string) SourceResult {
	metrics := &Metrics{}

	batches := sources.SplitBatches(identifiers, src.BaseURL, src.FilterParam, src.BatchMaxCount, src.EffectiveMaxURLLength())

	dataset := schema.NewDataset()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan sources.Batch, len(batches))
	)

	for _, b := range batches {
		jobs <- b
	}
	close(jobs)

	for w := 0; w < o.BatchWorkers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for batch := range jobs {
				select {
				case <-ctx.Done():
					o.fallbackBatch(batch, src, runID, ctx.Err(), metrics, dataset, &mu)
					continue
				default:
				}

				records, err := o.fetchBatch(ctx, src, batch, explode, metrics)
				if err != nil {
					o.fallbackBatch(batch, src, runID, err, metrics, dataset, &mu)
					continue
				}

				mu.Lock()
				for _, r := range records {
					dataset.Append(r)
				}
				mu.Unlock()

				metrics.addSuccess(int64(len(batch.Identifiers)))
			}
		}()
	}

	wg.Wait()

	result := SourceResult{Source: src.Name, Dataset: dataset, Metrics: metrics.Snapshot()}

	if ctx.Err() != nil {
		result.Warning = fmt.Sprintf("source %q hit its hard timeout before all batches completed: %v", src.Name, ctx.Err())
		o.Log.Warn("extract: source timeout", slog.String("source", src.Name), slog.String("error", ctx.Err().Error()))
	}

	return result
}

// fallbackBatch manufactures one fallback record per identifier in batch
// and records the error counter, used whenever a batch could not be
// resolved at all (spec §4.2 "Fallback manufacturing").
func (o *Orchestrator) fallbackBatch(batch sources.Batch, src sources.Source, runID string, err error, metrics *Metrics, dataset *schema.Dataset, mu *sync.Mutex) {
	metrics.addFallback(int64(len(batch.Identifiers)))
	metrics.addError(1)

	level := slog.LevelWarn
	if !IsFallbackEligible(err) {
		// Not one of IsFallbackEligible's kinds (retry exhaustion,
		// circuit-open, timeout, not-found) — still converted to a
		// fallback record per the "non-recoverable per-identifier failures
		// are converted to fallback records" error-handling rule, but
		// logged louder since it may indicate a request-shaping bug.
		level = slog.LevelError
	}

	o.Log.Log(context.Background(), level, "extract: batch failed, manufacturing fallback records",
		slog.String("source", src.Name), slog.Int("identifiers", len(batch.Identifiers)), slog.String("error", err.Error()))

	mu.Lock()
	defer mu.Unlock()

	for _, id := range batch.Identifiers {
		dataset.Append(BuildFallbackRecord(src.IdentifierField, id, runID, err))
	}
}

// fetchBatch fetches and fully paginates one batch, returning every
// resulting record (post-explosion). A non-nil error here means the batch
// as a whole failed and the caller should fall back every identifier in it.
func (o *Orchestrator) fetchBatch(ctx context.Context, src sources.Source, batch sources.Batch, explode []ExplodeField, metrics *Metrics) ([]*schema.Record, error) {
	var (
		records []*schema.Record
		offset  = 0
		cursor  *string
	)

	for {
		reqURL, method, body, headers := buildBatchRequest(src, batch, offset, cursor)

		resp, err := o.Client.Fetch(ctx, httpclient.Request{
			Source: src.Name, Method: method, URL: reqURL, Body: body, Headers: headers,
		})
		if err != nil {
			return nil, err
		}

		metrics.addAPICall()

		if resp.FromCache {
			metrics.addCacheHit()
		}

		rows, err := decodeBatchRows(resp.Body, src.ListField)
		if err != nil {
			return nil, &httpclient.FetchError{Kind: httpclient.KindParse, Err: err}
		}

		for _, raw := range rows {
			rec, explodedChildren, err := o.explodeAndFlatten(raw, src, explode)
			if err != nil {
				return nil, &httpclient.FetchError{Kind: httpclient.KindParse, Err: err}
			}

			records = append(records, rec)
			records = append(records, explodedChildren...)
		}

		switch src.Pagination {
		case sources.PaginationOffset:
			meta, err := sources.ParsePageMeta(resp.Body)
			if err != nil {
				return nil, &httpclient.FetchError{Kind: httpclient.KindParse, Err: err}
			}

			if meta.Done() {
				return records, nil
			}

			offset = *meta.Next
		case sources.PaginationCursor:
			next, err := sources.ParseCursor(resp.Body)
			if err != nil {
				return nil, &httpclient.FetchError{Kind: httpclient.KindParse, Err: err}
			}

			if next == nil {
				return records, nil
			}

			cursor = next
		default:
			return records, nil
		}
	}
}

func (o *Orchestrator) explodeAndFlatten(raw map[string]any, src sources.Source, explode []ExplodeField) (*schema.Record, []*schema.Record, error) {
	identifier, _ := raw[src.IdentifierField].(string)

	if len(explode) == 0 {
		rec, err := FlattenRow(raw)
		return rec, nil, err
	}

	parent, children, err := ExplodeNested(raw, explode, src.IdentifierField, identifier)
	if err != nil {
		return nil, nil, err
	}

	rec, err := FlattenRow(parent)
	if err != nil {
		return nil, nil, err
	}

	return rec, children, nil
}

// buildBatchRequest renders the URL/method/body/headers quadruple for one
// page of one batch, honoring the batch's method-override decision (spec
// §4.2 "URL-length override": a POST carrying X-HTTP-Method-Override: GET
// and the __in filter in the body) and the source's pagination mechanism.
func buildBatchRequest(src sources.Source, batch sources.Batch, offset int, cursor *string) (reqURL, method string, body []byte, headers map[string]string) {
	values := url.Values{}

	if src.PageLimit > 0 {
		values.Set("limit", strconv.Itoa(src.PageLimit))
	}

	switch src.Pagination {
	case sources.PaginationOffset:
		values.Set("offset", strconv.Itoa(offset))
	case sources.PaginationCursor:
		if cursor != nil {
			values.Set("cursor", *cursor)
		}
	}

	if batch.UseMethodOverridePOST {
		return src.BaseURL + "?" + values.Encode(),
			http.MethodPost,
			sources.MethodOverrideBody(src.FilterParam, batch.Identifiers),
			map[string]string{sources.MethodOverrideHeader: http.MethodGet}
	}

	values.Set(src.FilterParam, strings.Join(batch.Identifiers, ","))

	return src.BaseURL + "?" + values.Encode(), http.MethodGet, nil, nil
}

func decodeBatchRows(body []byte, listField string) ([]map[string]any, error) {
	if listField == "" {
		return DecodeRows(body)
	}

	return DecodeEnvelope(body, listField)
}

// PlanEntry pairs one source with the identifiers to fetch from it and the
// nested-array fields it must explode.
type PlanEntry struct {
	Source      sources.Source
	Identifiers []string
	Explode     []ExplodeField
}

// ExtractAll runs every entry in plan as an independent task (spec §4.2
// "Parallel sources": "each enrichment source runs in its own task; tasks
// are independent and may fail individually without failing the run").
// hardTimeout, when non-zero, bounds each source's own task so a single
// unresponsive source degrades to an empty dataset plus a warning instead
// of blocking the run.
func (o *Orchestrator) ExtractAll(ctx context.Context, plan []PlanEntry, runID string, hardTimeout time.Duration) []SourceResult {
	results := make([]SourceResult, len(plan))

	var wg sync.WaitGroup

	for i, entry := range plan {
		wg.Add(1)

		go func(i int, entry PlanEntry) {
			defer wg.Done()

			sourceCtx, cancel := WithHardTimeout(ctx, hardTimeout)
			defer cancel()

			results[i] = o.ExtractSource(sourceCtx, entry.Source, entry.Identifiers, entry.Explode, runID)
		}(i, entry)
	}

	wg.Wait()

	return results
}

// WithHardTimeout returns a context bounded by d, used to implement
// spec §4.2's per-source hard timeout ("contribute an empty dataset and a
// warning, not a run failure"). The caller is responsible for invoking the
// returned cancel function.
func WithHardTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}

	return context.WithTimeout(parent, d)
}
