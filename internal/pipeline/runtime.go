// Package pipeline wires together the resilient extraction layer, the
// normalize/merge engine, schema validation, and the atomic writer into
// the linear Extract -> Normalize -> Validate -> Load run spec §4.7
// describes, carrying one runctx.Context through every stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bioetl-io/bioetl/internal/config"
	"github.com/bioetl-io/bioetl/internal/correlation"
	"github.com/bioetl-io/bioetl/internal/extract"
	"github.com/bioetl-io/bioetl/internal/httpcache"
	"github.com/bioetl-io/bioetl/internal/httpclient"
	"github.com/bioetl-io/bioetl/internal/ledger"
	"github.com/bioetl-io/bioetl/internal/metrics"
	"github.com/bioetl-io/bioetl/internal/normalize"
	"github.com/bioetl-io/bioetl/internal/runctx"
	"github.com/bioetl-io/bioetl/internal/schema"
	"github.com/bioetl-io/bioetl/internal/sources"
	"github.com/bioetl-io/bioetl/internal/writer"
)

// defaultHardTimeout bounds each source's extraction task (spec §4.2
// "per-source hard timeout") when the configuration does not override it.
const defaultHardTimeout = 5 * time.Minute

// Options bundles everything one Run needs: the resolved configuration, the
// schema registry it validates against, the primary source's seed
// identifier list (acquiring that list is outside this package's
// responsibility — see spec §1 "Out of scope": CLI argument parsing and
// filesystem layout conventions belong to the caller), and the optional
// collaborators (metrics, ledger) a run instruments itself with.
type Options struct {
	Config          *config.Config
	Schemas         *schema.Registry
	PrimaryIdentifiers []string

	PipelineVersion string
	DepManifestHash string
	CommitSHA       string

	Logger  *slog.Logger
	Metrics *metrics.Registry
	Ledger  *ledger.Store
}

// Result reports one run's outcome.
type Result struct {
	RunID     string
	Release   string
	RowCount  int
	Manifest  *writer.Manifest
	Checksums map[string]string
	Warnings  []string
}

// Runtime executes one pipeline run per Options.
type Runtime struct {
	opts Options
	log  *slog.Logger
}

// NewRuntime builds a Runtime. A nil Options.Logger falls back to
// slog.Default.
func NewRuntime(opts Options) *Runtime {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Runtime{opts: opts, log: log}
}

// Run executes Extract, Normalize, Validate, and (unless DryRun is set)
// Load, in that order, returning the committed artifact set's checksums or
// the first hard failure encountered.
func (rt *Runtime) Run(ctx context.Context) (*Result, error) {
	cfg := rt.opts.Config
	start := time.Now()

	registry, err := cfg.SourceRegistry()
	if err != nil {
		return nil, fmt.Errorf("pipeline: build source registry: %w", err)
	}

	primarySpec, ok := cfg.Sources[registry.Primary.Name]
	if !ok {
		return nil, fmt.Errorf("pipeline: no configuration entry for primary source %q", registry.Primary.Name)
	}

	configHash, err := cfg.Hash()
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	fingerprint := runctx.Fingerprint(rt.opts.PipelineVersion, rt.opts.DepManifestHash)
	runCtx := runctx.New("", configHash, fingerprint, registry.Primary.BaseURL, start)

	rt.recordStart(ctx, runCtx)

	primarySchema, err := rt.opts.Schemas.Get(registry.Primary.Schema)
	if err != nil {
		rt.recordFailure(ctx, runCtx, err)
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	sourceConfigs := buildSourceConfigs(registry)

	release, client, l2, err := rt.buildClient(ctx, registry, sourceConfigs)
	if err != nil {
		rt.recordFailure(ctx, runCtx, err)
		return nil, err
	}

	if l2 != nil {
		defer func() {
			if saveErr := l2.Purge(release); saveErr != nil {
				rt.log.Warn("pipeline: l2 cache purge failed", slog.String("error", saveErr.Error()))
			}
		}()
	}

	if err := runCtx.ObserveRelease(release); err != nil {
		rt.recordFailure(ctx, runCtx, err)
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	orchestrator := extract.NewOrchestrator(client, rt.log, 0)

	extractStart := time.Now()

	identifiers := applySampling(rt.opts.PrimaryIdentifiers, cfg.Limit, cfg.Sample, cfg.SampleSeed)

	primaryResults := orchestrator.ExtractAll(ctx, []extract.PlanEntry{{
		Source:      registry.Primary,
		Identifiers: identifiers,
		Explode:     primarySpec.ExplodeFields(),
	}}, runCtx.RunID, defaultHardTimeout)

	primaryResult := primaryResults[0]
	rt.observeExtract(primaryResult)

	var warnings []string
	if primaryResult.Warning != "" {
		warnings = append(warnings, primaryResult.Warning)
	}

	enrichmentPlan := make([]extract.PlanEntry, 0, len(registry.Enrichments))

	for _, src := range registry.Enrichments {
		spec := cfg.Sources[src.Name]
		ids := enrichmentIdentifiers(primaryResult.Dataset, src.JoinKey)

		enrichmentPlan = append(enrichmentPlan, extract.PlanEntry{
			Source:      src,
			Identifiers: ids,
			Explode:     spec.ExplodeFields(),
		})
	}

	enrichmentResults := orchestrator.ExtractAll(ctx, enrichmentPlan, runCtx.RunID, defaultHardTimeout)

	for _, result := range enrichmentResults {
		rt.observeExtract(result)

		if result.Warning != "" {
			warnings = append(warnings, result.Warning)
		}
	}

	rt.observeStage("extract", time.Since(extractStart))

	if cfg.StrictEnrichment {
		if err := CheckStrictEnrichment(registry, enrichmentResults); err != nil {
			rt.recordFailure(ctx, runCtx, err)
			return nil, err
		}
	}

	normalizeStart := time.Now()

	precedence, whitelist := BuildMergePolicy(registry)
	merger := normalize.NewMerger(registry.Primary.Name, precedence, whitelist)

	merged, err := MergeDatasets(merger, registry, primaryResult.Dataset, enrichmentResults)
	if err != nil {
		rt.recordFailure(ctx, runCtx, err)
		return nil, err
	}

	SortDataset(primarySchema, merged)

	if err := StampHashes(primarySchema, merged); err != nil {
		rt.recordFailure(ctx, runCtx, err)
		return nil, err
	}

	rt.observeStage("normalize", time.Since(normalizeStart))

	validateStart := time.Now()

	validator := schema.NewValidator()

	var failures []schema.FailureCase

	if valErr := validator.Validate(primarySchema, merged); valErr != nil {
		var ve *schema.ValidationError
		if errors.As(valErr, &ve) {
			failures = ve.Failures
		}
	}

	if err := schema.ValidateColumnOrder(primarySchema, actualColumns(merged, primarySchema)); err != nil {
		rt.recordFailure(ctx, runCtx, err)
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	rt.observeStage("validate", time.Since(validateStart))

	if cfg.DryRun {
		rt.recordSuccess(ctx, runCtx, merged.Len(), nil)

		if rt.opts.Metrics != nil {
			rt.opts.Metrics.RecordRun("dry_run")
		}

		return &Result{RunID: runCtx.RunID, Release: release, RowCount: merged.Len(), Warnings: warnings}, nil
	}

	loadStart := time.Now()

	var correlationBytes []byte

	if cfg.Postprocess.Correlation.Enabled {
		correlationBytes, err = correlation.RenderCSV(correlation.Generate(primarySchema, merged))
		if err != nil {
			rt.recordFailure(ctx, runCtx, err)
			return nil, fmt.Errorf("pipeline: render correlation report: %w", err)
		}
	}

	format := OutputFormat(cfg.Output.Format)
	names := BuildArtifactNames(cfg.Output.Table, format, start, cfg.Output.Extended, cfg.Postprocess.Correlation.Enabled)

	w := writer.New(cfg.Output.Directory, runCtx.RunID)

	var meta *writer.Metadata
	if cfg.Output.Extended {
		meta = writer.BuildMetadata(
			primarySchema, merged,
			rt.opts.PipelineVersion, registry.Primary.Name, release, rt.opts.CommitSHA,
			start, nil, nil, nil,
		)
	}

	result, err := writer.CommitArtifactSet(w, writer.ArtifactSetInput{
		RunID:                     runCtx.RunID,
		Schema:                    primarySchema,
		Data:                      merged,
		Format:                    format,
		DatasetFilename:           names.Dataset,
		QualityReportFilename:    names.Quality,
		CorrelationReportFilename: names.Correlation,
		MetadataFilename:         names.Metadata,
		ManifestFilename:         names.Manifest,
		ValidationFailures:       failures,
		CorrelationReport:        correlationBytes,
		Extended:                 cfg.Output.Extended,
		Metadata:                 meta,
	})
	if err != nil {
		rt.recordFailure(ctx, runCtx, err)
		return nil, fmt.Errorf("pipeline: commit artifact set: %w", err)
	}

	rt.observeStage("load", time.Since(loadStart))
	rt.recordSuccess(ctx, runCtx, merged.Len(), result.Checksums)

	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordRun("success")
	}

	return &Result{
		RunID:     runCtx.RunID,
		Release:   release,
		RowCount:  merged.Len(),
		Manifest:  result.Manifest,
		Checksums: result.Checksums,
		Warnings:  warnings,
	}, nil
}

// buildClient resolves the primary source's release with a throwaway
// bootstrap client (whose cache keys would be wrong — the Client bakes the
// release into CacheKey at construction, and there is no setter for it
// after the fact), then builds the run's real, correctly-keyed Client.
func (rt *Runtime) buildClient(ctx context.Context, registry sources.Registry, sourceConfigs map[string]httpclient.SourceConfig) (string, *httpclient.Client, *httpcache.Store, error) {
	cfg := rt.opts.Config

	bootstrap := httpclient.NewClient("", sourceConfigs, rt.log)

	release, err := ProbeRelease(ctx, bootstrap, registry.Primary)
	if err != nil {
		return "", nil, nil, fmt.Errorf("pipeline: probe primary release: %w", err)
	}

	var opts []httpclient.ClientOption

	if cfg.Cache.L1Capacity > 0 {
		opts = append(opts, httpclient.WithL1Cache(cfg.Cache.L1Capacity, cfg.Cache.L1TTL))
	}

	var l2 *httpcache.Store

	if cfg.Cache.Directory != "" {
		l2, err = httpcache.Open(cfg.Cache.Directory, cfg.Cache.DefaultTTL, rt.log)
		if err != nil {
			return "", nil, nil, fmt.Errorf("pipeline: open l2 cache: %w", err)
		}

		opts = append(opts, httpclient.WithL2Cache(l2))
	}

	client := httpclient.NewClient(release, sourceConfigs, rt.log, opts...)

	return release, client, l2, nil
}

func (rt *Runtime) observeExtract(result extract.SourceResult) {
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.ObserveExtract(result.Source, result.Metrics)
	}
}

func (rt *Runtime) observeStage(stage string, d time.Duration) {
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.ObserveStageDuration(stage, d)
	}
}

func (rt *Runtime) recordStart(ctx context.Context, runCtx *runctx.Context) {
	if rt.opts.Ledger == nil {
		return
	}

	rt.opts.Ledger.RecordStart(ctx, ledger.Run{
		RunID:      runCtx.RunID,
		ConfigHash: runCtx.ConfigHash,
		CommitSHA:  rt.opts.CommitSHA,
		StartedAt:  runCtx.StartedAt,
	})
}

func (rt *Runtime) recordSuccess(ctx context.Context, runCtx *runctx.Context, rowCount int, checksums map[string]string) {
	if rt.opts.Ledger == nil {
		return
	}

	finishedAt := time.Now()

	rt.opts.Ledger.RecordFinish(ctx, ledger.Run{
		RunID:      runCtx.RunID,
		Release:    runCtx.Release(),
		ConfigHash: runCtx.ConfigHash,
		CommitSHA:  rt.opts.CommitSHA,
		StartedAt:  runCtx.StartedAt,
		FinishedAt: &finishedAt,
		Status:     ledger.StatusSucceeded,
		RowCount:   rowCount,
		Checksums:  checksums,
	})
}

func (rt *Runtime) recordFailure(ctx context.Context, runCtx *runctx.Context, cause error) {
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordRun("failure")
	}

	if rt.opts.Ledger == nil {
		return
	}

	finishedAt := time.Now()

	rt.opts.Ledger.RecordFinish(ctx, ledger.Run{
		RunID:       runCtx.RunID,
		Release:     runCtx.Release(),
		ConfigHash:  runCtx.ConfigHash,
		CommitSHA:   rt.opts.CommitSHA,
		StartedAt:   runCtx.StartedAt,
		FinishedAt:  &finishedAt,
		Status:      ledger.StatusFailed,
		ErrorDetail: cause.Error(),
	})
}

// buildSourceConfigs projects every configured source's resilience knobs
// into the map httpclient.NewClient expects, keyed by source name.
func buildSourceConfigs(registry sources.Registry) map[string]httpclient.SourceConfig {
	all := registry.All()

	configs := make(map[string]httpclient.SourceConfig, len(all))
	for _, src := range all {
		configs[src.Name] = src.Resilience
	}

	return configs
}

// actualColumns derives the dataset's observed column order from its first
// record (every row of a normalized dataset carries the same column set),
// falling back to the schema's own declared order for an empty dataset.
func actualColumns(ds *schema.Dataset, s *schema.Schema) []string {
	if ds.Len() == 0 {
		return s.ColumnNames()
	}

	return ds.Records[0].Fields()
}
