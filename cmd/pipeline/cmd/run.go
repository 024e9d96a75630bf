package cmd

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bioetl-io/bioetl/internal/api"
	"github.com/bioetl-io/bioetl/internal/api/middleware"
	"github.com/bioetl-io/bioetl/internal/config"
	"github.com/bioetl-io/bioetl/internal/ledger"
	"github.com/bioetl-io/bioetl/internal/metrics"
	"github.com/bioetl-io/bioetl/internal/pipeline"
	"github.com/bioetl-io/bioetl/internal/schema"
	"github.com/bioetl-io/bioetl/internal/storage"
)

var (
	flagLimit             int
	flagSample            float64
	flagSampleSeed        int64
	flagGolden            string
	flagDryRun            bool
	flagFailOnSchemaDrift bool
	flagStrictEnrichment  bool
	flagIDsFile           string
	flagServe             bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one Extract -> Normalize -> Validate -> Load pipeline run",
	Long: `run resolves configuration, extracts the configured primary and
enrichment sources, normalizes and merges them, validates the result
against the registered schema, and commits a checksummed artifact set
(spec §4.7 "Pipeline runtime").

--ids-file names a newline-delimited file of primary-source identifiers
to seed the run with; acquiring that list is explicitly a caller concern
(internal/pipeline.Options.PrimaryIdentifiers is supplied, not derived) —
blank lines and lines starting with # are ignored.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&flagLimit, "limit", 0, "cap the number of primary identifiers processed (0 = no limit)")
	runCmd.Flags().Float64Var(&flagSample, "sample", 1.0, "fraction of primary identifiers to sample (0 < sample < 1 samples; 0 or 1 keeps all)")
	runCmd.Flags().Int64Var(&flagSampleSeed, "sample-seed", 0, "seed for deterministic --sample selection")
	runCmd.Flags().StringVar(&flagGolden, "golden", "", "compare committed artifacts bit-exactly against this reference directory")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "run Extract+Normalize+Validate, skip Load")
	runCmd.Flags().BoolVar(&flagFailOnSchemaDrift, "fail-on-schema-drift", false, "elevate schema-version-major mismatch to a hard error")
	runCmd.Flags().BoolVar(&flagStrictEnrichment, "strict-enrichment", false, "reject unexpected fields from enrichment sources")
	runCmd.Flags().StringVar(&flagIDsFile, "ids-file", "", "newline-delimited primary identifier list (required unless the profile provides one)")
	runCmd.Flags().BoolVar(&flagServe, "serve", false, "after the run completes, start the read-only operator HTTP surface and block")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath, cfgOverrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		os.Exit(exitConfigError)
	}

	applyRunFlagOverrides(cmd, cfg)

	logger := buildLogger(cfg.Log)

	ids, err := loadPrimaryIdentifiers(flagIDsFile)
	if err != nil {
		return fmt.Errorf("pipeline: load --ids-file: %w", err)
	}

	promReg := prometheus.NewRegistry()
	metricsRegistry := metrics.NewRegistry(promReg)

	ledgerStore, closeLedger, err := buildLedgerStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("pipeline: ledger: %w", err)
	}
	if closeLedger != nil {
		defer closeLedger()
	}

	opts := pipeline.Options{
		Config:             cfg,
		Schemas:            buildSchemaRegistry(),
		PrimaryIdentifiers: ids,
		PipelineVersion:    pipelineVersion,
		DepManifestHash:    depManifestHash(),
		CommitSHA:          commitSHA,
		Logger:             logger,
		Metrics:            metricsRegistry,
		Ledger:             ledgerStore,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.NewRuntime(opts).Run(ctx)
	if err != nil {
		logger.Error("run failed", slog.String("error", err.Error()))
		os.Exit(classifyRunError(err))
	}

	logger.Info("run completed",
		slog.String("run_id", result.RunID),
		slog.String("release", result.Release),
		slog.Int("row_count", result.RowCount),
	)
	for _, w := range result.Warnings {
		logger.Warn("run warning", slog.String("detail", w))
	}

	if flagGolden != "" {
		if err := compareGolden(flagGolden, cfg.Output.Directory); err != nil {
			fmt.Fprintf(os.Stderr, "golden comparison failed:\n%v\n", err)
			os.Exit(exitRunFailure)
		}
		fmt.Println("golden comparison: match")
	}

	if flagServe {
		return serveOperatorAPI(ctx, cfg, logger, ledgerStore, metricsRegistry)
	}

	return nil
}

// applyRunFlagOverrides copies every explicitly-set run flag onto cfg,
// leaving profile/env/--set-resolved values untouched otherwise. CLI flags
// are the most specific configuration layer (spec §4.8 lists --set as the
// last layer; these named flags are syntactic sugar over the same fields
// and take equal precedence since they are also supplied on the CLI).
func applyRunFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("limit") {
		cfg.Limit = flagLimit
	}
	if flags.Changed("sample") {
		cfg.Sample = flagSample
	}
	if flags.Changed("sample-seed") {
		cfg.SampleSeed = flagSampleSeed
	}
	if flags.Changed("golden") {
		cfg.Golden = flagGolden
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = flagDryRun
	}
	if flags.Changed("fail-on-schema-drift") {
		cfg.FailOnSchemaDrift = flagFailOnSchemaDrift
	}
	if flags.Changed("strict-enrichment") {
		cfg.StrictEnrichment = flagStrictEnrichment
	}
}

// loadPrimaryIdentifiers reads a newline-delimited identifier list. Blank
// lines and lines starting with # are skipped. An empty path yields an
// empty slice rather than an error — some profiles may run zero-identifier
// smoke checks (e.g. --dry-run against a stub server).
func loadPrimaryIdentifiers(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}

	return ids, scanner.Err()
}

// applySampling deterministically selects a fraction of ids using seed,
// mirroring the reproducibility guarantee spec §6 attaches to --sample.
func applySampling(ids []string, fraction float64, seed int64) []string {
	if fraction <= 0 || fraction >= 1 || len(ids) == 0 {
		return ids
	}

	keep := make([]string, 0, len(ids))
	h := sha256.New()

	for _, id := range ids {
		h.Reset()
		fmt.Fprintf(h, "%d:%s", seed, id)
		sum := h.Sum(nil)

		// Use the first 8 bytes as a uniform uint64 fraction of max.
		var v uint64
		for _, b := range sum[:8] {
			v = v<<8 | uint64(b)
		}

		if float64(v)/float64(^uint64(0)) < fraction {
			keep = append(keep, id)
		}
	}

	return keep
}

// classifyRunError maps a run failure to spec §6's exit code taxonomy.
// Every distinguishable failure kind (schema.ValidationError,
// schema.DriftError, writer partial-artifact errors, or an uncaught
// error) currently shares one nonzero code; the switch is kept explicit
// so a future split (e.g. a dedicated drift exit code) touches one place.
func classifyRunError(err error) int {
	var validationErr *schema.ValidationError
	var driftErr *schema.DriftError

	switch {
	case errors.As(err, &validationErr):
		return exitRunFailure
	case errors.As(err, &driftErr):
		return exitRunFailure
	default:
		return exitRunFailure
	}
}

// buildLogger constructs the run's structured logger, routing through a
// lumberjack-backed rotating file writer when cfg selects file output
// (grounded on the teacher pack's logger.SetupWriter pattern).
func buildLogger(cfg config.LogSpec) *slog.Logger {
	var writer io.Writer

	switch strings.ToLower(cfg.Output) {
	case "file":
		if cfg.FilePath == "" {
			writer = os.Stdout
		} else {
			writer = &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			}
		}
	case "stderr":
		writer = os.Stderr
	default:
		writer = os.Stdout
	}

	level := parseLogLevel(cfg.Level)
	handlerOpts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(writer, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(writer, handlerOpts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// depManifestHash digests the resolved build's dependency set (module
// path, version, and sum for every dependency reported by the Go runtime)
// into the content hash runctx.Fingerprint expects as depManifestHash —
// runctx itself has no build-time access to module metadata.
func depManifestHash() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	deps := make([]string, 0, len(info.Deps))
	for _, d := range info.Deps {
		deps = append(deps, fmt.Sprintf("%s@%s/%s", d.Path, d.Version, d.Sum))
	}
	sort.Strings(deps)

	h := sha256.New()
	for _, d := range deps {
		io.WriteString(h, d)
		io.WriteString(h, "\n")
	}

	return hex.EncodeToString(h.Sum(nil))
}

// buildLedgerStore constructs the optional run-history ledger. Returns a
// nil store and a no-op close when disabled.
func buildLedgerStore(cfg *config.Config, logger *slog.Logger) (*ledger.Store, func(), error) {
	if !cfg.Ledger.Enabled {
		return nil, nil, nil
	}

	conn, err := ledger.NewConnection(ledger.Config{DSN: cfg.Ledger.DSN})
	if err != nil {
		return nil, nil, err
	}

	store := ledger.NewStore(conn, logger)

	return store, func() { store.Close() }, nil
}

// serveOperatorAPI starts the read-only operator HTTP surface (spec's
// "Optional operator HTTP surface") and blocks until api.Server.Start
// returns, which it does on SIGINT/SIGTERM through its own signal
// handling; cancelation of ctx is only logged.
// cmd/pipeline --serve never shares the run's internal httpclient.Client
// (internal/pipeline keeps it unexported) — GET /healthz degrades to a
// bare "ok" status with no per-source breakdown, which api.Server already
// handles when client is nil.
func serveOperatorAPI(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	ledgerStore *ledger.Store,
	metricsRegistry *metrics.Registry,
) error {
	if ledgerStore == nil {
		return fmt.Errorf("pipeline: --serve requires ledger.enabled=true (the operator API cannot start without a run-history store)")
	}

	serverCfg := api.LoadServerConfig()
	if cfg.API.Addr != "" {
		if host, port, err := splitAddr(cfg.API.Addr); err == nil {
			serverCfg.Host, serverCfg.Port = host, port
		}
	}

	var keyStore storage.APIKeyStore
	if cfg.API.AuthEnabled {
		keyStore = buildAPIKeyStore(logger)
	}

	rateLimiter := middleware.NewInMemoryRateLimiter(middleware.LoadConfig())

	server := api.NewServer(&serverCfg, keyStore, rateLimiter, ledgerStore, nil, sourceNames(cfg), metricsRegistry.Handler())

	go func() {
		<-ctx.Done()
		logger.Info("serve: context canceled, operator API will stop on its own signal handling")
	}()

	return server.Start()
}

// buildAPIKeyStore prefers a Postgres-persisted store when DATABASE_URL is
// set, falling back to an in-memory store for local/dev deployments.
func buildAPIKeyStore(logger *slog.Logger) storage.APIKeyStore {
	storageCfg := storage.LoadConfig()
	if err := storageCfg.Validate(); err != nil {
		logger.Warn("DATABASE_URL not set, API key store falling back to in-memory (not persisted across restarts)")
		return storage.NewInMemoryKeyStore()
	}

	conn, err := storage.NewConnection(storageCfg)
	if err != nil {
		logger.Error("failed to connect API key store database, falling back to in-memory", slog.String("error", err.Error()))
		return storage.NewInMemoryKeyStore()
	}

	keyStore, err := storage.NewPersistentKeyStore(conn)
	if err != nil {
		logger.Error("failed to build persistent API key store, falling back to in-memory", slog.String("error", err.Error()))
		return storage.NewInMemoryKeyStore()
	}

	return keyStore
}

func sourceNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}

	return host, port, nil
}
