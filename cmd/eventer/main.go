// Command eventer tails a pipeline run's output directory for completed
// run manifests and publishes a RunCompleted event for each to Kafka, so
// downstream consumers learn about a new release without polling the
// filesystem themselves.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bioetl-io/bioetl/internal/config"
)

// version and commit are set at build time, mirroring cmd/pipeline.
var (
	version = "dev"
	commit  = "unknown"
)

type stringSlice []string

func (s *stringSlice) String() string     { return strings.Join(*s, ",") }
func (s *stringSlice) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var (
		cfgPath      string
		cfgOverrides stringSlice
		stateFile    string
		showVersion  bool
	)

	flag.StringVar(&cfgPath, "config", "", "path to a pipeline profile (YAML)")
	flag.Var(&cfgOverrides, "set", "override a configuration key as key.path=value (repeatable)")
	flag.StringVar(&stateFile, "state-file", "", "path to the published-manifest tracking file (default: <output.directory>/.eventer_state.json)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("eventer %s (%s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(cfgPath, cfgOverrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eventer: configuration invalid: %v\n", err)
		os.Exit(2)
	}

	logger := buildLogger(cfg.Log)

	if !cfg.Eventer.Enabled {
		logger.Info("eventer.enabled is false, nothing to do")
		return
	}

	if stateFile == "" {
		stateFile = filepath.Join(cfg.Output.Directory, ".eventer_state.json")
	}

	st, err := loadState(stateFile)
	if err != nil {
		logger.Error("failed to load state file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pub := newPublisher(cfg.Eventer)
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watch(ctx, cfg.Output.Directory, st, pub, logger); err != nil {
		logger.Error("eventer stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildLogger mirrors cmd/pipeline/cmd.buildLogger: a lumberjack-backed
// rotating file writer when cfg selects file output, stdout/stderr
// otherwise (grounded on the same pack logger.SetupWriter pattern).
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

	handlerOpts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

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
