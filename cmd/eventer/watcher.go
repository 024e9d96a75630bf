package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
)

const manifestGlob = "run_manifest_*.json"

// watch scans outputDir for any manifest not yet in st, publishes each, then
// blocks watching outputDir for newly-created manifests until ctx is
// canceled. The initial scan covers manifests written before the watcher
// attached (e.g. a run that completed while the eventer was down); the
// fsnotify loop covers everything after.
func watch(ctx context.Context, outputDir string, st *state, pub *publisher, logger *slog.Logger) error {
	if err := scanExisting(ctx, outputDir, st, pub, logger); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(outputDir); err != nil {
		return err
	}

	logger.Info("watching output directory for new run manifests", slog.String("dir", outputDir))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			matched, err := filepath.Match(manifestGlob, filepath.Base(event.Name))
			if err != nil || !matched {
				continue
			}

			handleManifest(ctx, event.Name, outputDir, st, pub, logger)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

func scanExisting(ctx context.Context, outputDir string, st *state, pub *publisher, logger *slog.Logger) error {
	matches, err := filepath.Glob(filepath.Join(outputDir, manifestGlob))
	if err != nil {
		return err
	}

	sort.Strings(matches)

	for _, path := range matches {
		handleManifest(ctx, path, outputDir, st, pub, logger)
	}

	return nil
}

// handleManifest publishes one manifest's event if it has not already been
// published. Reads are retried briefly (backoff.WithMaxRetries) to absorb
// the rare race of a Create event firing a moment before a rename from a
// temp path has fully landed; errors beyond that are logged, not fatal, so
// one bad manifest never stops the watch loop.
func handleManifest(ctx context.Context, path, outputDir string, st *state, pub *publisher, logger *slog.Logger) {
	filename := filepath.Base(path)

	if st.seen(filename) {
		return
	}

	var event RunCompleted

	operation := func() error {
		e, err := buildEvent(path, outputDir)
		if err != nil {
			return err
		}
		event = e
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(operation, bo); err != nil {
		logger.Error("failed to read manifest, skipping", slog.String("manifest", filename), slog.String("error", err.Error()))
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pub.publish(publishCtx, event); err != nil {
		logger.Error("failed to publish run completed event", slog.String("manifest", filename), slog.String("error", err.Error()))
		return
	}

	if err := st.markPublished(filename); err != nil {
		logger.Error("failed to persist eventer state", slog.String("manifest", filename), slog.String("error", err.Error()))
		return
	}

	logger.Info("published run completed event", slog.String("manifest", filename), slog.String("run_id", event.RunID))
}
