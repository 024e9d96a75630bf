// Package httpcache implements the L2, on-disk tier of spec §4.1's
// two-tier HTTP cache: a persistent key-value store used selectively for
// long-lived mappings (e.g. cross-source identifier resolutions) with a
// multi-day TTL and atomic save.
package httpcache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// entry is one persisted cache row: the payload plus the release it was
// stored under and the instant it was written, so both TTL and release-tag
// invalidation (spec §4.1, invariant 6 in §8) can be enforced without a
// second file.
type entry struct {
	Release  string          `json:"release"`
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// document is the on-disk shape of the whole store: one flat JSON object
// keyed by composite cache key (internal/httpclient.CacheKey).
type document struct {
	Entries map[string]entry `json:"entries"`
}

// Store is a persistent, JSON-backed key-value cache. Every mutating
// operation rewrites the whole document to a temp file in the same
// directory and renames it into place, so readers never observe a partial
// write — the same protocol the teacher's `ingestion.ManifestManager` uses
// for its manifest file.
type Store struct {
	mu   sync.Mutex
	path string
	ttl  time.Duration
	doc  document
	log  *slog.Logger
}

// Open loads (or initializes) a Store backed by the file at path. A missing
// file is not an error — the store starts empty, mirroring
// ManifestManager.LoadManifest's "first run" behavior.
func Open(path string, ttl time.Duration, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Store{path: path, ttl: ttl, log: log, doc: document{Entries: make(map[string]entry)}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}

		return nil, fmt.Errorf("httpcache: read store: %w", err)
	}

	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("httpcache: parse store: %w", err)
	}

	if s.doc.Entries == nil {
		s.doc.Entries = make(map[string]entry)
	}

	return s, nil
}

// Get returns the cached payload for key, provided it was stored under the
// given release and has not exceeded the store's TTL. A release mismatch or
// expiry is treated identically to a miss (spec §4.1 "release is part of
// the key").
func (s *Store) Get(key, release string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.doc.Entries[key]
	if !ok {
		return nil, false
	}

	if e.Release != release {
		return nil, false
	}

	if s.ttl > 0 && time.Since(e.StoredAt) > s.ttl {
		return nil, false
	}

	return e.Payload, true
}

// Set stores payload under key for the given release and persists the
// store to disk atomically.
func (s *Store) Set(key, release string, payload json.RawMessage) error {
	s.mu.Lock()
	s.doc.Entries[key] = entry{Release: release, StoredAt: time.Now(), Payload: payload}
	s.mu.Unlock()

	return s.save()
}

// Purge removes every entry tagged with a release other than keep. Called
// once at startup so a stale release's entries never accumulate forever.
func (s *Store) Purge(keep string) error {
	s.mu.Lock()

	for k, e := range s.doc.Entries {
		if e.Release != keep {
			delete(s.doc.Entries, k)
		}
	}

	s.mu.Unlock()

	return s.save()
}

// Len reports the number of entries currently held, for diagnostics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.doc.Entries)
}

// save rewrites the store file via write-to-temp-then-rename, the same
// atomicity protocol spec §4.6 requires of run artifacts.
func (s *Store) save() error {
	s.mu.Lock()
	data, err := json.Marshal(s.doc)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("httpcache: marshal store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("httpcache: create store dir: %w", err)
		}
	}

	tmpPath := s.path + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("httpcache: write temp: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("httpcache: rename temp: %w", err)
	}

	return nil
}
