package httpclient

import (
	"sync"
	"time"
)

// OutageTracker records, per source, whether that source is presently
// considered "down". Client.Fetch marks a source down when a response is a
// 429 or 503 and clears the mark on the source's next successful round
// trip. The mark carries no expiry, and Client.Fetch does not consult it
// before sending a request; the operator API's health report reads it.
type OutageTracker struct {
	mu   sync.RWMutex
	down map[string]time.Time
}

// NewOutageTracker returns an empty tracker.
func NewOutageTracker() *OutageTracker {
	return &OutageTracker{down: make(map[string]time.Time)}
}

// MarkDown records source as down as of now.
func (t *OutageTracker) MarkDown(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, already := t.down[source]; !already {
		t.down[source] = time.Now()
	}
}

// MarkRecovered clears source's outage record.
func (t *OutageTracker) MarkRecovered(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.down, source)
}

// IsDown reports whether source is presently marked down.
func (t *OutageTracker) IsDown(source string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, down := t.down[source]

	return down
}

// Since returns how long source has been down, or zero if it isn't.
func (t *OutageTracker) Since(source string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	at, down := t.down[source]
	if !down {
		return 0
	}

	return time.Since(at)
}

// DownSources returns the currently-down source names, unordered.
func (t *OutageTracker) DownSources() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.down))
	for s := range t.down {
		names = append(names, s)
	}

	return names
}
