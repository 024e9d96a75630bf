package httpclient

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// l1Entry is one cached HTTP response body plus the instant it was stored,
// so Get can enforce a TTL on top of the LRU's capacity bound.
type l1Entry struct {
	body     []byte
	storedAt time.Time
}

// l1Cache is the in-process, capacity- and TTL-bounded first cache tier of
// spec §4.1's two-tier HTTP cache (the second tier is internal/httpcache's
// on-disk store). Grounded on the teacher pack's LRU-backed cache stat
// tracking, generalized from caching one entry type to raw response bytes
// keyed by request signature.
type l1Cache struct {
	cache *lru.Cache[string, l1Entry]
	ttl   time.Duration
	log   *slog.Logger

	mu     sync.Mutex
	hits   int64
	misses int64
}

// newL1Cache builds an L1 cache with the given entry capacity and TTL.
func newL1Cache(capacity int, ttl time.Duration, log *slog.Logger) (*l1Cache, error) {
	if log == nil {
		log = slog.Default()
	}

	c, err := lru.New[string, l1Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("httpclient: build l1 cache: %w", err)
	}

	return &l1Cache{cache: c, ttl: ttl, log: log}, nil
}

// Get returns the cached body for key if present and not expired.
func (c *l1Cache) Get(key string) ([]byte, bool) {
	entry, ok := c.cache.Get(key)
	if !ok {
		c.recordMiss()
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.storedAt) > c.ttl {
		c.cache.Remove(key)
		c.recordMiss()

		return nil, false
	}

	c.recordHit()

	return entry.body, true
}

// Set stores body under key, stamped with the current instant for TTL
// enforcement.
func (c *l1Cache) Set(key string, body []byte) {
	c.cache.Add(key, l1Entry{body: body, storedAt: time.Now()})
}

// Purge clears every cached entry, used when a release's release-tag
// invalidation (spec §4.1 "Cache invalidation") requires a clean slate.
func (c *l1Cache) Purge() {
	c.cache.Purge()
}

// Stats reports cumulative hit/miss counts for the metrics registry.
func (c *l1Cache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits, c.misses, c.cache.Len()
}

func (c *l1Cache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *l1Cache) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}
