package extract

import "sync/atomic"

// Metrics accumulates spec §4.2's per-source counters (success, fallback,
// error, api_calls, cache_hits) across every goroutine touching one source,
// so callers can read a consistent snapshot after extraction completes.
type Metrics struct {
	Success   int64
	Fallback  int64
	Error     int64
	APICalls  int64
	CacheHits int64
}

func (m *Metrics) addSuccess(n int64)  { atomic.AddInt64(&m.Success, n) }
func (m *Metrics) addFallback(n int64) { atomic.AddInt64(&m.Fallback, n) }
func (m *Metrics) addError(n int64)    { atomic.AddInt64(&m.Error, n) }
func (m *Metrics) addAPICall()         { atomic.AddInt64(&m.APICalls, 1) }
func (m *Metrics) addCacheHit()        { atomic.AddInt64(&m.CacheHits, 1) }

// Snapshot returns a copy safe to read without further synchronization.
func (m *Metrics) Snapshot() Metrics {
	return Metrics{
		Success:   atomic.LoadInt64(&m.Success),
		Fallback:  atomic.LoadInt64(&m.Fallback),
		Error:     atomic.LoadInt64(&m.Error),
		APICalls:  atomic.LoadInt64(&m.APICalls),
		CacheHits: atomic.LoadInt64(&m.CacheHits),
	}
}
