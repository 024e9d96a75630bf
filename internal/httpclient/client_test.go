package httpclient

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioetl-io/bioetl/internal/httpcache"
)

func TestParseRetryAfter_IntegerSecondsClamped(t *testing.T) {
	d := parseRetryAfter("3600", 120*time.Second)
	assert.Equal(t, 120*time.Second, d)
}

func TestParseRetryAfter_WithinCap(t *testing.T) {
	d := parseRetryAfter("2", 120*time.Second)
	assert.Equal(t, 2*time.Second, d)
}

func TestParseRetryAfter_Empty(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter("", 120*time.Second))
}

func TestParseRetryAfter_Unparseable(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter("not-a-value", 120*time.Second))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(0))
	assert.True(t, IsTransient(408))
	assert.True(t, IsTransient(429))
	assert.True(t, IsTransient(503))
	assert.False(t, IsTransient(400))
	assert.False(t, IsTransient(404))
}

func TestOutageTracker_MarkAndRecover(t *testing.T) {
	tr := NewOutageTracker()

	assert.False(t, tr.IsDown("chembl"))

	tr.MarkDown("chembl")
	assert.True(t, tr.IsDown("chembl"))
	assert.Greater(t, tr.Since("chembl")+time.Nanosecond, time.Duration(0))

	tr.MarkRecovered("chembl")
	assert.False(t, tr.IsDown("chembl"))
}

func TestRateLimiter_AllowWithinBurst(t *testing.T) {
	rl := NewRateLimiter(map[string]RateLimiterConfig{
		"chembl": {RequestsPerSecond: 100, Burst: 5},
	})

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("chembl"))
	}
}

func TestClient_Fetch_L1CacheHitAvoidsRoundTrip(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient("33", map[string]SourceConfig{
		"chembl": {Retry: DefaultRetryConfig()},
	}, nil, WithL1Cache(100, time.Hour))

	req := Request{Source: "chembl", Method: http.MethodGet, URL: server.URL}

	resp1, err := client.Fetch(t.Context(), req)
	require.NoError(t, err)
	assert.False(t, resp1.FromCache)

	resp2, err := client.Fetch(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, resp2.FromCache)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Fetch_L2CacheSurvivesFreshClient(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	store, err := httpcache.Open(filepath.Join(t.TempDir(), "cache.json"), time.Hour, nil)
	require.NoError(t, err)

	configs := map[string]SourceConfig{"chembl": {Retry: DefaultRetryConfig()}}

	req := Request{Source: "chembl", Method: http.MethodGet, URL: server.URL}

	client1 := NewClient("33", configs, nil, WithL2Cache(store))
	_, err = client1.Fetch(t.Context(), req)
	require.NoError(t, err)

	client2 := NewClient("33", configs, nil, WithL2Cache(store))
	resp, err := client2.Fetch(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, resp.FromCache)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
