// Package httpclient implements the resilient HTTP client of spec §4.1:
// retry with exponential backoff and jitter, per-source rate limiting, a
// per-source circuit breaker, a service-outage tracker, and a two-tier
// (L1 in-memory, L2 on-disk) response cache.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bioetl-io/bioetl/internal/httpcache"
)

// Response is a successfully-fetched, not-necessarily-JSON-parsed HTTP
// response body plus status.
type Response struct {
	Status    int
	Body      []byte
	Header    http.Header
	FromCache bool
}

// RetryConfig tunes the exponential-backoff-with-jitter schedule (spec
// §4.1 "Retry policy").
type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	Factor        float64
	MaxDelay      time.Duration
	RetryAfterCap time.Duration
}

// DefaultRetryConfig matches spec §4.1's illustrative defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   5,
		BaseDelay:     500 * time.Millisecond,
		Factor:        2.0,
		MaxDelay:      30 * time.Second,
		RetryAfterCap: 120 * time.Second,
	}
}

// SourceConfig bundles one source's resilience knobs.
type SourceConfig struct {
	Retry   RetryConfig
	Limiter RateLimiterConfig
	Breaker BreakerConfig
	Timeout time.Duration
}

// Client performs resilient HTTP requests on behalf of one or more named
// sources, each carrying its own rate limiter, breaker, and outage state,
// so a failure in one source's resilience state never affects another's.
type Client struct {
	httpClient *http.Client
	release    string
	log        *slog.Logger

	configs  map[string]SourceConfig
	breakers map[string]*Breaker
	limiter  *RateLimiter
	outage   *OutageTracker
	cache    *l1Cache
	l2       *httpcache.Store
}

// ClientOption configures optional Client behavior at construction time.
type ClientOption func(*Client)

// WithL1Cache attaches an in-memory response cache with the given capacity
// and TTL.
func WithL1Cache(capacity int, ttl time.Duration) ClientOption {
	return func(c *Client) {
		cache, err := newL1Cache(capacity, ttl, c.log)
		if err != nil {
			c.log.Warn("httpclient: failed to build l1 cache, proceeding without it", slog.String("error", err.Error()))
			return
		}

		c.cache = cache
	}
}

// WithHTTPClient overrides the underlying *http.Client (tests inject a
// fake transport this way).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithL2Cache attaches the on-disk persistent cache (spec §4.1 "two-tier
// cache") consulted when the L1 cache misses, and populated on every real
// round trip.
func WithL2Cache(store *httpcache.Store) ClientOption {
	return func(c *Client) { c.l2 = store }
}

// NewClient builds a Client. release is the primary source's release
// version captured in the run context (spec §3) — it participates in every
// cache key so a release change invalidates prior entries automatically.
func NewClient(release string, configs map[string]SourceConfig, log *slog.Logger, opts ...ClientOption) *Client {
	if log == nil {
		log = slog.Default()
	}

	breakers := make(map[string]*Breaker, len(configs))
	rlConfigs := make(map[string]RateLimiterConfig, len(configs))

	for name, cfg := range configs {
		breakers[name] = NewBreaker(cfg.Breaker)
		rlConfigs[name] = cfg.Limiter
	}

	c := &Client{
		httpClient: &http.Client{},
		release:    release,
		log:        log,
		configs:    configs,
		breakers:   breakers,
		limiter:    NewRateLimiter(rlConfigs),
		outage:     NewOutageTracker(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Outage exposes the client's outage tracker, which the operator API's
// health report reads.
func (c *Client) Outage() *OutageTracker { return c.outage }

// BreakerState reports source's current circuit breaker state, for metrics
// and the operator HTTP surface.
func (c *Client) BreakerState(source string) BreakerState {
	b, ok := c.breakers[source]
	if !ok {
		return StateClosed
	}

	return b.State()
}

// Request bundles one resilient fetch's parameters. Headers is optional and
// most commonly carries X-HTTP-Method-Override for the extraction
// orchestrator's URL-length override (spec §4.2).
type Request struct {
	Source  string
	Method  string
	URL     string
	Params  map[string]string
	Body    []byte
	Headers map[string]string
}

// Fetch performs one resilient req.Method request (req.Body, when non-nil,
// is sent as JSON) against req.URL for the named source, honoring rate limiting, the circuit
// breaker, the L1/L2 cache, and the retry-with-backoff policy. req.Params
// participate in both the request (as query parameters for GET) and the
// cache key.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	source, method, url, params, body := req.Source, req.Method, req.URL, req.Params, req.Body

	cfg, ok := c.configs[source]
	if !ok {
		cfg = SourceConfig{Retry: DefaultRetryConfig()}
	}

	key := CacheKey(source, c.release, method, url, params, body)

	if len(params) > 0 && method == http.MethodGet {
		u, err := neturl.Parse(url)
		if err != nil {
			return nil, &FetchError{Kind: KindUnknown, Err: err}
		}

		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}

		u.RawQuery = q.Encode()
		url = u.String()
	}

	if c.cache != nil {
		if cached, hit := c.cache.Get(key); hit {
			return &Response{Status: http.StatusOK, Body: cached, FromCache: true}, nil
		}
	}

	if c.l2 != nil {
		if payload, hit := c.l2.Get(key, c.release); hit {
			if c.cache != nil {
				c.cache.Set(key, payload)
			}

			return &Response{Status: http.StatusOK, Body: payload, FromCache: true}, nil
		}
	}

	breaker := c.breakers[source]
	if breaker == nil {
		breaker = NewBreaker(cfg.Breaker)
		c.breakers[source] = breaker
	}

	if !breaker.Allow() {
		return nil, &FetchError{Kind: KindCircuitOpen, Until: time.Now().Add(cfg.Retry.MaxDelay)}
	}

	resp, err := c.fetchWithRetry(ctx, source, method, url, body, req.Headers, cfg)
	if err != nil {
		var fe *FetchError

		if errors.As(err, &fe) && fe.Kind != KindBadRequest && fe.Kind != KindNotFound {
			breaker.RecordFailure()
		}

		return nil, err
	}

	breaker.RecordSuccess()
	c.outage.MarkRecovered(source)

	if c.cache != nil {
		c.cache.Set(key, resp.Body)
	}

	if c.l2 != nil {
		if err := c.l2.Set(key, c.release, resp.Body); err != nil {
			c.log.Warn("httpclient: l2 cache write failed", slog.String("source", source), slog.String("error", err.Error()))
		}
	}

	return resp, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, source, method, url string, body []byte, headers map[string]string, cfg SourceConfig) (*Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.Retry.BaseDelay
	bo.Multiplier = cfg.Retry.Factor
	bo.MaxInterval = cfg.Retry.MaxDelay
	bo.MaxElapsedTime = 0 // bounded by MaxAttempts below, not wall-clock

	var (
		lastResp *Response
		lastErr  error
		attempt  int
	)

	operation := func() error {
		attempt++

		if err := c.limiter.Wait(ctx, source); err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}

		resp, status, err := c.do(ctx, method, url, body, headers)
		if err != nil {
			lastErr = err

			if ctx.Err() != nil {
				return backoff.Permanent(&FetchError{Kind: KindTimeout, Attempt: attempt, Err: err})
			}

			return err
		}

		if status == http.StatusNotFound {
			lastErr = &FetchError{Kind: KindNotFound, Status: status, Attempt: attempt}
			return backoff.Permanent(lastErr)
		}

		if !IsTransient(status) && status >= 400 {
			lastErr = &FetchError{Kind: KindBadRequest, Status: status, Attempt: attempt}
			return backoff.Permanent(lastErr)
		}

		if IsTransient(status) && status >= 400 {
			if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
				c.outage.MarkDown(source)
			}

			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), cfg.Retry.RetryAfterCap)
			lastErr = &FetchError{Kind: KindExhausted, Status: status, Attempt: attempt, RetryAfter: retryAfter}

			if attempt >= cfg.Retry.MaxAttempts {
				return backoff.Permanent(lastErr)
			}

			if retryAfter > 0 {
				if err := sleepContext(ctx, retryAfter); err != nil {
					return backoff.Permanent(&FetchError{Kind: KindTimeout, Attempt: attempt, Err: err})
				}
			}

			return lastErr
		}

		lastResp = resp
		lastErr = nil

		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.log.Debug("httpclient: retrying request",
			slog.String("source", source), slog.Int("attempt", attempt),
			slog.Duration("wait", wait), slog.String("error", err.Error()))
	}

	maxTries := backoff.WithMaxRetries(bo, uint64(maxInt(cfg.Retry.MaxAttempts-1, 0)))

	if err := backoff.RetryNotify(operation, maxTries, notify); err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}

		if lastErr != nil {
			return nil, lastErr
		}

		return nil, &FetchError{Kind: KindExhausted, Attempt: attempt, Err: err}
	}

	if lastResp == nil {
		return nil, &FetchError{Kind: KindExhausted, Attempt: attempt, Err: lastErr}
	}

	return lastResp, nil
}

// sleepContext blocks for d or until ctx is done, whichever comes first.
// Used to honor a server-provided Retry-After header immediately, ahead of
// the exponential backoff schedule's own wait for that attempt.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*Response, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return &Response{Status: resp.StatusCode, Body: data, Header: resp.Header}, resp.StatusCode, nil
}

// parseRetryAfter parses a Retry-After header value (either integer seconds
// or an HTTP-date) and clamps it to [0, maxWait].
func parseRetryAfter(value string, maxWait time.Duration) time.Duration {
	if value == "" {
		return 0
	}

	if secs, err := strconv.Atoi(value); err == nil {
		d := time.Duration(secs) * time.Second
		return clampDuration(d, maxWait)
	}

	if at, err := http.ParseTime(value); err == nil {
		d := time.Until(at)
		return clampDuration(d, maxWait)
	}

	return 0
}

func clampDuration(d, maxWait time.Duration) time.Duration {
	if d < 0 {
		return 0
	}

	if d > maxWait {
		return maxWait
	}

	return d
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
