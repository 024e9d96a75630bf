package httpclient

import (
	"sync"
	"time"
)

// BreakerState is the three-state lifecycle of a circuit breaker (spec
// §4.1 "Circuit breaker").
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes one source's circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // consecutive successes in half-open before closing
	OpenTimeout      time.Duration // time spent open before allowing a half-open probe
}

// Breaker is a per-source circuit breaker: once FailureThreshold consecutive
// failures are recorded, further requests are rejected without attempting
// the network until OpenTimeout elapses. The breaker then turns half-open
// and admits requests again; SuccessThreshold consecutive successes close
// it and any failure reopens it. The number of requests admitted while
// half-open is not limited.
type Breaker struct {
	mu sync.RWMutex

	config       BreakerConfig
	state        BreakerState
	failureCount int
	successCount int
	openedAt     time.Time
}

// NewBreaker constructs a closed breaker with the given config.
func NewBreaker(config BreakerConfig) *Breaker {
	return &Breaker{config: config, state: StateClosed}
}

// Allow reports whether a request may proceed, performing the open ->
// half-open transition as a side effect when OpenTimeout has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.openedAt) > b.config.OpenTimeout {
			b.state = StateHalfOpen
			b.successCount = 0

			return true
		}

		return false
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess reports a successful attempt, closing the breaker from
// half-open once SuccessThreshold consecutive successes have been observed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
		}
	}
}

// RecordFailure reports a failed attempt. Any failure while half-open
// reopens the breaker immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.state = StateOpen
			b.openedAt = time.Now()
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = time.Now()
		b.successCount = 0
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.state
}

// Reset forces the breaker back to closed. Used by operator tooling and
// tests.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
}
