package infra

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker guarding the sync agent's calls to the farm API. While the
// link is down the breaker fast-fails instead of burning a network timeout
// per buffered operation.
//
// State machine: Closed (normal) -> Open (fast-fail) -> HalfOpen (single
// probe) -> Closed on recovery.

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned by Do while the breaker is open.
var ErrBreakerOpen = errors.New("circuit breaker open")

type Breaker struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int // consecutive failures while closed
	probeWins   int // consecutive successes while half-open
	trippedAt   time.Time
	maxFailures int
	probeQuota  int
	cooldown    time.Duration
}

// NewBreaker returns a closed breaker that trips after maxFailures
// consecutive failures and probes again after cooldown.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		state:       BreakerClosed,
		maxFailures: maxFailures,
		probeQuota:  2,
		cooldown:    cooldown,
	}
}

// State reports the current state, promoting open to half-open once the
// cooldown has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.trippedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
		b.probeWins = 0
	}
	return b.state
}

// Do runs fn unless the breaker is open, recording the outcome.
func (b *Breaker) Do(fn func() error) error {
	if b.State() == BreakerOpen {
		return ErrBreakerOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// callers hold b.mu
func (b *Breaker) recordFailure() {
	b.failures++
	b.trippedAt = time.Now()
	switch b.state {
	case BreakerClosed:
		if b.failures >= b.maxFailures {
			b.state = BreakerOpen
			b.probeWins = 0
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.failures = 0
	}
}

func (b *Breaker) recordSuccess() {
	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.probeWins++
		if b.probeWins >= b.probeQuota {
			b.state = BreakerClosed
			b.failures = 0
			b.probeWins = 0
		}
	}
}
