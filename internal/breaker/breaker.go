// Package breaker provides the circuit breaker guarding compilation
// calls per tenant and target backend.
//
// Three-state machine: closed (requests pass, failures accumulate) ->
// open (requests rejected until the recovery timeout elapses) ->
// half_open (a trial request is allowed; success closes, failure
// re-opens). Consecutive counters reset on every transition away from the
// state that accumulated them.
//
// Each breaker serializes its own transitions under a mutex so concurrent
// RecordSuccess/RecordFailure calls cannot lose updates; different keys
// are fully independent (see Registry).
package breaker

import (
	"errors"
	"sync"
	"time"
)

// State is the breaker position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrOpen is returned when a request is rejected by an open breaker.
var ErrOpen = errors.New("circuit breaker open")

// Config holds the transition thresholds.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens a
	// closed breaker.
	FailureThreshold int
	// SuccessThreshold is the consecutive-success count that closes a
	// half-open breaker.
	SuccessThreshold int
	// RecoveryTimeout is how long an open breaker rejects before allowing
	// a trial request.
	RecoveryTimeout time.Duration
}

// DefaultConfig returns production thresholds: open after 5 consecutive
// failures, close after 2 consecutive successes, retry after 30 seconds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
	}
}

// Snapshot is a read-only copy of breaker state for introspection.
type Snapshot struct {
	State                State
	FailureCount         int
	SuccessCount         int
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	OpenedAt             time.Time
	NextAttemptAt        time.Time
}

// Breaker tracks failures for one (tenant, target, operation) key.
type Breaker struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	state                State
	failureCount         int
	successCount         int
	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time
	nextAttemptAt        time.Time
}

// New creates a closed breaker. The clock is injectable for tests via
// NewWithClock.
func New(cfg Config) *Breaker {
	return NewWithClock(cfg, time.Now)
}

// NewWithClock creates a closed breaker with an explicit clock.
func NewWithClock(cfg Config, now func() time.Time) *Breaker {
	return &Breaker{cfg: cfg, now: now, state: StateClosed}
}

// Allow reports whether a request may proceed, transitioning an open
// breaker to half-open once the recovery timeout has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if !b.now().Before(b.nextAttemptAt) {
			// Timeout elapsed: admit trial requests until the outcome
			// decides the next state
			b.state = StateHalfOpen
			b.consecutiveSuccesses = 0
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records a successful operation outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	b.consecutiveSuccesses++
	b.consecutiveFailures = 0

	if b.state == StateHalfOpen && b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
		b.state = StateClosed
		b.consecutiveFailures = 0
		b.openedAt = time.Time{}
		b.nextAttemptAt = time.Time{}
	}
}

// RecordFailure records a failed operation outcome.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.consecutiveFailures++
	b.consecutiveSuccesses = 0

	switch b.state {
	case StateClosed:
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.open()
		}
	case StateHalfOpen:
		// Any failure during trial re-opens with a fresh timeout
		b.open()
	}
}

// open transitions to the open state, refreshing the recovery deadline.
// Both consecutive counters reset: the failures that tripped the breaker
// belong to the state being left. Caller holds the mutex.
func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.nextAttemptAt = b.openedAt.Add(b.cfg.RecoveryTimeout)
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
}

// State returns the current breaker position, applying the open-to-half-
// open timeout transition so observers never see a stale open state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && !b.now().Before(b.nextAttemptAt) {
		b.state = StateHalfOpen
		b.consecutiveSuccesses = 0
	}
	return b.state
}

// Snapshot returns a copy of the current counters and timestamps.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		State:                b.state,
		FailureCount:         b.failureCount,
		SuccessCount:         b.successCount,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		OpenedAt:             b.openedAt,
		NextAttemptAt:        b.nextAttemptAt,
	}
}
