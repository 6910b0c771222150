// internal/breaker/breaker_test.go
package breaker

import (
	"errors"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for deterministic timeout tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testBreakerConfig() Config {
	return Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := newFakeClock()
	b := NewWithClock(testBreakerConfig(), clock.Now)

	if b.State() != StateClosed {
		t.Fatalf("State() = %v, want closed", b.State())
	}

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Fatalf("State() after 2 failures = %v, want closed", b.State())
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("State() after 3 failures = %v, want open", b.State())
	}
	if b.Allow() {
		t.Errorf("Allow() = true while open, want false")
	}
}

func TestBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	clock := newFakeClock()
	b := NewWithClock(testBreakerConfig(), clock.Now)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	// Never 3 in a row, so the breaker stays closed
	if b.State() != StateClosed {
		t.Fatalf("State() = %v, want closed", b.State())
	}
	snap := b.Snapshot()
	if snap.FailureCount != 4 || snap.ConsecutiveFailures != 2 {
		t.Errorf("FailureCount/ConsecutiveFailures = %v/%v, want 4/2",
			snap.FailureCount, snap.ConsecutiveFailures)
	}
}

func tripBreaker(b *Breaker, cfg Config) {
	for i := 0; i < cfg.FailureThreshold; i++ {
		b.RecordFailure()
	}
}

func TestBreaker_OpeningResetsConsecutiveCounters(t *testing.T) {
	clock := newFakeClock()
	cfg := testBreakerConfig()
	b := NewWithClock(cfg, clock.Now)
	tripBreaker(b, cfg)

	// The failures that tripped the breaker accumulated in closed; the
	// open state starts with clean consecutive counters
	snap := b.Snapshot()
	if snap.State != StateOpen {
		t.Fatalf("State = %v, want open", snap.State)
	}
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %v, want 0 after opening", snap.ConsecutiveFailures)
	}
	if snap.ConsecutiveSuccesses != 0 {
		t.Errorf("ConsecutiveSuccesses = %v, want 0 after opening", snap.ConsecutiveSuccesses)
	}
	// Lifetime totals survive the transition
	if snap.FailureCount != cfg.FailureThreshold {
		t.Errorf("FailureCount = %v, want %v", snap.FailureCount, cfg.FailureThreshold)
	}
}

func TestBreaker_HalfOpenAfterRecoveryTimeout(t *testing.T) {
	clock := newFakeClock()
	cfg := testBreakerConfig()
	b := NewWithClock(cfg, clock.Now)
	tripBreaker(b, cfg)

	clock.Advance(cfg.RecoveryTimeout - time.Second)
	if b.Allow() {
		t.Fatalf("Allow() = true before recovery timeout, want false")
	}

	clock.Advance(time.Second)
	if !b.Allow() {
		t.Fatalf("Allow() = false after recovery timeout, want true")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("State() = %v, want half_open", b.State())
	}
}

func TestBreaker_HalfOpenClosesOnSuccessThreshold(t *testing.T) {
	clock := newFakeClock()
	cfg := testBreakerConfig()
	b := NewWithClock(cfg, clock.Now)
	tripBreaker(b, cfg)
	clock.Advance(cfg.RecoveryTimeout)
	b.Allow()

	b.RecordSuccess()
	if b.State() != StateHalfOpen {
		t.Fatalf("State() after 1 trial success = %v, want half_open", b.State())
	}
	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Fatalf("State() after 2 trial successes = %v, want closed", b.State())
	}

	snap := b.Snapshot()
	if !snap.OpenedAt.IsZero() || !snap.NextAttemptAt.IsZero() {
		t.Errorf("timestamps = %v/%v, want cleared on close", snap.OpenedAt, snap.NextAttemptAt)
	}
}

func TestBreaker_HalfOpenFailureReopensWithFreshDeadline(t *testing.T) {
	clock := newFakeClock()
	cfg := testBreakerConfig()
	b := NewWithClock(cfg, clock.Now)
	tripBreaker(b, cfg)
	firstOpened := b.Snapshot().OpenedAt

	clock.Advance(cfg.RecoveryTimeout)
	b.Allow()
	b.RecordFailure()

	if b.State() != StateOpen {
		t.Fatalf("State() after trial failure = %v, want open", b.State())
	}
	snap := b.Snapshot()
	if !snap.OpenedAt.After(firstOpened) {
		t.Errorf("OpenedAt = %v, want refreshed past %v", snap.OpenedAt, firstOpened)
	}
	if want := snap.OpenedAt.Add(cfg.RecoveryTimeout); !snap.NextAttemptAt.Equal(want) {
		t.Errorf("NextAttemptAt = %v, want %v", snap.NextAttemptAt, want)
	}
}

func TestBreaker_StateObservesTimeoutTransition(t *testing.T) {
	clock := newFakeClock()
	cfg := testBreakerConfig()
	b := NewWithClock(cfg, clock.Now)
	tripBreaker(b, cfg)

	clock.Advance(cfg.RecoveryTimeout)
	// Observation alone moves open to half_open once the deadline passes
	if b.State() != StateHalfOpen {
		t.Fatalf("State() = %v, want half_open", b.State())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FailureThreshold != 5 || cfg.SuccessThreshold != 2 || cfg.RecoveryTimeout != 30*time.Second {
		t.Fatalf("DefaultConfig() = %+v, want 5/2/30s", cfg)
	}
}

func TestRegistry_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	cfg := testBreakerConfig()
	r := NewRegistryWithClock(cfg, clock.Now)

	k1 := Key{Tenant: "acme", Target: "sql", Operation: "compile"}
	k2 := Key{Tenant: "acme", Target: "elasticsearch", Operation: "compile"}
	tripBreaker(r.Get(k1), cfg)

	if r.Get(k1).State() != StateOpen {
		t.Fatalf("k1 State() = %v, want open", r.Get(k1).State())
	}
	if r.Get(k2).State() != StateClosed {
		t.Fatalf("k2 State() = %v, want closed", r.Get(k2).State())
	}
}

func TestRegistry_GetReturnsSameBreaker(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	k := Key{Tenant: "acme", Target: "sql", Operation: "compile"}
	if r.Get(k) != r.Get(k) {
		t.Fatalf("Get() should return the same breaker for the same key")
	}
}

func TestRegistry_Do(t *testing.T) {
	clock := newFakeClock()
	cfg := testBreakerConfig()
	r := NewRegistryWithClock(cfg, clock.Now)
	k := Key{Tenant: "acme", Target: "mongodb", Operation: "compile"}

	boom := errors.New("backend down")

	t.Run("passes results through and records failures", func(t *testing.T) {
		if err := r.Do(k, func() error { return nil }); err != nil {
			t.Fatalf("Do() error = %v, want nil", err)
		}
		for i := 0; i < cfg.FailureThreshold; i++ {
			if err := r.Do(k, func() error { return boom }); !errors.Is(err, boom) {
				t.Fatalf("Do() error = %v, want %v", err, boom)
			}
		}
		if r.Get(k).State() != StateOpen {
			t.Fatalf("State() = %v, want open after threshold failures", r.Get(k).State())
		}
	})

	t.Run("rejects without calling fn while open", func(t *testing.T) {
		called := false
		err := r.Do(k, func() error { called = true; return nil })
		if !errors.Is(err, ErrOpen) {
			t.Fatalf("Do() error = %v, want ErrOpen", err)
		}
		if called {
			t.Errorf("fn was called while the breaker was open")
		}
	})

	t.Run("recovers through the half-open trial", func(t *testing.T) {
		clock.Advance(cfg.RecoveryTimeout)
		for i := 0; i < cfg.SuccessThreshold; i++ {
			if err := r.Do(k, func() error { return nil }); err != nil {
				t.Fatalf("Do() error = %v, want nil", err)
			}
		}
		if r.Get(k).State() != StateClosed {
			t.Fatalf("State() = %v, want closed after trial successes", r.Get(k).State())
		}
	})
}

func TestRegistry_Snapshots(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	k1 := Key{Tenant: "acme", Target: "sql", Operation: "compile"}
	k2 := Key{Tenant: "globex", Target: "sql", Operation: "compile"}

	r.Get(k1).RecordFailure()
	r.Get(k2).RecordSuccess()

	snaps := r.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("len(Snapshots()) = %v, want 2", len(snaps))
	}
	if snaps[k1].FailureCount != 1 {
		t.Errorf("k1 FailureCount = %v, want 1", snaps[k1].FailureCount)
	}
	if snaps[k2].SuccessCount != 1 {
		t.Errorf("k2 SuccessCount = %v, want 1", snaps[k2].SuccessCount)
	}
}
