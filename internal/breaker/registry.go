package breaker

import (
	"sync"
	"time"
)

// Key identifies an independent breaker. A slow Elasticsearch cluster for
// one tenant must not reject SQL compilation for another, so breakers are
// scoped per (tenant, target, operation).
type Key struct {
	Tenant    string
	Target    string
	Operation string
}

// Registry lazily creates one breaker per key. All breakers share the
// same Config; keys never expire (the key space is bounded by tenants x
// targets x operations).
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	now      func() time.Time
	breakers map[Key]*Breaker
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	return NewRegistryWithClock(cfg, time.Now)
}

// NewRegistryWithClock creates an empty registry with an explicit clock,
// shared by every breaker it creates.
func NewRegistryWithClock(cfg Config, now func() time.Time) *Registry {
	return &Registry{
		cfg:      cfg,
		now:      now,
		breakers: make(map[Key]*Breaker),
	}
}

// Get returns the breaker for key, creating it in the closed state on
// first use.
func (r *Registry) Get(key Key) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[key]
	if !ok {
		b = NewWithClock(r.cfg, r.now)
		r.breakers[key] = b
	}
	return b
}

// Do runs fn under the breaker for key: it returns ErrOpen without
// calling fn when the breaker rejects, and records fn's outcome
// otherwise.
func (r *Registry) Do(key Key, fn func() error) error {
	b := r.Get(key)
	if !b.Allow() {
		return ErrOpen
	}

	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// Snapshots returns the current state of every known breaker, keyed for
// introspection endpoints.
func (r *Registry) Snapshots() map[Key]Snapshot {
	r.mu.Lock()
	keys := make([]Key, 0, len(r.breakers))
	bs := make([]*Breaker, 0, len(r.breakers))
	for k, b := range r.breakers {
		keys = append(keys, k)
		bs = append(bs, b)
	}
	r.mu.Unlock()

	// Snapshot outside the registry lock to avoid holding it across
	// per-breaker mutexes
	out := make(map[Key]Snapshot, len(keys))
	for i, k := range keys {
		out[k] = bs[i].Snapshot()
	}
	return out
}
