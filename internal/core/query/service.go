/*
 * Package query is the orchestration layer over the filter subsystem. It
 * ties together validation, optimization, compilation, the compiled-query
 * cache, and the per-target circuit breakers behind a single Build call.
 *
 * Compilation is pure and cheap relative to executing the resulting
 * query, but repeated Build calls for the same tree/target/context are
 * common (dashboards re-rendering, paginated result fetches), so
 * compiled queries are cached in an expiring LRU keyed by a SHA256
 * digest of the canonical tree encoding plus every input that affects
 * output. Optimization runs before the cache lookup: an optimized and an
 * unoptimized build of the same tree are different cache entries.
 */
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/solatis/queryforge/internal/breaker"
	"github.com/solatis/queryforge/internal/compile"
	"github.com/solatis/queryforge/internal/core/config"
	"github.com/solatis/queryforge/internal/rules"
	"github.com/solatis/queryforge/internal/tree"
	"github.com/solatis/queryforge/internal/types"
)

// Service orchestrates filter tree validation, optimization, and
// compilation for all tenants.
type Service struct {
	compiler *compile.Compiler
	limits   tree.Limits
	weights  rules.Weights
	cache    *expirable.LRU[string, *compile.SearchQuery]
	breakers *breaker.Registry
	store    *Store
	secrets  map[string][]byte
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a service with dependencies. The store may be nil
// for stateless deployments (no templates, presets, or share tokens).
func NewService(cfg *config.ServiceConfig, store *Store, secrets map[string][]byte, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	weights := rules.DefaultWeights()
	if cfg.AnalyticsWorkload {
		weights = rules.AnalyticsWeights()
	}

	return &Service{
		compiler: compile.New(cfg.AllowedFields, cfg.AllowedTables),
		limits: tree.Limits{
			MaxDepth:      cfg.MaxTreeDepth,
			MaxConditions: cfg.MaxConditions,
		},
		weights: weights,
		cache:   expirable.NewLRU[string, *compile.SearchQuery](cfg.CacheSize, nil, cfg.CacheTTL),
		breakers: breaker.NewRegistry(breaker.Config{
			FailureThreshold: cfg.BreakerFailureThreshold,
			SuccessThreshold: cfg.BreakerSuccessThreshold,
			RecoveryTimeout:  cfg.BreakerRecoveryTimeout,
		}),
		store:   store,
		secrets: secrets,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Limits returns the builder limits enforced for interactive mutation.
func (s *Service) Limits() tree.Limits { return s.limits }

// Store exposes the persistence layer; nil in stateless deployments.
func (s *Service) Store() *Store { return s.store }

// Breakers exposes circuit breaker snapshots for introspection.
func (s *Service) Breakers() map[breaker.Key]breaker.Snapshot {
	return s.breakers.Snapshots()
}

// BuildOptions controls a single Build call.
type BuildOptions struct {
	// Optimize runs the rewrite passes before compilation.
	Optimize bool
	// Tenant scopes the circuit breaker and audit logging.
	Tenant string
}

// Build validates, optionally optimizes, and compiles a filter tree for
// the given target. Validation errors abort with a *ValidationError
// carrying the full diagnostic report. Results are cached; a cache hit
// skips compilation entirely but is still audit-logged.
func (s *Service) Build(ctx context.Context, root types.Node, target compile.Target, ectx compile.ExecutionContext, opts BuildOptions) (*compile.SearchQuery, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownTarget, target)
	}
	start := s.now()

	result := rules.Validate(root)
	if !result.Valid {
		s.logger.WarnContext(ctx, "filter validation failed",
			"tenant", opts.Tenant,
			"target", string(target),
			"diagnostics", len(result.Diagnostics))
		return nil, &ValidationError{Result: result}
	}

	var notes []string
	if opts.Optimize {
		root, notes = rules.Optimize(root)
	}

	key, err := cacheKey(root, target, ectx, opts.Optimize)
	if err != nil {
		return nil, err
	}

	if sq, ok := s.cache.Get(key); ok {
		s.logger.InfoContext(ctx, "compiled query served from cache",
			"tenant", opts.Tenant,
			"target", string(target),
			"cache_key", key[:12])
		return sq, nil
	}

	bk := breaker.Key{Tenant: opts.Tenant, Target: string(target), Operation: "compile"}
	var sq *compile.SearchQuery
	err = s.breakers.Do(bk, func() error {
		var cerr error
		sq, cerr = s.compiler.Build(root, target, ectx)
		return cerr
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "query compilation failed",
			"tenant", opts.Tenant,
			"target", string(target),
			"error", err)
		return nil, err
	}

	sq.Metadata.OptimizationNotes = notes
	s.cache.Add(key, sq)

	s.logger.InfoContext(ctx, "query compiled",
		"tenant", opts.Tenant,
		"target", string(target),
		"complexity", sq.Metadata.Complexity,
		"optimized", opts.Optimize,
		"cache_key", key[:12],
		"duration_ms", s.now().Sub(start).Milliseconds())

	return sq, nil
}

// Validate runs the full rule set. The embedded performance estimate
// scores with the standard weights regardless of workload; use
// Complexity for a score under the service's configured weights.
func (s *Service) Validate(root types.Node) rules.Validation {
	return rules.Validate(root)
}

// Optimize applies the rewrite passes and returns the rewritten tree
// with human-readable notes describing what changed.
func (s *Service) Optimize(root types.Node) (types.Node, []string) {
	return rules.Optimize(root)
}

// Complexity scores a tree using the service's workload weights.
func (s *Service) Complexity(root types.Node) int {
	return rules.Score(root, s.weights)
}

// IndexHints suggests backing indexes for a tree's conditions.
func (s *Service) IndexHints(root types.Node) []string {
	return rules.IndexHints(root)
}

// CacheLen reports the number of live compiled-query cache entries.
func (s *Service) CacheLen() int { return s.cache.Len() }

// PurgeCache drops every cached compiled query. Used after allow-list or
// field mapping changes that would make cached output stale.
func (s *Service) PurgeCache() { s.cache.Purge() }

// cacheKey derives a digest over everything that affects compiled
// output: canonical tree encoding, target, execution context, and the
// optimize flag. JSON map encoding sorts keys, so equal contexts always
// produce equal digests.
func cacheKey(root types.Node, target compile.Target, ectx compile.ExecutionContext, optimized bool) (string, error) {
	raw, err := types.MarshalNode(root)
	if err != nil {
		return "", fmt.Errorf("failed to encode tree for cache key: %w", err)
	}
	ctxRaw, err := json.Marshal(ectx)
	if err != nil {
		return "", fmt.Errorf("failed to encode execution context for cache key: %w", err)
	}

	h := sha256.New()
	h.Write(raw)
	h.Write([]byte{0})
	h.Write([]byte(target))
	h.Write([]byte{0})
	h.Write(ctxRaw)
	h.Write([]byte{0})
	if optimized {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
