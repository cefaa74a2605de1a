package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ordersync/internal/domain/service"
)

// recommendationTTL is how long a computed recommendation set stays
// fresh before the next read recomputes it.
const recommendationTTL = 30 * time.Minute

// RecommendationCache memoizes recommender output per session. The
// recommender call can be slow and metered, so results are served from
// cache until the TTL lapses; a cache that was never filled reports
// stale, which makes the first read compute.
type RecommendationCache struct {
	logger      *slog.Logger
	recommender service.Recommender
	behavior    *BehaviorLog
	now         func() time.Time

	mu         sync.Mutex
	cached     []service.Recommendation
	computedAt time.Time
}

// NewRecommendationCache wires the cache to its recommender and the
// behavior log that feeds preference derivation.
func NewRecommendationCache(recommender service.Recommender, behavior *BehaviorLog, logger *slog.Logger) *RecommendationCache {
	if logger == nil {
		logger = slog.Default()
	}

	return &RecommendationCache{
		logger:      logger,
		recommender: recommender,
		behavior:    behavior,
		now:         time.Now,
	}
}

// IsStale reports whether the next Get will recompute. A cache that has
// never been filled is stale by definition.
func (r *RecommendationCache) IsStale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.staleLocked()
}

func (r *RecommendationCache) staleLocked() bool {
	if r.computedAt.IsZero() {
		return true
	}

	return r.now().Sub(r.computedAt) >= recommendationTTL
}

// Get returns the current recommendation set, recomputing from the
// behavior log when the cached set has lapsed. The result is a copy.
func (r *RecommendationCache) Get(ctx context.Context) []service.Recommendation {
	r.mu.Lock()
	if !r.staleLocked() {
		cached := append([]service.Recommendation(nil), r.cached...)
		r.mu.Unlock()

		return cached
	}
	r.mu.Unlock()

	return r.Refresh(ctx)
}

// Refresh recomputes recommendations unconditionally and resets the
// TTL.
func (r *RecommendationCache) Refresh(ctx context.Context) []service.Recommendation {
	prefs := r.behavior.DerivePreferences(ctx)
	recommendations := r.recommender.Recommend(ctx, prefs)

	r.mu.Lock()
	r.cached = recommendations
	r.computedAt = r.now()
	r.mu.Unlock()

	r.logger.Debug("recommendation cache refreshed",
		slog.Int("count", len(recommendations)),
	)

	return append([]service.Recommendation(nil), recommendations...)
}

// Invalidate drops the cached set so the next Get recomputes, used
// after behavior that should visibly shift suggestions, like a placed
// order.
func (r *RecommendationCache) Invalidate() {
	r.mu.Lock()
	r.computedAt = time.Time{}
	r.cached = nil
	r.mu.Unlock()
}
