package redis

import (
	"context"
	"errors"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/intel"
	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTEL STATE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// IntelStateCache caches assembled intel states keyed by user. It implements
// query.IntelCache and eventhandler.IntelInvalidator.
type IntelStateCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewIntelStateCache creates a new IntelStateCache.
func NewIntelStateCache(cache *Cache) *IntelStateCache {
	return &IntelStateCache{
		cache: cache,
		ttl:   TTLIntelState,
	}
}

// Get returns the cached intel state of a user.
// Returns an error matching shared.ErrNotFound on a miss.
func (c *IntelStateCache) Get(ctx context.Context, userID string) (*intel.UserIntelState, error) {
	if userID == "" {
		return nil, shared.WrapError("intel", "CacheGet", shared.ErrValidation, "user id is required", nil)
	}

	var state intel.UserIntelState
	err := c.cache.Get(ctx, IntelKey(userID), &state)
	if errors.Is(err, ErrCacheMiss) {
		return nil, shared.WrapError("intel", "CacheGet", shared.ErrNotFound, "intel state not cached", err)
	}
	if err != nil {
		return nil, shared.WrapError("intel", "CacheGet", shared.ErrExternalService, "failed to read intel cache", err)
	}

	return &state, nil
}

// Set stores an intel state with the given TTL. A non-positive TTL falls
// back to the default.
func (c *IntelStateCache) Set(ctx context.Context, state *intel.UserIntelState, ttl time.Duration) error {
	if state == nil || state.UserID == "" {
		return shared.WrapError("intel", "CacheSet", shared.ErrValidation, "state with user id is required", nil)
	}

	if ttl <= 0 {
		ttl = c.ttl
	}

	if err := c.cache.Set(ctx, IntelKey(state.UserID), state, ttl); err != nil {
		return shared.WrapError("intel", "CacheSet", shared.ErrExternalService, "failed to write intel cache", err)
	}
	return nil
}

// Invalidate drops the cached intel state of a user.
func (c *IntelStateCache) Invalidate(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}

	if err := c.cache.Delete(ctx, IntelKey(userID)); err != nil {
		return shared.WrapError("intel", "CacheInvalidate", shared.ErrExternalService, "failed to drop intel cache", err)
	}
	return nil
}
