package commission

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// CACHED ENGINE - Memoized Compute
// =============================================================================

const cachePrefix = "breakdown"

// CachedEngine memoizes Engine.Compute in a generic.Cache. Cache failures are
// logged and fall through to a fresh computation.
type CachedEngine struct {
	Engine *Engine
	Cache  generic.Cache
	TTL    time.Duration
}

func NewCachedEngine(engine *Engine, cache generic.Cache, ttl time.Duration) *CachedEngine {
	return &CachedEngine{Engine: engine, Cache: cache, TTL: ttl}
}

// Key derives the cache key for an input under the engine's plan.
func (c *CachedEngine) Key(in BreakdownInput) (string, error) {
	plan := c.Engine.Plan
	return generic.CacheKey(cachePrefix,
		plan.ID, plan.Version, plan.WorkWeek, plan.Holidays, plan.location().String(),
		in.Context.Today.String(), in.Context.Month,
		in.Profile, in.Deals, in.MonthlyTarget, in.QuarterlyTarget, in.KPI,
	)
}

// Compute returns the cached breakdown for in, computing and storing it on a miss.
func (c *CachedEngine) Compute(ctx context.Context, in BreakdownInput) (*Breakdown, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	if c.Cache == nil {
		return c.Engine.compute(in), nil
	}

	key, err := c.Key(in)
	if err != nil {
		return nil, err
	}

	raw, err := c.Cache.Get(ctx, key)
	switch {
	case err == nil:
		var b Breakdown
		if err := json.Unmarshal(raw, &b); err == nil {
			return &b, nil
		}
		log.Printf("[Cache] Discarding unreadable entry %s", key)
	case !errors.Is(err, generic.ErrCacheMiss):
		log.Printf("[Cache] Get failed: %v", err)
	}

	b := c.Engine.compute(in)
	raw, err = json.Marshal(b)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(ctx, key, raw, c.TTL); err != nil {
		log.Printf("[Cache] Set failed: %v", err)
	}
	return b, nil
}
