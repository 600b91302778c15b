package registers

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/sectionnet/register-store/model/register"
	"github.com/sectionnet/register-store/module"
	"github.com/sectionnet/register-store/module/metrics"
)

// projectionCache keeps reconstructed register bundles keyed by address.
// A cached projection is only valid while the on-disk log has the exact
// byte length it was built from; the log is append-only, so a length
// match means the op set is unchanged.
type projectionCache struct {
	metrics module.CacheMetrics
	cache   *lru.Cache
}

type cachedProjection struct {
	logSize int64
	stored  *storedRegister
}

func newProjectionCache(collector module.CacheMetrics, limit uint) *projectionCache {
	cache, _ := lru.New(int(limit))
	return &projectionCache{
		metrics: collector,
		cache:   cache,
	}
}

// get returns the cached projection if it was built from a log of the
// given size.
func (c *projectionCache) get(addr register.Address, logSize int64) (*storedRegister, bool) {
	cached, ok := c.cache.Get(addr)
	if !ok {
		c.metrics.CacheMiss(metrics.ResourceRegisterProjection)
		return nil, false
	}
	projection := cached.(*cachedProjection)
	if projection.logSize != logSize {
		c.metrics.CacheMiss(metrics.ResourceRegisterProjection)
		return nil, false
	}
	c.metrics.CacheHit(metrics.ResourceRegisterProjection)
	return projection.stored, true
}

// put stores a projection built from a log of the given size.
func (c *projectionCache) put(addr register.Address, logSize int64, stored *storedRegister) {
	c.cache.Add(addr, &cachedProjection{logSize: logSize, stored: stored})
	c.metrics.CacheEntries(metrics.ResourceRegisterProjection, uint(c.cache.Len()))
}

// invalidate drops the address's projection after any mutation.
func (c *projectionCache) invalidate(addr register.Address) {
	c.cache.Remove(addr)
	c.metrics.CacheEntries(metrics.ResourceRegisterProjection, uint(c.cache.Len()))
}
