package shapefile

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/evaqua/glacier-risk-core/internal/domain"
	"github.com/evaqua/glacier-risk-core/internal/observability"
)

// CachedLoader wraps a LayerLoader with a TTL cache keyed by path. A cached
// layer is returned without re-reading the source until its entry expires; a
// read past the TTL is a miss and triggers a fresh load. Concurrent loads of
// the same uncached path share a single source read. Failed loads are never
// cached, so a retry hits the source again.
type CachedLoader struct {
	inner   domain.LayerLoader
	clock   clockwork.Clock
	ttl     time.Duration
	metrics *observability.Metrics

	mu       sync.Mutex
	entries  map[string]cacheEntry
	inflight map[string]*loadCall
}

type cacheEntry struct {
	layer    domain.SpatialLayer
	loadedAt time.Time
}

// loadCall is one in-flight source read. Waiters read layer/err only after
// done is closed.
type loadCall struct {
	done  chan struct{}
	layer domain.SpatialLayer
	err   error
}

// NewCachedLoader creates a cache decorator around a loader. The clock is
// injected so tests can drive expiry deterministically.
func NewCachedLoader(inner domain.LayerLoader, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedLoader {
	return &CachedLoader{
		inner:    inner,
		clock:    clock,
		ttl:      ttl,
		metrics:  metrics,
		entries:  make(map[string]cacheEntry),
		inflight: make(map[string]*loadCall),
	}
}

// Load returns the cached layer for path, or performs the load. At most one
// source read per path is in flight at a time; concurrent callers wait for
// and share its outcome.
func (c *CachedLoader) Load(ctx context.Context, path string) (domain.SpatialLayer, error) {
	c.mu.Lock()
	if e, ok := c.entries[path]; ok && c.clock.Since(e.loadedAt) < c.ttl {
		c.mu.Unlock()
		c.metrics.LayerCacheResults.WithLabelValues("hit").Inc()
		return e.layer, nil
	}
	if call, ok := c.inflight[path]; ok {
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return domain.SpatialLayer{}, ctx.Err()
		case <-call.done:
			return call.layer, call.err
		}
	}
	call := &loadCall{done: make(chan struct{})}
	c.inflight[path] = call
	c.mu.Unlock()

	c.metrics.LayerCacheResults.WithLabelValues("miss").Inc()
	call.layer, call.err = c.inner.Load(ctx, path)

	c.mu.Lock()
	delete(c.inflight, path)
	if call.err == nil {
		c.entries[path] = cacheEntry{layer: call.layer, loadedAt: c.clock.Now()}
	}
	c.mu.Unlock()

	close(call.done)
	return call.layer, call.err
}
