package shapefile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evaqua/glacier-risk-core/internal/domain"
	"github.com/evaqua/glacier-risk-core/internal/observability"
)

// countingLoader counts source reads and can fail on demand.
type countingLoader struct {
	reads atomic.Int64
	err   error
	delay time.Duration
}

func (m *countingLoader) Load(_ context.Context, path string) (domain.SpatialLayer, error) {
	m.reads.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return domain.SpatialLayer{}, m.err
	}
	return domain.SpatialLayer{Name: "stub", Path: path}, nil
}

func newTestCache(inner domain.LayerLoader, ttl time.Duration, clock clockwork.Clock) *CachedLoader {
	return NewCachedLoader(inner, ttl, clock, observability.NewMetricsForTesting())
}

func TestCachedLoader_HitWithinTTL(t *testing.T) {
	inner := &countingLoader{}
	clock := clockwork.NewFakeClock()
	cached := newTestCache(inner, time.Hour, clock)

	l1, err := cached.Load(context.Background(), "data/boundary.shp")
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)

	l2, err := cached.Load(context.Background(), "data/boundary.shp")
	require.NoError(t, err)

	assert.Equal(t, int64(1), inner.reads.Load(), "second load within ttl must not re-read the source")
	assert.Equal(t, l1.Path, l2.Path)
}

func TestCachedLoader_ExpiryTriggersReload(t *testing.T) {
	inner := &countingLoader{}
	clock := clockwork.NewFakeClock()
	cached := newTestCache(inner, time.Hour, clock)

	_, err := cached.Load(context.Background(), "data/boundary.shp")
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)

	_, err = cached.Load(context.Background(), "data/boundary.shp")
	require.NoError(t, err)

	assert.Equal(t, int64(2), inner.reads.Load(), "load past ttl is a miss")
}

func TestCachedLoader_DistinctPathsMiss(t *testing.T) {
	inner := &countingLoader{}
	cached := newTestCache(inner, time.Hour, clockwork.NewFakeClock())

	_, _ = cached.Load(context.Background(), "data/boundary.shp")
	_, _ = cached.Load(context.Background(), "data/glaciers.shp")

	assert.Equal(t, int64(2), inner.reads.Load())
}

func TestCachedLoader_FailuresAreNotCached(t *testing.T) {
	inner := &countingLoader{err: errors.New("corrupt file")}
	cached := newTestCache(inner, time.Hour, clockwork.NewFakeClock())

	_, err := cached.Load(context.Background(), "data/boundary.shp")
	require.Error(t, err)

	inner.err = nil

	layer, err := cached.Load(context.Background(), "data/boundary.shp")
	require.NoError(t, err)
	assert.Equal(t, "stub", layer.Name)
	assert.Equal(t, int64(2), inner.reads.Load(), "a failed load must be retried, not served from cache")
}

func TestCachedLoader_ConcurrentLoadsShareOneRead(t *testing.T) {
	inner := &countingLoader{delay: 50 * time.Millisecond}
	cached := newTestCache(inner, time.Hour, clockwork.NewFakeClock())

	const callers = 20
	var wg sync.WaitGroup
	results := make([]domain.SpatialLayer, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cached.Load(context.Background(), "data/boundary.shp")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), inner.reads.Load(), "concurrent loads of one path must share a single read")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "data/boundary.shp", results[i].Path)
	}
}

func TestCachedLoader_WaiterHonorsContext(t *testing.T) {
	inner := &countingLoader{delay: 200 * time.Millisecond}
	cached := newTestCache(inner, time.Hour, clockwork.NewFakeClock())

	go func() {
		_, _ = cached.Load(context.Background(), "data/boundary.shp")
	}()

	// Give the first caller time to register its in-flight load.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cached.Load(ctx, "data/boundary.shp")
	assert.ErrorIs(t, err, context.Canceled)
}
