package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/metrics"
)

type memBackend struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	lastTTL time.Duration
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.lastTTL = ttl
	return nil
}

func (m *memBackend) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func response(query string) *executor.Response {
	return &executor.Response{
		Query:   query,
		Results: []executor.Result{{URL: "https://shop.test/product/1", Score: 17.5}},
	}
}

func TestGetOrCompute(t *testing.T) {
	backend := newMemBackend()
	m := metrics.New(prometheus.NewRegistry())
	c := New(backend, time.Minute, m)
	opts := executor.DefaultOptions()
	ctx := context.Background()

	var calls atomic.Int32
	compute := func() (*executor.Response, error) {
		calls.Add(1)
		return response("chocolate candy"), nil
	}

	resp, hit, err := c.GetOrCompute(ctx, "chocolate candy", opts, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "chocolate candy", resp.Query)
	assert.Equal(t, time.Minute, backend.lastTTL)

	resp, hit, err = c.GetOrCompute(ctx, "Chocolate, candy!", opts, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Chocolate, candy!", resp.Query)
	assert.Equal(t, 17.5, resp.Results[0].Score)
	assert.Equal(t, int32(1), calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestGetOrComputeSharedResultKeepsCallerQuery(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)
	opts := executor.DefaultOptions()
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	compute := func() (*executor.Response, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return response("chocolate candy"), nil
	}

	var wg sync.WaitGroup
	var first, second *executor.Response
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, _, _ = c.GetOrCompute(ctx, "chocolate candy", opts, compute)
	}()
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		second, _, _ = c.GetOrCompute(ctx, "CHOCOLATE candy", opts, compute)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "chocolate candy", first.Query)
	assert.Equal(t, "CHOCOLATE candy", second.Query)
	assert.Equal(t, first.Results, second.Results)
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	backend := newMemBackend()
	c := New(backend, time.Minute, nil)
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), "q", executor.DefaultOptions(), func() (*executor.Response, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, backend.data)
}

func TestBackendFailureIsAMiss(t *testing.T) {
	backend := newMemBackend()
	backend.getErr = errors.New("connection refused")
	c := New(backend, time.Minute, nil)

	_, ok := c.Get(context.Background(), "q", executor.DefaultOptions())
	assert.False(t, ok)
	_, misses := c.Stats()
	assert.Equal(t, int64(1), misses)
}

func TestBuildKey(t *testing.T) {
	base := executor.DefaultOptions()
	key := BuildKey("chocolate candy", base)
	assert.True(t, strings.HasPrefix(key, keyPrefix))
	assert.Equal(t, key, BuildKey("  CHOCOLATE   candy. ", base))

	// word order decides phrase matches
	assert.NotEqual(t, key, BuildKey("candy chocolate", base))

	all := base
	all.FilterMode = filter.ModeAll
	assert.NotEqual(t, key, BuildKey("chocolate candy", all))

	limited := base
	limited.TopK = 3
	assert.NotEqual(t, key, BuildKey("chocolate candy", limited))

	weighted := base
	weighted.Weights = map[string]float64{"brand_match": 1, "title_tf": 2}
	reordered := base
	reordered.Weights = map[string]float64{"title_tf": 2, "brand_match": 1}
	assert.NotEqual(t, key, BuildKey("chocolate candy", weighted))
	assert.Equal(t, BuildKey("chocolate candy", weighted), BuildKey("chocolate candy", reordered))
}

func TestInvalidate(t *testing.T) {
	backend := newMemBackend()
	backend.data["other:key"] = []byte("x")
	c := New(backend, time.Minute, nil)
	c.Set(context.Background(), "a", executor.DefaultOptions(), response("a"))
	c.Set(context.Background(), "b", executor.DefaultOptions(), response("b"))

	deleted, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Contains(t, backend.data, "other:key")
}
