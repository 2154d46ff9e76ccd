// Package cache stores search responses in Redis keyed by the normalised
// query and every option that affects ranking. Concurrent misses for the same
// key are collapsed with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/metrics"
)

const keyPrefix = "search:"

// Backend is the key-value store behind the cache. *redis.Client satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New builds a QueryCache over backend. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, query string, opts executor.Options) (*executor.Response, bool) {
	key := BuildKey(query, opts)
	data, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if !found {
		c.miss()
		return nil, false
	}
	var resp executor.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", query, "key", key)
	resp.Query = query
	return &resp, true
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) Set(ctx context.Context, query string, opts executor.Options, resp *executor.Response) {
	key := BuildKey(query, opts)
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached response for (query, opts) or computes and
// stores it. hit reports whether the response came from the cache. Errors of
// compute are returned unchanged and never cached. The returned response
// always carries the caller's own query string, even when it was computed
// for a different spelling of the same key.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	opts executor.Options,
	compute func() (*executor.Response, error),
) (resp *executor.Response, hit bool, err error) {
	if resp, ok := c.Get(ctx, query, opts); ok {
		return resp, true, nil
	}
	key := BuildKey(query, opts)
	val, err, _ := c.group.Do(key, func() (any, error) {
		resp, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, opts, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return withQuery(val.(*executor.Response), query), false, nil
}

// withQuery returns resp, or a shallow copy of it when it was computed for
// another spelling of the query.
func withQuery(resp *executor.Response, query string) *executor.Response {
	if resp.Query == query {
		return resp
	}
	out := *resp
	out.Query = query
	return &out
}

func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey derives the cache key of a search. Queries that normalise to the
// same words in the same order share a key; word order is kept because it
// decides exact phrase matches.
func BuildKey(query string, opts executor.Options) string {
	var b strings.Builder
	b.WriteString(strings.Join(tokenizer.Words(query), " "))
	b.WriteString("|filter=")
	b.WriteString(string(opts.FilterMode))
	b.WriteString("|ranking=")
	b.WriteString(string(opts.RankingMode))
	b.WriteString("|synonyms=")
	b.WriteString(strconv.FormatBool(opts.UseSynonyms))
	b.WriteString("|features=")
	b.WriteString(strconv.FormatBool(opts.FeatureFiltering))
	b.WriteString("|k=")
	b.WriteString(strconv.Itoa(opts.TopK))
	fmt.Fprintf(&b, "|bm25=%g,%g", opts.BM25.K1, opts.BM25.B)

	names := make([]string, 0, len(opts.Weights))
	for name := range opts.Weights {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "|%s=%g", name, opts.Weights[name])
	}

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
