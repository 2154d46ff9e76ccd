package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore/storetest"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/metrics"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
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

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.SearchEvent
}

func (t *recordingTracker) Track(e analytics.SearchEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

type fixture struct {
	router  http.Handler
	tracker *recordingTracker
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, withCache bool) fixture {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	var qc *cache.QueryCache
	if withCache {
		qc = cache.New(&memBackend{data: make(map[string][]byte)}, time.Minute, m)
	}
	tracker := &recordingTracker{}
	h := New(executor.New(storetest.New(t)), qc, tracker, m, executor.DefaultOptions(), 5)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	h.Routes(r)
	return fixture{router: r, tracker: tracker, metrics: m}
}

func (f fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(chiMiddleware.RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) executor.Response {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp executor.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func urls(resp executor.Response) []string {
	out := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		out[i] = r.URL
	}
	return out
}

func TestSearch(t *testing.T) {
	f := newFixture(t, false)
	resp := decode(t, f.do(t, http.MethodGet, "/api/v1/search?q=chocolate+candy"))

	assert.Equal(t, "chocolate candy", resp.Query)
	assert.Equal(t, []string{"chocolate", "candy"}, resp.QueryTokens)
	assert.Equal(t, []string{storetest.ChocolateBox, storetest.EnergyDrink, storetest.CandyShort}, urls(resp))
	assert.Equal(t, storetest.DocumentsTotal, resp.Metadata.TotalDocuments)

	require.Len(t, f.tracker.events, 1)
	event := f.tracker.events[0]
	assert.Equal(t, "chocolate candy", event.Key())
	assert.Equal(t, 3, event.DocumentsReturned)
	assert.Equal(t, "linear", event.RankingMode)
	assert.Equal(t, "req-1", event.RequestID)
	assert.False(t, event.CacheHit)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		f.metrics.SearchQueriesTotal.WithLabelValues("linear", "any", "results")))
}

func TestSearchOptions(t *testing.T) {
	f := newFixture(t, false)

	resp := decode(t, f.do(t, http.MethodGet, "/api/v1/search?q=chocolate+candy&limit=1"))
	assert.Equal(t, []string{storetest.ChocolateBox}, urls(resp))

	resp = decode(t, f.do(t, http.MethodGet, "/api/v1/search?q=chocolate+candy&filter=ALL"))
	assert.Equal(t, []string{storetest.ChocolateBox}, urls(resp))
	assert.Equal(t, "all", string(resp.Metadata.FilterMode))

	resp = decode(t, f.do(t, http.MethodGet, "/api/v1/search?q=chocolate&ranking=bm25"))
	require.NotEmpty(t, resp.Results)
	assert.Contains(t, resp.Results[0].Signals, "bm25")

	resp = decode(t, f.do(t, http.MethodGet, "/api/v1/search?q=made+in+italy&features=true"))
	assert.Equal(t, []string{storetest.Sneakers, storetest.SneakersBlack}, urls(resp))

	resp = decode(t, f.do(t, http.MethodGet, "/api/v1/search?q=made+in+italy&features=true&synonyms=false"))
	assert.Empty(t, resp.Results)

	resp = decode(t, f.do(t, http.MethodGet, "/api/v1/search?q=chocolate&weight=title_tf:0&weight=description_tf:0&weight=title_exact_match:0&weight=description_exact_match:0&weight=early_position:0"))
	for _, r := range resp.Results {
		assert.Zero(t, r.Signals["title_tf"])
	}
}

func TestSearchLimitIsClamped(t *testing.T) {
	f := newFixture(t, false)
	resp := decode(t, f.do(t, http.MethodGet, "/api/v1/search?q=shoes+sneakers+chocolate+candy+drink&limit=500"))
	assert.Len(t, resp.Results, 5)
	assert.Equal(t, 6, resp.Metadata.DocumentsFiltered)
}

func TestSearchEmptyQuery(t *testing.T) {
	f := newFixture(t, false)
	resp := decode(t, f.do(t, http.MethodGet, "/api/v1/search?q=the+of"))
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Equal(t, 1.0, testutil.ToFloat64(
		f.metrics.SearchQueriesTotal.WithLabelValues("linear", "any", "zero_result")))
}

func TestSearchRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"missing q", "/api/v1/search", "'q' is required"},
		{"filter", "/api/v1/search?q=x&filter=some", "unknown filter mode"},
		{"ranking", "/api/v1/search?q=x&ranking=tfidf", "unknown ranking mode"},
		{"limit", "/api/v1/search?q=x&limit=0", "limit must be a positive integer"},
		{"synonyms", "/api/v1/search?q=x&synonyms=maybe", "synonyms must be a boolean"},
		{"weight format", "/api/v1/search?q=x&weight=title_tf", "weight must be name:value"},
		{"weight name", "/api/v1/search?q=x&weight=popularity:1", "popularity"},
		{"weight nan", "/api/v1/search?q=chocolate&weight=title_tf:NaN", "must be finite"},
		{"weight inf", "/api/v1/search?q=chocolate&weight=brand_match:-Inf", "must be finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			rec := f.do(t, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Empty(t, f.tracker.events)
		})
	}
}

func TestSearchWithoutStore(t *testing.T) {
	h := New(executor.New(nil), nil, nil, nil, executor.DefaultOptions(), 10)
	r := chi.NewRouter()
	h.Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearchUsesCache(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/api/v1/search?q=chocolate+candy")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	first := decode(t, rec)
	rec = f.do(t, http.MethodGet, "/api/v1/search?q=Chocolate,+CANDY!")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	second := decode(t, rec)
	assert.Equal(t, urls(first), urls(second))
	assert.Equal(t, "chocolate candy", first.Query)
	assert.Equal(t, "Chocolate, CANDY!", second.Query)

	require.Len(t, f.tracker.events, 2)
	assert.False(t, f.tracker.events[0].CacheHit)
	assert.True(t, f.tracker.events[1].CacheHit)

	rec = f.do(t, http.MethodGet, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hits":1,"misses":1,"total":2,"hit_rate":"50.0%"}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/cache/invalidate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"invalidated","keys_deleted":1}`, rec.Body.String())
}

func TestCacheEndpointsWhenDisabled(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/v1/cache/stats")
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/cache/invalidate")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndexStats(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats indexstore.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, storetest.DocumentsTotal, stats.Documents)
	assert.Equal(t, 5, stats.FeatureValues["brand"])
}
