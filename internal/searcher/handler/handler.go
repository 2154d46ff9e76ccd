// Package handler exposes the search engine over HTTP.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/scorer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/metrics"
)

// Tracker receives one event per served search. *analytics.Collector
// satisfies it.
type Tracker interface {
	Track(event analytics.SearchEvent)
}

type Handler struct {
	executor   *executor.Executor
	cache      *cache.QueryCache
	tracker    Tracker
	metrics    *metrics.Metrics
	defaults   executor.Options
	maxResults int
	logger     *slog.Logger
}

// New wires a Handler. queryCache, tracker and m may be nil. defaults are
// applied to every option a request leaves unset; limits above maxResults
// are clamped.
func New(
	exec *executor.Executor,
	queryCache *cache.QueryCache,
	tracker Tracker,
	m *metrics.Metrics,
	defaults executor.Options,
	maxResults int,
) *Handler {
	return &Handler{
		executor:   exec,
		cache:      queryCache,
		tracker:    tracker,
		metrics:    m,
		defaults:   defaults,
		maxResults: maxResults,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Routes mounts the search API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Get("/stats", h.IndexStats)
		r.Get("/cache/stats", h.CacheStats)
		r.Post("/cache/invalidate", h.CacheInvalidate)
	})
}

// Search serves GET /api/v1/search. Parameters:
//
//	q         query text (required)
//	filter    any | all
//	ranking   linear | bm25
//	synonyms  true | false
//	features  true | false, let synonym keys match feature indexes
//	limit     number of results
//	weight    name:value, repeatable, overrides one linear weight
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	params := r.URL.Query()
	if !params.Has("q") {
		h.writeError(w, apperrors.InvalidParameter("query parameter 'q' is required"))
		return
	}
	query := params.Get("q")
	opts, err := h.parseOptions(params)
	if err != nil {
		h.observe(opts, "invalid")
		h.writeError(w, err)
		return
	}

	var (
		resp     *executor.Response
		cacheHit bool
	)
	if h.cache != nil {
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, query, opts, func() (*executor.Response, error) {
			return h.executor.Search(ctx, query, opts)
		})
	} else {
		resp, err = h.executor.Search(ctx, query, opts)
	}
	if err != nil {
		outcome := "error"
		if apperrors.HTTPStatusCode(err) == http.StatusBadRequest {
			outcome = "invalid"
		}
		h.observe(opts, outcome)
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	latency := time.Since(start)
	h.record(opts, resp, cacheHit, latency)
	log.Info("search completed",
		"query", query,
		"filter_mode", opts.FilterMode,
		"ranking_mode", opts.RankingMode,
		"filtered", resp.Metadata.DocumentsFiltered,
		"returned", resp.Metadata.DocumentsReturned,
		"cache_hit", cacheHit,
		"latency", latency,
	)
	if h.tracker != nil {
		h.tracker.Track(analytics.SearchEvent{
			Query:             query,
			Tokens:            resp.QueryTokens,
			FilterMode:        string(opts.FilterMode),
			RankingMode:       string(opts.RankingMode),
			UseSynonyms:       opts.UseSynonyms,
			FeatureFiltering:  opts.FeatureFiltering,
			DocumentsFiltered: resp.Metadata.DocumentsFiltered,
			DocumentsReturned: resp.Metadata.DocumentsReturned,
			LatencyMicros:     latency.Microseconds(),
			CacheHit:          cacheHit,
			Timestamp:         time.Now().UTC(),
			RequestID:         chiMiddleware.GetReqID(ctx),
		})
	}
	if h.cache != nil {
		w.Header().Set("X-Cache", cacheHeader(cacheHit))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func (h *Handler) parseOptions(params map[string][]string) (executor.Options, error) {
	opts := h.defaults
	get := func(name string) string {
		if v := params[name]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	if v := get("filter"); v != "" {
		mode, err := filter.ParseMode(v)
		if err != nil {
			return opts, err
		}
		opts.FilterMode = mode
	}
	if v := get("ranking"); v != "" {
		mode, err := scorer.ParseMode(v)
		if err != nil {
			return opts, err
		}
		opts.RankingMode = mode
	}
	if v := get("synonyms"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperrors.InvalidParameter("synonyms must be a boolean, got %q", v)
		}
		opts.UseSynonyms = on
	}
	if v := get("features"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperrors.InvalidParameter("features must be a boolean, got %q", v)
		}
		opts.FeatureFiltering = on
	}
	if v := get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, apperrors.InvalidParameter("limit must be a positive integer, got %q", v)
		}
		opts.TopK = min(n, h.maxResults)
	}
	if overrides := params["weight"]; len(overrides) > 0 {
		weights := make(map[string]float64, len(opts.Weights)+len(overrides))
		for k, v := range opts.Weights {
			weights[k] = v
		}
		for _, o := range overrides {
			name, value, ok := strings.Cut(o, ":")
			if !ok {
				return opts, apperrors.InvalidParameter("weight must be name:value, got %q", o)
			}
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return opts, apperrors.InvalidParameter("weight %q has a non-numeric value", name)
			}
			weights[strings.TrimSpace(name)] = f
		}
		opts.Weights = weights
	}
	// rejected here so invalid options never reach the cache
	if _, err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (h *Handler) observe(opts executor.Options, outcome string) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(string(opts.RankingMode), string(opts.FilterMode), outcome).Inc()
}

func (h *Handler) record(opts executor.Options, resp *executor.Response, cacheHit bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	outcome := "results"
	if resp.Metadata.DocumentsReturned == 0 {
		outcome = "zero_result"
	}
	h.observe(opts, outcome)

	cacheStatus := "bypass"
	if h.cache != nil {
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(resp.Metadata.DocumentsReturned))
	h.metrics.SearchCandidates.Observe(float64(resp.Metadata.DocumentsFiltered))
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	store := h.executor.Store()
	if store == nil {
		h.writeError(w, apperrors.Configuration("index store not loaded"))
		return
	}
	h.writeJSON(w, http.StatusOK, store.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err onto its HTTP status. Messages of server-side errors
// are not echoed to the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "search failed"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
