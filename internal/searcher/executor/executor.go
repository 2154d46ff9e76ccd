package executor

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/scorer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/tracing"
)

type Metadata struct {
	TotalDocuments    int         `json:"total_documents"`
	DocumentsFiltered int         `json:"documents_filtered"`
	DocumentsReturned int         `json:"documents_returned"`
	FilterMode        filter.Mode `json:"filter_mode"`
	RankingMode       scorer.Mode `json:"ranking_mode"`
	UseSynonyms       bool        `json:"use_synonyms"`
	FeatureFiltering  bool        `json:"feature_filtering,omitempty"`
}

type Result struct {
	URL         string                 `json:"url"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Score       float64                `json:"score"`
	ReviewStats indexstore.ReviewStats `json:"review_stats"`
	Signals     scorer.Signals         `json:"signals,omitempty"`
}

type Response struct {
	Query          string   `json:"query"`
	QueryTokens    []string `json:"query_tokens"`
	ExpandedTokens []string `json:"expanded_tokens"`
	Metadata       Metadata `json:"metadata"`
	Results        []Result `json:"results"`
}

// Executor runs searches against one immutable Store. It holds no mutable
// state and is safe for concurrent use.
type Executor struct {
	store     *indexstore.Store
	processor *query.Processor
	filter    *filter.Filter
}

func New(store *indexstore.Store) *Executor {
	e := &Executor{store: store}
	if store != nil {
		e.processor = query.NewProcessor(store.Synonyms())
		e.filter = filter.New(store)
	}
	return e
}

// Store returns the index store searched by e.
func (e *Executor) Store() *indexstore.Store {
	return e.store
}

// Search processes, filters, scores and ranks one query. Options are
// validated before any work is done. A query matching nothing is a
// successful, empty response.
func (e *Executor) Search(ctx context.Context, raw string, opts Options) (*Response, error) {
	if e.store == nil {
		return nil, apperrors.Configuration("index store not loaded")
	}
	weights, err := opts.Validate()
	if err != nil {
		return nil, err
	}

	tr := tracing.Start("query executed")
	tokens := e.processor.Process(raw, opts.UseSynonyms)
	tr.Mark("process")
	f := e.filter
	if opts.FeatureFiltering && opts.UseSynonyms {
		f = f.WithFeatures(e.processor.IsCanonical)
	}
	matched := f.Apply(tokens.Expanded, opts.FilterMode)
	tr.Mark("filter")

	var s scorer.Scorer
	switch opts.RankingMode {
	case scorer.ModeBM25:
		s = scorer.NewBM25(e.store, opts.BM25)
	default:
		s = scorer.NewLinear(e.store, weights)
	}

	candidates := make([]ranker.Candidate, 0, len(matched))
	for url := range matched {
		score, signals := s.Score(tokens.Expanded, url)
		candidates = append(candidates, ranker.Candidate{
			URL:     url,
			Score:   score,
			Signals: signals,
		})
	}
	tr.Mark("score")
	ranked := ranker.Rank(candidates, opts.TopK)
	tr.Mark("rank")

	results := make([]Result, 0, len(ranked))
	for _, c := range ranked {
		result := Result{
			URL:     c.URL,
			Score:   c.Score,
			Signals: c.Signals,
		}
		if doc, ok := e.store.Document(c.URL); ok {
			result.Title = doc.Title
			result.Description = doc.Description
		}
		result.ReviewStats, _ = e.store.Review(c.URL)
		results = append(results, result)
	}

	tr.Mark("assemble")
	tr.Log(ctx, logger.FromContext(ctx), slog.LevelDebug,
		"component", "query-executor",
		"query", raw,
		"tokens", tokens.Expanded,
		"filter_mode", opts.FilterMode,
		"ranking_mode", opts.RankingMode,
		"candidates", len(matched),
		"results", len(results),
	)
	return &Response{
		Query:          raw,
		QueryTokens:    tokens.Original,
		ExpandedTokens: tokens.Expanded,
		Metadata: Metadata{
			TotalDocuments:    e.store.DocumentCount(),
			DocumentsFiltered: len(matched),
			DocumentsReturned: len(results),
			FilterMode:        opts.FilterMode,
			RankingMode:       opts.RankingMode,
			UseSynonyms:       opts.UseSynonyms,
			FeatureFiltering:  opts.FeatureFiltering,
		},
		Results: results,
	}, nil
}
