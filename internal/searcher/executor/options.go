package executor

import (
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/scorer"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/errors"
)

const DefaultTopK = 10

// Options configures one search call. The zero value is not valid; start
// from DefaultOptions or OptionsFromConfig.
type Options struct {
	FilterMode  filter.Mode
	RankingMode scorer.Mode
	UseSynonyms bool
	TopK        int
	// Weights overrides entries of the default linear weight table by signal
	// name.
	Weights map[string]float64
	BM25    scorer.BM25Params
	// FeatureFiltering lets canonical synonym keys match feature indexes
	// during filtering. It only applies when UseSynonyms is set.
	FeatureFiltering bool
}

func DefaultOptions() Options {
	return Options{
		FilterMode:  filter.ModeAny,
		RankingMode: scorer.ModeLinear,
		UseSynonyms: true,
		TopK:        DefaultTopK,
		BM25:        scorer.DefaultBM25Params(),
	}
}

// OptionsFromConfig returns the service-wide defaults of the search section.
func OptionsFromConfig(cfg config.SearchConfig) Options {
	opts := DefaultOptions()
	opts.FilterMode = filter.Mode(cfg.FilterMode)
	opts.RankingMode = scorer.Mode(cfg.RankingMode)
	opts.UseSynonyms = cfg.UseSynonyms
	opts.FeatureFiltering = cfg.FeatureFiltering
	if cfg.DefaultLimit > 0 {
		opts.TopK = cfg.DefaultLimit
	}
	if len(cfg.Weights) > 0 {
		opts.Weights = make(map[string]float64, len(cfg.Weights))
		for k, v := range cfg.Weights {
			opts.Weights[k] = v
		}
	}
	opts.BM25 = scorer.BM25Params{K1: cfg.BM25.K1, B: cfg.BM25.B}
	return opts
}

// Validate checks every option and resolves the linear weight table.
func (o Options) Validate() (scorer.Weights, error) {
	if !o.FilterMode.Valid() {
		return scorer.Weights{}, apperrors.InvalidParameter("unknown filter mode %q", o.FilterMode)
	}
	if !o.RankingMode.Valid() {
		return scorer.Weights{}, apperrors.InvalidParameter("unknown ranking mode %q", o.RankingMode)
	}
	if o.TopK <= 0 {
		return scorer.Weights{}, apperrors.InvalidParameter("top_k must be positive, got %d", o.TopK)
	}
	if o.BM25.K1 < 0 || o.BM25.B < 0 || o.BM25.B > 1 {
		return scorer.Weights{}, apperrors.InvalidParameter("bm25 parameters out of range: k1=%g b=%g", o.BM25.K1, o.BM25.B)
	}
	return scorer.DefaultWeights().With(o.Weights)
}
