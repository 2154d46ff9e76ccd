package scorer

import (
	"math"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/errors"
)

// Signal names, also the keys of the weight table and of the per-result
// signal breakdown.
const (
	SignalTitleTF               = "title_tf"
	SignalDescriptionTF         = "description_tf"
	SignalTitleExactMatch       = "title_exact_match"
	SignalDescriptionExactMatch = "description_exact_match"
	SignalReviewScore           = "review_score"
	SignalReviewCount           = "review_count"
	SignalEarlyPosition         = "early_position"
	SignalBrandMatch            = "brand_match"
	SignalShortDocumentPenalty  = "short_document_penalty"
	SignalBM25                  = "bm25"
)

// ShortDocumentLength is the token count below which the short-document
// penalty applies.
const ShortDocumentLength = 10

// Weights is the weight table of the linear model.
type Weights struct {
	TitleTF               float64
	DescriptionTF         float64
	TitleExactMatch       float64
	DescriptionExactMatch float64
	ReviewScore           float64
	ReviewCount           float64
	EarlyPosition         float64
	BrandMatch            float64
	// ShortDocumentPenalty multiplies the score by (1 + ShortDocumentPenalty)
	// for documents shorter than ShortDocumentLength.
	ShortDocumentPenalty float64
}

func DefaultWeights() Weights {
	return Weights{
		TitleTF:               3.0,
		DescriptionTF:         1.0,
		TitleExactMatch:       10.0,
		DescriptionExactMatch: 5.0,
		ReviewScore:           1.5,
		ReviewCount:           0.5,
		EarlyPosition:         1.0,
		BrandMatch:            5.0,
		ShortDocumentPenalty:  -0.3,
	}
}

func (w *Weights) field(key string) *float64 {
	switch key {
	case SignalTitleTF:
		return &w.TitleTF
	case SignalDescriptionTF:
		return &w.DescriptionTF
	case SignalTitleExactMatch:
		return &w.TitleExactMatch
	case SignalDescriptionExactMatch:
		return &w.DescriptionExactMatch
	case SignalReviewScore:
		return &w.ReviewScore
	case SignalReviewCount:
		return &w.ReviewCount
	case SignalEarlyPosition:
		return &w.EarlyPosition
	case SignalBrandMatch:
		return &w.BrandMatch
	case SignalShortDocumentPenalty:
		return &w.ShortDocumentPenalty
	}
	return nil
}

// With returns a copy of w with the given keys overridden. An unknown key
// or a non-finite value is an invalid parameter.
func (w Weights) With(overrides map[string]float64) (Weights, error) {
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		f := w.field(key)
		if f == nil {
			return Weights{}, apperrors.InvalidParameter("unknown signal weight %q", key)
		}
		v := overrides[key]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Weights{}, apperrors.InvalidParameter("signal weight %q must be finite, got %g", key, v)
		}
		*f = v
	}
	return w, nil
}

// Map returns the weights keyed by signal name.
func (w Weights) Map() map[string]float64 {
	return map[string]float64{
		SignalTitleTF:               w.TitleTF,
		SignalDescriptionTF:         w.DescriptionTF,
		SignalTitleExactMatch:       w.TitleExactMatch,
		SignalDescriptionExactMatch: w.DescriptionExactMatch,
		SignalReviewScore:           w.ReviewScore,
		SignalReviewCount:           w.ReviewCount,
		SignalEarlyPosition:         w.EarlyPosition,
		SignalBrandMatch:            w.BrandMatch,
		SignalShortDocumentPenalty:  w.ShortDocumentPenalty,
	}
}
