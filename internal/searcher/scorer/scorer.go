// Package scorer computes the relevance of a candidate document for a
// processed query, either with BM25 over the merged title and description
// or with a weighted linear combination of nine signals.
package scorer

import (
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/errors"
)

type Mode string

const (
	ModeLinear Mode = "linear"
	ModeBM25   Mode = "bm25"
)

// ParseMode accepts "linear" or "bm25" in any case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLinear:
		return ModeLinear, nil
	case ModeBM25:
		return ModeBM25, nil
	}
	return "", apperrors.InvalidParameter("unknown ranking mode %q", s)
}

func (m Mode) Valid() bool {
	return m == ModeLinear || m == ModeBM25
}

// Signals is the per-signal contribution to a score. The values sum to the
// score.
type Signals map[string]float64

// Scorer scores one candidate document for the given tokens.
type Scorer interface {
	Score(tokens []string, url string) (float64, Signals)
}

// BM25 saturation and length normalisation constants. Both published k1
// values are kept; K1Standard is the default.
const (
	K1Standard  = 1.2
	K1Alternate = 1.5
	BDefault    = 0.75
)

type BM25Params struct {
	K1 float64
	B  float64
}

func DefaultBM25Params() BM25Params {
	return BM25Params{K1: K1Standard, B: BDefault}
}

// BM25 treats title and description as one bag of terms.
type BM25 struct {
	store  *indexstore.Store
	params BM25Params
}

func NewBM25(store *indexstore.Store, params BM25Params) *BM25 {
	return &BM25{store: store, params: params}
}

func (s *BM25) Score(tokens []string, url string) (float64, Signals) {
	totalDocs := s.store.DocumentCount()
	docLength := float64(s.store.DocLength(url))
	avgDocLength := s.store.AvgDocLength()

	var score float64
	for _, token := range tokens {
		docFreq := s.store.DocumentFrequency(token)
		if docFreq == 0 {
			continue
		}
		tf := len(s.store.TitlePostings(token)[url]) + len(s.store.DescriptionPostings(token)[url])
		if tf == 0 {
			continue
		}
		score += computeIDF(totalDocs, docFreq) *
			computeTFNorm(float64(tf), docLength, avgDocLength, s.params)
	}
	return score, Signals{SignalBM25: score}
}

func computeIDF(totalDocs, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq, docLength, avgDocLength float64, p BM25Params) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + p.K1*(1-p.B+p.B*lengthRatio)
	return (termFreq * (p.K1 + 1)) / denominator
}

// Linear sums nine weighted signals.
type Linear struct {
	store   *indexstore.Store
	weights Weights
}

func NewLinear(store *indexstore.Store, weights Weights) *Linear {
	return &Linear{store: store, weights: weights}
}

func (s *Linear) Score(tokens []string, url string) (float64, Signals) {
	w := s.weights
	signals := make(Signals, 9)
	// summed in a fixed order so equal inputs give bit-identical scores
	var score float64
	add := func(signal string, v float64) {
		signals[signal] = v
		score += v
	}

	var titleTF, descTF int
	minTitlePos := -1
	for _, token := range tokens {
		titlePositions := s.store.TitlePostings(token)[url]
		titleTF += len(titlePositions)
		descTF += len(s.store.DescriptionPostings(token)[url])
		for _, p := range titlePositions {
			if minTitlePos < 0 || p < minTitlePos {
				minTitlePos = p
			}
		}
	}
	add(SignalTitleTF, w.TitleTF*float64(titleTF))
	add(SignalDescriptionTF, w.DescriptionTF*float64(descTF))

	if exactMatch(s.store.TitlePostings, tokens, url) {
		add(SignalTitleExactMatch, w.TitleExactMatch)
	}
	if exactMatch(s.store.DescriptionPostings, tokens, url) {
		add(SignalDescriptionExactMatch, w.DescriptionExactMatch)
	}

	if stats, ok := s.store.Review(url); ok && stats.TotalReviews > 0 {
		add(SignalReviewScore, w.ReviewScore*stats.MeanMark)
		add(SignalReviewCount, w.ReviewCount*math.Log(float64(stats.TotalReviews)+1))
	}

	if minTitlePos >= 0 {
		add(SignalEarlyPosition, w.EarlyPosition/float64(minTitlePos+1))
	}

	if brandMatch(tokens, s.store.Brand(url), s.store.BrandTerms(url)) {
		add(SignalBrandMatch, w.BrandMatch)
	}

	if s.store.DocLength(url) < ShortDocumentLength {
		add(SignalShortDocumentPenalty, score*w.ShortDocumentPenalty)
	}
	return score, signals
}

// brandMatch reports whether the query names the brand, either as its
// concatenated key ("goodfoods") or as its terms in order ("good foods").
func brandMatch(tokens []string, key string, terms []string) bool {
	if key == "" {
		return false
	}
	for i, token := range tokens {
		if token == key {
			return true
		}
		if len(terms) == 0 || i+len(terms) > len(tokens) {
			continue
		}
		run := true
		for j, term := range terms {
			if tokens[i+j] != term {
				run = false
				break
			}
		}
		if run {
			return true
		}
	}
	return false
}
