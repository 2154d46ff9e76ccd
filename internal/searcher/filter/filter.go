// Package filter selects the candidate documents of a query from the title
// and description postings, with union (any) or intersection (all)
// semantics.
package filter

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/errors"
)

type Mode string

const (
	ModeAny Mode = "any"
	ModeAll Mode = "all"
)

// ParseMode accepts "any" or "all" in any case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAny:
		return ModeAny, nil
	case ModeAll:
		return ModeAll, nil
	}
	return "", apperrors.InvalidParameter("unknown filter mode %q", s)
}

func (m Mode) Valid() bool {
	return m == ModeAny || m == ModeAll
}

// Set is an unordered set of document URLs.
type Set map[string]struct{}

type Filter struct {
	store *indexstore.Store
	// featureToken, when set, marks the tokens that also match documents
	// under the same value in any feature index.
	featureToken func(string) bool
}

func New(store *indexstore.Store) *Filter {
	return &Filter{store: store}
}

// WithFeatures returns a Filter that additionally consults every loaded
// feature index for the tokens accepted by match. The receiver is unchanged.
func (f *Filter) WithFeatures(match func(token string) bool) *Filter {
	return &Filter{store: f.store, featureToken: match}
}

// Apply returns the documents matching tokens under mode. An empty token
// list yields an empty set.
func (f *Filter) Apply(tokens []string, mode Mode) Set {
	result := make(Set)
	if len(tokens) == 0 {
		return result
	}
	if mode == ModeAll {
		return f.intersect(tokens)
	}
	for _, token := range tokens {
		f.collect(token, result)
	}
	return result
}

func (f *Filter) intersect(tokens []string) Set {
	result := make(Set)
	f.collect(tokens[0], result)
	for _, token := range tokens[1:] {
		if len(result) == 0 {
			break
		}
		docs := make(Set)
		f.collect(token, docs)
		for url := range result {
			if _, ok := docs[url]; !ok {
				delete(result, url)
			}
		}
	}
	return result
}

// collect adds every document holding token to dst.
func (f *Filter) collect(token string, dst Set) {
	for url := range f.store.TitlePostings(token) {
		dst[url] = struct{}{}
	}
	for url := range f.store.DescriptionPostings(token) {
		dst[url] = struct{}{}
	}
	if f.featureToken == nil || !f.featureToken(token) {
		return
	}
	for _, name := range f.store.FeatureNames() {
		for url := range f.store.FeatureDocs(name, token) {
			dst[url] = struct{}{}
		}
	}
}
