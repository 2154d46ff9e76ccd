// Package indexstore holds the read-only, in-memory view of the precomputed
// product indexes: positional title and description postings, feature
// indexes, review statistics, the synonym table and the raw catalog.
//
// A Store is built once by New or Load and never mutated afterwards, so any
// number of goroutines may search it concurrently without locking.
package indexstore

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/errors"
)

type Store struct {
	title        PostingIndex
	description  PostingIndex
	features     map[string]FeatureIndex
	reviews      map[string]ReviewStats
	synonyms     Synonyms
	docs         map[string]*Document
	brands       map[string]string
	brandTerms   map[string][]string
	docFreq      map[string]int
	avgDocLength float64
}

// New validates data and derives the corpus statistics (document lengths,
// document frequencies, average length) used by the scorers.
func New(data Data) (*Store, error) {
	switch {
	case data.Title == nil:
		return nil, apperrors.Configuration("title index not loaded")
	case data.Description == nil:
		return nil, apperrors.Configuration("description index not loaded")
	case data.Reviews == nil:
		return nil, apperrors.Configuration("reviews index not loaded")
	case data.Documents == nil:
		return nil, apperrors.Configuration("document catalog not loaded")
	}
	for _, name := range []string{FeatureBrand, FeatureOrigin} {
		if data.Features[name] == nil {
			return nil, apperrors.Configuration("%s index not loaded", name)
		}
	}
	if err := validatePostings("title", data.Title); err != nil {
		return nil, err
	}
	if err := validatePostings("description", data.Description); err != nil {
		return nil, err
	}

	s := &Store{
		title:       data.Title,
		description: data.Description,
		features:    data.Features,
		reviews:     data.Reviews,
		synonyms:    data.Synonyms,
		docs:        make(map[string]*Document, len(data.Documents)),
		brands:      make(map[string]string, len(data.Documents)),
		brandTerms:  make(map[string][]string, len(data.Documents)),
		docFreq:     make(map[string]int),
	}
	if s.synonyms == nil {
		s.synonyms = Synonyms{}
	}

	var totalLength int
	for i := range data.Documents {
		doc := data.Documents[i]
		if doc.URL == "" {
			return nil, apperrors.Configuration("catalog record %d has no url", i)
		}
		// first record wins, as in the indexer
		if _, dup := s.docs[doc.URL]; dup {
			continue
		}
		doc.Length = len(tokenizer.Terms(doc.Title + " " + doc.Description))
		totalLength += doc.Length
		s.docs[doc.URL] = &doc
		if brand := doc.Features[FeatureBrand]; brand != "" {
			s.brands[doc.URL] = tokenizer.FeatureKey(brand)
			s.brandTerms[doc.URL] = tokenizer.Terms(brand)
		}
	}
	if len(s.docs) > 0 {
		s.avgDocLength = float64(totalLength) / float64(len(s.docs))
	}

	for term, docs := range s.title {
		s.docFreq[term] = len(docs)
	}
	for term, docs := range s.description {
		titleDocs := s.title[term]
		n := s.docFreq[term]
		for url := range docs {
			if _, seen := titleDocs[url]; !seen {
				n++
			}
		}
		s.docFreq[term] = n
	}
	return s, nil
}

func validatePostings(field string, idx PostingIndex) error {
	for term, docs := range idx {
		for url, positions := range docs {
			for _, p := range positions {
				if p < 0 {
					return apperrors.Configuration("%s index: negative position %d for %q in %s", field, p, term, url)
				}
			}
		}
	}
	return nil
}

// TitlePostings returns url → positions for term in the title field.
func (s *Store) TitlePostings(term string) map[string][]int {
	return s.title[term]
}

// DescriptionPostings returns url → positions for term in the description field.
func (s *Store) DescriptionPostings(term string) map[string][]int {
	return s.description[term]
}

// FeatureDocs returns the documents whose feature name has the given
// normalised value.
func (s *Store) FeatureDocs(name, value string) map[string]struct{} {
	return s.features[name][value]
}

// FeatureNames returns the loaded feature index names in sorted order.
func (s *Store) FeatureNames() []string {
	names := make([]string, 0, len(s.features))
	for name := range s.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Review(url string) (ReviewStats, bool) {
	stats, ok := s.reviews[url]
	return stats, ok
}

func (s *Store) Synonyms() Synonyms {
	return s.synonyms
}

func (s *Store) Document(url string) (*Document, bool) {
	doc, ok := s.docs[url]
	return doc, ok
}

// Brand returns the normalised brand of a document, or "" when it has none.
func (s *Store) Brand(url string) string {
	return s.brands[url]
}

// BrandTerms returns the content terms of a document's brand in order, so
// "Good Foods" yields ["good", "foods"].
func (s *Store) BrandTerms(url string) []string {
	return s.brandTerms[url]
}

// DocLength returns the content-token count of title plus description.
func (s *Store) DocLength(url string) int {
	if doc, ok := s.docs[url]; ok {
		return doc.Length
	}
	return 0
}

// DocumentFrequency returns the number of distinct documents holding term in
// either the title or the description.
func (s *Store) DocumentFrequency(term string) int {
	return s.docFreq[term]
}

func (s *Store) DocumentCount() int {
	return len(s.docs)
}

func (s *Store) AvgDocLength() float64 {
	return s.avgDocLength
}

func (s *Store) Stats() Stats {
	featureValues := make(map[string]int, len(s.features))
	for name, idx := range s.features {
		featureValues[name] = len(idx)
	}
	return Stats{
		Documents:        len(s.docs),
		TitleTerms:       len(s.title),
		DescriptionTerms: len(s.description),
		FeatureValues:    featureValues,
		SynonymKeys:      len(s.synonyms),
		AvgDocLength:     s.avgDocLength,
	}
}
