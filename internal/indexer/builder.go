// Package indexer turns a crawled product catalog into the index files read
// by indexstore: positional title and description postings, the reviews
// index, and one feature index per structured product feature.
package indexer

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/tokenizer"
)

// DefaultFeatures lists the feature indexes built when none are requested.
var DefaultFeatures = []string{
	indexstore.FeatureBrand,
	indexstore.FeatureOrigin,
	"material",
	"colors",
	"sizes",
	"flavors",
}

// featureKeys lists the catalog keys a feature may appear under.
var featureKeys = map[string][]string{
	indexstore.FeatureOrigin: {"made in", "origin"},
	"sizes":                  {"sizes", "size"},
	"flavors":                {"flavors", "flavor"},
	"care_instructions":      {"care_instructions", "care instructions"},
}

// multiValued features hold lists like "Red, Blue and Green".
var multiValued = map[string]struct{}{
	"colors":  {},
	"sizes":   {},
	"flavors": {},
}

var valueSeparator = regexp.MustCompile(`\s+and\s+|\s+or\s+|,\s*`)

type Builder struct {
	features    []string
	title       indexstore.PostingIndex
	description indexstore.PostingIndex
	featureIdx  map[string]indexstore.FeatureIndex
	reviews     map[string]indexstore.ReviewStats
	docs        []indexstore.Document
	seen        map[string]struct{}
	logger      *slog.Logger
}

// NewBuilder creates a Builder for the given feature indexes. Brand and
// origin are always built.
func NewBuilder(features ...string) *Builder {
	if len(features) == 0 {
		features = DefaultFeatures
	}
	b := &Builder{
		title:       make(indexstore.PostingIndex),
		description: make(indexstore.PostingIndex),
		featureIdx:  make(map[string]indexstore.FeatureIndex),
		reviews:     make(map[string]indexstore.ReviewStats),
		seen:        make(map[string]struct{}),
		logger:      slog.Default().With("component", "indexer"),
	}
	for _, name := range append([]string{indexstore.FeatureBrand, indexstore.FeatureOrigin}, features...) {
		if _, ok := b.featureIdx[name]; ok {
			continue
		}
		b.featureIdx[name] = make(indexstore.FeatureIndex)
		b.features = append(b.features, name)
	}
	return b
}

// AddDocument indexes one catalog record. A URL seen before is skipped.
func (b *Builder) AddDocument(doc indexstore.Document) {
	if doc.URL == "" {
		b.logger.Warn("skipping catalog record without url", "title", doc.Title)
		return
	}
	if _, dup := b.seen[doc.URL]; dup {
		b.logger.Debug("skipping duplicate document", "url", doc.URL)
		return
	}
	b.seen[doc.URL] = struct{}{}
	b.docs = append(b.docs, doc)

	addPostings(b.title, doc.URL, doc.Title)
	addPostings(b.description, doc.URL, doc.Description)
	b.reviews[doc.URL] = reviewStats(doc.Reviews)
	for _, name := range b.features {
		b.addFeature(name, doc)
	}
	b.logger.Debug("document indexed",
		"url", doc.URL,
		"reviews", len(doc.Reviews),
	)
}

func addPostings(idx indexstore.PostingIndex, url, text string) {
	for _, token := range tokenizer.Tokenize(text) {
		docs, ok := idx[token.Term]
		if !ok {
			docs = make(map[string][]int)
			idx[token.Term] = docs
		}
		docs[url] = append(docs[url], token.Position)
	}
}

func reviewStats(reviews []indexstore.Review) indexstore.ReviewStats {
	if len(reviews) == 0 {
		return indexstore.ReviewStats{}
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	last := reviews[len(reviews)-1].Rating
	return indexstore.ReviewStats{
		TotalReviews: len(reviews),
		MeanMark:     float64(sum) / float64(len(reviews)),
		LastRating:   &last,
	}
}

func (b *Builder) addFeature(name string, doc indexstore.Document) {
	value := lookupFeature(doc.Features, name)
	if value == "" {
		return
	}
	idx := b.featureIdx[name]
	if _, ok := multiValued[name]; ok {
		for _, part := range valueSeparator.Split(strings.ToLower(value), -1) {
			terms := tokenizer.Terms(part)
			if len(terms) == 0 {
				continue
			}
			key := strings.Join(terms, "")
			if len(terms) > 2 {
				key = strings.Join(terms, " ")
			}
			addToSet(idx, key, doc.URL)
		}
		return
	}
	if key := tokenizer.FeatureKey(value); key != "" {
		addToSet(idx, key, doc.URL)
	}
}

func lookupFeature(features map[string]string, name string) string {
	keys, ok := featureKeys[name]
	if !ok {
		keys = []string{name}
	}
	for _, key := range keys {
		if v, ok := features[key]; ok {
			return v
		}
	}
	return ""
}

func addToSet(idx indexstore.FeatureIndex, key, url string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[url] = struct{}{}
}

// Data returns the indexes built so far, ready for indexstore.New.
func (b *Builder) Data() indexstore.Data {
	docs := make([]indexstore.Document, len(b.docs))
	copy(docs, b.docs)
	return indexstore.Data{
		Title:       b.title,
		Description: b.description,
		Features:    b.featureIdx,
		Reviews:     b.reviews,
		Documents:   docs,
	}
}

// DocCount returns the number of indexed documents.
func (b *Builder) DocCount() int {
	return len(b.docs)
}

// Features returns the names of the feature indexes being built.
func (b *Builder) Features() []string {
	return b.features
}
