// Package query turns a raw search string into the ordered, de-duplicated
// content tokens consumed by the filter and the scorers, optionally expanded
// with canonical synonym keys.
package query

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/tokenizer"
)

// Tokens is the processed form of one query.
type Tokens struct {
	Raw string
	// Original holds the distinct content tokens in first-occurrence order.
	Original []string
	// Expanded is Original followed by any canonical synonym keys the query
	// triggered. It equals Original when expansion is off.
	Expanded []string
}

// Empty reports whether the query has no content token.
func (t Tokens) Empty() bool {
	return len(t.Expanded) == 0
}

type synonymRule struct {
	canonical  string
	alternates [][]string
}

// Processor is safe for concurrent use once built.
type Processor struct {
	rules     []synonymRule
	canonical map[string]struct{}
}

// NewProcessor prepares the synonym table for lookup. Canonical keys are kept
// in sorted order so expansion is deterministic.
func NewProcessor(synonyms indexstore.Synonyms) *Processor {
	p := &Processor{
		rules:     make([]synonymRule, 0, len(synonyms)),
		canonical: make(map[string]struct{}, len(synonyms)),
	}
	keys := make([]string, 0, len(synonyms))
	for key := range synonyms {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		canonical := strings.ToLower(strings.TrimSpace(key))
		if canonical == "" {
			continue
		}
		rule := synonymRule{canonical: canonical}
		for _, alt := range synonyms[key] {
			if terms := tokenizer.Terms(alt); len(terms) > 0 {
				rule.alternates = append(rule.alternates, terms)
			}
		}
		p.rules = append(p.rules, rule)
		p.canonical[canonical] = struct{}{}
	}
	return p
}

// Process normalises raw and, when useSynonyms is set, appends the canonical
// key of every synonym entry whose alternates appear in the query.
func (p *Processor) Process(raw string, useSynonyms bool) Tokens {
	original := dedupe(tokenizer.Terms(raw))
	out := Tokens{
		Raw:      raw,
		Original: original,
		Expanded: original,
	}
	if !useSynonyms || len(original) == 0 || len(p.rules) == 0 {
		return out
	}

	present := make(map[string]struct{}, len(original))
	for _, t := range original {
		present[t] = struct{}{}
	}
	expanded := append(make([]string, 0, len(original)+2), original...)
	for _, rule := range p.rules {
		if _, ok := present[rule.canonical]; ok {
			continue
		}
		if rule.matches(present) {
			expanded = append(expanded, rule.canonical)
			present[rule.canonical] = struct{}{}
		}
	}
	out.Expanded = expanded
	return out
}

// IsCanonical reports whether token is a key of the synonym table.
func (p *Processor) IsCanonical(token string) bool {
	_, ok := p.canonical[token]
	return ok
}

// matches reports whether every term of at least one alternate is present.
func (r synonymRule) matches(present map[string]struct{}) bool {
	for _, terms := range r.alternates {
		all := true
		for _, term := range terms {
			if _, ok := present[term]; !ok {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
