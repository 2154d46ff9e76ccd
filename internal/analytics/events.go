// Package analytics collects search events on the searcher side, publishes
// them to Kafka, and aggregates them on the analytics side into query,
// latency and ranking-mode statistics.
package analytics

import (
	"strings"
	"time"
)

// SearchEvent describes one served search.
type SearchEvent struct {
	Query             string    `json:"query"`
	Tokens            []string  `json:"tokens"`
	FilterMode        string    `json:"filter_mode"`
	RankingMode       string    `json:"ranking_mode"`
	UseSynonyms       bool      `json:"use_synonyms"`
	FeatureFiltering  bool      `json:"feature_filtering,omitempty"`
	DocumentsFiltered int       `json:"documents_filtered"`
	DocumentsReturned int       `json:"documents_returned"`
	LatencyMicros     int64     `json:"latency_us"`
	CacheHit          bool      `json:"cache_hit"`
	Timestamp         time.Time `json:"timestamp"`
	RequestID         string    `json:"request_id,omitempty"`
}

// ZeroResult reports whether the search returned nothing.
func (e SearchEvent) ZeroResult() bool {
	return e.DocumentsReturned == 0
}

// Key is the Kafka partition key: events of one normalised query land on
// the same partition.
func (e SearchEvent) Key() string {
	if len(e.Tokens) == 0 {
		return "empty"
	}
	return strings.Join(e.Tokens, " ")
}
