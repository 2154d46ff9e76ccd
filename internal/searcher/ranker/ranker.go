// Package ranker orders scored candidates by score, breaking ties on URL, and
// keeps the best topK.
package ranker

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/scorer"
)

// Candidate is a scored document of one search call.
type Candidate struct {
	URL     string
	Score   float64
	Signals scorer.Signals
}

// before reports whether a ranks ahead of b: higher score first, then the
// lexicographically smaller URL.
func before(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.URL < b.URL
}

// Rank returns the topK best candidates in rank order. It keeps a bounded
// min-heap, so the full candidate list is never sorted.
func Rank(candidates []Candidate, topK int) []Candidate {
	if topK <= 0 || len(candidates) == 0 {
		return []Candidate{}
	}
	h := make(candidateHeap, 0, min(topK, len(candidates))+1)
	for _, c := range candidates {
		if h.Len() < topK {
			heap.Push(&h, c)
			continue
		}
		if before(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}
	result := make([]Candidate, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(Candidate)
	}
	return result
}

// candidateHeap keeps the worst-ranked candidate at the root.
type candidateHeap []Candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool { return before(h[j], h[i]) }

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) {
	*h = append(*h, x.(Candidate))
}

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
