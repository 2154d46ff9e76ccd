package ranker

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func urls(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.URL
	}
	return out
}

func TestRankOrdersByScoreThenURL(t *testing.T) {
	candidates := []Candidate{
		{URL: "https://shop.test/c", Score: 2},
		{URL: "https://shop.test/b?variant=red", Score: 5},
		{URL: "https://shop.test/b", Score: 5},
		{URL: "https://shop.test/a", Score: 1},
		{URL: "https://shop.test/d", Score: 5},
	}
	got := Rank(candidates, 10)
	assert.Equal(t, []string{
		"https://shop.test/b",
		"https://shop.test/b?variant=red",
		"https://shop.test/d",
		"https://shop.test/c",
		"https://shop.test/a",
	}, urls(got))
}

func TestRankTruncates(t *testing.T) {
	candidates := []Candidate{
		{URL: "a", Score: 1},
		{URL: "b", Score: 3},
		{URL: "c", Score: 3},
		{URL: "d", Score: 2},
	}
	assert.Equal(t, []string{"b", "c"}, urls(Rank(candidates, 2)))
	assert.Equal(t, []string{"b"}, urls(Rank(candidates, 1)))
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil, 10))
	assert.NotNil(t, Rank(nil, 10))
	assert.Empty(t, Rank([]Candidate{{URL: "a", Score: 1}}, 0))
}

// The heap must agree with a full sort for any input order.
func TestRankMatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	candidates := make([]Candidate, 200)
	for i := range candidates {
		candidates[i] = Candidate{
			URL:   fmt.Sprintf("https://shop.test/product/%03d", rng.Intn(1000)),
			Score: float64(rng.Intn(10)),
		}
	}
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return before(sorted[i], sorted[j]) })

	for _, k := range []int{1, 5, 50, 200, 500} {
		got := Rank(candidates, k)
		want := sorted[:min(k, len(sorted))]
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Score, got[i].Score, "k=%d i=%d", k, i)
			assert.Equal(t, want[i].URL, got[i].URL, "k=%d i=%d", k, i)
		}
	}
}

func BenchmarkRank(b *testing.B) {
	candidates := make([]Candidate, 1000)
	for i := range candidates {
		candidates[i] = Candidate{URL: fmt.Sprintf("u%d", i), Score: float64(i % 37)}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Rank(candidates, 10)
	}
}
