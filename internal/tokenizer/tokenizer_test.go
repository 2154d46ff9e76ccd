package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Box of Chocolate Candy", []string{"box", "chocolate", "candy"}},
		{"  Made in ITALY!  ", []string{"made", "italy"}},
		{"kid's light-up shoes", []string{"kids", "lightup", "shoes"}},
		{"the and of", []string{}},
		{"", []string{}},
		{"café crème, 100% natural", []string{"café", "crème", "100", "natural"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Terms(tt.in))
		})
	}
}

func TestTokenizeKeepsWordPositions(t *testing.T) {
	got := Tokenize("Box of Chocolate Candy")
	assert.Equal(t, []Token{
		{Term: "box", Position: 0},
		{Term: "chocolate", Position: 2},
		{Term: "candy", Position: 3},
	}, got)
}

func TestWordsIncludesStopwords(t *testing.T) {
	assert.Equal(t, []string{"made", "in", "italy"}, Words("Made in Italy"))
}

func TestFeatureKey(t *testing.T) {
	assert.Equal(t, "chocodelight", FeatureKey("Choco Delight"))
	assert.Equal(t, "italy", FeatureKey("Italy."))
	assert.Equal(t, "", FeatureKey("the"))
}

func TestIsStopword(t *testing.T) {
	assert.True(t, IsStopword("in"))
	assert.True(t, IsStopword("the"))
	assert.False(t, IsStopword("made"))
	assert.False(t, IsStopword("chocolate"))
}

var benchTexts = map[string]string{
	"title": "Premium Dark Chocolate Candy Box, 24 pieces",
	"description": `Premium dark chocolate candy box made in Italy with natural ingredients
		and no added sugar. Each piece is hand-finished, wrapped in gold foil and packed in a
		recyclable box that makes it a great gift for chocolate lovers of all ages.`,
	"long": strings.Repeat(`Soft leather sneakers with a cushioned sole, breathable lining and
		a classic low-top silhouette. Available in black, white and navy. Care: wipe clean with
		a damp cloth, do not machine wash. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range benchTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := benchTexts["description"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Tokenize(text)
		}
	})
}

func BenchmarkTerms(b *testing.B) {
	queries := []string{"chocolate candy", "made in italy", "Leather sneakers, black!", "the best box of the year"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, q := range queries {
			_ = Terms(q)
		}
	}
}
