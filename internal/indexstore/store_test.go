package indexstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore/storetest"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/errors"
)

func TestNewDerivesCorpusStatistics(t *testing.T) {
	store := storetest.New(t)

	assert.Equal(t, storetest.DocumentsTotal, store.DocumentCount())
	// "chocolate" is in the title of the box and the description of the box
	// and the drink: two distinct documents.
	assert.Equal(t, 2, store.DocumentFrequency("chocolate"))
	assert.Equal(t, 0, store.DocumentFrequency("unknown"))

	assert.Equal(t, 12, store.DocLength(storetest.ChocolateBox))
	assert.Equal(t, 3, store.DocLength(storetest.CandyShort))
	assert.Equal(t, 0, store.DocLength("https://shop.test/missing"))
	assert.InDelta(t, (12.0+12+12+12+11+3)/6, store.AvgDocLength(), 1e-9)

	assert.Equal(t, "chocodelight", store.Brand(storetest.ChocolateBox))
	assert.Equal(t, []string{"chocodelight"}, store.BrandTerms(storetest.ChocolateBox))
	assert.Equal(t, []int{2}, store.TitlePostings("chocolate")[storetest.ChocolateBox])
	assert.Contains(t, store.FeatureDocs(indexstore.FeatureOrigin, "italy"), storetest.Sneakers)

	stats, ok := store.Review(storetest.EnergyDrink)
	require.True(t, ok)
	assert.Equal(t, 3, stats.TotalReviews)
	assert.InDelta(t, 13.0/3, stats.MeanMark, 1e-9)
	require.NotNil(t, stats.LastRating)
	assert.Equal(t, 4, *stats.LastRating)
}

func TestNewIgnoresDuplicateCatalogRecords(t *testing.T) {
	data := storetest.Data()
	dup := data.Documents[len(data.Documents)-1]
	dup.Title = "Candy with a much longer title that would skew the average length"
	data.Documents = append(data.Documents, dup)

	store, err := indexstore.New(data)
	require.NoError(t, err)
	assert.Equal(t, storetest.DocumentsTotal, store.DocumentCount())
	assert.InDelta(t, (12.0+12+12+12+11+3)/6, store.AvgDocLength(), 1e-9)
	assert.Equal(t, 3, store.DocLength(storetest.CandyShort))
	doc, ok := store.Document(storetest.CandyShort)
	require.True(t, ok)
	assert.Equal(t, "Candy", doc.Title)
}

func TestNewRejectsMissingStructures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*indexstore.Data)
	}{
		{"title", func(d *indexstore.Data) { d.Title = nil }},
		{"description", func(d *indexstore.Data) { d.Description = nil }},
		{"reviews", func(d *indexstore.Data) { d.Reviews = nil }},
		{"catalog", func(d *indexstore.Data) { d.Documents = nil }},
		{"brand", func(d *indexstore.Data) { delete(d.Features, indexstore.FeatureBrand) }},
		{"origin", func(d *indexstore.Data) { delete(d.Features, indexstore.FeatureOrigin) }},
		{"negative position", func(d *indexstore.Data) {
			d.Title["chocolate"][storetest.ChocolateBox] = []int{-1}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := storetest.Data()
			tt.mutate(&data)
			_, err := indexstore.New(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
		})
	}
}

func TestStats(t *testing.T) {
	stats := storetest.New(t).Stats()
	assert.Equal(t, storetest.DocumentsTotal, stats.Documents)
	assert.Equal(t, 2, stats.SynonymKeys)
	// both sneaker variants share a brand
	assert.Equal(t, 5, stats.FeatureValues[indexstore.FeatureBrand])
	assert.Positive(t, stats.TitleTerms)
}

func TestConcurrentReads(t *testing.T) {
	store := storetest.New(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = store.DocumentFrequency("leather")
				_ = store.TitlePostings("candy")
				_, _ = store.Document(storetest.Sneakers)
			}
		}()
	}
	wg.Wait()
}

func writeFixture(t *testing.T) indexstore.Paths {
	t.Helper()
	dir := t.TempDir()
	data := storetest.Data()
	require.NoError(t, indexer.NewWriter(dir).Write(data, "products.jsonl"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "origin_synonyms.json"),
		[]byte(`{"italy": ["italian", "italia"]}`), 0o644))
	return indexstore.Paths{
		Dir:           dir,
		Catalog:       "products.jsonl",
		Synonyms:      "origin_synonyms.json",
		ExtraFeatures: []string{"material", "colors", "sizes", "flavors", "care_instructions"},
	}
}

func TestLoadRoundTrip(t *testing.T) {
	paths := writeFixture(t)

	store, err := indexstore.Load(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, storetest.DocumentsTotal, store.DocumentCount())
	assert.Equal(t, []string{"italian", "italia"}, store.Synonyms()["italy"])
	assert.Equal(t, []string{"brand", "colors", "flavors", "material", "origin", "sizes"}, store.FeatureNames())
	assert.Contains(t, store.FeatureDocs("material", "leather"), storetest.SneakersBlack)

	doc, ok := store.Document(storetest.ChocolateBox)
	require.True(t, ok)
	assert.Equal(t, "Box of Chocolate Candy", doc.Title)
	assert.Equal(t, 12, doc.Length)
}

func TestLoadMissingRequiredFile(t *testing.T) {
	paths := writeFixture(t)
	require.NoError(t, os.Remove(filepath.Join(paths.Dir, indexstore.TitleIndexFile)))

	_, err := indexstore.Load(context.Background(), paths)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}

func TestLoadMalformedFile(t *testing.T) {
	paths := writeFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(paths.Dir, indexstore.ReviewsIndexFile), []byte("{not json"), 0o644))

	_, err := indexstore.Load(context.Background(), paths)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}

func TestLoadWithoutSynonyms(t *testing.T) {
	paths := writeFixture(t)
	paths.Synonyms = "absent.json"

	store, err := indexstore.Load(context.Background(), paths)
	require.NoError(t, err)
	assert.Empty(t, store.Synonyms())
}

func TestReadSynonymsMissingFile(t *testing.T) {
	_, err := indexstore.ReadSynonyms(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}
