// Package storetest provides a small product catalog and helpers that build
// an indexstore.Store from it, for use in tests.
package storetest

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
)

const (
	ChocolateBox   = "https://shop.test/product/1"
	EnergyDrink    = "https://shop.test/product/2"
	Sneakers       = "https://shop.test/product/3"
	SneakersBlack  = "https://shop.test/product/3?variant=black"
	LightUpShoes   = "https://shop.test/product/4"
	CandyShort     = "https://shop.test/product/5"
	DocumentsTotal = 6
)

func reviews(ratings ...int) []indexstore.Review {
	out := make([]indexstore.Review, len(ratings))
	for i, r := range ratings {
		out[i] = indexstore.Review{Date: fmt.Sprintf("2025-01-%02d", i+1), Rating: r}
	}
	return out
}

// Catalog returns the fixture documents.
func Catalog() []indexstore.Document {
	return []indexstore.Document{
		{
			URL:         ChocolateBox,
			Title:       "Box of Chocolate Candy",
			Description: "Assorted milk chocolate pieces in a gift box, perfect for holidays and birthdays.",
			Features:    map[string]string{"brand": "ChocoDelight", "made in": "Belgium", "flavors": "Milk, Dark and Hazelnut"},
		},
		{
			URL:         EnergyDrink,
			Title:       "Dark Energy Drink",
			Description: "Refreshing drink with a hint of chocolate and a caffeine boost for long gaming sessions.",
			Features:    map[string]string{"brand": "GameFuel", "made in": "USA"},
			Reviews:     reviews(5, 4, 4),
		},
		{
			URL:         Sneakers,
			Title:       "Leather Sneakers",
			Description: "Classic leather sneakers handmade by artisans with durable rubber soles and soft lining.",
			Features:    map[string]string{"brand": "StepUp", "made in": "Italy", "material": "Leather", "colors": "Black, White"},
			Reviews:     reviews(5),
		},
		{
			URL:         SneakersBlack,
			Title:       "Leather Sneakers",
			Description: "Classic leather sneakers handmade by artisans with durable rubber soles and soft lining.",
			Features:    map[string]string{"brand": "StepUp", "made in": "Italy", "material": "Leather", "colors": "Black"},
			Reviews:     reviews(5),
		},
		{
			URL:         LightUpShoes,
			Title:       "Kids Light Up Shoes",
			Description: "Fun light up shoes for kids with colorful LEDs and comfortable soles.",
			Features:    map[string]string{"brand": "Glowy", "made in": "China", "sizes": "Small, Medium or Large"},
			Reviews:     reviews(3, 4),
		},
		{
			URL:         CandyShort,
			Title:       "Candy",
			Description: "Sweet treats.",
			Features:    map[string]string{"brand": "Sugarland", "made in": "Italian"},
		},
	}
}

// Synonyms returns the fixture origin synonym table.
func Synonyms() indexstore.Synonyms {
	return indexstore.Synonyms{
		"italy": {"italian", "italia"},
		"usa":   {"america", "american", "us"},
	}
}

// Data builds the fixture indexes, including the synonym table.
func Data() indexstore.Data {
	b := indexer.NewBuilder()
	for _, doc := range Catalog() {
		b.AddDocument(doc)
	}
	data := b.Data()
	data.Synonyms = Synonyms()
	return data
}

// New returns a Store built from the fixture catalog.
func New(tb testing.TB) *indexstore.Store {
	tb.Helper()
	store, err := indexstore.New(Data())
	if err != nil {
		tb.Fatalf("building fixture store: %v", err)
	}
	return store
}
