package indexstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/errors"
)

const (
	TitleIndexFile       = "title_index.json"
	DescriptionIndexFile = "description_index.json"
	ReviewsIndexFile     = "reviews_index.json"
)

// maxLineSize bounds a single catalog record.
const maxLineSize = 4 * 1024 * 1024

// FeatureIndexFile returns the file name of a feature index.
func FeatureIndexFile(feature string) string {
	return feature + "_index.json"
}

// Paths locates the index files of one Store.
type Paths struct {
	Dir           string
	Catalog       string
	Synonyms      string
	ExtraFeatures []string
}

// PathsFromConfig builds Paths from the index section of the configuration.
func PathsFromConfig(cfg config.IndexConfig) Paths {
	return Paths{
		Dir:           cfg.DataDir,
		Catalog:       cfg.CatalogFile,
		Synonyms:      cfg.SynonymsFile,
		ExtraFeatures: cfg.ExtraFeatures,
	}
}

func (p Paths) path(name string) string {
	return filepath.Join(p.Dir, name)
}

// Load reads every index file in parallel and builds a Store. A missing or
// malformed required file yields an error wrapping errors.ErrConfiguration.
// The synonym table and the extra feature indexes are optional.
func Load(ctx context.Context, paths Paths) (*Store, error) {
	logger := slog.Default().With("component", "index-loader", "dir", paths.Dir)
	data := Data{
		Features: make(map[string]FeatureIndex),
	}
	var featuresMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return readJSON(ctx, paths.path(TitleIndexFile), &data.Title)
	})
	g.Go(func() error {
		return readJSON(ctx, paths.path(DescriptionIndexFile), &data.Description)
	})
	g.Go(func() error {
		return readJSON(ctx, paths.path(ReviewsIndexFile), &data.Reviews)
	})
	g.Go(func() error {
		docs, err := ReadCatalog(ctx, paths.path(paths.Catalog))
		data.Documents = docs
		return err
	})
	g.Go(func() error {
		if paths.Synonyms == "" {
			return nil
		}
		err := readJSON(ctx, paths.path(paths.Synonyms), &data.Synonyms)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("synonym table not found, expansion disabled", "file", paths.Synonyms)
			return nil
		}
		return err
	})

	loadFeature := func(name string, required bool) {
		g.Go(func() error {
			var raw map[string][]string
			err := readJSON(ctx, paths.path(FeatureIndexFile(name)), &raw)
			if err != nil {
				if !required && errors.Is(err, fs.ErrNotExist) {
					logger.Debug("optional feature index not found", "feature", name)
					return nil
				}
				return err
			}
			featuresMu.Lock()
			data.Features[name] = NewFeatureIndex(raw)
			featuresMu.Unlock()
			return nil
		})
	}
	loadFeature(FeatureBrand, true)
	loadFeature(FeatureOrigin, true)
	for _, name := range paths.ExtraFeatures {
		loadFeature(name, false)
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	store, err := New(data)
	if err != nil {
		return nil, err
	}
	stats := store.Stats()
	logger.Info("indexes loaded",
		"documents", stats.Documents,
		"title_terms", stats.TitleTerms,
		"description_terms", stats.DescriptionTerms,
		"features", store.FeatureNames(),
		"synonym_keys", stats.SynonymKeys,
		"avg_doc_length", stats.AvgDocLength,
	)
	return store, nil
}

func readJSON(ctx context.Context, path string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", apperrors.ErrConfiguration, path, err)
	}
	defer f.Close()
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(dst); err != nil {
		return fmt.Errorf("%w: parsing %s: %w", apperrors.ErrConfiguration, path, err)
	}
	return nil
}

// ReadSynonyms reads an origin synonym table: canonical term to alternates.
func ReadSynonyms(ctx context.Context, path string) (Synonyms, error) {
	var synonyms Synonyms
	if err := readJSON(ctx, path, &synonyms); err != nil {
		return nil, err
	}
	return synonyms, nil
}

// ReadCatalog reads a JSON-lines product catalog, skipping blank lines.
func ReadCatalog(ctx context.Context, path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", apperrors.ErrConfiguration, path, err)
	}
	defer f.Close()

	docs := make([]Document, 0, 256)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: parsing %s line %d: %w", apperrors.ErrConfiguration, path, line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", apperrors.ErrConfiguration, path, err)
	}
	return docs, nil
}
