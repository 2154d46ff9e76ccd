package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	input := flag.String("input", "products.jsonl", "JSON-lines product catalog to index")
	synonyms := flag.String("synonyms", "", "origin synonym table to install next to the indexes (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer", "input", *input, "output_dir", cfg.Index.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg.Index, *input, *synonyms); err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.IndexConfig, input, synonymsPath string) error {
	start := time.Now()
	docs, err := indexstore.ReadCatalog(ctx, input)
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}

	b := indexer.NewBuilder(cfg.ExtraFeatures...)
	for _, doc := range docs {
		b.AddDocument(doc)
	}
	data := b.Data()

	// refuse to write indexes the search service would reject
	if _, err := indexstore.New(data); err != nil {
		return fmt.Errorf("validating built indexes: %w", err)
	}

	w := indexer.NewWriter(cfg.DataDir)
	if err := w.Write(data, cfg.CatalogFile); err != nil {
		return fmt.Errorf("writing indexes: %w", err)
	}
	if synonymsPath != "" {
		table, err := indexstore.ReadSynonyms(ctx, synonymsPath)
		if err != nil {
			return fmt.Errorf("reading synonyms: %w", err)
		}
		if err := w.WriteSynonyms(cfg.SynonymsFile, table); err != nil {
			return fmt.Errorf("writing synonyms: %w", err)
		}
	}

	slog.Info("indexing complete",
		"records", len(docs),
		"documents", b.DocCount(),
		"title_terms", len(data.Title),
		"description_terms", len(data.Description),
		"features", b.Features(),
		"output", filepath.Clean(cfg.DataDir),
		"duration", time.Since(start),
	)
	return nil
}
