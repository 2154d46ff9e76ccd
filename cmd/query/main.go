// Command query runs one search against the indexes on disk and prints the
// JSON response.
//
// Usage:
//
//	go run ./cmd/query -q "chocolate candy" [-filter all] [-ranking bm25] [-limit 5]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/scorer"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/logger"
)

type flags struct {
	configPath string
	dataDir    string
	query      string
	filterMode string
	ranking    string
	// synonyms and features are nil unless given on the command line, so
	// the config file decides otherwise
	synonyms   *bool
	features   *bool
	limit      int
	weights    string
	logLevel   string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to config file (defaults apply when empty)")
	flag.StringVar(&f.dataDir, "dir", "", "index directory, overrides index.dataDir")
	flag.StringVar(&f.query, "q", "", "query text")
	flag.StringVar(&f.filterMode, "filter", "", "filter mode: any or all")
	flag.StringVar(&f.ranking, "ranking", "", "ranking mode: linear or bm25")
	synonyms := flag.Bool("synonyms", true, "expand origin synonyms (search.useSynonyms when unset)")
	features := flag.Bool("features", false, "let synonym keys match feature indexes (search.featureFiltering when unset)")
	flag.IntVar(&f.limit, "limit", 0, "number of results")
	flag.StringVar(&f.weights, "weights", "", "linear weight overrides, e.g. title_tf=2,brand_match=0")
	flag.StringVar(&f.logLevel, "log-level", "warn", "log level written to stderr")
	flag.Parse()
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "synonyms":
			f.synonyms = synonyms
		case "features":
			f.features = features
		}
	})

	if err := run(context.Background(), f, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags, stdout, stderr io.Writer) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.dataDir != "" {
		cfg.Index.DataDir = f.dataDir
	}
	// stdout carries the response; logs go to stderr
	logger.SetupWriter(stderr, f.logLevel, "text")

	opts, err := buildOptions(cfg.Search, f)
	if err != nil {
		return err
	}
	store, err := indexstore.Load(ctx, indexstore.PathsFromConfig(cfg.Index))
	if err != nil {
		return err
	}
	resp, err := executor.New(store).Search(ctx, f.query, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

func buildOptions(cfg config.SearchConfig, f flags) (executor.Options, error) {
	opts := executor.OptionsFromConfig(cfg)
	if f.filterMode != "" {
		mode, err := filter.ParseMode(f.filterMode)
		if err != nil {
			return opts, err
		}
		opts.FilterMode = mode
	}
	if f.ranking != "" {
		mode, err := scorer.ParseMode(f.ranking)
		if err != nil {
			return opts, err
		}
		opts.RankingMode = mode
	}
	if f.synonyms != nil {
		opts.UseSynonyms = *f.synonyms
	}
	if f.features != nil {
		opts.FeatureFiltering = *f.features
	}
	if f.limit != 0 {
		opts.TopK = f.limit
	}
	if f.weights != "" {
		if opts.Weights == nil {
			opts.Weights = make(map[string]float64)
		}
		for _, pair := range strings.Split(f.weights, ",") {
			name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				return opts, fmt.Errorf("weight %q must be name=value", pair)
			}
			w, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return opts, fmt.Errorf("weight %q: %w", name, err)
			}
			opts.Weights[name] = w
		}
	}
	return opts, nil
}
