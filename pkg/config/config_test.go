package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "any", cfg.Search.FilterMode)
	assert.Equal(t, "linear", cfg.Search.RankingMode)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 1.2, cfg.Search.BM25.K1)
	assert.Equal(t, 0.75, cfg.Search.BM25.B)
	assert.True(t, cfg.Search.UseSynonyms)
	assert.False(t, cfg.Search.FeatureFiltering)
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: 9000
  readTimeout: 3s
index:
  dataDir: /srv/index
search:
  defaultLimit: 5
  maxResults: 50
  filterMode: all
  rankingMode: bm25
  weights:
    title_tf: 2.0
    review_score: 5.0
  bm25:
    k1: 1.5
    b: 0.75
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("PS_SEARCH_RANKING_MODE", "LINEAR")
	t.Setenv("PS_REDIS_ADDR", "cache:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/srv/index", cfg.Index.DataDir)
	assert.Equal(t, "all", cfg.Search.FilterMode)
	assert.Equal(t, "linear", cfg.Search.RankingMode)
	assert.Equal(t, 1.5, cfg.Search.BM25.K1)
	assert.Equal(t, map[string]float64{"title_tf": 2.0, "review_score": 5.0}, cfg.Search.Weights)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "products.jsonl", cfg.Index.CatalogFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port must be in 1..65535, got 0"},
		{"no data dir", func(c *Config) { c.Index.DataDir = "" }, "index.dataDir is required"},
		{"filter mode", func(c *Config) { c.Search.FilterMode = "some" }, `search.filterMode must be "any" or "all", got "some"`},
		{"ranking mode", func(c *Config) { c.Search.RankingMode = "tfidf" }, `search.rankingMode must be "linear" or "bm25", got "tfidf"`},
		{"limit", func(c *Config) { c.Search.DefaultLimit = 0 }, "search.defaultLimit must be positive, got 0"},
		{"max results", func(c *Config) { c.Search.MaxResults = 3 }, "search.maxResults (3) must be >= search.defaultLimit (10)"},
		{"bm25 b", func(c *Config) { c.Search.BM25.B = 1.5 }, "search.bm25.b must be in [0,1], got 1.5"},
		{"nan weight", func(c *Config) {
			c.Search.Weights = map[string]float64{"title_tf": 2, "brand_match": math.NaN()}
		}, "search.weights.brand_match must be finite, got NaN"},
		{"inf weight", func(c *Config) {
			c.Search.Weights = map[string]float64{"title_tf": math.Inf(1)}
		}, "search.weights.title_tf must be finite, got +Inf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", p.DSN())
}
