// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Index, Search, Redis, Kafka, Postgres, etc.).
package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// IndexConfig locates the precomputed index files and the raw catalog.
type IndexConfig struct {
	DataDir       string   `yaml:"dataDir"`
	CatalogFile   string   `yaml:"catalogFile"`
	SynonymsFile  string   `yaml:"synonymsFile"`
	ExtraFeatures []string `yaml:"extraFeatures"`
}

// SearchConfig holds the per-request defaults applied when a caller leaves an
// option unset, plus the hard cap on result size.
type SearchConfig struct {
	DefaultLimit     int                `yaml:"defaultLimit"`
	MaxResults       int                `yaml:"maxResults"`
	FilterMode       string             `yaml:"filterMode"`
	RankingMode      string             `yaml:"rankingMode"`
	UseSynonyms      bool               `yaml:"useSynonyms"`
	FeatureFiltering bool               `yaml:"featureFiltering"`
	Weights          map[string]float64 `yaml:"weights"`
	BM25             BM25Config         `yaml:"bm25"`
}

// BM25Config holds the saturation (k1) and length-normalisation (b) constants.
type BM25Config struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchEvents string `yaml:"searchEvents"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// AnalyticsConfig controls the search-event collector and the snapshot loop.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values, and fails if the result does not validate.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Index.DataDir == "" {
		return fmt.Errorf("index.dataDir is required")
	}
	switch c.Search.FilterMode {
	case "any", "all":
	default:
		return fmt.Errorf(`search.filterMode must be "any" or "all", got %q`, c.Search.FilterMode)
	}
	switch c.Search.RankingMode {
	case "linear", "bm25":
	default:
		return fmt.Errorf(`search.rankingMode must be "linear" or "bm25", got %q`, c.Search.RankingMode)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.defaultLimit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.maxResults (%d) must be >= search.defaultLimit (%d)",
			c.Search.MaxResults, c.Search.DefaultLimit)
	}
	if c.Search.BM25.K1 < 0 {
		return fmt.Errorf("search.bm25.k1 must be non-negative, got %g", c.Search.BM25.K1)
	}
	if c.Search.BM25.B < 0 || c.Search.BM25.B > 1 {
		return fmt.Errorf("search.bm25.b must be in [0,1], got %g", c.Search.BM25.B)
	}
	names := make([]string, 0, len(c.Search.Weights))
	for name := range c.Search.Weights {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if v := c.Search.Weights[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("search.weights.%s must be finite, got %g", name, v)
		}
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Index: IndexConfig{
			DataDir:       "data/index",
			CatalogFile:   "products.jsonl",
			SynonymsFile:  "origin_synonyms.json",
			ExtraFeatures: []string{"material", "colors", "sizes", "flavors"},
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   100,
			FilterMode:   "any",
			RankingMode:  "linear",
			UseSynonyms:  true,
			BM25: BM25Config{
				K1: 1.2,
				B:  0.75,
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "product-search-analytics",
			Topics: KafkaTopics{
				SearchEvents: "search-events",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "productsearch",
			User:            "productsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			BufferSize:       10000,
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads PS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PS_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("PS_SEARCH_FILTER_MODE"); v != "" {
		cfg.Search.FilterMode = strings.ToLower(v)
	}
	if v := os.Getenv("PS_SEARCH_RANKING_MODE"); v != "" {
		cfg.Search.RankingMode = strings.ToLower(v)
	}
	if v := os.Getenv("PS_SEARCH_USE_SYNONYMS"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Search.UseSynonyms = on
		}
	}
	if v := os.Getenv("PS_SEARCH_BM25_K1"); v != "" {
		if k1, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.BM25.K1 = k1
		}
	}
	if v := os.Getenv("PS_REDIS_ENABLED"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = on
		}
	}
	if v := os.Getenv("PS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PS_KAFKA_ENABLED"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = on
		}
	}
	if v := os.Getenv("PS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PS_POSTGRES_ENABLED"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = on
		}
	}
	if v := os.Getenv("PS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("PS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("PS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
