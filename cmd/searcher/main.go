package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/indexstore"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "index_dir", cfg.Index.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	loadStart := time.Now()
	store, err := indexstore.Load(ctx, indexstore.PathsFromConfig(cfg.Index))
	if err != nil {
		slog.Error("failed to load indexes", "error", err)
		os.Exit(1)
	}
	m.IndexDocuments.Set(float64(store.DocumentCount()))
	m.IndexLoadSeconds.Set(time.Since(loadStart).Seconds())

	defaults := executor.OptionsFromConfig(cfg.Search)
	if _, err := defaults.Validate(); err != nil {
		slog.Error("invalid search defaults", "error", err)
		os.Exit(1)
	}
	exec := executor.New(store)

	var (
		queryCache  *cache.QueryCache
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Enabled {
		err := resilience.Retry(ctx, "redis connect", resilience.DefaultBackoff(), func(ctx context.Context) error {
			var err error
			redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
			return err
		})
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var tracker handler.Tracker
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize, 100, time.Second, m)
		collector.Start(ctx)
		// deferred after producer.Close so buffered events are flushed first
		defer collector.Close()
		tracker = collector
		slog.Info("search events enabled", "topic", cfg.Kafka.Topics.SearchEvents)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) error {
		if store.DocumentCount() == 0 {
			return errors.New("index store is empty")
		}
		return nil
	})
	if redisClient != nil {
		checker.RegisterOptional("redis", redisClient.Ping)
	}

	h := handler.New(exec, queryCache, tracker, m, defaults, cfg.Search.MaxResults)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Metrics(m))
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))
	h.Routes(r)
	r.Get("/health/live", checker.LiveHandler())
	r.Get("/health/ready", checker.ReadyHandler())

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "documents", store.DocumentCount())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
