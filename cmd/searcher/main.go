// Command searcher serves AND queries over a set of index files.
//
// Shards come from search.indexPaths, every *.idx file in search.indexDir,
// and (with search.useCatalog) the Postgres shard catalog. The set is
// reloaded when the directory changes, when an index.complete event
// arrives, or on POST /api/v1/shards/reload.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/shard"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/redis"
)

// tee forwards analytics events to every tracker.
type tee []handler.Tracker

func (t tee) Track(event any) {
	for _, tr := range t {
		tr.Track(event)
	}
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()

	sources := []shard.Source{shard.StaticPaths(cfg.Search.IndexPaths)}
	if cfg.Search.IndexDir != "" {
		sources = append(sources, shard.Directory(cfg.Search.IndexDir))
	}
	if cfg.Search.UseCatalog {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to shard catalog", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store := catalog.NewStore(db)
		sources = append(sources, shard.FromCatalog(store))
		checker.Register("postgres", health.Ping(store.Ping, false))
	}

	procOpts := []executor.Option{executor.SkipCorrupt()}
	if !cfg.Search.VerifyChecksums {
		procOpts = append(procOpts, executor.WithoutChecksum())
	}
	registry, err := shard.NewRegistry(shard.Union(sources...),
		shard.WithProcessorOptions(procOpts...),
		shard.WithMetrics(m),
	)
	if err != nil {
		slog.Error("failed to create shard registry", "error", err)
		os.Exit(1)
	}
	defer registry.Close()
	if err := registry.Reload(ctx); err != nil {
		slog.Error("initial shard load failed, serving no shards", "error", err)
	}
	checker.Register("shards", func(ctx context.Context) health.ComponentHealth {
		n := len(registry.Shards())
		if n == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "no shards loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d shards, generation %d", n, registry.Generation())}
	})

	if cfg.Search.WatchIndexDir && cfg.Search.IndexDir != "" {
		go func() {
			if err := registry.Watch(ctx, cfg.Search.IndexDir, cfg.Search.ReloadDebounce); err != nil {
				slog.Error("index directory watcher stopped", "error", err)
			}
		}()
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			checker.Register("redis", health.Ping(redisClient.Ping, true))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	trackers := tee{aggregator}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		trackers = append(trackers, collector)

		hostname, _ := os.Hostname()
		reloads := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete,
			func(ctx context.Context, key, value []byte) error {
				slog.Info("index committed, reloading shards", "path", string(key))
				if err := registry.Reload(ctx); err != nil {
					slog.Error("reload after index.complete failed", "error", err)
				}
				return nil
			},
			kafka.WithGroupID(cfg.Kafka.ConsumerGroup+"-searcher-"+hostname),
		)
		go func() {
			if err := reloads.Start(ctx); err != nil {
				slog.Error("index.complete consumer stopped", "error", err)
			}
		}()
		slog.Info("listening for committed indexes", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	h := handler.New(registry, queryCache, trackers, m, handler.Config{
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxResults:    cfg.Search.MaxResults,
		StopWords:     cfg.Search.StopWords,
		DocumentRoots: cfg.Search.DocumentRoots,
	})
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/documents", h.Document)
	mux.HandleFunc("GET /api/v1/shards", h.Shards)
	mux.HandleFunc("POST /api/v1/shards/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := []func(http.Handler) http.Handler{middleware.RequestID}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = append(chain, middleware.CORS(middleware.NewCORSConfig(cfg.Server.CORSOrigins)))
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		limiter.StartCleanup(ctx, time.Minute, 10*time.Minute)
		chain = append(chain, middleware.RateLimit(limiter))
	}
	chain = append(chain, middleware.Timeout(cfg.Server.RequestTimeout), middleware.Metrics(m))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, chain...),
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
