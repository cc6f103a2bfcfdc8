// Command indexer consumes crawl requests from Kafka and writes one index
// file per request into indexer.indexDir. Committed files are registered in
// the shard catalog when Postgres is enabled and announced on the
// index.complete topic.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/crawler"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/postgres"
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
	slog.Info("starting indexer service", "index_dir", cfg.Indexer.IndexDir, "workers", cfg.Indexer.Workers)

	if !cfg.Kafka.Enabled {
		slog.Error("indexer service needs kafka.enabled; use `filesearch build` for one-off builds")
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Indexer.IndexDir, 0o755); err != nil {
		slog.Error("failed to create index directory", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer producer.Close()
	opts := []indexer.Option{indexer.WithPublisher(producer), indexer.WithMetrics(m)}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to shard catalog", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store := catalog.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare shard catalog", "error", err)
			os.Exit(1)
		}
		opts = append(opts, indexer.WithCatalog(store))
	}

	builder, err := indexer.NewBuilder(crawler.Config{
		Include:     cfg.Indexer.Include,
		Exclude:     cfg.Indexer.Exclude,
		MaxFileSize: cfg.Indexer.MaxFileSize,
		Workers:     cfg.Indexer.Workers,
		StopWords:   cfg.Indexer.StopWords,
	}, opts...)
	if err != nil {
		slog.Error("invalid indexer configuration", "error", err)
		os.Exit(1)
	}

	requests := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CrawlRequests,
		consumer.HandleCrawlRequest(builder, cfg.Indexer.IndexDir),
		kafka.FromFirstOffset(),
	)
	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.CrawlRequests,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := requests.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("indexer service stopped")
}
