// Package indexer turns a directory tree into a committed index file and
// announces it to the rest of the platform.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/crawler"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/fileindex"
	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/resilience"
)

// Catalog records committed index files.
type Catalog interface {
	Register(ctx context.Context, e catalog.Entry) (catalog.Entry, error)
}

// Publisher announces committed index files.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Option func(*Builder)

func WithCatalog(c Catalog) Option {
	return func(b *Builder) { b.catalog = c }
}

func WithPublisher(p Publisher) Option {
	return func(b *Builder) { b.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithRetry overrides the retry policy for catalog and publish calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(b *Builder) { b.retry = cfg }
}

type Builder struct {
	crawler   *crawler.Crawler
	catalog   Catalog
	publisher Publisher
	metrics   *metrics.Metrics
	retry     resilience.RetryConfig
	logger    *slog.Logger
}

type Result struct {
	Path      string        `json:"path"`
	Root      string        `json:"root"`
	Files     int           `json:"files"`
	Skipped   int           `json:"skipped"`
	Documents int           `json:"documents"`
	Words     int           `json:"words"`
	Size      int64         `json:"size_bytes"`
	Checksum  uint32        `json:"checksum"`
	Duration  time.Duration `json:"duration"`
}

func NewBuilder(cfg crawler.Config, opts ...Option) (*Builder, error) {
	c, err := crawler.New(cfg)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		crawler: c,
		retry:   resilience.RetryConfig{MaxAttempts: 3},
		logger:  slog.Default().With("component", "index-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build crawls root, writes the index to output and verifies the result by
// reopening it. The file is registered in the catalog when one is
// configured; a registration failure fails the build but leaves the file in
// place. Publish failures are only logged.
func (b *Builder) Build(ctx context.Context, root, output string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		b.observe(res, err, time.Since(start))
	}()

	crawled, err := b.crawler.Crawl(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("crawling %s: %w", root, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	size, err := fileindex.Write(crawled.Docs, crawled.Index, output)
	if err != nil {
		return nil, err
	}

	header, err := verify(output)
	if err != nil {
		return nil, fmt.Errorf("verifying %s: %w", output, err)
	}

	res = &Result{
		Path:      output,
		Root:      root,
		Files:     crawled.Files,
		Skipped:   crawled.Skipped,
		Documents: crawled.Docs.Len(),
		Words:     crawled.Index.NumWords(),
		Size:      size,
		Checksum:  header.Checksum,
		Duration:  time.Since(start),
	}

	if b.catalog != nil {
		policy := b.retry
		if policy.Retryable == nil {
			policy.Retryable = transient
		}
		err := resilience.Retry(ctx, "catalog-register", policy, func() error {
			_, err := b.catalog.Register(ctx, catalog.Entry{
				Path:      res.Path,
				Root:      res.Root,
				Documents: res.Documents,
				Words:     res.Words,
				SizeBytes: res.Size,
				Checksum:  res.Checksum,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("registering %s: %w", output, err)
		}
	}
	b.publish(ctx, res)

	b.logger.Info("index committed",
		"root", root,
		"path", output,
		"documents", res.Documents,
		"words", res.Words,
		"bytes", size,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// transient rejects failures another attempt cannot fix: a catalog that
// refuses the entry will refuse it again.
func transient(err error) bool {
	return !errors.Is(err, apperrors.ErrInvalidInput) && !errors.Is(err, context.Canceled)
}

func verify(path string) (fileindex.Header, error) {
	r, err := fileindex.Open(path)
	if err != nil {
		return fileindex.Header{}, err
	}
	defer r.Close()
	return r.Header(), nil
}

func (b *Builder) publish(ctx context.Context, res *Result) {
	if b.publisher == nil {
		return
	}
	event := analytics.IndexEvent{
		Type:       analytics.EventIndexCommitted,
		Path:       res.Path,
		Root:       res.Root,
		Documents:  res.Documents,
		Words:      res.Words,
		SizeBytes:  res.Size,
		DurationMs: res.Duration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	err := resilience.Retry(ctx, "publish-index-committed", b.retry, func() error {
		return b.publisher.Publish(ctx, kafka.Event{Key: res.Path, Type: string(event.Type), Value: event})
	})
	if err != nil {
		b.logger.Warn("failed to announce committed index", "path", res.Path, "error", err)
	}
}

func (b *Builder) observe(res *Result, err error, elapsed time.Duration) {
	if b.metrics == nil {
		return
	}
	if err != nil {
		b.metrics.IndexBuildsTotal.WithLabelValues("error").Inc()
		return
	}
	b.metrics.IndexBuildsTotal.WithLabelValues("success").Inc()
	b.metrics.IndexBuildDuration.Observe(elapsed.Seconds())
	b.metrics.IndexBytesWritten.Add(float64(res.Size))
	b.metrics.DocsIndexedTotal.Add(float64(res.Documents))
}
