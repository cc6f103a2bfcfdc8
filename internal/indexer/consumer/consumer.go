// Package consumer reads crawl requests from Kafka and builds an index file
// for each one.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/kafka"
)

// CrawlRequest asks the indexer to index Root. An empty Output places the
// file in the indexer's index directory, named after Root.
type CrawlRequest struct {
	Root   string `json:"root"`
	Output string `json:"output,omitempty"`
}

// Builder is satisfied by *indexer.Builder.
type Builder interface {
	Build(ctx context.Context, root, output string) (*indexer.Result, error)
}

// HandleCrawlRequest returns a Kafka MessageHandler that runs one build per
// request. Malformed requests are logged and committed; failed builds are
// returned so the message is redelivered.
func HandleCrawlRequest(b Builder, indexDir string) kafka.MessageHandler {
	logger := slog.Default().With("component", "crawl-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		req, err := kafka.DecodeJSON[CrawlRequest](value)
		if err != nil {
			logger.Error("failed to decode crawl request",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if req.Root == "" {
			logger.Error("crawl request has no root", "key", string(key))
			return nil
		}
		output := req.Output
		if output == "" {
			output = DefaultOutput(indexDir, req.Root)
		}

		logger.Debug("processing crawl request", "root", req.Root, "output", output)
		res, err := b.Build(ctx, req.Root, output)
		if err != nil {
			return fmt.Errorf("building index for %s: %w", req.Root, err)
		}
		logger.Info("crawl request indexed",
			"root", req.Root,
			"output", res.Path,
			"documents", res.Documents,
		)
		return nil
	}
}

// DefaultOutput names the index file for root inside indexDir, e.g.
// /srv/docs/manuals becomes <indexDir>/srv_docs_manuals.idx.
func DefaultOutput(indexDir, root string) string {
	clean := filepath.ToSlash(filepath.Clean(root))
	name := strings.Trim(strings.ReplaceAll(clean, "/", "_"), "_.")
	if name == "" {
		name = "root"
	}
	return filepath.Join(indexDir, name+".idx")
}
