// Package executor answers AND queries against a set of index files.
package executor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/fileindex"
	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
)

type Result struct {
	DocumentName string `json:"document_name"`
	Rank         int    `json:"rank"`
}

type ShardInfo struct {
	Path      string `json:"path"`
	Documents int    `json:"documents"`
	Words     int    `json:"words"`
	Bytes     uint64 `json:"bytes"`
}

type options struct {
	openOpts    []fileindex.Option
	logger      *slog.Logger
	skipCorrupt bool
}

type Option func(*options)

func WithoutChecksum() Option {
	return func(o *options) { o.openOpts = append(o.openOpts, fileindex.WithoutChecksum()) }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// SkipCorrupt makes New leave out index files that fail validation instead
// of failing. Files that cannot be opened at all still fail New.
func SkipCorrupt() Option {
	return func(o *options) { o.skipCorrupt = true }
}

// QueryProcessor owns one set of readers per index file. Readers use
// positional reads only, so ProcessQuery may be called concurrently.
type QueryProcessor struct {
	shards  []*shard
	skipped []string
	logger  *slog.Logger
}

// New opens every index file in paths. If any of them cannot be opened the
// ones already opened are closed and an error naming the bad file is
// returned.
func New(paths []string, opts ...Option) (*QueryProcessor, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	qp := &QueryProcessor{
		shards: make([]*shard, 0, len(paths)),
		logger: o.logger.With("component", "query-processor"),
	}
	for _, path := range paths {
		s, err := openShard(path, o.openOpts...)
		if err != nil && o.skipCorrupt && apperrors.IsCorrupt(err) {
			qp.logger.Warn("skipping invalid shard", "path", path, "error", err)
			qp.skipped = append(qp.skipped, path)
			continue
		}
		if err != nil {
			qp.Close()
			return nil, fmt.Errorf("opening shard %s: %w", path, err)
		}
		qp.shards = append(qp.shards, s)
	}
	qp.logger.Info("shards opened", "count", len(qp.shards), "skipped", len(qp.skipped))
	return qp, nil
}

// ProcessQuery returns every document, across all shards, that contains all
// of words. A document's rank is the total number of times the words occur
// in it. Results are ordered by document name, then by descending rank.
func (qp *QueryProcessor) ProcessQuery(ctx context.Context, words []string) ([]Result, error) {
	if len(words) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}

	perShard := make([][]Result, len(qp.shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range qp.shards {
		g.Go(func() error {
			results, err := s.query(gctx, lowered)
			if err != nil {
				return fmt.Errorf("shard %s: %w", s.path, err)
			}
			perShard[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []Result
	for _, results := range perShard {
		merged = append(merged, results...)
	}
	SortByName(merged)

	qp.logger.Debug("query processed",
		"words", lowered,
		"shards", len(qp.shards),
		"results", len(merged),
	)
	return merged, nil
}

func (qp *QueryProcessor) Shards() []ShardInfo {
	out := make([]ShardInfo, len(qp.shards))
	for i, s := range qp.shards {
		out[i] = s.info
	}
	return out
}

// HasDocument reports whether any open shard indexes a document called name.
func (qp *QueryProcessor) HasDocument(name string) (bool, error) {
	for _, s := range qp.shards {
		names, err := s.names()
		if err != nil {
			return false, fmt.Errorf("shard %s: %w", s.path, err)
		}
		if _, ok := names[name]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Skipped lists the paths New left out under SkipCorrupt.
func (qp *QueryProcessor) Skipped() []string {
	return qp.skipped
}

func (qp *QueryProcessor) Close() error {
	var errs []error
	for _, s := range qp.shards {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing shard %s: %w", s.path, err))
		}
		if refs := s.file.References(); refs != 0 {
			qp.logger.Warn("shard file still referenced after close", "path", s.path, "references", refs)
		}
	}
	qp.shards = nil
	return errors.Join(errs...)
}

// SortByName orders results by document name, breaking ties by descending
// rank.
func SortByName(results []Result) {
	slices.SortFunc(results, func(a, b Result) int {
		if c := strings.Compare(a.DocumentName, b.DocumentName); c != 0 {
			return c
		}
		return cmp.Compare(b.Rank, a.Rank)
	})
}

// SortByRank orders results by descending rank, breaking ties by name.
func SortByRank(results []Result) {
	slices.SortFunc(results, func(a, b Result) int {
		if c := cmp.Compare(b.Rank, a.Rank); c != 0 {
			return c
		}
		return strings.Compare(a.DocumentName, b.DocumentName)
	})
}
