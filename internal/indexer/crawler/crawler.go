// Package crawler walks a directory tree and builds the in-memory document
// table and word index for every text file it finds.
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
)

const (
	sniffLen  = 512
	batchSize = 256
)

type Config struct {
	// Include and Exclude are doublestar patterns matched against the
	// slash-separated path relative to the crawl root. An empty Include
	// accepts every file.
	Include     []string
	Exclude     []string
	MaxFileSize int64
	Workers     int
	StopWords   bool
}

type Result struct {
	Docs    *index.DocTable
	Index   *index.MemIndex
	Files   int
	Skipped int
	Bytes   int64
}

type Crawler struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) (*Crawler, error) {
	for _, p := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: bad glob pattern %q", apperrors.ErrInvalidInput, p)
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Crawler{
		cfg:    cfg,
		logger: slog.Default().With("component", "crawler"),
	}, nil
}

type file struct {
	path string
	size int64
}

// Crawl indexes every accepted file under root. Document IDs follow walk
// order, so crawling the same tree twice yields identical tables.
func (c *Crawler) Crawl(ctx context.Context, root string) (*Result, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("crawl root: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: crawl root %s is not a directory", apperrors.ErrInvalidInput, root)
	}

	res := &Result{
		Docs:  index.NewDocTable(),
		Index: index.NewMemIndex(),
	}
	files, err := c.walk(root, res)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(files); start += batchSize {
		end := min(start+batchSize, len(files))
		if err := c.indexBatch(ctx, files[start:end], res); err != nil {
			return nil, err
		}
	}

	c.logger.Info("crawl complete",
		"root", root,
		"files", res.Files,
		"skipped", res.Skipped,
		"words", res.Index.NumWords(),
		"bytes", res.Bytes,
	)
	return res, nil
}

func (c *Crawler) walk(root string, res *Result) ([]file, error) {
	var files []file
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			c.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			res.Skipped++
			return nil
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if strings.HasPrefix(d.Name(), ".") || c.excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() || !c.included(rel) {
			res.Skipped++
			return nil
		}
		info, err := d.Info()
		if err != nil {
			res.Skipped++
			return nil
		}
		if c.cfg.MaxFileSize > 0 && info.Size() > c.cfg.MaxFileSize {
			c.logger.Debug("skipping large file", "path", path, "size", info.Size())
			res.Skipped++
			return nil
		}
		files = append(files, file{path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

func (c *Crawler) included(rel string) bool {
	if len(c.cfg.Include) == 0 {
		return true
	}
	for _, p := range c.cfg.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (c *Crawler) excluded(rel string) bool {
	for _, p := range c.cfg.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// indexBatch reads and tokenizes a batch concurrently, then adds the
// documents in walk order.
func (c *Crawler) indexBatch(ctx context.Context, batch []file, res *Result) error {
	tokens := make([][]tokenizer.Token, len(batch))
	ok := make([]bool, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, f := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(f.path)
			if err != nil {
				c.logger.Warn("skipping unreadable file", "path", f.path, "error", err)
				return nil
			}
			if isBinary(data) {
				c.logger.Debug("skipping binary file", "path", f.path)
				return nil
			}
			tokens[i] = tokenizer.Tokenize(string(data), tokenizer.Options{StopWords: c.cfg.StopWords})
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, f := range batch {
		if !ok[i] {
			res.Skipped++
			continue
		}
		id := res.Docs.Register(f.path)
		res.Index.AddDocument(id, tokens[i])
		res.Files++
		res.Bytes += f.size
	}
	return nil
}

func isBinary(data []byte) bool {
	return bytes.IndexByte(data[:min(len(data), sniffLen)], 0) >= 0
}
