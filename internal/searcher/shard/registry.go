// Package shard keeps the set of index files a searcher serves. The set is
// loaded from a Source and can be swapped at runtime without interrupting
// queries; each swap bumps a generation number used to key cached results.
package shard

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/metrics"
)

// Source lists the index files to serve.
type Source func(ctx context.Context) ([]string, error)

// StaticPaths serves a fixed list of files.
func StaticPaths(paths []string) Source {
	return func(context.Context) ([]string, error) {
		return slices.Clone(paths), nil
	}
}

// Directory serves every *.idx file directly inside dir, in name order.
func Directory(dir string) Source {
	return func(context.Context) ([]string, error) {
		paths, err := doublestar.FilepathGlob(filepath.Join(dir, "*.idx"))
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", dir, err)
		}
		slices.Sort(paths)
		return paths, nil
	}
}

// PathLister is satisfied by *catalog.Store.
type PathLister interface {
	Paths(ctx context.Context) ([]string, error)
}

func FromCatalog(c PathLister) Source {
	return c.Paths
}

// Union concatenates sources, dropping duplicate paths.
func Union(sources ...Source) Source {
	return func(ctx context.Context) ([]string, error) {
		seen := make(map[string]bool)
		var out []string
		for _, src := range sources {
			paths, err := src(ctx)
			if err != nil {
				return nil, err
			}
			for _, p := range paths {
				if !seen[p] {
					seen[p] = true
					out = append(out, p)
				}
			}
		}
		return out, nil
	}
}

type Option func(*Registry)

// WithProcessorOptions passes opts to every executor.New call.
func WithProcessorOptions(opts ...executor.Option) Option {
	return func(r *Registry) { r.procOpts = append(r.procOpts, opts...) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// loaded is one generation of the shard set. inflight counts queries still
// using it.
type loaded struct {
	qp         *executor.QueryProcessor
	generation uint64
	inflight   sync.WaitGroup
}

type Registry struct {
	source   Source
	procOpts []executor.Option
	metrics  *metrics.Metrics
	logger   *slog.Logger

	reloadMu   sync.Mutex
	mu         sync.RWMutex
	current    *loaded
	generation atomic.Uint64
}

// NewRegistry creates a registry serving no shards. Call Reload to load the
// source.
func NewRegistry(source Source, opts ...Option) (*Registry, error) {
	r := &Registry{
		source: source,
		logger: slog.Default().With("component", "shard-registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	qp, err := executor.New(nil, r.procOpts...)
	if err != nil {
		return nil, err
	}
	r.current = &loaded{qp: qp}
	return r, nil
}

// Reload lists the source, opens the files and swaps the new set in. On
// error the previous set stays in service. The previous set is closed once
// the queries using it have finished.
func (r *Registry) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	paths, err := r.source(ctx)
	if err != nil {
		r.observeReload("error")
		return fmt.Errorf("listing shards: %w", err)
	}
	qp, err := executor.New(paths, r.procOpts...)
	if err != nil {
		r.observeReload("error")
		return err
	}

	next := &loaded{qp: qp, generation: r.generation.Add(1)}
	r.mu.Lock()
	prev := r.current
	r.current = next
	r.mu.Unlock()

	prev.inflight.Wait()
	if err := prev.qp.Close(); err != nil {
		r.logger.Warn("closing previous shard set", "generation", prev.generation, "error", err)
	}

	r.observeReload("success")
	r.observeShards(qp.Shards())
	r.logger.Info("shards reloaded",
		"generation", next.generation,
		"shards", len(qp.Shards()),
		"skipped", len(qp.Skipped()),
	)
	return nil
}

// acquire pins the current generation until release is called.
func (r *Registry) acquire() *loaded {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l := r.current
	l.inflight.Add(1)
	return l
}

// Query runs an AND query against the current shard set and reports the
// generation that answered it.
func (r *Registry) Query(ctx context.Context, words []string) ([]executor.Result, uint64, error) {
	l := r.acquire()
	defer l.inflight.Done()
	results, err := l.qp.ProcessQuery(ctx, words)
	return results, l.generation, err
}

// HasDocument reports whether the current shard set indexes name.
func (r *Registry) HasDocument(name string) (bool, error) {
	l := r.acquire()
	defer l.inflight.Done()
	return l.qp.HasDocument(name)
}

// Generation is bumped by every successful Reload. It starts at 0 with no
// shards loaded.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.generation
}

func (r *Registry) Shards() []executor.ShardInfo {
	l := r.acquire()
	defer l.inflight.Done()
	return l.qp.Shards()
}

func (r *Registry) Skipped() []string {
	l := r.acquire()
	defer l.inflight.Done()
	return slices.Clone(l.qp.Skipped())
}

// Close closes the current shard set. The registry must not be used
// afterwards.
func (r *Registry) Close() error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()
	r.mu.Lock()
	l := r.current
	r.mu.Unlock()
	l.inflight.Wait()
	return l.qp.Close()
}

func (r *Registry) observeReload(status string) {
	if r.metrics != nil {
		r.metrics.ShardReloadsTotal.WithLabelValues(status).Inc()
	}
}

func (r *Registry) observeShards(shards []executor.ShardInfo) {
	if r.metrics == nil {
		return
	}
	r.metrics.ShardsLoaded.Set(float64(len(shards)))
	r.metrics.ShardDocCount.Reset()
	for _, s := range shards {
		r.metrics.ShardDocCount.WithLabelValues(filepath.Base(s.Path)).Set(float64(s.Documents))
	}
}
