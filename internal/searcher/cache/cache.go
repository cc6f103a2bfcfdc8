// Package cache stores query results in Redis. Keys include the shard-set
// generation, so a reload makes earlier entries unreachable without an
// explicit flush.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/redis"
)

const keyPrefix = "search:"

// Store is the subset of *redis.Client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Entry is one cached response: the top results, the number of matches
// before the limit was applied, and the shard-set generation that produced
// them.
type Entry struct {
	Results    []executor.Result `json:"results"`
	Total      int               `json:"total"`
	Generation uint64            `json:"generation"`
}

type QueryCache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(store Store, ttl time.Duration) *QueryCache {
	return &QueryCache{
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, generation uint64, terms []string, limit int) (*Entry, bool) {
	key := BuildKey(generation, terms, limit)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "terms", terms, "key", key)
	return &entry, true
}

func (c *QueryCache) Set(ctx context.Context, generation uint64, terms []string, limit int, entry *Entry) {
	key := BuildKey(generation, terms, limit)
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached entry for generation or runs compute once
// per key, sharing its result with concurrent callers. The bool reports a
// cache hit.
//
// compute must set Entry.Generation to the generation that answered. A reload
// can land between reading generation and running the query, so the entry is
// stored under the generation it reports rather than the one asked for.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	generation uint64,
	terms []string,
	limit int,
	compute func() (*Entry, error),
) (*Entry, bool, error) {
	if entry, ok := c.Get(ctx, generation, terms, limit); ok {
		return entry, true, nil
	}
	key := BuildKey(generation, terms, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		entry, err := compute()
		if err != nil {
			return nil, err
		}
		if entry.Generation != generation {
			c.logger.Debug("shard set reloaded during query", "requested", generation, "answered", entry.Generation)
		}
		c.Set(ctx, entry.Generation, terms, limit, entry)
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Entry), false, nil
}

// Invalidate deletes every cached query.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey derives the cache key. Term order does not affect an AND query's
// results, so terms are sorted. Repeated terms count twice toward rank and
// are kept.
func BuildKey(generation uint64, terms []string, limit int) string {
	sorted := slices.Clone(terms)
	for i, t := range sorted {
		sorted[i] = strings.ToLower(t)
	}
	slices.Sort(sorted)
	raw := fmt.Sprintf("gen=%d|%s|limit=%d", generation, strings.Join(sorted, ","), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
