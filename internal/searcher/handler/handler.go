// Package handler serves the search HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/middleware"
)

// Searcher is satisfied by *shard.Registry.
type Searcher interface {
	Query(ctx context.Context, words []string) ([]executor.Result, uint64, error)
	Generation() uint64
	Shards() []executor.ShardInfo
	Skipped() []string
	Reload(ctx context.Context) error
	HasDocument(name string) (bool, error)
}

// Tracker receives analytics events. *analytics.Collector and
// *analytics.Aggregator both satisfy it.
type Tracker interface {
	Track(event any)
}

type Config struct {
	DefaultLimit  int
	MaxResults    int
	StopWords     bool
	DocumentRoots []string
}

type SearchResponse struct {
	Query      string            `json:"query"`
	Terms      []string          `json:"terms"`
	Results    []executor.Result `json:"results"`
	TotalHits  int               `json:"total_hits"`
	Generation uint64            `json:"generation"`
	CacheHit   bool              `json:"cache_hit"`
	LatencyMs  int64             `json:"latency_ms"`
}

type ShardsResponse struct {
	Generation uint64               `json:"generation"`
	Shards     []executor.ShardInfo `json:"shards"`
	Skipped    []string             `json:"skipped,omitempty"`
}

type Handler struct {
	searcher Searcher
	cache    *cache.QueryCache
	tracker  Tracker
	metrics  *metrics.Metrics
	cfg      Config
	logger   *slog.Logger
}

// New creates a Handler. queryCache, tracker and m may be nil.
func New(s Searcher, queryCache *cache.QueryCache, tracker Tracker, m *metrics.Metrics, cfg Config) *Handler {
	return &Handler{
		searcher: s,
		cache:    queryCache,
		tracker:  tracker,
		metrics:  m,
		cfg:      cfg,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := h.cfg.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, h.cfg.MaxResults)
	}

	plan := parser.Parse(query, parser.Options{StopWords: h.cfg.StopWords})
	if plan.Empty() {
		h.writeJSON(w, http.StatusOK, &SearchResponse{
			Query:      query,
			Terms:      plan.Terms,
			Results:    []executor.Result{},
			Generation: h.searcher.Generation(),
		})
		return
	}

	var (
		entry    *cache.Entry
		cacheHit bool
		err      error
	)
	compute := func() (*cache.Entry, error) {
		results, gen, err := h.searcher.Query(ctx, plan.Terms)
		if err != nil {
			return nil, err
		}
		return &cache.Entry{Results: merger.TopByRank(results, limit), Total: len(results), Generation: gen}, nil
	}
	if h.cache != nil {
		entry, cacheHit, err = h.cache.GetOrCompute(ctx, h.searcher.Generation(), plan.Terms, limit, compute)
	} else {
		entry, err = compute()
	}
	latency := time.Since(start)

	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.observe("error", cacheHit, latency, 0)
		h.track(r, plan, nil, cacheHit, latency, true)
		h.writeFailure(w, err)
		return
	}

	h.observe(resultType(entry.Total), cacheHit, latency, entry.Total)
	h.track(r, plan, entry, cacheHit, latency, false)
	log.Info("search completed",
		"query", query,
		"total_hits", entry.Total,
		"returned", len(entry.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)

	results := entry.Results
	if results == nil {
		results = []executor.Result{}
	}
	h.writeJSON(w, http.StatusOK, &SearchResponse{
		Query:      query,
		Terms:      plan.Terms,
		Results:    results,
		TotalHits:  entry.Total,
		Generation: entry.Generation,
		CacheHit:   cacheHit,
		LatencyMs:  latency.Milliseconds(),
	})
}

func (h *Handler) Shards(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, &ShardsResponse{
		Generation: h.searcher.Generation(),
		Shards:     h.searcher.Shards(),
		Skipped:    h.searcher.Skipped(),
	})
}

// Reload re-reads the shard source. A failed reload keeps the current set
// in service.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.searcher.Reload(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("shard reload failed", "error", err)
		h.writeFailure(w, err)
		return
	}
	h.Shards(w, r)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) track(r *http.Request, plan *parser.QueryPlan, entry *cache.Entry, cacheHit bool, latency time.Duration, failed bool) {
	if h.tracker == nil {
		return
	}
	event := analytics.SearchEvent{
		Type:       analytics.EventSearch,
		Query:      plan.RawQuery,
		Terms:      plan.Terms,
		LatencyMs:  latency.Milliseconds(),
		CacheHit:   cacheHit,
		ShardCount: len(h.searcher.Shards()),
		Failed:     failed,
		Timestamp:  time.Now().UTC(),
		RequestID:  middleware.GetRequestID(r),
	}
	if entry != nil {
		event.TotalHits = entry.Total
		event.Returned = len(entry.Results)
	}
	h.tracker.Track(event)
}

func (h *Handler) observe(outcome string, cacheHit bool, latency time.Duration, hits int) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	status := "disabled"
	if h.cache != nil {
		if cacheHit {
			status = "hit"
			h.metrics.CacheHitsTotal.Inc()
		} else {
			status = "miss"
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	h.metrics.SearchLatency.WithLabelValues(status).Observe(latency.Seconds())
	if outcome != "error" {
		h.metrics.SearchResultsCount.Observe(float64(hits))
	}
}

func resultType(total int) string {
	if total == 0 {
		return "zero_result"
	}
	return "hit"
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := "search failed"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusServiceUnavailable, "search timed out"
	case apperrors.IsCorrupt(err):
		message = "index file unusable"
	case status < http.StatusInternalServerError:
		message = err.Error()
	}
	h.writeError(w, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
