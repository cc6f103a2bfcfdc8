package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/metrics"
)

type fakeSearcher struct {
	results    []executor.Result
	err        error
	reloadErr  error
	generation uint64
	queries    [][]string

	// reloadDuringQuery bumps the generation before a query answers.
	reloadDuringQuery bool
	documents         map[string]bool
	documentErr       error
}

func (f *fakeSearcher) HasDocument(name string) (bool, error) {
	return f.documents[name], f.documentErr
}

func (f *fakeSearcher) Query(_ context.Context, words []string) ([]executor.Result, uint64, error) {
	f.queries = append(f.queries, words)
	if f.reloadDuringQuery {
		f.generation++
	}
	return f.results, f.generation, f.err
}

func (f *fakeSearcher) Generation() uint64 { return f.generation }

func (f *fakeSearcher) Shards() []executor.ShardInfo {
	return []executor.ShardInfo{{Path: "a.idx", Documents: 3}}
}

func (f *fakeSearcher) Skipped() []string { return nil }

func (f *fakeSearcher) Reload(context.Context) error {
	if f.reloadErr != nil {
		return f.reloadErr
	}
	f.generation++
	return nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *memStore) FlushByPattern(context.Context, string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.data))
	clear(m.data)
	return n, nil
}

var cfg = Config{DefaultLimit: 2, MaxResults: 3}

var fishResults = []executor.Result{
	{DocumentName: "a.txt", Rank: 1}, {DocumentName: "b.txt", Rank: 4}, {DocumentName: "c.txt", Rank: 2}, {DocumentName: "d.txt", Rank: 4},
}

func newMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/shards", h.Shards)
	mux.HandleFunc("POST /api/v1/shards/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/documents", h.Document)
	return mux
}

func do(t *testing.T, mux http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestSearch(t *testing.T) {
	s := &fakeSearcher{results: fishResults, generation: 1}
	agg := analytics.NewAggregator()
	mux := newMux(New(s, nil, agg, metrics.NewWithRegistry(prometheus.NewRegistry()), cfg))

	tests := []struct {
		name   string
		target string
		want   []executor.Result
	}{
		{"default limit", "/api/v1/search?q=Fish+AND+red", []executor.Result{{DocumentName: "b.txt", Rank: 4}, {DocumentName: "d.txt", Rank: 4}}},
		{"explicit limit", "/api/v1/search?q=fish&limit=1", []executor.Result{{DocumentName: "b.txt", Rank: 4}}},
		{"limit capped", "/api/v1/search?q=fish&limit=50", []executor.Result{{DocumentName: "b.txt", Rank: 4}, {DocumentName: "d.txt", Rank: 4}, {DocumentName: "c.txt", Rank: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodGet, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body)
			}
			resp := decode[SearchResponse](t, rec)
			if !reflect.DeepEqual(resp.Results, tt.want) {
				t.Errorf("results = %v, want %v", resp.Results, tt.want)
			}
			if resp.TotalHits != 4 || resp.Generation != 1 {
				t.Errorf("total = %d, generation = %d", resp.TotalHits, resp.Generation)
			}
		})
	}

	if !reflect.DeepEqual(s.queries[0], []string{"fish", "red"}) {
		t.Errorf("query terms = %v", s.queries[0])
	}
	if stats := agg.Stats(); stats.TotalSearches != 3 {
		t.Errorf("tracked %d searches", stats.TotalSearches)
	}
}

func TestSearchBadRequests(t *testing.T) {
	mux := newMux(New(&fakeSearcher{}, nil, nil, nil, cfg))
	for _, target := range []string{"/api/v1/search", "/api/v1/search?q=x&limit=0", "/api/v1/search?q=x&limit=abc"} {
		if rec := do(t, mux, http.MethodGet, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", target, rec.Code)
		}
	}
}

func TestSearchNoTerms(t *testing.T) {
	s := &fakeSearcher{}
	mux := newMux(New(s, nil, nil, nil, cfg))
	rec := do(t, mux, http.MethodGet, "/api/v1/search?q=AND+%21%21")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decode[SearchResponse](t, rec); resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("results = %#v", resp.Results)
	}
	if len(s.queries) != 0 {
		t.Errorf("searcher queried with %v", s.queries)
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("shard a.idx: %w", apperrors.ErrIndexCorrupt), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		agg := analytics.NewAggregator()
		mux := newMux(New(&fakeSearcher{err: tt.err}, nil, agg, nil, cfg))
		if rec := do(t, mux, http.MethodGet, "/api/v1/search?q=fish"); rec.Code != tt.code {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.code)
		}
		if stats := agg.Stats(); stats.FailedSearches != 1 {
			t.Errorf("%v: failed searches = %d", tt.err, stats.FailedSearches)
		}
	}
}

func TestSearchCached(t *testing.T) {
	s := &fakeSearcher{results: fishResults, generation: 1}
	qc := cache.New(&memStore{data: make(map[string]string)}, time.Minute)
	mux := newMux(New(s, qc, nil, nil, cfg))

	first := decode[SearchResponse](t, do(t, mux, http.MethodGet, "/api/v1/search?q=fish"))
	second := decode[SearchResponse](t, do(t, mux, http.MethodGet, "/api/v1/search?q=fish"))
	if first.CacheHit || !second.CacheHit {
		t.Errorf("cache hits = %v, %v", first.CacheHit, second.CacheHit)
	}
	if !reflect.DeepEqual(first.Results, second.Results) || len(s.queries) != 1 {
		t.Errorf("cached response differs or searcher called %d times", len(s.queries))
	}

	do(t, mux, http.MethodPost, "/api/v1/shards/reload")
	third := decode[SearchResponse](t, do(t, mux, http.MethodGet, "/api/v1/search?q=fish"))
	if third.CacheHit || third.Generation != 2 {
		t.Errorf("after reload: hit = %v, generation = %d", third.CacheHit, third.Generation)
	}

	stats := decode[map[string]any](t, do(t, mux, http.MethodGet, "/api/v1/cache/stats"))
	if stats["hits"] != float64(1) || stats["misses"] != float64(2) {
		t.Errorf("cache stats = %v", stats)
	}
	if rec := do(t, mux, http.MethodPost, "/api/v1/cache/invalidate"); rec.Code != http.StatusOK {
		t.Errorf("invalidate status = %d", rec.Code)
	}
}

func TestSearchReportsAnsweringGeneration(t *testing.T) {
	s := &fakeSearcher{results: fishResults, generation: 4, reloadDuringQuery: true}
	qc := cache.New(&memStore{data: make(map[string]string)}, time.Minute)
	mux := newMux(New(s, qc, nil, nil, cfg))

	first := decode[SearchResponse](t, do(t, mux, http.MethodGet, "/api/v1/search?q=fish"))
	if first.CacheHit || first.Generation != 5 {
		t.Fatalf("first: hit = %v, generation = %d", first.CacheHit, first.Generation)
	}

	s.reloadDuringQuery = false
	second := decode[SearchResponse](t, do(t, mux, http.MethodGet, "/api/v1/search?q=fish"))
	if !second.CacheHit || second.Generation != 5 {
		t.Errorf("second: hit = %v, generation = %d", second.CacheHit, second.Generation)
	}
	if len(s.queries) != 1 {
		t.Errorf("searcher called %d times", len(s.queries))
	}
}

func TestCacheDisabled(t *testing.T) {
	mux := newMux(New(&fakeSearcher{}, nil, nil, nil, cfg))
	if stats := decode[map[string]string](t, do(t, mux, http.MethodGet, "/api/v1/cache/stats")); stats["status"] != "disabled" {
		t.Errorf("stats = %v", stats)
	}
	if rec := do(t, mux, http.MethodPost, "/api/v1/cache/invalidate"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalidate status = %d", rec.Code)
	}
}

func TestShardsAndReload(t *testing.T) {
	s := &fakeSearcher{generation: 4}
	mux := newMux(New(s, nil, nil, nil, cfg))

	resp := decode[ShardsResponse](t, do(t, mux, http.MethodGet, "/api/v1/shards"))
	if resp.Generation != 4 || len(resp.Shards) != 1 || resp.Shards[0].Path != "a.idx" {
		t.Errorf("shards = %+v", resp)
	}

	resp = decode[ShardsResponse](t, do(t, mux, http.MethodPost, "/api/v1/shards/reload"))
	if resp.Generation != 5 {
		t.Errorf("generation after reload = %d", resp.Generation)
	}

	s.reloadErr = fmt.Errorf("opening shard b.idx: %w", apperrors.ErrIndexIncomplete)
	if rec := do(t, mux, http.MethodPost, "/api/v1/shards/reload"); rec.Code != http.StatusBadGateway {
		t.Errorf("failed reload status = %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodGet, "/api/v1/shards/reload"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET reload status = %d", rec.Code)
	}
}
