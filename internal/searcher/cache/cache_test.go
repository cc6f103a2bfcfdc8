package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

var entry = &Entry{Results: []executor.Result{{DocumentName: "a.txt", Rank: 3}}, Total: 1, Generation: 1}

func TestGetOrCompute(t *testing.T) {
	c := New(newMemStore(), time.Minute)
	ctx := context.Background()
	calls := 0
	compute := func() (*Entry, error) {
		calls++
		return entry, nil
	}

	got, hit, err := c.GetOrCompute(ctx, 1, []string{"red", "fish"}, 10, compute)
	if err != nil || hit || got.Total != 1 {
		t.Fatalf("first call = %+v, %v, %v", got, hit, err)
	}
	got, hit, err = c.GetOrCompute(ctx, 1, []string{"fish", "red"}, 10, compute)
	if err != nil || !hit || got.Results[0] != entry.Results[0] {
		t.Fatalf("second call = %+v, %v, %v", got, hit, err)
	}
	if calls != 1 {
		t.Errorf("compute ran %d times", calls)
	}

	if _, hit, _ := c.GetOrCompute(ctx, 2, []string{"red", "fish"}, 10, compute); hit {
		t.Error("entry survived a generation change")
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 2 {
		t.Errorf("stats = %d hits, %d misses", hits, misses)
	}
}

func TestGetOrComputeStoresAnsweringGeneration(t *testing.T) {
	c := New(newMemStore(), time.Minute)
	ctx := context.Background()
	reloaded := &Entry{Results: []executor.Result{{DocumentName: "b.txt", Rank: 2}}, Total: 1, Generation: 3}

	got, _, err := c.GetOrCompute(ctx, 2, []string{"fish"}, 10, func() (*Entry, error) { return reloaded, nil })
	if err != nil || got.Generation != 3 {
		t.Fatalf("GetOrCompute = %+v, %v", got, err)
	}
	if _, ok := c.Get(ctx, 2, []string{"fish"}, 10); ok {
		t.Error("generation 3 results cached under generation 2")
	}
	if cached, ok := c.Get(ctx, 3, []string{"fish"}, 10); !ok || cached.Generation != 3 {
		t.Errorf("Get(3) = %+v, %v", cached, ok)
	}
}

func TestGetOrComputeError(t *testing.T) {
	c := New(newMemStore(), time.Minute)
	boom := errors.New("shard failed")
	_, _, err := c.GetOrCompute(context.Background(), 1, []string{"x"}, 10, func() (*Entry, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("error = %v", err)
	}
	if _, ok := c.Get(context.Background(), 1, []string{"x"}, 10); ok {
		t.Error("failed computation was cached")
	}
}

func TestStoreFailureFallsThrough(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := New(store, time.Minute)
	got, hit, err := c.GetOrCompute(context.Background(), 1, []string{"x"}, 10, func() (*Entry, error) { return entry, nil })
	if err != nil || hit || got != entry {
		t.Errorf("got %+v, %v, %v", got, hit, err)
	}
}

func TestSingleflight(t *testing.T) {
	c := New(newMemStore(), time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*Entry, error) {
		calls.Add(1)
		<-release
		return entry, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.GetOrCompute(context.Background(), 1, []string{"slow"}, 10, compute)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if n := calls.Load(); n > 2 {
		t.Errorf("compute ran %d times for one key", n)
	}
}

func TestInvalidate(t *testing.T) {
	c := New(newMemStore(), time.Minute)
	ctx := context.Background()
	c.Set(ctx, 1, []string{"a"}, 10, entry)
	c.Set(ctx, 1, []string{"b"}, 10, entry)
	n, err := c.Invalidate(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Invalidate = %d, %v", n, err)
	}
	if _, ok := c.Get(ctx, 1, []string{"a"}, 10); ok {
		t.Error("entry survived Invalidate")
	}
}

func TestBuildKey(t *testing.T) {
	base := BuildKey(1, []string{"red", "fish"}, 10)
	if BuildKey(1, []string{"FISH", "red"}, 10) != base {
		t.Error("key depends on term order or case")
	}
	for _, other := range []string{
		BuildKey(2, []string{"red", "fish"}, 10),
		BuildKey(1, []string{"red", "fish"}, 20),
		BuildKey(1, []string{"red", "fish", "fish"}, 10),
	} {
		if other == base {
			t.Errorf("key collision with %s", base)
		}
	}
	if !strings.HasPrefix(base, keyPrefix) {
		t.Errorf("key %s lacks prefix", base)
	}
}
