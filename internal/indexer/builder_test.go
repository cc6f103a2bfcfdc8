package indexer

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/crawler"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/fileindex"
	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/resilience"
)

type fakeCatalog struct {
	mu       sync.Mutex
	failures int
	reject   error
	calls    int
	entries  []catalog.Entry
}

func (c *fakeCatalog) Register(_ context.Context, e catalog.Entry) (catalog.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.reject != nil {
		return catalog.Entry{}, c.reject
	}
	if c.failures > 0 {
		c.failures--
		return catalog.Entry{}, errors.New("connection refused")
	}
	c.entries = append(c.entries, e)
	return e, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []kafka.Event
}

func (p *fakePublisher) Publish(_ context.Context, event kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, text := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

var fastRetry = resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}

func TestBuild(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":     "red fish blue fish",
		"sub/b.txt": "one fish two fish",
	})
	cat := &fakeCatalog{failures: 1}
	pub := &fakePublisher{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	b, err := NewBuilder(crawler.Config{Workers: 2},
		WithCatalog(cat), WithPublisher(pub), WithMetrics(m), WithRetry(fastRetry))
	if err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(t.TempDir(), "out", "tree.idx")
	res, err := b.Build(context.Background(), root, output)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Documents != 2 || res.Files != 2 || res.Words != 5 {
		t.Errorf("result = %+v", res)
	}

	r, err := fileindex.Open(output)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer r.Close()
	if r.Header().Checksum != res.Checksum || int64(r.Header().FileSize()) != res.Size {
		t.Errorf("header %+v disagrees with result %+v", r.Header(), res)
	}

	if len(cat.entries) != 1 || cat.entries[0].Path != output || cat.entries[0].Documents != 2 {
		t.Errorf("catalog entries = %+v", cat.entries)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events", len(pub.events))
	}
	event, ok := pub.events[0].Value.(analytics.IndexEvent)
	if !ok || event.Type != analytics.EventIndexCommitted || event.Path != output {
		t.Errorf("event = %+v", pub.events[0])
	}
	if pub.events[0].Type != string(analytics.EventIndexCommitted) {
		t.Errorf("event type = %q", pub.events[0].Type)
	}
}

func TestBuildCatalogFailure(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "hello"})
	b, err := NewBuilder(crawler.Config{}, WithCatalog(&fakeCatalog{failures: 10}), WithRetry(fastRetry))
	if err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(t.TempDir(), "a.idx")
	if _, err := b.Build(context.Background(), root, output); err == nil {
		t.Fatal("Build succeeded with an unreachable catalog")
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("committed file removed after catalog failure: %v", err)
	}
}

func TestBuildCatalogRejectionIsNotRetried(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "hello"})
	cat := &fakeCatalog{reject: apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "catalog entry has no path")}
	b, err := NewBuilder(crawler.Config{}, WithCatalog(cat), WithRetry(fastRetry))
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Build(context.Background(), root, filepath.Join(t.TempDir(), "a.idx"))
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if cat.calls != 1 {
		t.Errorf("catalog called %d times, want 1", cat.calls)
	}
}

func TestBuildPublishFailureIsNotFatal(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "hello"})
	b, err := NewBuilder(crawler.Config{}, WithPublisher(&fakePublisher{err: errors.New("broker down")}), WithRetry(fastRetry))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(context.Background(), root, filepath.Join(t.TempDir(), "a.idx")); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestBuildBadRoot(t *testing.T) {
	b, err := NewBuilder(crawler.Config{})
	if err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(t.TempDir(), "a.idx")
	if _, err := b.Build(context.Background(), filepath.Join(t.TempDir(), "missing"), output); err == nil {
		t.Fatal("Build accepted a missing root")
	}
	if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("output exists after failed build: %v", err)
	}
}
