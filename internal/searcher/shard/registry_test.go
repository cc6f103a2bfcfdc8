package shard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/fileindex"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/metrics"
)

func writeShard(t *testing.T, path string, docs map[string]string) {
	t.Helper()
	dt := index.NewDocTable()
	mi := index.NewMemIndex()
	for name, text := range docs {
		id := dt.Register(name)
		mi.AddDocument(id, tokenizer.Tokenize(text, tokenizer.Options{}))
	}
	if _, err := fileindex.Write(dt, mi, path); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func newRegistry(t *testing.T, src Source, opts ...Option) *Registry {
	t.Helper()
	r, err := NewRegistry(src, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegistryReload(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, filepath.Join(dir, "a.idx"), map[string]string{"a.txt": "red fish"})

	reg := prometheus.NewRegistry()
	r := newRegistry(t, Directory(dir), WithMetrics(metrics.NewWithRegistry(reg)))
	if r.Generation() != 0 || len(r.Shards()) != 0 {
		t.Fatalf("fresh registry: generation %d, shards %v", r.Generation(), r.Shards())
	}

	if err := r.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	results, gen, err := r.Query(context.Background(), []string{"fish"})
	if err != nil {
		t.Fatal(err)
	}
	if gen != 1 || !reflect.DeepEqual(results, []executor.Result{{DocumentName: "a.txt", Rank: 1}}) {
		t.Errorf("generation %d results %v", gen, results)
	}

	writeShard(t, filepath.Join(dir, "b.idx"), map[string]string{"b.txt": "fish fish"})
	if err := r.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	results, gen, err = r.Query(context.Background(), []string{"fish"})
	if err != nil {
		t.Fatal(err)
	}
	want := []executor.Result{{DocumentName: "a.txt", Rank: 1}, {DocumentName: "b.txt", Rank: 2}}
	if gen != 2 || !reflect.DeepEqual(results, want) {
		t.Errorf("generation %d results %v, want %v", gen, results, want)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() == "shards_loaded" && f.GetMetric()[0].GetGauge().GetValue() != 2 {
			t.Errorf("shards_loaded = %v", f.GetMetric()[0].GetGauge().GetValue())
		}
	}
}

func TestReloadFailureKeepsPreviousSet(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.idx")
	writeShard(t, good, map[string]string{"a.txt": "whale"})

	paths := []string{good}
	r := newRegistry(t, func(context.Context) ([]string, error) { return paths, nil })
	if err := r.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	paths = []string{good, filepath.Join(dir, "missing.idx")}
	if err := r.Reload(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Reload = %v, want ErrNotExist", err)
	}
	if r.Generation() != 1 {
		t.Errorf("generation = %d after failed reload", r.Generation())
	}
	results, _, err := r.Query(context.Background(), []string{"whale"})
	if err != nil || len(results) != 1 {
		t.Errorf("query after failed reload = %v, %v", results, err)
	}

	failing := newRegistry(t, func(context.Context) ([]string, error) { return nil, errors.New("catalog down") })
	if err := failing.Reload(context.Background()); err == nil {
		t.Error("Reload ignored a source error")
	}
}

func TestRegistrySkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, filepath.Join(dir, "a.idx"), map[string]string{"a.txt": "fish"})
	if err := os.WriteFile(filepath.Join(dir, "b.idx"), []byte("half written"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := newRegistry(t, Directory(dir), WithProcessorOptions(executor.SkipCorrupt()))
	if err := r.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(r.Shards()) != 1 || len(r.Skipped()) != 1 {
		t.Errorf("shards %v skipped %v", r.Shards(), r.Skipped())
	}
}

type fakeLister []string

func (f fakeLister) Paths(context.Context) ([]string, error) { return f, nil }

func TestUnion(t *testing.T) {
	src := Union(StaticPaths([]string{"a.idx", "b.idx"}), FromCatalog(fakeLister{"b.idx", "c.idx"}))
	got, err := src(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a.idx", "b.idx", "c.idx"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Union = %v, want %v", got, want)
	}
}

func TestWatchReloadsOnNewFile(t *testing.T) {
	dir := t.TempDir()
	r := newRegistry(t, Directory(dir))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, dir, 20*time.Millisecond) }()

	// Give the watcher time to register before the write.
	time.Sleep(50 * time.Millisecond)
	writeShard(t, filepath.Join(dir, "new.idx"), map[string]string{"n.txt": "otter"})

	deadline := time.Now().Add(5 * time.Second)
	for r.Generation() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
	results, _, err := r.Query(context.Background(), []string{"otter"})
	if err != nil || len(results) != 1 {
		t.Errorf("query after watch reload = %v, %v", results, err)
	}
}
