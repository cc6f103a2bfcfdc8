package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if !cfg.Search.VerifyChecksums {
		t.Error("checksums are not verified by default")
	}
	if cfg.Kafka.Topics.IndexComplete != "index.complete" {
		t.Errorf("IndexComplete topic = %q", cfg.Kafka.Topics.IndexComplete)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9000
search:
  indexPaths: [a.idx, b.idx]
  defaultLimit: 5
  maxResults: 50
  reloadDebounce: 2s
indexer:
  workers: 2
  exclude: ["**/node_modules/**"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FS_SERVER_PORT", "9100")
	t.Setenv("FS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("FS_SEARCH_VERIFY_CHECKSUMS", "false")
	t.Setenv("FS_SERVER_RATE_LIMIT", "2.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env did not override port: %d", cfg.Server.Port)
	}
	if !reflect.DeepEqual(cfg.Search.IndexPaths, []string{"a.idx", "b.idx"}) {
		t.Errorf("IndexPaths = %v", cfg.Search.IndexPaths)
	}
	if cfg.Search.ReloadDebounce != 2*time.Second {
		t.Errorf("ReloadDebounce = %v", cfg.Search.ReloadDebounce)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Search.VerifyChecksums {
		t.Error("FS_SEARCH_VERIFY_CHECKSUMS=false ignored")
	}
	if cfg.Server.RateLimit != 2.5 || cfg.Server.RateBurst != 20 {
		t.Errorf("RateLimit = %g, RateBurst = %d", cfg.Server.RateLimit, cfg.Server.RateBurst)
	}
	if cfg.Indexer.Workers != 2 || len(cfg.Indexer.Exclude) != 1 {
		t.Errorf("Indexer = %+v", cfg.Indexer)
	}
}

func TestLoadRejectsBadLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("search:\n  defaultLimit: 20\n  maxResults: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted maxResults below defaultLimit")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load accepted a missing file")
	}
}
