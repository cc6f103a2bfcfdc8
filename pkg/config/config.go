// Package config loads application configuration from YAML files with
// environment-variable overrides. Every binary shares one Config; each uses
// the sections it needs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	// RateLimit is the average requests per second allowed per client
	// address; zero disables limiting.
	RateLimit   float64  `yaml:"rateLimit"`
	RateBurst   int      `yaml:"rateBurst"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters for the shard
// catalog.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CrawlRequests   string `yaml:"crawlRequests"`
	IndexComplete   string `yaml:"indexComplete"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexerConfig controls how directory trees are crawled into index files.
type IndexerConfig struct {
	IndexDir    string   `yaml:"indexDir"`
	Workers     int      `yaml:"workers"`
	StopWords   bool     `yaml:"stopWords"`
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
	MaxFileSize int64    `yaml:"maxFileSize"`
}

// SearchConfig selects the shards a searcher serves and bounds its
// responses.
type SearchConfig struct {
	IndexPaths      []string      `yaml:"indexPaths"`
	IndexDir        string        `yaml:"indexDir"`
	WatchIndexDir   bool          `yaml:"watchIndexDir"`
	UseCatalog      bool          `yaml:"useCatalog"`
	VerifyChecksums bool          `yaml:"verifyChecksums"`
	StopWords       bool          `yaml:"stopWords"`
	DefaultLimit    int           `yaml:"defaultLimit"`
	MaxResults      int           `yaml:"maxResults"`
	ReloadDebounce  time.Duration `yaml:"reloadDebounce"`
	// DocumentRoots are the directories matched documents may be served
	// from. Empty disables the document endpoint.
	DocumentRoots []string `yaml:"documentRoots"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.defaultLimit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.maxResults (%d) is below search.defaultLimit (%d)", c.Search.MaxResults, c.Search.DefaultLimit)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative, got %g", c.Server.RateLimit)
	}
	if c.Indexer.Workers <= 0 {
		return fmt.Errorf("indexer.workers must be positive, got %d", c.Indexer.Workers)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			RateBurst:       20,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "filesearch",
			User:            "filesearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "filesearch",
			Topics: KafkaTopics{
				CrawlRequests:   "crawl-requests",
				IndexComplete:   "index.complete",
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Indexer: IndexerConfig{
			IndexDir:    "./data/index",
			Workers:     4,
			MaxFileSize: 16 << 20,
		},
		Search: SearchConfig{
			IndexDir:        "./data/index",
			VerifyChecksums: true,
			DefaultLimit:    10,
			MaxResults:      100,
			ReloadDebounce:  500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads FS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("FS_SERVER_PORT", &cfg.Server.Port)
	setFloat("FS_SERVER_RATE_LIMIT", &cfg.Server.RateLimit)
	if v := os.Getenv("FS_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}

	setBool("FS_POSTGRES_ENABLED", &cfg.Postgres.Enabled)
	setString("FS_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("FS_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("FS_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("FS_POSTGRES_USER", &cfg.Postgres.User)
	setString("FS_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("FS_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)

	setBool("FS_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("FS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}

	setBool("FS_REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("FS_REDIS_ADDR", &cfg.Redis.Addr)
	setString("FS_REDIS_PASSWORD", &cfg.Redis.Password)

	setString("FS_INDEXER_INDEX_DIR", &cfg.Indexer.IndexDir)
	setInt("FS_INDEXER_WORKERS", &cfg.Indexer.Workers)
	setBool("FS_INDEXER_STOP_WORDS", &cfg.Indexer.StopWords)

	if v := os.Getenv("FS_SEARCH_INDEX_PATHS"); v != "" {
		cfg.Search.IndexPaths = strings.Split(v, ",")
	}
	setString("FS_SEARCH_INDEX_DIR", &cfg.Search.IndexDir)
	if v := os.Getenv("FS_SEARCH_DOCUMENT_ROOTS"); v != "" {
		cfg.Search.DocumentRoots = strings.Split(v, ",")
	}
	setBool("FS_SEARCH_WATCH_INDEX_DIR", &cfg.Search.WatchIndexDir)
	setBool("FS_SEARCH_USE_CATALOG", &cfg.Search.UseCatalog)
	setBool("FS_SEARCH_VERIFY_CHECKSUMS", &cfg.Search.VerifyChecksums)
	setBool("FS_SEARCH_STOP_WORDS", &cfg.Search.StopWords)

	setString("FS_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("FS_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("FS_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setInt("FS_METRICS_PORT", &cfg.Metrics.Port)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
