// Package analytics tracks search and indexing activity. Events are
// published to Kafka by a Collector and folded into running statistics by an
// Aggregator, which can also consume them in-process when Kafka is off.
package analytics

import "time"

type EventType string

const (
	EventSearch         EventType = "search"
	EventIndexCommitted EventType = "index_committed"
)

type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Terms      []string  `json:"terms"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	ShardCount int       `json:"shard_count"`
	Failed     bool      `json:"failed,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// IndexEvent reports a committed index file.
type IndexEvent struct {
	Type       EventType `json:"type"`
	Path       string    `json:"path"`
	Root       string    `json:"root"`
	Documents  int       `json:"documents"`
	Words      int       `json:"words"`
	SizeBytes  int64     `json:"size_bytes"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

type envelope struct {
	Type EventType `json:"type"`
}
