package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/kafka"
)

// Publisher is the subset of kafka.Producer the collector needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector buffers events and publishes them from a single goroutine so
// Track never blocks a request.
type Collector struct {
	producer Publisher
	eventCh  chan any
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
	closed   atomic.Bool
}

func NewCollector(producer Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan any, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event := <-c.eventCh:
				c.publish(ctx, event)
			case <-c.stop:
				c.drainRemaining()
				return
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track queues an event, dropping it when the buffer is full or the
// collector is closed.
func (c *Collector) Track(event any) {
	if c.closed.Load() {
		c.logger.Debug("analytics event dropped (collector closed)")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for queued ones to be published.
// Start must have been called. Track may still be called concurrently or
// afterwards; those events are dropped.
func (c *Collector) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stop)
	}
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event any) {
	if err := c.producer.Publish(ctx, kafka.Event{Key: eventKey(event), Type: string(eventType(event)), Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event := <-c.eventCh:
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}

func eventType(event any) EventType {
	switch e := event.(type) {
	case SearchEvent:
		return e.Type
	case IndexEvent:
		return e.Type
	default:
		return ""
	}
}

func eventKey(event any) string {
	switch e := event.(type) {
	case SearchEvent:
		return string(EventSearch)
	case IndexEvent:
		return e.Path
	default:
		return "analytics"
	}
}
