package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/kafka"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/metrics"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Collector struct {
	publisher Publisher
	eventCh   chan Outcome
	metrics   *metrics.Metrics
	logger    *slog.Logger
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewCollector buffers up to bufferSize outcomes. m may be nil.
func NewCollector(publisher Publisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan Outcome, bufferSize),
		metrics:   m,
		logger:    slog.Default().With("component", "outcome-collector"),
		done:      make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				if err := c.publisher.Publish(ctx, toKafka(event)); err != nil {
					c.logger.Error("failed to publish slot outcome", "zone_id", event.ZoneID, "error", err)
				}
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("outcome collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an outcome. It drops the outcome when the buffer is full
// or the collector has been closed.
func (c *Collector) Track(event Outcome) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.drop(event, "collector closed")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.drop(event, "buffer full")
	}
}

// Close stops accepting outcomes and waits for the publisher loop to exit.
// Calling it more than once is harmless.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) drop(event Outcome, reason string) {
	if c.metrics != nil {
		c.metrics.EventsDroppedTotal.Inc()
	}
	c.logger.Warn("slot outcome dropped", "zone_id", event.ZoneID, "reason", reason)
}

func (c *Collector) drainRemaining() {
	var batch []kafka.Event
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.flush(batch)
				return
			}
			batch = append(batch, toKafka(event))
		default:
			c.flush(batch)
			return
		}
	}
}

func (c *Collector) flush(batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	if err := c.publisher.PublishBatch(context.Background(), batch); err != nil {
		c.logger.Error("failed to publish remaining outcomes", "count", len(batch), "error", err)
	}
}

func toKafka(o Outcome) kafka.Event {
	return kafka.Event{Key: o.ZoneID, Value: o}
}
