package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type EventType string

const (
	EventCallStarted       EventType = "call_started"
	EventAttemptFailed     EventType = "attempt_failed"
	EventResponseCompleted EventType = "response_completed"
	EventRecovered         EventType = "recovered"
	EventExhausted         EventType = "exhausted"
	EventHealthChanged     EventType = "health_changed"
)

type Event struct {
	Type       EventType
	Timestamp  time.Time
	Upstream   string
	Attempt    int
	Duration   time.Duration
	StatusCode int
	Healthy    bool
}

// Publish sends e without blocking. Events are dropped when ch is nil or full.
func Publish(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	select {
	case ch <- e:
	default:
	}
}

type Collector struct {
	eventCh  chan Event
	metrics  *Metrics
	logger   *slog.Logger
	registry *prometheus.Registry
	prom     *promMetrics
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	registry := prometheus.NewRegistry()
	return &Collector{
		eventCh:  make(chan Event, bufferSize),
		metrics:  NewMetrics(),
		logger:   logger,
		registry: registry,
		prom:     newPromMetrics(registry),
	}
}

func (c *Collector) EventChannel() chan<- Event {
	return c.eventCh
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventCallStarted:
		c.metrics.IncrementCalls(event.Upstream)

	case EventAttemptFailed:
		c.metrics.RecordAttempt(event.Upstream, true)
		c.prom.attempts.WithLabelValues(event.Upstream, "transport_error").Inc()

	case EventResponseCompleted:
		c.metrics.RecordAttempt(event.Upstream, false)
		c.metrics.RecordResponse(event.Upstream, event.Duration, event.StatusCode)
		c.prom.attempts.WithLabelValues(event.Upstream, "response").Inc()
		c.prom.latency.WithLabelValues(event.Upstream).Observe(event.Duration.Seconds())

	case EventRecovered:
		c.metrics.RecordRecovery(event.Upstream)
		c.prom.calls.WithLabelValues(event.Upstream, "recovered").Inc()

	case EventExhausted:
		c.metrics.RecordExhausted(event.Upstream)
		c.prom.calls.WithLabelValues(event.Upstream, "exhausted").Inc()

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Upstream, event.Healthy)
		healthy := 0.0
		if event.Healthy {
			healthy = 1
		}
		c.prom.healthy.WithLabelValues(event.Upstream).Set(healthy)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
