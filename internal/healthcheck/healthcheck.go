package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/angeloszaimis/greeting-bff/internal/metrics"
)

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusUp      Status = "up"
	StatusDown    Status = "down"
)

const checkTimeout = 5 * time.Second

// BackendSource resolves the upstream base URL. It is re-read on every check
// so a changed parameter takes effect without a restart.
type BackendSource interface {
	BackendURL(ctx context.Context) string
}

type Checker struct {
	source   BackendSource
	path     string
	interval time.Duration
	client   *http.Client
	logger   *slog.Logger
	events   chan<- metrics.Event

	mutex  sync.RWMutex
	status Status
}

type Option func(*Checker)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		c.client = client
	}
}

// WithEvents publishes status changes to a metrics collector.
func WithEvents(events chan<- metrics.Event) Option {
	return func(c *Checker) {
		c.events = events
	}
}

func New(source BackendSource, path string, interval time.Duration, logger *slog.Logger, opts ...Option) *Checker {
	c := &Checker{
		source:   source,
		path:     path,
		interval: interval,
		client:   &http.Client{Timeout: checkTimeout},
		logger:   logger,
		status:   StatusUnknown,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the result of the most recent check.
func (c *Checker) Status() Status {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.status
}

// Run checks once immediately and then on every tick until ctx is done.
// A non-positive interval checks once and returns.
func (c *Checker) Run(ctx context.Context) {
	c.Check(ctx)

	if c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Health check stopped")
			return

		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check performs a single check and records the result.
func (c *Checker) Check(ctx context.Context) Status {
	backend := c.source.BackendURL(ctx)
	target := strings.TrimSuffix(backend, "/") + c.path

	status := StatusDown
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err == nil {
		res, err := c.client.Do(req)
		if err == nil {
			_, _ = io.Copy(io.Discard, res.Body)
			res.Body.Close()
			if res.StatusCode == http.StatusOK {
				status = StatusUp
			}
		}
	}

	if ctx.Err() != nil {
		return c.Status()
	}

	if c.setStatus(status) {
		c.report(backend, status)
	}
	return status
}

func (c *Checker) setStatus(status Status) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	changed := c.status != status
	c.status = status
	return changed
}

func (c *Checker) report(backend string, status Status) {
	upstream := "unknown"
	if u, err := url.Parse(backend); err == nil && u.Host != "" {
		upstream = u.Host
	}

	if status == StatusUp {
		c.logger.Info("Upstream is up", slog.String("upstream", backend))
	} else {
		c.logger.Warn("Upstream is down", slog.String("upstream", backend))
	}

	metrics.Publish(c.events, metrics.Event{
		Type:     metrics.EventHealthChanged,
		Upstream: upstream,
		Healthy:  status == StatusUp,
	})
}
