package forwarder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angeloszaimis/greeting-bff/internal/metrics"
)

// DefaultTimeout replaces a non-positive configured timeout.
const DefaultTimeout = 5000 * time.Millisecond

// ErrExhausted marks a call whose attempts all failed. The last transport
// error stays reachable through errors.Is and errors.As.
var ErrExhausted = errors.New("upstream attempts exhausted")

// ErrInvalidRequest marks a request that could not be built, such as a
// malformed target URL. It is never retried.
var ErrInvalidRequest = errors.New("invalid upstream request")

// maxTimeoutMs is the largest millisecond count a time.Duration can hold.
const maxTimeoutMs = math.MaxInt64 / int64(time.Millisecond)

// Settings supplies the retry policy.
type Settings interface {
	TimeoutMs(ctx context.Context) int
	RetryCount(ctx context.Context) int
}

// Policy bounds one forwarding call.
type Policy struct {
	Timeout    time.Duration
	RetryCount int
}

// PolicyFrom converts raw settings into a Policy. Negative retry counts become
// zero, non-positive timeouts become DefaultTimeout and timeouts beyond the
// range of time.Duration are clamped to it.
func PolicyFrom(timeoutMs, retryCount int) Policy {
	ms := int64(timeoutMs)
	if ms > maxTimeoutMs {
		ms = maxTimeoutMs
	}

	p := Policy{
		Timeout:    time.Duration(ms) * time.Millisecond,
		RetryCount: retryCount,
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.RetryCount < 0 {
		p.RetryCount = 0
	}
	return p
}

// Options describe the outbound request. The zero value is a GET without a body.
type Options struct {
	Method string
	Header http.Header
	Body   []byte
}

// Response is an upstream response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Attempt is the outcome of one try, kept only for logging.
type Attempt struct {
	URL        string
	Index      int
	StatusCode int
	Err        error
}

type Forwarder struct {
	client   *http.Client
	settings Settings
	logger   *slog.Logger
	events   chan<- metrics.Event
}

type Option func(*Forwarder)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Forwarder) {
		f.client = client
	}
}

// WithEvents publishes attempt outcomes to a metrics collector.
func WithEvents(events chan<- metrics.Event) Option {
	return func(f *Forwarder) {
		f.events = events
	}
}

func New(settings Settings, logger *slog.Logger, opts ...Option) *Forwarder {
	f := &Forwarder{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		settings: settings,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forward calls target, retrying transport failures up to the configured
// retry count. It returns the first response received, or the last transport
// error wrapped with ErrExhausted.
func (f *Forwarder) Forward(ctx context.Context, target string, opts Options) (*Response, error) {
	policy := f.policy(ctx)
	upstream := upstreamName(target)

	metrics.Publish(f.events, metrics.Event{Type: metrics.EventCallStarted, Upstream: upstream})

	var lastErr error
	attempts := 0

	for i := 0; i <= policy.RetryCount; i++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		attempts++
		start := time.Now()
		resp, err := f.do(ctx, target, opts, policy.Timeout)
		if errors.Is(err, ErrInvalidRequest) {
			f.logger.ErrorContext(ctx, "Upstream request could not be built",
				slog.String("url", target),
				slog.String("method", opts.Method),
				slog.Any("err", err))
			metrics.Publish(f.events, metrics.Event{Type: metrics.EventExhausted, Upstream: upstream})
			return nil, err
		}
		if err != nil {
			lastErr = err
			f.logFailure(ctx, Attempt{URL: target, Index: i, Err: err}, policy)
			metrics.Publish(f.events, metrics.Event{
				Type:     metrics.EventAttemptFailed,
				Upstream: upstream,
				Attempt:  i,
				Duration: time.Since(start),
			})
			continue
		}

		metrics.Publish(f.events, metrics.Event{
			Type:       metrics.EventResponseCompleted,
			Upstream:   upstream,
			Attempt:    i,
			Duration:   time.Since(start),
			StatusCode: resp.StatusCode,
		})

		if i > 0 {
			f.logRecovery(ctx, Attempt{URL: target, Index: i, StatusCode: resp.StatusCode})
			metrics.Publish(f.events, metrics.Event{Type: metrics.EventRecovered, Upstream: upstream, Attempt: i})
		}

		return resp, nil
	}

	f.logger.ErrorContext(ctx, "Upstream request failed after retries",
		slog.String("url", target),
		slog.Int("retry_count", policy.RetryCount),
		slog.Int("attempts", attempts),
		slog.Any("err", lastErr))
	metrics.Publish(f.events, metrics.Event{Type: metrics.EventExhausted, Upstream: upstream})

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

func (f *Forwarder) policy(ctx context.Context) Policy {
	timeoutMs := f.settings.TimeoutMs(ctx)
	retryCount := f.settings.RetryCount(ctx)

	p := PolicyFrom(timeoutMs, retryCount)
	if timeoutMs <= 0 {
		f.logger.WarnContext(ctx, "Configured timeout is not positive, using default",
			slog.Int("timeout_ms", timeoutMs),
			slog.Duration("timeout", p.Timeout))
	}
	return p
}

func (f *Forwarder) do(ctx context.Context, target string, opts Options, timeout time.Duration) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	for key, values := range opts.Header {
		req.Header[key] = append([]string(nil), values...)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upstream body: %w", err)
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       data,
	}, nil
}

func (f *Forwarder) logFailure(ctx context.Context, a Attempt, p Policy) {
	f.logger.WarnContext(ctx, "Upstream attempt failed",
		slog.String("url", a.URL),
		slog.Int("attempt", a.Index),
		slog.Int("retry_count", p.RetryCount),
		slog.Any("err", a.Err))
}

func (f *Forwarder) logRecovery(ctx context.Context, a Attempt) {
	f.logger.InfoContext(ctx, "Upstream request recovered",
		slog.String("url", a.URL),
		slog.Int("attempt", a.Index),
		slog.Int("status", a.StatusCode))
}

func upstreamName(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
