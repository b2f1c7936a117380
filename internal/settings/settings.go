package settings

import (
	"context"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/angeloszaimis/greeting-bff/internal/paramstore"
)

// DefaultNamespace is the key prefix used when no service name is configured.
const DefaultNamespace = "astro-webui"

// DefaultDescription is shown by the UI when the store has no description.
const DefaultDescription = "This application manages a greeting service. " +
	"You can create new greetings, look up existing ones by ID, " +
	"delete greetings, and browse all stored messages."

// Setting is a named value with a static fallback and a parser for the raw
// store string.
type Setting[T any] struct {
	Leaf     string
	Fallback T
	Parse    func(raw string) (T, bool)
}

// The settings the service reads. Leaf names match the parameters under
// /{namespace}/ in the store.
var (
	Description  = Setting[string]{Leaf: "app.description", Fallback: DefaultDescription, Parse: parseString}
	BackendURL   = Setting[string]{Leaf: "api.backend.url", Fallback: "http://localhost:8080", Parse: parseString}
	TimeoutMs    = Setting[int]{Leaf: "api.timeout.ms", Fallback: 5000, Parse: parseInt}
	RetryCount   = Setting[int]{Leaf: "api.retry.count", Fallback: 3, Parse: parseInt}
	LogLevel     = Setting[string]{Leaf: "log.level", Fallback: "info", Parse: parseString}
	RateLimitRPM = Setting[int]{Leaf: "rate.limit.rpm", Fallback: 60, Parse: parseInt}
)

// Accessor resolves settings against a parameter store client.
type Accessor struct {
	client    paramstore.Client
	namespace string
	diag      *log.Logger
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithNamespace sets the key namespace (the service name).
func WithNamespace(namespace string) Option {
	return func(a *Accessor) {
		if namespace != "" {
			a.namespace = namespace
		}
	}
}

// WithDiagnostics redirects fallback diagnostics. A nil writer discards them.
func WithDiagnostics(w io.Writer) Option {
	return func(a *Accessor) {
		if w == nil {
			w = io.Discard
		}
		a.diag = log.New(w, "settings: ", log.LstdFlags)
	}
}

// New returns an Accessor reading from client. A nil client behaves like
// paramstore.Disabled, so every setting resolves to its fallback.
func New(client paramstore.Client, opts ...Option) *Accessor {
	if client == nil {
		client = paramstore.Disabled{}
	}

	a := &Accessor{
		client:    client,
		namespace: DefaultNamespace,
		diag:      log.New(os.Stderr, "settings: ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Resolve reads s from the store, falling back on any failure or invalid value.
func Resolve[T any](ctx context.Context, a *Accessor, s Setting[T]) T {
	key := paramstore.Key(a.namespace, s.Leaf)

	raw, err := a.client.Get(ctx, key)
	if err != nil {
		a.diag.Printf("using fallback for %s: %v", key, err)
		return s.Fallback
	}
	if raw == "" {
		a.diag.Printf("using fallback for %s: empty value", key)
		return s.Fallback
	}

	v, ok := s.Parse(raw)
	if !ok {
		a.diag.Printf("using fallback for %s: invalid value %q", key, raw)
		return s.Fallback
	}
	return v
}

func (a *Accessor) Description(ctx context.Context) string {
	return Resolve(ctx, a, Description)
}

func (a *Accessor) BackendURL(ctx context.Context) string {
	return Resolve(ctx, a, BackendURL)
}

func (a *Accessor) TimeoutMs(ctx context.Context) int {
	return Resolve(ctx, a, TimeoutMs)
}

func (a *Accessor) RetryCount(ctx context.Context) int {
	return Resolve(ctx, a, RetryCount)
}

func (a *Accessor) LogLevel(ctx context.Context) string {
	return Resolve(ctx, a, LogLevel)
}

func (a *Accessor) RateLimitRPM(ctx context.Context) int {
	return Resolve(ctx, a, RateLimitRPM)
}

// Values is every setting resolved at one point in time.
type Values struct {
	Description  string `json:"description"`
	BackendURL   string `json:"backend_url"`
	TimeoutMs    int    `json:"timeout_ms"`
	RetryCount   int    `json:"retry_count"`
	LogLevel     string `json:"log_level"`
	RateLimitRPM int    `json:"rate_limit_rpm"`
}

// Snapshot resolves all settings.
func (a *Accessor) Snapshot(ctx context.Context) Values {
	return Values{
		Description:  a.Description(ctx),
		BackendURL:   a.BackendURL(ctx),
		TimeoutMs:    a.TimeoutMs(ctx),
		RetryCount:   a.RetryCount(ctx),
		LogLevel:     a.LogLevel(ctx),
		RateLimitRPM: a.RateLimitRPM(ctx),
	}
}

// ParseInt parses raw as a base-10 integer, returning fallback when it is not one.
// Negative values are accepted as parsed.
func ParseInt(raw string, fallback int) int {
	if v, ok := parseInt(raw); ok {
		return v
	}
	return fallback
}

func parseInt(raw string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseString(raw string) (string, bool) {
	return raw, true
}
