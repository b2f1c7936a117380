package paramstore

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrDisabled is returned by the Disabled client.
	ErrDisabled = errors.New("parameter store disabled")
	// ErrNotFound is returned when the key has no value upstream.
	ErrNotFound = errors.New("parameter not found")
	// ErrUnavailable is returned when the store could not be reached.
	ErrUnavailable = errors.New("parameter store unavailable")
)

// Client fetches one parameter value by its fully-qualified key.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
}

// Key joins a namespace and a leaf name into a fully-qualified parameter key.
func Key(namespace, leaf string) string {
	return "/" + strings.Trim(namespace, "/") + "/" + strings.TrimLeft(leaf, "/")
}

// Disabled is the client used when no store endpoint is configured.
type Disabled struct{}

// Get always fails with ErrDisabled.
func (Disabled) Get(context.Context, string) (string, error) {
	return "", ErrDisabled
}

// Static serves parameters from memory.
type Static map[string]string

// Get returns the value stored at key or ErrNotFound.
func (s Static) Get(_ context.Context, key string) (string, error) {
	v, ok := s[key]
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}
