package paramstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // store calls pass through
	StateOpen                  // store calls fail fast
	StateHalfOpen              // one trial call allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker is a Client that stops calling a failing store for a while.
// A missing key is an answer from a healthy store and does not count as a failure.
type Breaker struct {
	next Client

	mutex            sync.Mutex
	state            State
	failures         int
	lastFailure      time.Time
	probing          bool
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time
}

// NewBreaker wraps next. A threshold below 1 disables the breaker and returns next unchanged.
func NewBreaker(next Client, threshold int, resetTimeout time.Duration) Client {
	if threshold < 1 {
		return next
	}
	return &Breaker{
		next:             next,
		state:            StateClosed,
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// Get calls the wrapped client unless the breaker is open.
func (b *Breaker) Get(ctx context.Context, key string) (string, error) {
	if !b.allow() {
		return "", fmt.Errorf("%s: %w: circuit open", key, ErrUnavailable)
	}

	value, err := b.next.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		b.recordFailure()
		return "", err
	}

	b.recordSuccess()
	return value, err
}

// State reports the current breaker state.
func (b *Breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.resetTimeout {
			return false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

func (b *Breaker) recordFailure() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures++
	b.lastFailure = b.now()
	b.probing = false

	if b.state == StateHalfOpen || b.failures >= b.failureThreshold {
		b.state = StateOpen
	}
}

func (b *Breaker) recordSuccess() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures = 0
	b.probing = false
	b.state = StateClosed
}
