package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"golang.org/x/time/rate"
)

const (
	tooManyRequestsBody = `{"message":"Too many requests"}`
	retryAfterSeconds   = 60
)

// RateLimiter is a process-wide token bucket sized in requests per minute.
// Changing the limit while serving swaps in a fresh, full bucket.
type RateLimiter struct {
	limiter atomic.Pointer[rate.Limiter]
	rpm     atomic.Int64
	logger  *slog.Logger
}

// NewRateLimiter creates a limiter allowing rpm requests per minute with a
// burst of rpm. A non-positive rpm disables limiting.
func NewRateLimiter(rpm int, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{logger: logger}
	rl.apply(rpm)
	return rl
}

// SetRPM updates the limit. It reports whether the value changed.
func (rl *RateLimiter) SetRPM(rpm int) bool {
	if int64(rpm) == rl.rpm.Load() {
		return false
	}
	rl.apply(rpm)
	rl.logger.Info("Rate limit updated", slog.Int("rpm", rpm))
	return true
}

// RPM returns the current limit in requests per minute.
func (rl *RateLimiter) RPM() int {
	return int(rl.rpm.Load())
}

func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Load().Allow()
}

func (rl *RateLimiter) apply(rpm int) {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60), rpm)
	}
	rl.limiter.Store(limiter)
	rl.rpm.Store(int64(rpm))
}

// RateLimit rejects requests over the limit with 429.
func RateLimit(rl *RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow() {
				rl.logger.WarnContext(r.Context(), "Rate limit exceeded",
					slog.String("from", clientIP(r)),
					slog.String("path", r.URL.Path),
					slog.Int("rpm", rl.RPM()))

				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
				writeJSON(w, http.StatusTooManyRequests, tooManyRequestsBody)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
