package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/angeloszaimis/greeting-bff/pkg/logger"
)

// Source supplies the settings that can change while serving.
type Source interface {
	LogLevel(ctx context.Context) string
	RateLimitRPM(ctx context.Context) int
}

// RateSetter receives the rate limit in requests per minute.
type RateSetter interface {
	SetRPM(rpm int) bool
}

type Refresher struct {
	source   Source
	level    *slog.LevelVar
	limiter  RateSetter
	interval time.Duration
	logger   *slog.Logger
}

// New returns a Refresher. limiter may be nil when rate limiting is not wired.
func New(source Source, level *slog.LevelVar, limiter RateSetter, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		source:   source,
		level:    level,
		limiter:  limiter,
		interval: interval,
		logger:   logger,
	}
}

// Start pulls the settings once right away and then every interval, on its
// own goroutine. It never blocks the caller.
func (r *Refresher) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *Refresher) run(ctx context.Context) {
	r.Refresh(ctx)

	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Settings refresher stopped")
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh applies the current settings once. A panic while refreshing is
// logged and swallowed.
func (r *Refresher) Refresh(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Settings refresh failed", slog.Any("err", fmt.Errorf("panic: %v", rec)))
		}
	}()

	r.refreshLevel(ctx)

	if r.limiter != nil {
		r.limiter.SetRPM(r.source.RateLimitRPM(ctx))
	}
}

func (r *Refresher) refreshLevel(ctx context.Context) {
	raw := r.source.LogLevel(ctx)
	level, ok := logger.ParseLevel(raw)
	if !ok {
		r.logger.Warn("Ignoring unknown log level", slog.String("level", raw))
		return
	}

	previous := r.level.Level()
	if previous == level {
		return
	}

	r.level.Set(level)
	r.logger.Info("Log level updated",
		slog.String("from", previous.String()),
		slog.String("to", level.String()))
}
