package main

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/greeting-bff/internal/handler"
	"github.com/angeloszaimis/greeting-bff/internal/metrics"
	"github.com/angeloszaimis/greeting-bff/internal/middleware"
)

type routes struct {
	greetings *handler.GreetingsHandler
	settings  handler.Settings
	health    handler.UpstreamHealth
	metrics   *metrics.Collector
	limiter   *middleware.RateLimiter
	logger    *slog.Logger
}

// setupRouter rate limits the browser API. Health and metrics stay outside
// the limit so health checks and scrapes are never rejected.
func setupRouter(r routes) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/greetings", r.greetings.List)
	api.HandleFunc("POST /api/greetings", r.greetings.Create)
	api.HandleFunc("GET /api/greetings/{id}", r.greetings.Get)
	api.HandleFunc("DELETE /api/greetings/{id}", r.greetings.Delete)
	api.HandleFunc("GET /api/config", handler.Config(r.settings))

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware.RateLimit(r.limiter)(api))
	mux.HandleFunc("GET /api/health", handler.Health(r.health))
	mux.HandleFunc("GET /api/metrics", r.metrics.Handler())
	mux.Handle("GET /metrics", r.metrics.PrometheusHandler())

	return middleware.Chain(mux,
		middleware.Recovery(r.logger),
		middleware.RequestID(),
		middleware.AccessLog(r.logger),
	)
}
