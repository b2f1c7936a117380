package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angeloszaimis/greeting-bff/config"
	"github.com/angeloszaimis/greeting-bff/internal/forwarder"
	"github.com/angeloszaimis/greeting-bff/internal/handler"
	"github.com/angeloszaimis/greeting-bff/internal/healthcheck"
	"github.com/angeloszaimis/greeting-bff/internal/httpserver"
	"github.com/angeloszaimis/greeting-bff/internal/metrics"
	"github.com/angeloszaimis/greeting-bff/internal/middleware"
	"github.com/angeloszaimis/greeting-bff/internal/paramstore"
	"github.com/angeloszaimis/greeting-bff/internal/refresh"
	"github.com/angeloszaimis/greeting-bff/internal/settings"
	"github.com/angeloszaimis/greeting-bff/internal/telemetry"
	"github.com/angeloszaimis/greeting-bff/pkg/logger"
)

const metricsBufferSize = 1000

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level := logger.NewLevel(cfg.Logging.Level)
	log := logger.New(level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    config.OTLPHostPort(cfg.Telemetry.OTLPEndpoint),
		Environment: cfg.Server.Environment,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		log.Error("Failed to set up tracing", slog.Any("err", err))
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error("Failed to flush traces", slog.Any("err", err))
		}
	}()

	store, err := newStore(ctx, cfg)
	if err != nil {
		log.Error("Failed to create parameter store client", slog.Any("err", err))
		return err
	}
	if cfg.ParameterStore.Endpoint == "" {
		log.Warn("Parameter store endpoint not configured, using built-in settings")
	}

	accessor := settings.New(store,
		settings.WithNamespace(cfg.Service.Name),
		settings.WithDiagnostics(os.Stderr))

	collector := metrics.NewCollector(metricsBufferSize, log)
	collector.Start(ctx)

	fwd := forwarder.New(accessor, log, forwarder.WithEvents(collector.EventChannel()))

	checker := healthcheck.New(accessor, cfg.HealthCheck.Path, cfg.HealthCheck.Interval, log,
		healthcheck.WithEvents(collector.EventChannel()))
	go checker.Run(ctx)

	limiter := middleware.NewRateLimiter(settings.RateLimitRPM.Fallback, log)
	refresh.New(accessor, level, limiter, cfg.Refresh.Interval, log).Start(ctx)

	router := setupRouter(routes{
		greetings: handler.NewGreetingsHandler(log, accessor, fwd),
		settings:  accessor,
		health:    checker,
		metrics:   collector,
		limiter:   limiter,
		logger:    log,
	})

	srv, err := httpserver.New(cfg.Addr(), otelhttp.NewHandler(router, cfg.Service.Name))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Server started",
		slog.String("addr", cfg.Addr()),
		slog.String("service", cfg.Service.Name),
		slog.String("environment", cfg.Server.Environment))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
			return err
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			return err
		}
	}

	return nil
}

// newStore builds the parameter store client, guarded by a circuit breaker
// when one is configured.
func newStore(ctx context.Context, cfg *config.Config) (paramstore.Client, error) {
	client, err := paramstore.New(ctx, paramstore.Options{
		Endpoint:        cfg.ParameterStore.Endpoint,
		Region:          cfg.ParameterStore.Region,
		AccessKeyID:     cfg.ParameterStore.AccessKeyID,
		SecretAccessKey: cfg.ParameterStore.SecretAccessKey,
		SessionToken:    cfg.ParameterStore.SessionToken,
		Timeout:         cfg.ParameterStore.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("parameter store: %w", err)
	}

	if _, disabled := client.(paramstore.Disabled); disabled {
		return client, nil
	}
	return paramstore.NewBreaker(client, cfg.ParameterStore.BreakerThreshold, cfg.ParameterStore.BreakerReset), nil
}
