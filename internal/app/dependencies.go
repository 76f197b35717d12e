package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-manzano/internal/config"
	"github.com/noah-isme/backend-manzano/internal/obs"
)

// Version is stamped at build time with
// -ldflags "-X github.com/noah-isme/backend-manzano/internal/app.Version=...".
var Version = "dev"

// Dependencies enumerates the shared infrastructure the services are built on.
// A nil Redis runs every store in process memory.
type Dependencies struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Redis    *redis.Client
	Registry *prometheus.Registry
	HTTP     *http.Client
	Tracing  bool
}

// NewDependencies opens the connections described by cfg. The returned
// function releases them.
func NewDependencies(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, func(context.Context), error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
		HTTP:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	var closers []func(context.Context) error

	if cfg.Obs.EnableTracing {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:    cfg.Obs.ServiceName,
			ServiceVersion: Version,
			Endpoint:       cfg.Obs.OTLPEndpoint,
			SamplingRatio:  cfg.Obs.SamplingRatio,
			Environment:    cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			deps.Tracing = true
			closers = append(closers, shutdown)
		}
	}

	if cfg.Obs.EnablePrometheus {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		deps.Registry = reg
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
		if cfg.Obs.EnablePrometheus {
			if err := redisotel.InstrumentMetrics(client); err != nil {
				logger.Error().Err(err).Msg("instrument redis metrics")
			}
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		deps.Redis = client
		closers = append(closers, func(context.Context) error { return client.Close() })
	} else {
		logger.Warn().Msg("REDIS_URL not set, carts are kept in process memory")
	}

	cleanup := func(ctx context.Context) {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](ctx); err != nil {
				logger.Error().Err(err).Msg("release dependency")
			}
		}
	}
	return deps, cleanup, nil
}
