package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backend-manzano/internal/cart"
	"github.com/noah-isme/backend-manzano/internal/catalog"
	"github.com/noah-isme/backend-manzano/internal/common"
	"github.com/noah-isme/backend-manzano/internal/health"
	"github.com/noah-isme/backend-manzano/internal/lock"
	"github.com/noah-isme/backend-manzano/internal/obs"
	"github.com/noah-isme/backend-manzano/internal/quote"
	"github.com/noah-isme/backend-manzano/internal/ratelimit"
	"github.com/noah-isme/backend-manzano/internal/resilience"
	"github.com/noah-isme/backend-manzano/internal/security"
)

// App is the assembled HTTP surface and the services behind it.
type App struct {
	Router  http.Handler
	Catalog *catalog.Service
	Cart    *cart.Store
	Quote   *quote.Service
}

// New builds services and routes from deps.
func New(deps *Dependencies) (*App, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("app: config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	httpClient := deps.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var reg prometheus.Registerer
	if deps.Registry != nil {
		reg = deps.Registry
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, reg)
		if err := resilience.RegisterMetrics(reg); err != nil {
			return nil, err
		}
	}

	catalogBreaker := resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("catalog").WithLogger(logger)
	webhookBreaker := resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("webhook").WithLogger(logger)

	var source catalog.Source = catalog.FileSource{Path: cfg.CatalogPath}
	if cfg.CatalogURL != "" {
		source = catalog.HTTPSource{URL: cfg.CatalogURL, Client: resilience.HTTPClient{
			Client:      httpClient,
			Breaker:     catalogBreaker,
			MaxAttempts: 3,
			BaseBackoff: 200 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     5 * time.Second,
		}}
	}
	catalogLogger := logger.With().Str("component", "catalog").Logger()
	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Source: source,
		Cache:  catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
		Logger: &catalogLogger,
	})
	if err != nil {
		return nil, err
	}

	var slots cart.Slots = &cart.MemorySlots{}
	var locker cart.Locker = &lock.Local{}
	if deps.Redis != nil {
		slots = cart.RedisSlots{Client: deps.Redis, TTL: cfg.CartTTL}
		locker = lock.Locker{R: deps.Redis}
	}
	cartLogger := logger.With().Str("component", "cart").Logger()
	store := &cart.Store{
		Slots:   slots,
		Locker:  locker,
		Prefix:  cfg.CartKeyPrefix,
		LockTTL: cfg.CartLockTTL,
		Logger:  &cartLogger,
	}

	quoteLogger := logger.With().Str("component", "quote").Logger()
	quoteSvc := &quote.Service{
		Cart: store,
		Sender: quote.WebhookSender{
			BaseURL: cfg.WebhookBaseURL,
			Token:   cfg.WebhookToken,
			Client: resilience.HTTPClient{
				Client:  httpClient,
				Breaker: webhookBreaker,
				Timeout: cfg.WebhookTimeout,
			},
			Logger: &quoteLogger,
		},
		Logger: &quoteLogger,
	}

	submitLimiter, err := ratelimit.New(deps.Redis, cfg.SubmitRateLimit, "ratelimit:submit")
	if err != nil {
		return nil, err
	}
	limit := ratelimit.Handler{
		Limiter: submitLimiter,
		Key:     ratelimit.KeyByClient,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}
	sessions := cart.Sessions{Secure: cfg.SessionCookieSecure, MaxAge: cfg.CartTTL}

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc})
	cartHandler := &cart.Handler{Store: store, Catalog: catalogSvc}
	quoteHandler := &quote.Handler{Service: quoteSvc}

	checks := []health.Check{
		{Name: "catalog", Probe: catalogSvc.Ping},
		{Name: "webhook", Probe: health.BreakerClosed(webhookBreaker), Optional: true},
	}
	if deps.Redis != nil {
		checks = append(checks, health.Check{Name: "redis", Probe: health.PingRedis(deps.Redis)})
	}
	healthHandler := health.Handler{Checks: checks}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if deps.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if reg != nil {
		httpMetrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.LatencyBuckets), reg)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{EnableHSTS: cfg.SessionCookieSecure}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", common.SessionHeader, common.IdempotencyHeader},
		ExposedHeaders:   []string{common.SessionHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/catalog", catalogHandler.List)
		v.Get("/catalog/{id}", catalogHandler.Detail)

		v.Group(func(s chi.Router) {
			s.Use(sessions.Middleware)

			s.Route("/cart", func(c chi.Router) {
				c.Get("/", cartHandler.Get)
				c.Delete("/", cartHandler.Clear)
				c.Post("/items", cartHandler.AddItem)
				c.Delete("/items", cartHandler.RemoveItem)
				c.Patch("/items/personas", cartHandler.SetPersonas)
				c.Patch("/items/noches", cartHandler.SetNoches)
				c.Patch("/items/dias", cartHandler.SetDias)
			})

			s.Group(func(sub chi.Router) {
				sub.Use(limit.Middleware, idem.Middleware)
				sub.Post("/cotizacion", quoteHandler.Quotation)
				sub.Post("/contacto", quoteHandler.Contact)
			})
		})
	})

	return &App{Router: r, Catalog: catalogSvc, Cart: store, Quote: quoteSvc}, nil
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
