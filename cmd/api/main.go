package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-vetrina/internal/auth"
	"github.com/noah-isme/backend-vetrina/internal/common"
	"github.com/noah-isme/backend-vetrina/internal/config"
	"github.com/noah-isme/backend-vetrina/internal/db"
	"github.com/noah-isme/backend-vetrina/internal/events"
	"github.com/noah-isme/backend-vetrina/internal/feed"
	"github.com/noah-isme/backend-vetrina/internal/health"
	"github.com/noah-isme/backend-vetrina/internal/lock"
	"github.com/noah-isme/backend-vetrina/internal/migrations"
	"github.com/noah-isme/backend-vetrina/internal/obs"
	"github.com/noah-isme/backend-vetrina/internal/pricing"
	"github.com/noah-isme/backend-vetrina/internal/ratelimit"
	"github.com/noah-isme/backend-vetrina/internal/security"
)

const maxBodyBytes = 64 << 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "api").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "vetrina-api",
			Endpoint:      cfg.OTLPEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			cfg.TracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.MigrateOnStart {
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()
	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	redisConn, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri for tasks")
	}
	taskClient := asynq.NewClient(redisConn)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	var registry prometheus.Registerer = prometheus.DefaultRegisterer
	domainMetrics := obs.NewDomainMetrics(cfg.MetricsNamespace, registry)
	if cfg.MetricsEnabled {
		if err := registry.Register(obs.NewRedisPoolCollector(cfg.MetricsNamespace, redisClient)); err != nil {
			logger.Warn().Err(err).Msg("register redis pool metrics")
		}
	}
	store := db.NewStore(pool)

	pricingService := pricing.NewService(pricing.ServiceConfig{
		Queries:    store,
		Cache:      pricing.NewCache(redisClient, cfg.PricingCacheTTL),
		DefaultCap: cfg.DiscountCap,
		Metrics:    domainMetrics,
		Logger:     &logger,
	})
	pricingHandler := pricing.NewHandler(pricingService)

	feedService := feed.NewService(feed.ServiceConfig{
		Store:      store,
		Locker:     lock.Locker{R: redisClient, TTL: cfg.LockTTL, RetryBackoff: cfg.LockRetryBackoff},
		Publisher:  events.Publisher{Client: taskClient, MaxRetry: 5, Retention: time.Hour},
		Metrics:    domainMetrics,
		Logger:     &logger,
		BatchSize:  cfg.FeedBatchSize,
		SessionTTL: cfg.FeedSessionTTL,
	})
	go feedService.Run(ctx, time.Minute)
	feedHandler := feed.NewHandler(feedService)

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}
	authMiddleware := auth.Middleware{Verifier: verifier, Logger: &logger}

	swipeLimiter, err := ratelimit.NewRedisLimiter(redisClient, cfg.SwipeRateLimit, "ratelimit:swipe")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise swipe rate limiter")
	}
	swipeLimit := ratelimit.Handler{Limiter: swipeLimiter, Logger: &logger}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{}.Middleware)
	r.Use(security.BodyLimit{Max: maxBodyBytes}.Middleware)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.MetricsEnabled {
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.MetricsNamespace, registry)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	healthHandler := health.Handler{Probes: map[string]health.Probe{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/items/{itemID}/price", pricingHandler.Price)

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireAuth)

			authR.With(auth.RequireRole(auth.RoleStoreOwner), idem.Middleware).
				Post("/stores/{storeID}/discounts", pricingHandler.CreateDiscount)

			authR.Route("/feed", func(f chi.Router) {
				f.Get("/next", feedHandler.Next)
				f.With(swipeLimit.Middleware, idem.Middleware).Post("/swipe", feedHandler.Swipe)
				f.Delete("/", feedHandler.Reset)
			})
		})
	})

	var handler http.Handler = r
	if cfg.TracingEnabled {
		handler = otelhttp.NewHandler(r, "vetrina-api", otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown http server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "vetrina-api"

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(connectCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if cfg.TracingEnabled {
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
