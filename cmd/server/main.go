package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/featureflags"
	"github.com/pawfam/backend/internal/handler"
	"github.com/pawfam/backend/internal/infrastructure/logger"
	"github.com/pawfam/backend/internal/infrastructure/redis"
	"github.com/pawfam/backend/internal/observability/tracing"
	"github.com/pawfam/backend/internal/repository"
	"github.com/pawfam/backend/internal/security"
	"github.com/pawfam/backend/internal/security/audit"
	"github.com/pawfam/backend/internal/security/auth"
	"github.com/pawfam/backend/internal/security/ratelimit"
	"github.com/pawfam/backend/internal/service"
	"github.com/pawfam/backend/internal/worker"
	"github.com/pawfam/backend/pkg/config"
	"github.com/pawfam/backend/pkg/database"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type repositories struct {
	users    domain.UserRepository
	daycare  domain.DaycareRepository
	orders   domain.OrderRepository
	adoption domain.AdoptionRepository
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting PawFam server",
		slog.String("environment", cfg.Environment),
		slog.String("store", cfg.StoreDriver),
	)
	if cfg.UsesDevSecret() {
		log.Warn("JWT_SECRET not set, using the development signing secret")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, "pawfam-backend", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	checks := map[string]handler.Checker{}

	// 4. Initialize repositories
	var repos repositories
	switch cfg.StoreDriver {
	case config.StoreMongo:
		dbCfg := database.DefaultConfig()
		dbCfg.URI = cfg.MongoURI
		dbCfg.Database = cfg.MongoDatabase
		if cfg.MongoMaxPool > 0 {
			dbCfg.MaxPoolSize = cfg.MongoMaxPool
		}
		pool, err := database.NewConnectionPool(ctx, dbCfg, log)
		if err != nil {
			log.Error("failed to connect to MongoDB", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			_ = pool.Close(closeCtx)
		}()
		if err := pool.EnsureIndexes(ctx); err != nil {
			log.Error("failed to create indexes", slog.String("error", err.Error()))
			os.Exit(1)
		}
		repos = repositories{
			users:    repository.NewMongoUserRepository(pool.Collection(database.UsersCollection), log),
			daycare:  repository.NewMongoDaycareRepository(pool.Collection(database.DaycareCollection), log),
			orders:   repository.NewMongoOrderRepository(pool.Collection(database.OrdersCollection), log),
			adoption: repository.NewMongoAdoptionRepository(pool.Collection(database.AdoptionCollection), log),
		}
		checks["mongo"] = handler.CheckerFunc(pool.Health)
	default:
		log.Warn("using in-memory repositories, data is lost on restart")
		repos = repositories{
			users:    repository.NewMemoryUserRepository(),
			daycare:  repository.NewMemoryDaycareRepository(),
			orders:   repository.NewMemoryOrderRepository(),
			adoption: repository.NewMemoryAdoptionRepository(),
		}
	}

	// 5. Key-value store for idempotency keys and reset tokens
	sweepers := map[string]worker.Sweeper{}
	var store redis.Store
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer client.Close()
		store = client
	} else {
		log.Info("REDIS_URL not set, using in-process key-value store")
		mem := redis.NewMemoryStore()
		sweepers["kv"] = mem
		store = mem
	}
	kv := redis.NewGuarded(store, cfg.KVFailureThreshold, cfg.KVBreakerOpenTimeout, log)
	checks["kv"] = kv

	// 6. Security components
	auditLogger := audit.NewLogger(log)
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	apiLimiter := ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer apiLimiter.Stop()
	authLimiter := ratelimit.PerMinute(cfg.AuthRateLimitPerMin)
	defer authLimiter.Stop()

	// 7. Services
	authService := service.NewAuthService(repos.users, tokenManager, kv, nil, service.AuthConfig{
		ResetTokenTTL: cfg.ResetTokenTTL,
		UserCacheTTL:  cfg.UserCacheTTL,
	}, auditLogger, log)
	sweepers["users"] = worker.SweeperFunc(authService.SweepUserCache)

	deps := service.Deps{
		Authz:  security.NewAuthorizationService(log),
		Audit:  auditLogger,
		Flags:  featureflags.FromEnv(),
		Idem:   service.NewIdempotency(kv, cfg.IdempotencyTTL, log),
		Logger: log,
	}

	// 8. HTTP surface
	router := handler.NewRouter(handler.RouterConfig{
		Auth:           handler.NewAuthHandler(authService, log),
		Daycare:        handler.NewDaycareHandler(service.NewDaycareService(repos.daycare, deps), log),
		Orders:         handler.NewOrderHandler(service.NewOrderService(repos.orders, deps), log),
		Adoption:       handler.NewAdoptionHandler(service.NewAdoptionService(repos.adoption, deps), log),
		Health:         handler.NewHealthHandler(checks, log),
		Authenticator:  authService,
		Audit:          auditLogger,
		APILimiter:     apiLimiter,
		AuthLimiter:    authLimiter,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log,
	})

	// 9. Start cleanup worker in background
	go worker.NewCleanupWorker(sweepers, log, time.Minute).Start(ctx)

	// 10. Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           otelhttp.NewHandler(router, "pawfam"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Float64("rate_limit_rps", cfg.RateLimitRPS),
		slog.Int("auth_rate_limit_per_min", cfg.AuthRateLimitPerMin),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("server error", slog.String("error", err.Error()))
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	cancel() // stop cleanup worker
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
