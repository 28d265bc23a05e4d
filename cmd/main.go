package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"erp-onboarding/internal/caching"
	"erp-onboarding/internal/config"
	"erp-onboarding/internal/handlers"
	"erp-onboarding/internal/jobs"
	"erp-onboarding/internal/jobs/background"
	"erp-onboarding/internal/jobs/provisioning"
	"erp-onboarding/internal/metrics"
	"erp-onboarding/internal/middleware"
	"erp-onboarding/internal/repositories"
	"erp-onboarding/internal/services"
	"erp-onboarding/pkg/database"
	"erp-onboarding/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Database connection
	pool, err := database.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, zl)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, zl); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Cache and job store. Without Redis both live in process memory.
	var (
		cacheSvc caching.CacheService
		store    jobs.Store
	)
	if cfg.Redis.URL != "" {
		rdb, err := caching.NewRedisClient(ctx, cfg.Redis.URL, zl)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		cacheSvc = caching.NewRedisCacheService(rdb)
		store = jobs.NewFallbackStore(jobs.NewRedisStore(rdb), jobs.NewMemoryStore(), zl, m.StoreFallbacks)
	} else {
		zl.Warn("REDIS_URL not set, using in-memory cache and job store")
		cacheSvc = caching.NewMemoryCacheService(10 * time.Minute)
		store = jobs.NewMemoryStore()
	}

	queue := jobs.NewQueue(store,
		jobs.WithLogger(zl),
		jobs.WithMetrics(m),
		jobs.WithImmediateDispatch(cfg.ImmediateDispatch()),
	)

	// Storage
	var storage services.StorageService
	if cfg.Storage.ObjectStorageEnabled() {
		client, err := services.NewMinioClient(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		storage = services.NewMinioStorageService(client, cfg.Storage.Bucket, zl)
	} else {
		storage = services.NewLocalStorageService(cfg.Storage.UploadDir, zl)
	}

	var billing services.BillingService
	if cfg.Billing.Enabled() {
		billing = services.NewStripeBillingService(cfg.Billing.StripeSecretKey, cfg.Billing.StripeTrialPriceID, nil, zl)
	} else {
		zl.Info("STRIPE_SECRET_KEY not set, billing steps will be skipped")
	}

	var email services.EmailService
	if cfg.Email.MailgunEnabled() {
		email = services.NewMailgunEmailService(cfg.Email.MailgunDomain, cfg.Email.MailgunAPIKey, "", cfg.Email.From, zl)
	} else {
		email = services.NewLogEmailService(zl)
	}

	tracker := services.NewProvisioningTracker(cacheSvc, zl)

	(&provisioning.Handlers{
		DB:          pool,
		Tracker:     tracker,
		Storage:     storage,
		Billing:     billing,
		Email:       email,
		Metrics:     m,
		Log:         zl,
		FrontendURL: cfg.FrontendURL,
	}).Register(queue)

	onboarding := services.NewOnboardingService(
		pool,
		services.NewIdempotencyStore(cacheSvc, cfg.Onboard.IdempotencyTTL),
		tracker,
		email,
		queue,
		queue.Clock(),
		m,
		zl,
		services.OnboardingConfig{
			FrontendURL:    cfg.FrontendURL,
			TrialPeriod:    cfg.Onboard.TrialPeriod,
			BillingEnabled: billing != nil,
		},
	)

	// Background processing
	worker := jobs.NewWorker(queue, jobs.WorkerConfig{Name: "provisioning", PollInterval: cfg.Queue.PollInterval}, zl)
	// In-flight jobs keep running after the signal until Stop times out.
	if err := worker.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	scheduler, err := background.NewJobScheduler(repositories.NewTenantRepo(pool), queue, queue.Clock(), cfg.Queue.TrialReminderInterval, zl)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	scheduler.Start()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()

	// Global middleware
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(zl))
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{cfg.FrontendURL},
	}))
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, storage, scheduler)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/ready", healthHandlers.ReadinessCheck)
	e.GET("/live", healthHandlers.LivenessCheck)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	// Onboarding routes
	onboardingHandlers := handlers.NewOnboardingHandlers(onboarding, !cfg.IsProduction(), zl)
	onboard := e.Group("/api/onboard")
	onboard.POST("", onboardingHandlers.CreateTenant,
		middleware.RateLimit(cacheSvc, "onboard", cfg.Onboard.RateLimit, cfg.Onboard.RateWindow, m, zl))
	onboard.GET("/check-email", onboardingHandlers.CheckEmail)
	onboard.GET("/check-company", onboardingHandlers.CheckCompany)
	onboard.POST("/resend-welcome", onboardingHandlers.ResendWelcome)
	onboard.GET("/status/:tenantId", onboardingHandlers.GetStatus)

	// Operator routes
	if cfg.JWTSecret != "" {
		jobHandlers := handlers.NewJobHandlers(queue)
		admin := e.Group("/api/admin", middleware.JWTMiddleware(cfg.JWTSecret), middleware.RequireRole(middleware.RoleAdmin))
		admin.GET("/jobs", jobHandlers.QueueStats)
		admin.GET("/jobs/:id", jobHandlers.GetJob)
	} else {
		zl.Warn("JWT_SECRET not set, admin routes disabled")
	}

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		zl.Info("onboarding server starting", zap.Int("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var shutdownErr error
	select {
	case <-ctx.Done():
		zl.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			shutdownErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("http shutdown: %w", err))
	}
	if err := worker.Stop(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("worker stop: %w", err))
	}
	if err := scheduler.Stop(); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("scheduler stop: %w", err))
	}
	onboarding.Wait()
	queue.Wait()

	zl.Info("onboarding server stopped")
	return shutdownErr
}
