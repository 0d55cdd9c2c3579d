package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/application/catalogsync"
	"github.com/shopbridge/backend/internal/application/migration"
	"github.com/shopbridge/backend/internal/domain/syncrun"
	"github.com/shopbridge/backend/internal/infrastructure/config"
	"github.com/shopbridge/backend/internal/infrastructure/inventory"
	"github.com/shopbridge/backend/internal/infrastructure/logger"
	"github.com/shopbridge/backend/internal/infrastructure/ratelimit"
	"github.com/shopbridge/backend/internal/infrastructure/retry"
	"github.com/shopbridge/backend/internal/infrastructure/storefront"
	"github.com/shopbridge/backend/internal/interfaces/http/handler"
	"github.com/shopbridge/backend/internal/interfaces/http/middleware"
	"github.com/shopbridge/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ShopBridge Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Remote catalog adapters
	storefrontAdapter, err := storefront.NewAdapter(&storefront.Config{
		BaseURL:        cfg.Storefront.BaseURL,
		AccessToken:    cfg.Storefront.AccessToken,
		LocationID:     cfg.Storefront.LocationID,
		PageSize:       cfg.Storefront.PageSize,
		MaxBatchSize:   cfg.Storefront.MaxBatchSize,
		TimeoutSeconds: cfg.Storefront.TimeoutSeconds,
	})
	if err != nil {
		log.Fatal("Failed to initialize storefront adapter", zap.Error(err))
	}

	inventoryAdapter, err := inventory.NewAdapter(&inventory.Config{
		BaseURL:        cfg.Inventory.BaseURL,
		APIKey:         cfg.Inventory.APIKey,
		ImageFeedURL:   cfg.Inventory.ImageFeedURL,
		PageSize:       cfg.Inventory.PageSize,
		TimeoutSeconds: cfg.Inventory.TimeoutSeconds,
	})
	if err != nil {
		log.Fatal("Failed to initialize inventory adapter", zap.Error(err))
	}

	// Shared adaptive rate limiter and retry executor: every remote call of
	// every run draws from the same budget
	limiter, err := ratelimit.New(ratelimit.Config{
		RatePerSecond:    cfg.RateLimit.RatePerSecond,
		Burst:            cfg.RateLimit.Burst,
		MinRatePerSecond: cfg.RateLimit.MinRatePerSecond,
		ShrinkFactor:     cfg.RateLimit.ShrinkFactor,
		RecoverFactor:    cfg.RateLimit.RecoverFactor,
		SuccessThreshold: cfg.RateLimit.SuccessThreshold,
		CooldownBase:     cfg.RateLimit.CooldownBase,
		CooldownMax:      cfg.RateLimit.CooldownMax,
	})
	if err != nil {
		log.Fatal("Failed to initialize rate limiter", zap.Error(err))
	}

	executor, err := retry.NewExecutor(retry.Config{
		MaxAttempts:         cfg.Retry.MaxAttempts,
		InitialInterval:     cfg.Retry.InitialInterval,
		MaxInterval:         cfg.Retry.MaxInterval,
		Multiplier:          cfg.Retry.Multiplier,
		RandomizationFactor: cfg.Retry.RandomizationFactor,
	}, limiter, log)
	if err != nil {
		log.Fatal("Failed to initialize retry executor", zap.Error(err))
	}

	// Application services
	syncService := catalogsync.NewService(
		inventoryAdapter,
		storefrontAdapter,
		executor,
		catalogsync.OrchestratorConfig{
			Mode:       syncrun.ModeFull,
			Workers:    cfg.Sync.Workers,
			MaxDetails: cfg.Sync.MaxDetails,
		},
		catalogsync.ReconcilerConfig{
			LocationID:       cfg.Sync.LocationID,
			VariantChunkSize: cfg.Sync.VariantChunkSize,
			QuantityEpsilon:  decimal.NewFromFloat(cfg.Sync.QuantityEpsilon),
			MediaSettleDelay: cfg.Sync.MediaSettleDelay,
		},
		cfg.Sync.MaxRunHistory,
		log,
	)
	migrationService := migration.NewService(inventoryAdapter, storefrontAdapter, executor, log)

	// HTTP handlers
	syncHandler := handler.NewSyncHandler(syncService, log)
	migrationHandler := handler.NewMigrationHandler(migrationService, log)
	systemHandler := handler.NewSystemHandler(cfg.App.Name)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request id, panic recovery, request logging, body cap
	engine.Use(logger.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(1 << 20))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(systemHandler)
	r.Register(syncHandler)
	r.Register(migrationHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	// Stop accepting requests, let the active run wind down cooperatively
	for _, run := range syncService.List() {
		if !run.State.Terminal() {
			if err := syncService.Cancel(run.RunID); err == nil {
				log.Info("Cancelled active run", zap.String("run_id", run.RunID.String()))
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}

	log.Info("Server stopped", zap.Duration("grace_period", cfg.HTTP.ShutdownTimeout))
}
