package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"reelhub-api/internal/cache"
	"reelhub-api/internal/config"
	"reelhub-api/internal/credential"
	"reelhub-api/internal/handler"
	"reelhub-api/internal/middleware"
	"reelhub-api/internal/provider"
	"reelhub-api/internal/repository"
	"reelhub-api/internal/router"
	"reelhub-api/internal/service"
	"reelhub-api/internal/signer"
	"reelhub-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	if err := logger.Init(cfg.App.Environment); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.Named("main")
	log.Info("starting", zap.String("app", cfg.App.Name), zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment))

	// Initialize store based on config
	store, err := openStore(cfg)
	if err != nil {
		log.Fatal("failed to initialize store", zap.String("type", cfg.Store.Type), zap.Error(err))
	}
	defer store.Close()

	// Initialize cache backend for signed URLs
	var backend cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Warn("redis unavailable, falling back to memory cache", zap.Error(err))
			memCache := cache.NewMemoryCache(10 * time.Minute)
			defer memCache.Close()
			backend = memCache
		} else {
			defer redisCache.Close()
			backend = redisCache
		}
	default:
		memCache := cache.NewMemoryCache(10 * time.Minute)
		defer memCache.Close()
		backend = memCache
	}

	// URL signer
	var urlSigner cache.Signer
	s3Signer, err := signer.NewS3Signer(context.Background(), signer.Config{
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		Endpoint:      cfg.Storage.Endpoint,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		Expiry:        cfg.Storage.SignExpiry,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		log.Warn("url signing disabled", zap.Error(err))
		urlSigner = signer.Unavailable{Reason: err.Error()}
	} else {
		urlSigner = s3Signer
	}
	signedURLs := cache.NewSignedURLCache(backend, urlSigner, cfg.Cache.SignedURLTTL,
		cache.WithSignTimeout(cfg.Cache.SignTimeout),
		cache.WithBatchTimeout(cfg.Cache.BatchTimeout),
	)

	// Credential pool and providers
	pool := credential.NewPool(cfg.Publisher.APIKeys)
	if pool.Size() == 0 {
		log.Warn("PUBLISHER_API_KEYS is empty; publishing and sync will fail with not configured")
	} else {
		log.Info("credential pool loaded", zap.Int("size", pool.Size()), zap.Strings("keys", pool.Masked()))
	}
	publisher := provider.NewPublisher(cfg.Publisher.BaseURL, cfg.Publisher.Timeout)
	analytics := provider.NewAnalytics(cfg.Analytics.BaseURL, cfg.Analytics.Timeout)

	// Initialize services
	batchService := service.NewBatchService(store)
	publishRouter := service.NewPublishRouter(pool, publisher, store, batchService)
	orchestrator := service.NewSyncOrchestrator(store, pool, analytics, service.SyncConfig{
		Freshness:   cfg.Sync.Freshness,
		Timeout:     cfg.Sync.Timeout,
		CallTimeout: cfg.Sync.CallTimeout,
		Concurrency: cfg.Sync.Concurrency,
	})

	scheduler := service.NewSyncScheduler(orchestrator, service.SchedulerConfig{
		Interval:   cfg.Sync.Interval,
		RunTimeout: cfg.Sync.Timeout + 30*time.Second,
	})
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Name, cfg.App.Version, map[string]handler.ReadyCheck{
		"store": func(ctx context.Context) error {
			_, err := store.Stats(ctx)
			return err
		},
		"cache": func(ctx context.Context) error {
			_, err := backend.Stats(ctx)
			return err
		},
	})
	adminHandler := handler.NewAdminHandler(handler.AdminDeps{
		Store:        store,
		Cache:        backend,
		Pool:         pool,
		Scheduler:    scheduler,
		StoreType:    cfg.Store.Type,
		SignedURLTTL: cfg.Cache.SignedURLTTL,
	})

	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		APIKeys: cfg.App.APIKeys,
	})
	if len(cfg.App.APIKeys) == 0 {
		log.Warn("API_KEYS is empty; /api/v1 is not authenticated")
	}

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		BatchHandler:   handler.NewBatchHandler(batchService),
		PublishHandler: handler.NewPublishHandler(publishRouter),
		SyncHandler:    handler.NewSyncHandler(orchestrator, store, pool),
		MediaHandler:   handler.NewMediaHandler(signedURLs),
		AdminHandler:   adminHandler,
		AuthMiddleware: authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	scheduler.Stop()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Store.Type {
	case "mysql":
		return repository.NewMySQLStore(cfg.Database.DSN())
	case "postgres":
		return repository.NewPostgresStore(cfg.Database.PostgresDSN())
	default: // sqlite
		if dir := filepath.Dir(cfg.Store.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return repository.NewSQLiteStore(cfg.Store.Path)
	}
}
