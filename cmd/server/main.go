// Package main runs the marketplace HTTP API with the storefront WebSocket and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/autoparts-market/backend/config"
	"github.com/autoparts-market/backend/internal/advertising"
	"github.com/autoparts-market/backend/internal/auth"
	"github.com/autoparts-market/backend/internal/catalog"
	"github.com/autoparts-market/backend/internal/middleware"
	"github.com/autoparts-market/backend/internal/realtime"
	"github.com/autoparts-market/backend/internal/users"
	"github.com/autoparts-market/backend/internal/worker"
	"github.com/autoparts-market/backend/pkg/database"
	"github.com/autoparts-market/backend/pkg/queue"
	"github.com/autoparts-market/backend/pkg/redis"
	"github.com/autoparts-market/backend/pkg/response"
	"github.com/autoparts-market/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	images, local := newImageStore(ctx, cfg, logger)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)
	if err := auth.SeedAdmin(ctx, authRepo, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name, logger); err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}

	// Realtime
	var hub *realtime.Hub
	if rdb != nil {
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	// Advertising
	advRepo := advertising.NewRepository(pool)
	advService := advertising.NewService(advRepo, images, logger)
	advService.SetBroadcaster(hub)
	var cleanupProcessor *worker.ImageCleanupProcessor
	if rdb != nil {
		advService.SetCache(advertising.NewRedisActiveCache(rdb.Client, time.Duration(cfg.Redis.ActiveCacheTTLSec)*time.Second))
		jobQueue := queue.NewQueue(rdb.Client, logger)
		advService.SetCleanupQueue(jobQueue)
		cleanupProcessor = worker.NewImageCleanupProcessor(images, jobQueue, logger)
	}
	advHandler := advertising.NewHandler(advService, logger)

	// Catalog
	catalogHandler := catalog.NewHandler(catalog.NewRepository(pool), logger)
	usersHandler := users.NewHandler(users.NewRepository(pool), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.BodyLimit(int64(cfg.Server.MaxBodyMB) << 20))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	if local != nil {
		router.Static(cfg.Storage.URLPrefix+"/"+storage.FolderAdvertising, local.Dir())
	}

	admin := middleware.AdminOnly(jwtService)
	api := router.Group(cfg.Server.APIPrefix)
	{
		api.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

		// Auth
		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/me", middleware.Authenticate(jwtService), authHandler.Me)

		// Users (admin)
		api.GET("/users", append(admin, usersHandler.List)...)
		api.GET("/users/:id", append(admin, usersHandler.Get)...)
		api.PUT("/users/:id", append(admin, usersHandler.Update)...)
		api.DELETE("/users/:id", append(admin, usersHandler.Delete)...)

		// Advertising
		api.GET("/advertising", advHandler.List)
		api.GET("/advertising/active", advHandler.GetActive)
		api.GET("/advertising/interstitial", advHandler.Interstitial)
		api.POST("/advertising/interstitial/dismiss", advHandler.DismissInterstitial)
		api.GET("/advertising/:id", advHandler.Get)
		api.POST("/advertising", append(admin, advHandler.Create)...)
		api.PUT("/advertising/:id", append(admin, advHandler.Update)...)
		api.DELETE("/advertising/:id", append(admin, advHandler.Delete)...)

		// Brands
		api.GET("/brands", catalogHandler.ListBrands)
		api.GET("/brands/:id", catalogHandler.GetBrand)
		api.POST("/brands", append(admin, catalogHandler.CreateBrand)...)
		api.PUT("/brands/:id", append(admin, catalogHandler.UpdateBrand)...)
		api.DELETE("/brands/:id", append(admin, catalogHandler.DeleteBrand)...)

		// Vehicle models
		api.GET("/models", catalogHandler.ListModels)
		api.GET("/models/:id", catalogHandler.GetModel)
		api.POST("/models", append(admin, catalogHandler.CreateModel)...)
		api.PUT("/models/:id", append(admin, catalogHandler.UpdateModel)...)
		api.DELETE("/models/:id", append(admin, catalogHandler.DeleteModel)...)

		// Storefront WebSocket: pushes advertising_changed, starting with the current active ad.
		api.GET("/ws", realtime.ServeWs(hub, logger, func(ctx context.Context) (string, interface{}, error) {
			a, err := advService.GetActive(ctx)
			return advertising.EventAdvertisingChanged, a, err
		}))
	}

	router.NoRoute(func(c *gin.Context) { response.NotFound(c, "Route not found") })

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (image cleanup retries)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cleanupProcessor != nil {
		go cleanupProcessor.Run(workerCtx)
		logger.Info("image cleanup worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("api_prefix", cfg.Server.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newImageStore returns the configured image store, and the local store when images are served from disk.
func newImageStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.ImageStore, *storage.Local) {
	if cfg.Storage.Driver == config.StorageS3 {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ImagesBucket:    cfg.AWS.ImagesBucket,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		return s3Client, nil
	}
	local := storage.NewLocal(cfg.Storage.ImagesDir, cfg.Storage.URLPrefix, logger)
	return local, local
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
