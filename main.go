package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"estatehub/listings/internal/api"
	"estatehub/listings/internal/cache"
	"estatehub/listings/internal/config"
	"estatehub/listings/internal/db"
	"estatehub/listings/internal/events"
	"estatehub/listings/internal/logger"
	"estatehub/listings/internal/metrics"
	"estatehub/listings/internal/repository"
	"estatehub/listings/internal/services"
	"estatehub/listings/internal/storage"
	"estatehub/listings/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	switch cfg.RunMode {
	case "api", "bg", "all":
	default:
		log.Fatalf("Invalid run mode: %s", cfg.RunMode)
	}

	zl := logger.New(cfg.LogLevel, cfg.LogEncoding)
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		zl.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			zl.Error("error disconnecting from MongoDB", zap.Error(err))
		}
	}()
	zl.Info("connected to MongoDB", zap.String("database", cfg.MongoDbName))

	indexCtx, cancelIndex := context.WithTimeout(ctx, 30*time.Second)
	if err := db.EnsureIndexes(indexCtx, mongoDb, repository.ListingsCollection); err != nil {
		zl.Warn("could not ensure listing indexes", zap.Error(err))
	}
	cancelIndex()

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, zl)
	if err != nil {
		zl.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient, zl); err != nil {
			zl.Error("error disconnecting from Redis", zap.Error(err))
		}
	}()

	// Initialize event publisher
	var publisher events.IPublisher = events.NoopPublisher{}
	if cfg.NatsURL != "" {
		natsPublisher, err := events.NewNatsPublisher(cfg.NatsURL, zl)
		if err != nil {
			zl.Fatal("failed to connect to NATS", zap.Error(err))
		}
		publisher = natsPublisher
		zl.Info("publishing listing events", zap.String("nats_url", cfg.NatsURL))
	} else {
		zl.Info("NATS_URL not set, listing events disabled")
	}
	defer publisher.Close()

	m := metrics.New()
	listingRepo := repository.NewMongoListingRepository(mongoDb)
	listingCache := cache.NewRedisListingCache(redisClient, cfg.GetCacheTTL)
	listingService := services.NewListingService(listingRepo, listingCache, publisher, m, zl)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.StartServer(ctx, cfg.MetricsPort, zl); err != nil {
			zl.Error("metrics server error", zap.Error(err))
		}
	}()

	// --- Mode-specific servers ---
	var mainApiSrv *http.Server
	var taskSrv *asynq.Server
	var scheduler *asynq.Scheduler
	var taskClient *asynq.Client

	zl.Info("starting application", zap.String("mode", cfg.RunMode))

	apiMode := func() {
		var imageStorage storage.IImageStorage
		if cfg.AwsS3Bucket != "" {
			imageStorage, err = storage.NewS3Storage(ctx, cfg, zl)
			if err != nil {
				zl.Fatal("failed to initialize S3 storage", zap.Error(err))
			}
		} else {
			zl.Info("AWS_S3_BUCKET not set, image uploads disabled")
		}

		router := api.SetupRouter(ctx, cfg, listingService, imageStorage, m, zl)
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: router,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			zl.Info("API listening", zap.String("port", cfg.ApiPort))
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Fatal("API ListenAndServe error", zap.Error(err))
			}
			zl.Info("API server stopped")
		}()
	}

	bgMode := func() {
		processor := tasks.NewTaskProcessor(listingService, cfg.MaxDraftAge, zl)
		taskSrv = tasks.SetupServer(redisClient, zl)
		if err := taskSrv.Start(processor.Mux()); err != nil {
			zl.Fatal("could not start background task server", zap.Error(err))
		}

		scheduler, err = tasks.SetupScheduler(redisClient, cfg.DraftCleanupInterval, zl)
		if err != nil {
			zl.Fatal("could not set up task scheduler", zap.Error(err))
		}
		if err := scheduler.Start(); err != nil {
			zl.Fatal("could not start task scheduler", zap.Error(err))
		}
		taskClient = tasks.NewClient(redisClient)
		if info, err := tasks.EnqueueDraftCleanup(ctx, taskClient, 0); err != nil {
			zl.Warn("could not queue startup draft cleanup", zap.Error(err))
		} else {
			zl.Info("queued startup draft cleanup", zap.String("task_id", info.ID))
		}
		zl.Info("background worker started")
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	}

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zl.Info("shutting down gracefully")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			zl.Error("API server shutdown error", zap.Error(err))
		}
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}
	if taskClient != nil {
		if err := taskClient.Close(); err != nil {
			zl.Error("task client close error", zap.Error(err))
		}
	}

	wg.Wait()
	zl.Info("server gracefully stopped")
}
