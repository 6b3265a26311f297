package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trip-planner-service/internal/domain/repository"
	"trip-planner-service/internal/infrastructure/config"
	"trip-planner-service/internal/infrastructure/persistence"
	"trip-planner-service/internal/infrastructure/router"
	"trip-planner-service/internal/interface/api"
	plannerRepo "trip-planner-service/internal/interface/repository"
	"trip-planner-service/internal/usecase"
	"trip-planner-service/pkg/logger"
	"trip-planner-service/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", "error", err)
	}

	// Create logger
	log := logger.NewLoggerWithLevel(cfg.LogLevel)
	defer log.Sync()
	log.Info("Starting Trip Planner Service", "version", cfg.AppVersion)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []func(context.Context)

	// Local planner storage
	var kv repository.KeyValueRepository
	switch cfg.LocalStore {
	case config.LocalStorePostgres:
		log.Info("Connecting to PostgreSQL")
		gormDB, err := persistence.NewPostgresDB(cfg.PostgresURI)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		kv, err = plannerRepo.NewGormKeyValueRepository(gormDB)
		if err != nil {
			log.Fatal("Failed to prepare planner table", "error", err)
		}
		closers = append(closers, func(context.Context) {
			if sqlDB, err := gormDB.DB(); err == nil {
				sqlDB.Close()
			}
		})
	case config.LocalStoreMemory:
		log.Warn("Using in-memory planner storage, changes are lost on restart")
		kv = plannerRepo.NewMemoryKeyValueRepository()
	default:
		log.Info("Using disk planner storage", "path", cfg.DiskStorePath)
		kv = plannerRepo.NewDiskKeyValueRepository(cfg.DiskStorePath)
	}

	// Remote trip storage
	var (
		remote     repository.TripRepository
		liveRemote repository.LiveTripRepository
	)
	switch cfg.RemoteStore {
	case config.RemoteStoreMongo:
		log.Info("Connecting to MongoDB")
		mongoClient, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoUser, cfg.MongoPassword)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		db := persistence.GetDatabase(mongoClient, cfg.MongoDB)
		remote = plannerRepo.NewMongoTripRepository(db, cfg.MongoCollection)
		closers = append(closers, func(ctx context.Context) {
			if err := mongoClient.Disconnect(ctx); err != nil {
				log.Error("MongoDB disconnect error", "error", err)
			}
		})
	case config.RemoteStoreRedis:
		log.Info("Connecting to Redis", "addr", cfg.RedisAddr)
		redisClient, err := persistence.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		liveRemote = plannerRepo.NewRedisTripRepository(redisClient, cfg.RedisPrefix, log)
		remote = liveRemote
		closers = append(closers, func(context.Context) {
			if err := redisClient.Close(); err != nil {
				log.Error("Redis close error", "error", err)
			}
		})
	case config.RemoteStoreMemory:
		log.Warn("Using in-memory trip storage, shared trips are lost on restart")
		memoryRemote := plannerRepo.NewMemoryRemoteRepository()
		remote, liveRemote = memoryRemote, memoryRemote
	default:
		log.Info("Remote sync disabled")
	}

	m := metrics.NewMetrics("trip_planner", nil)

	store, err := usecase.NewPlannerStore(ctx, kv, log, m)
	if err != nil {
		log.Fatal("Failed to load planner document", "error", err)
	}

	coordinator, err := usecase.NewSyncCoordinator(ctx, store, kv, remote, log, m, cfg.SyncConnectTimeout)
	if err != nil {
		log.Fatal("Failed to set up sync", "error", err)
	}

	monitor := usecase.NewStalenessMonitor(coordinator, log, m, cfg.StalenessPollInterval, cfg.StalenessNudgePerMinute)
	go monitor.Run(ctx)

	var live *usecase.LiveSync
	if liveRemote != nil {
		live = usecase.NewLiveSync(store, liveRemote, coordinator.ClientID(), log, m, cfg.SyncConnectTimeout)
	}

	handler := api.NewHandler(store, coordinator, monitor, live, log)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(handler, router.Options{
			AllowedOrigins:        cfg.CORSOrigins,
			SyncRequestsPerMinute: cfg.SyncRequestsPerMinute,
		}, log),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	monitor.Stop()
	if live != nil {
		live.Leave()
	}
	cancel() // Cancel the context to stop all goroutines

	for _, closeFn := range closers {
		closeFn(shutdownCtx)
	}

	log.Info("Trip Planner Service stopped")
}
