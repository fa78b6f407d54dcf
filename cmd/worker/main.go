package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeStudio/internal/cache"
	"resumeStudio/internal/config"
	"resumeStudio/internal/database"
	"resumeStudio/internal/document"
	"resumeStudio/internal/metrics"
	"resumeStudio/internal/storage"
	"resumeStudio/internal/tasks"
	"resumeStudio/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	purgeHandler := worker.NewPurgeHandler(
		document.NewService(db),
		worker.PurgeDeps{
			Storage: storageClient,
			Cache:   cache.NewDocumentCache(redisClient, cfg.API.CacheTTL),
			Events:  cache.NewEventPublisher(redisClient),
		},
		cfg.Trash.Retention,
		cfg.Trash.PurgeBatch,
		logger,
	)

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	scheduler := asynq.NewScheduler(redisOpt, nil)
	task, err := tasks.NewTrashPurgeTask(cfg.Trash.PurgeBatch, "")
	if err != nil {
		log.Fatalf("build purge task: %v", err)
	}
	entryID, err := scheduler.Register(cfg.Trash.PurgeSchedule, task)
	if err != nil {
		log.Fatalf("register purge schedule %q: %v", cfg.Trash.PurgeSchedule, err)
	}
	logger.Info("trash purge scheduled", slog.String("schedule", cfg.Trash.PurgeSchedule), slog.String("entry_id", entryID))
	if err := scheduler.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Shutdown()

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeTrashPurge, purgeHandler)

	logger.Info("worker service started", slog.String("redis_addr", redisAddr))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
