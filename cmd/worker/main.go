package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/weighcheck/weighcheck/internal/app"
	jobmetrics "github.com/weighcheck/weighcheck/internal/jobs"
	"github.com/weighcheck/weighcheck/internal/platform/cache"
	"github.com/weighcheck/weighcheck/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("load timezone", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	stores := app.NewStores(redisClient, cfg.StoreNamespace)
	cloud, closeCloud, err := app.NewCloudService(ctx, cfg, stores.Codec, logger)
	if err != nil {
		logger.Error("init cloud backup", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeCloud()
	if cloud == nil {
		logger.Error("no backup transport configured, set PG_DSN, GCS_BUCKET or S3_BUCKET")
		os.Exit(1)
	}

	syncJob := jobs.NewBackupSyncJob(cloud, cfg.StoreNamespace, logger, jobmetrics.NewMetrics(nil))

	var cron []jobs.CronRegistration
	if cfg.CloudSyncCron != "" {
		task, err := jobs.NewBackupSyncTask(jobs.BackupSyncPayload{
			Namespace:  cfg.StoreNamespace,
			Transports: cfg.CloudSyncTransports,
			Reason:     "scheduled",
		})
		if err != nil {
			logger.Error("build backup sync task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.CloudSyncCron,
			Task:    task,
			Options: []asynq.Option{asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.RedisOptions().Asynq(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    loc,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBackupSync, Handler: syncJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
