package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/weighcheck/weighcheck/internal/app"
	backuphttp "github.com/weighcheck/weighcheck/internal/backup/http"
	"github.com/weighcheck/weighcheck/internal/draft"
	"github.com/weighcheck/weighcheck/internal/labelscan"
	"github.com/weighcheck/weighcheck/internal/observability"
	"github.com/weighcheck/weighcheck/internal/platform/cache"
	profilehttp "github.com/weighcheck/weighcheck/internal/profile/http"
	"github.com/weighcheck/weighcheck/internal/receiving"
	receivinghttp "github.com/weighcheck/weighcheck/internal/receiving/http"
	"github.com/weighcheck/weighcheck/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	metrics := observability.NewMetrics()

	deps := receiving.Deps{
		Records:        stores.Records,
		Knowledge:      stores.Knowledge,
		Profiles:       stores.Profiles,
		Drafts:         draft.NewStoreWithLimits(cfg.DraftMax, cfg.DraftIdleTTL),
		SyncTransports: cfg.CloudSyncTransports,
		Namespace:      cfg.StoreNamespace,
		Metrics:        metrics,
		Logger:         logger,
	}
	if cfg.LabelScanEnabled() {
		completer := labelscan.NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.LabelScanModel)
		deps.Scanner = labelscan.NewScanner(completer, logger)
	} else {
		logger.Info("label scan disabled, ANTHROPIC_API_KEY not set")
	}

	redisOpts := cfg.RedisOptions().Asynq()
	if cfg.CloudSyncOnSave {
		client, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		deps.Sync = client
	}

	receivingService := receiving.NewService(deps)

	var cloudAPI backuphttp.Cloud
	if cloud != nil {
		cloudAPI = cloud
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ReceivingHandler: receivinghttp.NewHandler(logger, receivingService, loc),
		ProfileHandler:   profilehttp.NewHandler(logger, stores.Profiles),
		BackupHandler:    backuphttp.NewHandler(logger, stores.Codec, cloudAPI),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("namespace", cfg.StoreNamespace))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
