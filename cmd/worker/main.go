package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lucent-erp/lucent-erp/internal/app"
	jobmetrics "github.com/lucent-erp/lucent-erp/internal/jobs"
	"github.com/lucent-erp/lucent-erp/internal/ledger"
	"github.com/lucent-erp/lucent-erp/internal/observability"
	"github.com/lucent-erp/lucent-erp/internal/platform/cache"
	"github.com/lucent-erp/lucent-erp/internal/platform/db"
	"github.com/lucent-erp/lucent-erp/internal/recon"
	"github.com/lucent-erp/lucent-erp/internal/shared"
	"github.com/lucent-erp/lucent-erp/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	ledgerRepo := ledger.NewRepository(pool)
	reconCache := recon.NewCache(redisClient, cfg.ReconReportTTL)
	reconService := recon.NewService(recon.NewRepository(pool), ledgerRepo, reconCache, auditLogger, logger, recon.ServiceConfig{
		SuspenseAccount: cfg.ReconSuspenseAccount,
	})

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	reconcileTask, err := jobs.NewReconcileTask(jobs.ReconcilePayload{ApplyCorrections: true})
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReconcile, Handler: jobs.NewReconcileHandler(reconService, metrics, jobMetrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReconSchedule, Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
