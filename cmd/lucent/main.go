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

	"github.com/lucent-erp/lucent-erp/internal/app"
	"github.com/lucent-erp/lucent-erp/internal/costing"
	"github.com/lucent-erp/lucent-erp/internal/editor"
	"github.com/lucent-erp/lucent-erp/internal/ledger"
	"github.com/lucent-erp/lucent-erp/internal/masterdata/items"
	"github.com/lucent-erp/lucent-erp/internal/observability"
	"github.com/lucent-erp/lucent-erp/internal/platform/cache"
	"github.com/lucent-erp/lucent-erp/internal/platform/db"
	"github.com/lucent-erp/lucent-erp/internal/recon"
	"github.com/lucent-erp/lucent-erp/internal/shared"
	"github.com/lucent-erp/lucent-erp/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
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

	itemsService := items.NewService(items.NewRepository(pool))

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger)

	costingService := costing.NewService(costing.NewRepository(pool), itemsService, auditLogger, costing.ServiceConfig{
		LandedCostClearingAccount: cfg.LandedCostClearingAccount,
	})

	editorService := editor.NewService(
		editor.NewRepository(pool),
		costingService,
		itemsService,
		editor.NewPaymentChecker(pool),
		shared.NewIdempotencyStore(pool),
		auditLogger,
	)

	reconCache := recon.NewCache(redisClient, cfg.ReconReportTTL)
	reconService := recon.NewService(recon.NewRepository(pool), ledgerRepo, reconCache, auditLogger, logger, recon.ServiceConfig{
		SuspenseAccount: cfg.ReconSuspenseAccount,
	})

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterConfig{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		DB:      pool,
		Redis:   redisClient,
		Ledger:  ledgerService,
		Costing: costingService,
		Editor:  editorService,
		Recon:   reconService,
		Jobs:    jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
