package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	costinghttp "github.com/lucent-erp/lucent-erp/internal/costing/http"
	editorhttp "github.com/lucent-erp/lucent-erp/internal/editor/http"
	ledgerhttp "github.com/lucent-erp/lucent-erp/internal/ledger/http"
	"github.com/lucent-erp/lucent-erp/internal/observability"
	"github.com/lucent-erp/lucent-erp/internal/platform/httpx"
	reconhttp "github.com/lucent-erp/lucent-erp/internal/recon/http"
	"github.com/lucent-erp/lucent-erp/jobs"
)

// RouterConfig collects everything the HTTP surface needs.
type RouterConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	DB    *pgxpool.Pool
	Redis *redis.Client

	Ledger  ledgerhttp.Service
	Costing costinghttp.Service
	Editor  editorhttp.Service
	Recon   reconhttp.Service

	Jobs *jobs.Handler
}

// NewRouter assembles the chi router with the middleware stack, the
// domain read endpoints and the operational endpoints.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: cfg.Logger, Config: cfg.Config, Metrics: cfg.Metrics}) {
		r.Use(mw)
	}

	r.Get("/healthz", healthHandler(cfg))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	ledgerhttp.NewHandler(cfg.Logger, cfg.Ledger).MountRoutes(r)
	costinghttp.NewHandler(cfg.Logger, cfg.Costing).MountRoutes(r)
	editorhttp.NewHandler(cfg.Logger, cfg.Editor).MountRoutes(r)
	reconhttp.NewHandler(cfg.Logger, cfg.Recon).MountRoutes(r)
	if cfg.Jobs != nil {
		r.Route("/jobs", cfg.Jobs.MountRoutes)
	}

	return r
}

type healthStatus struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

func healthHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := healthStatus{Status: "ok", Postgres: "ok", Redis: "ok"}
		code := http.StatusOK
		if cfg.DB != nil {
			if err := cfg.DB.Ping(ctx); err != nil {
				status.Status, status.Postgres = "degraded", err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if cfg.Redis != nil {
			if err := cfg.Redis.Ping(ctx).Err(); err != nil {
				status.Status, status.Redis = "degraded", err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		httpx.JSON(w, code, status)
	}
}
