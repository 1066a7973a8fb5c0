package reconhttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lucent-erp/lucent-erp/internal/platform/httpx"
	"github.com/lucent-erp/lucent-erp/internal/recon"
)

const runTimeout = 60 * time.Second

// Service exposes the reconciliation operations required by the handler.
type Service interface {
	Run(ctx context.Context) (recon.Report, error)
	LatestReport(ctx context.Context) (recon.Report, bool, error)
}

// Handler serves the reconciliation endpoints. Concurrent run requests
// collapse into one recomputation via singleflight.
type Handler struct {
	logger  *slog.Logger
	service Service
	group   singleflight.Group
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, ok, err := h.service.LatestReport(r.Context())
	if err != nil {
		h.logger.Error("load reconciliation report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no reconciliation run recorded yet")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), runTimeout)
	defer cancel()

	ch := h.group.DoChan("recon-run", func() (interface{}, error) {
		// Detached from the request context so one cancelled caller does
		// not abort the shared run.
		runCtx, runCancel := context.WithTimeout(context.Background(), runTimeout)
		defer runCancel()
		return h.service.Run(runCtx)
	})
	select {
	case <-ctx.Done():
		httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", "reconciliation run did not finish in time")
		return
	case res := <-ch:
		if res.Err != nil {
			h.logger.Error("reconciliation run", slog.Any("error", res.Err))
			httpx.RespondError(w, res.Err)
			return
		}
		httpx.JSON(w, http.StatusOK, res.Val.(recon.Report))
	}
}
