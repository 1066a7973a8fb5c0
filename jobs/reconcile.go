package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/lucent-erp/lucent-erp/internal/jobs"
	"github.com/lucent-erp/lucent-erp/internal/observability"
	"github.com/lucent-erp/lucent-erp/internal/recon"
	"github.com/lucent-erp/lucent-erp/internal/shared"
)

// ReconService is the reconciliation surface the job needs.
type ReconService interface {
	Run(ctx context.Context) (recon.Report, error)
	ApplyCorrections(ctx context.Context, report recon.Report) error
}

// NewReconcileHandler builds the Asynq handler for TaskReconcile. The run
// recomputes every cached balance and valuation; when the payload asks for
// corrections, drifted accounts are resynchronised through postings, with
// retries on store contention.
func NewReconcileHandler(service ReconService, metrics *observability.Metrics, jobMetrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := jobMetrics.Track(TaskReconcile)
		var payload ReconcilePayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return tracker.End(asynq.SkipRetry)
			}
		}
		report, err := service.Run(ctx)
		if err != nil {
			metrics.ObserveReconRun(0, 0, true)
			logger.Error("reconciliation run failed", slog.Any("error", err))
			return tracker.End(err)
		}
		metrics.ObserveReconRun(len(report.Discrepancies), len(report.ValuationDrifts), false)
		if report.Clean() {
			logger.Info("reconciliation clean")
			return tracker.End(nil)
		}
		logger.Warn("reconciliation drift",
			slog.Int("accounts", len(report.Discrepancies)),
			slog.Int("classifications", len(report.ValuationDrifts)))
		if !payload.ApplyCorrections {
			return tracker.End(nil)
		}
		return tracker.End(shared.Retry(ctx, 3, func(ctx context.Context) error {
			return service.ApplyCorrections(ctx, report)
		}))
	}
}
