package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/lucent-erp/lucent-erp/internal/jobs"
	"github.com/lucent-erp/lucent-erp/internal/observability"
	"github.com/lucent-erp/lucent-erp/internal/recon"
)

type stubRecon struct {
	report    recon.Report
	corrected bool
}

func (s *stubRecon) Run(ctx context.Context) (recon.Report, error) {
	return s.report, nil
}

func (s *stubRecon) ApplyCorrections(ctx context.Context, report recon.Report) error {
	s.corrected = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconcileHandlerReportsOnly(t *testing.T) {
	svc := &stubRecon{report: recon.Report{
		Discrepancies: []recon.Discrepancy{{AccountCode: "1400", Delta: -3_000}},
	}}
	handler := NewReconcileHandler(svc, observability.NewMetrics(), jobmetrics.NewMetrics(prometheus.NewRegistry()), discardLogger())

	task, err := NewReconcileTask(ReconcilePayload{})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.False(t, svc.corrected)
}

func TestReconcileHandlerAppliesCorrections(t *testing.T) {
	svc := &stubRecon{report: recon.Report{
		Discrepancies: []recon.Discrepancy{{AccountCode: "1400", Delta: -3_000}},
	}}
	handler := NewReconcileHandler(svc, observability.NewMetrics(), jobmetrics.NewMetrics(prometheus.NewRegistry()), discardLogger())

	task, err := NewReconcileTask(ReconcilePayload{ApplyCorrections: true})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.True(t, svc.corrected)
}

func TestReconcileHandlerCleanRunSkipsCorrections(t *testing.T) {
	svc := &stubRecon{}
	handler := NewReconcileHandler(svc, observability.NewMetrics(), jobmetrics.NewMetrics(prometheus.NewRegistry()), discardLogger())

	task, err := NewReconcileTask(ReconcilePayload{ApplyCorrections: true})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.False(t, svc.corrected)
}
