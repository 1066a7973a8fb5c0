package reconhttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/lucent-erp/lucent-erp/internal/recon"
)

type stubReconService struct {
	report    recon.Report
	hasReport bool
	runs      atomic.Int64
	runDelay  time.Duration
}

func (s *stubReconService) Run(ctx context.Context) (recon.Report, error) {
	s.runs.Add(1)
	if s.runDelay > 0 {
		time.Sleep(s.runDelay)
	}
	return s.report, nil
}

func (s *stubReconService) LatestReport(ctx context.Context) (recon.Report, bool, error) {
	return s.report, s.hasReport, nil
}

func newReconRouter(svc Service) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewHandler(logger, svc).MountRoutes(r)
	return r
}

func TestHandleGetReportMissing(t *testing.T) {
	router := newReconRouter(&stubReconService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recon/report", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetReport(t *testing.T) {
	router := newReconRouter(&stubReconService{
		hasReport: true,
		report: recon.Report{
			RanAt: time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC),
			Discrepancies: []recon.Discrepancy{
				{AccountCode: "1400", Cached: 47_000, Computed: 50_000, Delta: -3_000},
			},
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recon/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body recon.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Discrepancies, 1)
	require.Equal(t, int64(-3_000), body.Discrepancies[0].Delta)
}

func TestHandleRunCollapsesConcurrentRequests(t *testing.T) {
	svc := &stubReconService{runDelay: 50 * time.Millisecond}
	router := newReconRouter(svc)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/recon/run", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()
	require.Equal(t, int64(1), svc.runs.Load())
}
