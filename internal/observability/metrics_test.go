package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	metrics := NewMetrics()

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/ledger/trial-balance", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledger/trial-balance", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	require.Contains(t, body, "lucent_http_requests_total")
	require.Contains(t, body, `route="/ledger/trial-balance"`)
}

func TestObserveReconRun(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveReconRun(2, 1, false)
	metrics.ObserveReconRun(0, 0, false)
	metrics.ObserveReconRun(0, 0, true)

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	require.Contains(t, body, `lucent_recon_runs_total{outcome="drift"} 1`)
	require.Contains(t, body, `lucent_recon_runs_total{outcome="clean"} 1`)
	require.Contains(t, body, `lucent_recon_runs_total{outcome="error"} 1`)
	require.True(t, strings.Contains(body, `lucent_recon_drift_items{kind="account"} 0`))
}
