package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	require.NoError(t, metrics.Track("recon:run").End(nil))

	failure := errors.New("boom")
	require.ErrorIs(t, metrics.Track("recon:run").End(failure), failure)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.runs.WithLabelValues("recon:run", "success")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.runs.WithLabelValues("recon:run", "failure")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.failures.WithLabelValues("recon:run")))
}

func TestNilTrackerPassesErrorThrough(t *testing.T) {
	var metrics *Metrics
	failure := errors.New("boom")
	require.ErrorIs(t, metrics.Track("recon:run").End(failure), failure)
}
