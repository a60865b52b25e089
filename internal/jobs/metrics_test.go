package jobmetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	require.NoError(t, metrics.Track("backup:sync").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, metrics.Track("backup:sync").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("backup:sync", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("backup:sync", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("backup:sync")))
}

func TestBackupUploadStampsLastSuccess(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	at := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	metrics.now = func() time.Time { return at }

	metrics.AddBackupUpload("drive", nil)
	metrics.AddBackupUpload("drive", errors.New("quota"))
	metrics.AddBackupUpload("relational", errors.New("down"))

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.uploads.WithLabelValues("drive", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.uploads.WithLabelValues("drive", "failure")))
	require.Equal(t, float64(at.Unix()), testutil.ToFloat64(metrics.lastUpload.WithLabelValues("drive")))
	// relational never succeeded, so no gauge series exists for it.
	require.Equal(t, 1, testutil.CollectAndCount(metrics.lastUpload))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	require.NoError(t, metrics.Track("x").End(nil))
	metrics.AddBackupUpload("drive", nil)
}
