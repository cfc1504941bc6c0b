package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistration(t *testing.T) {
	metrics := []prometheus.Collector{
		UploadsTotal,
		DownloadsTotal,
		SweepDeletedTotal,
		SweepFailuresTotal,
		HTTPRequestsTotal,
		ErrorsTotal,
		HTTPRequestDuration,
		UploadSizeBytes,
		DownloadSizeBytes,
		SweepDuration,
		HealthStatus,
		HealthChecksTotal,
	}

	for _, metric := range metrics {
		if metric == nil {
			t.Error("Metric is nil")
		}
	}
}

func TestUploadsTotal(t *testing.T) {
	// Counters are cumulative across tests; compare against initial values
	initialSuccess := testutil.ToFloat64(UploadsTotal.WithLabelValues("success"))
	initialRejected := testutil.ToFloat64(UploadsTotal.WithLabelValues("rejected"))

	UploadsTotal.WithLabelValues("success").Inc()
	UploadsTotal.WithLabelValues("success").Inc()
	UploadsTotal.WithLabelValues("rejected").Inc()

	if got := testutil.ToFloat64(UploadsTotal.WithLabelValues("success")); got < initialSuccess+2 {
		t.Errorf("Expected at least %.0f successful uploads, got %f", initialSuccess+2, got)
	}
	if got := testutil.ToFloat64(UploadsTotal.WithLabelValues("rejected")); got < initialRejected+1 {
		t.Errorf("Expected at least %.0f rejected uploads, got %f", initialRejected+1, got)
	}
}

func TestDownloadsTotal(t *testing.T) {
	initialDownload := testutil.ToFloat64(DownloadsTotal.WithLabelValues("download", "success"))
	initialPreview := testutil.ToFloat64(DownloadsTotal.WithLabelValues("preview", "password_failed"))

	DownloadsTotal.WithLabelValues("download", "success").Inc()
	DownloadsTotal.WithLabelValues("preview", "password_failed").Inc()

	if got := testutil.ToFloat64(DownloadsTotal.WithLabelValues("download", "success")); got < initialDownload+1 {
		t.Errorf("Expected at least %.0f downloads, got %f", initialDownload+1, got)
	}
	if got := testutil.ToFloat64(DownloadsTotal.WithLabelValues("preview", "password_failed")); got < initialPreview+1 {
		t.Errorf("Expected at least %.0f failed previews, got %f", initialPreview+1, got)
	}
}

func TestSweepMetrics(t *testing.T) {
	initialDeleted := testutil.ToFloat64(SweepDeletedTotal)
	initialFailures := testutil.ToFloat64(SweepFailuresTotal)

	SweepDeletedTotal.Add(3)
	SweepFailuresTotal.Inc()
	SweepDuration.Observe(0.2)

	if got := testutil.ToFloat64(SweepDeletedTotal); got < initialDeleted+3 {
		t.Errorf("SweepDeletedTotal = %f, want at least %f", got, initialDeleted+3)
	}
	if got := testutil.ToFloat64(SweepFailuresTotal); got < initialFailures+1 {
		t.Errorf("SweepFailuresTotal = %f, want at least %f", got, initialFailures+1)
	}
}

func TestSizeHistograms(t *testing.T) {
	// Histograms accept observations without panicking
	UploadSizeBytes.Observe(1024)
	UploadSizeBytes.Observe(104857600)
	DownloadSizeBytes.Observe(10485760)
}

func TestHealthStatus(t *testing.T) {
	HealthStatus.Set(2)
	if got := testutil.ToFloat64(HealthStatus); got != 2 {
		t.Errorf("HealthStatus = %f, want 2", got)
	}
	HealthStatus.Set(0)
	if got := testutil.ToFloat64(HealthStatus); got != 0 {
		t.Errorf("HealthStatus = %f, want 0", got)
	}
}
