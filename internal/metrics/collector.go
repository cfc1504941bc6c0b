package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fjmerc/fileshare/internal/repository"
)

const collectTimeout = 5 * time.Second

// StatsSource reports record store totals.
type StatsSource interface {
	Stats(ctx context.Context) (*repository.StoreStats, error)
}

// StoreMetricsCollector collects record store gauges on each scrape
type StoreMetricsCollector struct {
	source StatsSource

	storageUsedBytes *prometheus.Desc
	filesCount       *prometheus.Desc
}

// NewStoreMetricsCollector creates a new collector
func NewStoreMetricsCollector(source StatsSource) *StoreMetricsCollector {
	return &StoreMetricsCollector{
		source: source,
		storageUsedBytes: prometheus.NewDesc(
			"fileshare_storage_used_bytes",
			"Total size of stored files in bytes",
			nil, nil,
		),
		filesCount: prometheus.NewDesc(
			"fileshare_files_count",
			"Number of file records, including expired records not yet swept",
			nil, nil,
		),
	}
}

// Describe sends metric descriptors to Prometheus
func (c *StoreMetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.storageUsedBytes
	ch <- c.filesCount
}

// Collect fetches current totals from the record store and sends them to Prometheus
func (c *StoreMetricsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	stats, err := c.source.Stats(ctx)
	if err != nil {
		slog.Error("failed to query storage metrics", "error", err)
		// Send zero values on error to avoid scrape failure
		stats = &repository.StoreStats{}
	}

	ch <- prometheus.MustNewConstMetric(c.storageUsedBytes, prometheus.GaugeValue, float64(stats.StorageUsed))
	ch <- prometheus.MustNewConstMetric(c.filesCount, prometheus.GaugeValue, float64(stats.TotalFiles))
}
