package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjmerc/fileshare/internal/metrics"
	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/repository"
	"github.com/fjmerc/fileshare/internal/storage"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	// Health check timeout for external dependencies
	healthCheckTimeout = 5 * time.Second
)

// setHealthCacheHeaders sets cache-control headers so health responses are never cached.
func setHealthCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// HealthHandler reports record store and storage backend health.
// An unreachable record store is unhealthy (503); a failing storage
// backend or stats query is degraded (200).
func HealthHandler(files repository.FileRepository, backend storage.Backend, startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		response := models.HealthResponse{
			Status:         statusHealthy,
			UptimeSeconds:  int64(time.Since(startTime).Seconds()),
			StorageBackend: backend.Kind(),
			Database:       "ok",
			Storage:        "ok",
		}

		if err := files.Ping(ctx); err != nil {
			slog.Error("health check: record store unreachable", "error", err)
			response.Status = statusUnhealthy
			response.Database = "unreachable"
		} else if stats, err := files.Stats(ctx); err != nil {
			slog.Warn("health check: stats query failed", "error", err)
			response.Status = statusDegraded
		} else {
			response.TotalFiles = stats.TotalFiles
			response.StorageUsedBytes = stats.StorageUsed
		}

		if checker, ok := backend.(storage.HealthChecker); ok {
			if err := checker.HealthCheck(ctx); err != nil {
				slog.Warn("health check: storage backend failing", "backend", backend.Kind(), "error", err)
				response.Storage = "unavailable"
				if response.Status == statusHealthy {
					response.Status = statusDegraded
				}
			}
		}

		metrics.HealthChecksTotal.WithLabelValues(response.Status).Inc()
		updateHealthStatusGauge(response.Status)

		httpCode := http.StatusOK
		if response.Status == statusUnhealthy {
			httpCode = http.StatusServiceUnavailable
		}

		setHealthCacheHeaders(w)
		sendJSON(w, httpCode, response)
	}
}

// LivenessHandler answers liveness checks with a record store ping only
func LivenessHandler(files repository.FileRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setHealthCacheHeaders(w)

		if err := files.Ping(r.Context()); err != nil {
			slog.Error("liveness check failed: database ping error", "error", err)
			sendJSON(w, http.StatusServiceUnavailable, map[string]string{"status": statusUnhealthy})
			return
		}

		sendJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

func updateHealthStatusGauge(status string) {
	switch status {
	case statusHealthy:
		metrics.HealthStatus.Set(2)
	case statusDegraded:
		metrics.HealthStatus.Set(1)
	default:
		metrics.HealthStatus.Set(0)
	}
}
