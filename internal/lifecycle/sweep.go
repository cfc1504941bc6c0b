package lifecycle

import (
	"context"
	"time"

	"github.com/fjmerc/fileshare/internal/metrics"
	"github.com/fjmerc/fileshare/internal/models"
)

// SweepExpired deletes every file whose expiry has passed: bytes first, then
// the record. A failure on one file is logged and counted and the sweep moves
// on. Files that fail stay in the store and are retried by the next sweep.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	start := time.Now()
	now := m.now()
	deleted, failed := 0, 0
	skip := make(map[string]bool)

	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
		metrics.SweepDeletedTotal.Add(float64(deleted))
		metrics.SweepFailuresTotal.Add(float64(failed))
	}()

	for {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		limit := m.opts.SweepBatchSize + len(skip)
		expired, err := m.files.ListExpired(ctx, now, limit)
		if err != nil {
			return deleted, classifyRecordError("list expired files", err)
		}

		fresh := 0
		var ids []string
		for _, file := range expired {
			if skip[file.ID] {
				continue
			}
			fresh++
			if err := m.removeBytes(ctx, file); err != nil {
				failed++
				skip[file.ID] = true
				continue
			}
			ids = append(ids, file.ID)
		}
		if fresh == 0 {
			break
		}

		if len(ids) > 0 {
			removed, err := m.files.DeleteExpired(ctx, ids, now)
			if err != nil {
				m.logger.Error("failed to delete expired file records",
					"count", len(ids),
					"error", err,
				)
				failed += len(ids)
			}
			deleted += len(removed)

			// Records not removed were extended or deleted concurrently.
			gone := make(map[string]bool, len(removed))
			for _, f := range removed {
				gone[f.ID] = true
			}
			for _, id := range ids {
				if !gone[id] {
					skip[id] = true
				}
			}
		}

		if len(expired) < limit {
			break
		}
	}

	if deleted > 0 || failed > 0 {
		m.logger.Info("expired files swept",
			"deleted", deleted,
			"failed", failed,
			"duration", time.Since(start),
		)
	}
	return deleted, nil
}

func (m *Manager) removeBytes(ctx context.Context, file *models.File) error {
	backend, err := m.backendFor(file)
	if err == nil {
		err = backend.Delete(ctx, file.StorageLocation)
	}
	if err != nil {
		m.logger.Error("failed to delete expired file bytes",
			"file_id", file.ID,
			"location", file.StorageLocation,
			"error", err,
		)
	}
	return err
}
