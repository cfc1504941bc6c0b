package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/repository"
	"github.com/fjmerc/fileshare/internal/utils"
)

// UpdateRequest carries the owner-mutable fields. Nil fields are unchanged.
type UpdateRequest struct {
	OriginalName *string
	IsPublic     *bool
	ExpiresAt    *time.Time
}

// FileList is one page of an owner's files.
type FileList struct {
	Files   []*models.File
	Page    int
	Limit   int
	HasMore bool
}

// Update renames, toggles visibility or changes the expiry of an active file.
// Only the owner may update; files uploaded anonymously are never updatable.
func (m *Manager) Update(ctx context.Context, callerID, id string, req UpdateRequest) (*models.File, error) {
	file, err := m.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if file.IsExpired(now) {
		return nil, ErrExpired
	}

	update, err := m.validateUpdate(req, now)
	if err != nil {
		return nil, err
	}

	updated, err := m.files.Update(ctx, id, update, now)
	if err != nil {
		return nil, classifyRecordError("update file", err)
	}

	m.logger.Info("file updated",
		"file_id", id,
		"user_id", callerID,
	)
	return updated, nil
}

func (m *Manager) validateUpdate(req UpdateRequest, now time.Time) (repository.FileUpdate, error) {
	var v validator
	update := repository.FileUpdate{IsPublic: req.IsPublic}

	v.check(req.OriginalName != nil || req.IsPublic != nil || req.ExpiresAt != nil,
		"no fields to update")

	if req.OriginalName != nil {
		v.check(strings.TrimSpace(*req.OriginalName) != "", "filename cannot be empty")
		name := utils.SanitizeFilename(*req.OriginalName)
		update.OriginalName = &name
	}

	if req.ExpiresAt != nil {
		expires := req.ExpiresAt.UTC()
		v.check(expires.After(now), "expiration must be in the future")
		if m.opts.MaxExpiration > 0 {
			v.check(!expires.After(now.Add(m.opts.MaxExpiration)),
				"expiration cannot be more than %d hours in the future", int(m.opts.MaxExpiration/time.Hour))
		}
		update.ExpiresAt = &expires
	}

	return update, v.err()
}

// Delete removes an active or expired file. The bytes go first; if that fails
// the record is kept and a storage failure is returned.
func (m *Manager) Delete(ctx context.Context, callerID, id string) error {
	file, err := m.owned(ctx, callerID, id)
	if err != nil {
		return err
	}

	backend, err := m.backendFor(file)
	if err != nil {
		return err
	}

	if err := backend.Delete(ctx, file.StorageLocation); err != nil {
		m.logger.Error("failed to delete stored file",
			"file_id", id,
			"location", file.StorageLocation,
			"error", err,
		)
		return &StorageFailureError{Op: "delete", Err: err}
	}

	deleted, err := m.files.Delete(ctx, id)
	if err != nil {
		return classifyRecordError("delete file record", err)
	}
	if !deleted {
		// Removed concurrently, e.g. by the sweep.
		return ErrNotFound
	}

	m.logger.Info("file deleted",
		"file_id", id,
		"user_id", callerID,
	)
	return nil
}

// ListByOwner returns one page of the owner's files, newest first. page starts
// at 1; limit is clamped to 1..100 with a default of 20.
func (m *Manager) ListByOwner(ctx context.Context, ownerID string, page, limit int) (*FileList, error) {
	if ownerID == "" {
		return nil, ErrAccessDenied
	}
	if page < 1 {
		return nil, &ValidationError{Violations: []string{"page must be 1 or greater"}}
	}

	opts := repository.PageToOptions(page, limit)
	files, hasMore, err := m.files.ListByOwner(ctx, ownerID, opts)
	if err != nil {
		return nil, classifyRecordError("list files", err)
	}
	if files == nil {
		files = []*models.File{}
	}

	return &FileList{
		Files:   files,
		Page:    page,
		Limit:   opts.Limit,
		HasMore: hasMore,
	}, nil
}

// owned loads a file and checks that callerID owns it.
func (m *Manager) owned(ctx context.Context, callerID, id string) (*models.File, error) {
	if callerID == "" {
		return nil, ErrAccessDenied
	}

	file, err := m.files.GetByID(ctx, id)
	if err != nil {
		return nil, classifyRecordError("get file", err)
	}

	if !file.IsOwnedBy(callerID) {
		return nil, ErrAccessDenied
	}
	return file, nil
}
