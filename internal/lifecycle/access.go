package lifecycle

import (
	"context"
	"errors"
	"io"

	"github.com/fjmerc/fileshare/internal/metrics"
	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/repository"
	"github.com/fjmerc/fileshare/internal/utils"
)

// Mode selects how content is served.
type Mode string

const (
	ModeDownload Mode = "download"
	ModePreview  Mode = "preview"
)

// FileInfo is the result of an info lookup. Full is false when the file is
// password-protected and no password was supplied; only the reduced
// projection may be shown then.
type FileInfo struct {
	File       *models.File
	Full       bool
	CanPreview bool
}

// Content is an open byte stream for a file. The caller must close Body.
type Content struct {
	Body        io.ReadCloser
	File        *models.File
	MimeType    string
	Size        int64
	Disposition string
	Mode        Mode
}

// GetInfo looks up a file without counting an access.
func (m *Manager) GetInfo(ctx context.Context, id string, access Access) (*FileInfo, error) {
	file, err := m.accessible(ctx, id, access)
	if err != nil {
		return nil, err
	}

	if file.IsPasswordProtected() {
		if access.Password == "" {
			return &FileInfo{File: file, Full: false}, nil
		}
		if !repository.VerifyPassword(file, access.Password) {
			return nil, ErrInvalidPassword
		}
	}

	return &FileInfo{
		File:       file,
		Full:       true,
		CanPreview: utils.IsPreviewable(file.MimeType),
	}, nil
}

// GetContent opens the file's bytes and counts the access. The stream is
// opened before the counter is incremented; if the increment fails the stream
// is closed and nothing is counted.
func (m *Manager) GetContent(ctx context.Context, id string, mode Mode, access Access) (*Content, error) {
	content, err := m.getContent(ctx, id, mode, access)
	metrics.DownloadsTotal.WithLabelValues(string(mode), downloadStatus(err)).Inc()
	return content, err
}

func (m *Manager) getContent(ctx context.Context, id string, mode Mode, access Access) (*Content, error) {
	if mode != ModeDownload && mode != ModePreview {
		return nil, &ValidationError{Violations: []string{"mode must be download or preview"}}
	}

	file, err := m.accessible(ctx, id, access)
	if err != nil {
		return nil, err
	}

	if file.IsPasswordProtected() {
		if access.Password == "" {
			return nil, ErrPasswordRequired
		}
		if !repository.VerifyPassword(file, access.Password) {
			return nil, ErrInvalidPassword
		}
	}

	if mode == ModePreview && !utils.IsPreviewable(file.MimeType) {
		return nil, ErrNotPreviewable
	}

	backend, err := m.backendFor(file)
	if err != nil {
		return nil, err
	}

	body, err := backend.Retrieve(ctx, file.StorageLocation)
	if err != nil {
		m.logger.Error("failed to open stored file",
			"file_id", file.ID,
			"location", file.StorageLocation,
			"error", err,
		)
		return nil, classifyStorageError("retrieve", err)
	}

	updated, err := m.files.IncrementDownload(ctx, file.ID, m.now())
	if err != nil {
		body.Close()
		return nil, classifyRecordError("record download", err)
	}

	disposition := "inline"
	if mode == ModeDownload {
		disposition = utils.ContentDisposition("attachment", updated.OriginalName)
	}

	metrics.DownloadSizeBytes.Observe(float64(updated.SizeBytes))
	m.logger.Info("file served",
		"file_id", updated.ID,
		"mode", string(mode),
		"download_count", updated.DownloadCount,
	)

	return &Content{
		Body:        body,
		File:        updated,
		MimeType:    updated.MimeType,
		Size:        updated.SizeBytes,
		Disposition: disposition,
		Mode:        mode,
	}, nil
}

// accessible loads a file and applies the expiry and visibility checks shared
// by every access operation.
func (m *Manager) accessible(ctx context.Context, id string, access Access) (*models.File, error) {
	file, err := m.files.GetByID(ctx, id)
	if err != nil {
		return nil, classifyRecordError("get file", err)
	}

	if file.IsExpired(m.now()) {
		return nil, ErrExpired
	}

	if !file.IsPublic && !file.IsOwnedBy(access.CallerID) {
		return nil, ErrAccessDenied
	}

	return file, nil
}

func downloadStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrPasswordRequired), errors.Is(err, ErrInvalidPassword):
		return "password_failed"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrNotPreviewable), errors.Is(err, ErrValidationFailed):
		return "rejected"
	default:
		return "failure"
	}
}
