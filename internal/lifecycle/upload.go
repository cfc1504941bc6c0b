package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fjmerc/fileshare/internal/metrics"
	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/repository"
	"github.com/fjmerc/fileshare/internal/utils"
)

// UploadRequest describes one file upload.
type UploadRequest struct {
	Body       io.Reader
	Filename   string
	MimeType   string // declared type; empty becomes application/octet-stream
	Size       int64
	OwnerID    string // empty for anonymous uploads
	IsPublic   *bool  // nil means public
	Password   string
	ExpiresAt  *time.Time // nil applies the default expiration
	UploaderIP string
	BaseURL    string // origin used for the shareable link

	// Violations found by the caller while decoding the request. They are
	// reported together with the manager's own checks.
	Violations []string
}

// UploadResult is returned by a successful upload.
type UploadResult struct {
	File          *models.File
	ShareableLink string
	CanPreview    bool
}

// Upload validates the request, stores the bytes and creates the record.
// All violated rules are reported together in a *ValidationError. If the
// record cannot be created the stored bytes are removed again.
func (m *Manager) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	now := m.now()

	body, sniffed, err := sniff(req.Body)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	declared := utils.NormalizeMimeType(req.MimeType)
	if err := m.validateUpload(req, declared, sniffed, now); err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	name := utils.SanitizeFilename(req.Filename)
	newFile := &repository.NewFile{
		OriginalName:   name,
		StoredKey:      repository.NewStoredKey(name),
		MimeType:       declared,
		IsPublic:       req.IsPublic == nil || *req.IsPublic,
		UploaderIP:     req.UploaderIP,
		ExpiresAt:      req.ExpiresAt,
		StorageBackend: m.backend.Kind(),
	}
	if req.OwnerID != "" {
		owner := req.OwnerID
		newFile.OwnerID = &owner
	}

	defaults := repository.FileDefaults{
		BcryptCost:        m.opts.BcryptCost,
		DefaultExpiration: m.opts.DefaultExpiration,
	}
	if err := repository.PrepareNewFile(newFile, req.Password, defaults, now); err != nil {
		metrics.UploadsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	stored, err := m.backend.Store(ctx, newFile.StoredKey, body, req.Size, declared)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failure").Inc()
		m.logger.Error("failed to store upload",
			"file_id", newFile.ID,
			"stored_key", newFile.StoredKey,
			"error", err,
		)
		return nil, classifyStorageError("store", err)
	}

	newFile.SizeBytes = stored.Size
	newFile.StorageLocation = stored.Location
	newFile.SHA256Hash = stored.SHA256

	created, err := m.files.Create(ctx, newFile)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failure").Inc()
		// The request may already be cancelled; the blob must still go.
		if delErr := m.backend.Delete(context.WithoutCancel(ctx), stored.Location); delErr != nil {
			m.logger.Error("failed to remove stored bytes after record creation failed",
				"file_id", newFile.ID,
				"location", stored.Location,
				"error", delErr,
			)
		}
		return nil, classifyRecordError("create file record", err)
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	metrics.UploadSizeBytes.Observe(float64(created.SizeBytes))

	m.logger.Info("file uploaded",
		slog.String("file_id", created.ID),
		slog.String("filename", created.OriginalName),
		slog.Int64("size", created.SizeBytes),
		slog.Bool("password_protected", created.IsPasswordProtected()),
		slog.Any("expires_at", created.ExpiresAt),
		slog.String("client_ip", req.UploaderIP),
	)

	return &UploadResult{
		File:          created,
		ShareableLink: m.link(req.BaseURL, created.ID),
		CanPreview:    utils.IsPreviewable(created.MimeType),
	}, nil
}

func (m *Manager) validateUpload(req UploadRequest, declared, sniffed string, now time.Time) error {
	v := validator{violations: append([]string(nil), req.Violations...)}

	filename := strings.TrimSpace(req.Filename)
	v.check(filename != "", "filename is required")
	v.check(req.Body != nil, "file content is required")
	v.check(req.Size >= 0, "file size must not be negative")
	v.check(m.opts.MaxFileSize <= 0 || req.Size <= m.opts.MaxFileSize,
		"file size %s exceeds maximum of %s", utils.FormatBytes(req.Size), utils.FormatBytes(m.opts.MaxFileSize))
	v.check(!utils.IsMimeTypeBlocked(declared, m.opts.BlockedMimeTypes),
		"file type %s is not allowed", declared)

	if filename != "" {
		allowed, ext, _ := utils.IsFileAllowed(filename, m.opts.BlockedExtensions)
		v.check(allowed, "file extension %s is not allowed", ext)
	}

	if sniffed != "" && sniffed != declared {
		v.check(!utils.IsMimeTypeBlocked(sniffed, m.opts.BlockedMimeTypes),
			"file content detected as %s is not allowed", sniffed)
	}

	if req.ExpiresAt != nil && m.opts.MaxExpiration > 0 {
		v.check(!req.ExpiresAt.After(now.Add(m.opts.MaxExpiration)),
			"expiration cannot be more than %d hours in the future", int(m.opts.MaxExpiration/time.Hour))
	}

	v.check(req.IsPublic == nil || *req.IsPublic || req.OwnerID != "",
		"private files require an authenticated owner")

	return v.err()
}

// sniff reads the leading bytes of body for content detection and returns a
// reader that replays them.
func sniff(body io.Reader) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}

	head := make([]byte, utils.SniffLength)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", err
	}
	head = head[:n]

	detected := ""
	if n > 0 {
		detected = utils.DetectContentType(head)
	}
	return io.MultiReader(bytes.NewReader(head), body), detected, nil
}
