package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjmerc/fileshare/internal/config"
	"github.com/fjmerc/fileshare/internal/lifecycle"
	"github.com/fjmerc/fileshare/internal/middleware"
	"github.com/fjmerc/fileshare/internal/models"
)

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20 // 32MB

// maxFilesPerUpload bounds the files accepted by one multi-file upload.
const maxFilesPerUpload = 10

// maxExpiresInHours is the largest expires_in_hours that fits a time.Duration.
const maxExpiresInHours = float64(math.MaxInt64 / int64(time.Hour))

// UploadHandler handles multipart file uploads
func UploadHandler(mgr *lifecycle.Manager, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseUploadForm(w, r, cfg, cfg.MaxFileSize+maxJSONBody) {
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File["file"]
		if len(headers) == 0 {
			sendError(w, "No file provided", "NO_FILE", http.StatusBadRequest)
			return
		}

		result, err := uploadPart(r, mgr, headers[0], newUploadTemplate(r, cfg))
		if err != nil {
			sendLifecycleError(w, r, err)
			return
		}

		sendJSON(w, http.StatusCreated, toUploadResponse(result))
	}
}

// UploadMultipleHandler uploads up to maxFilesPerUpload files sent as "files"
// parts. The form fields apply to every file. Each file succeeds or fails on
// its own; the response lists both.
func UploadMultipleHandler(mgr *lifecycle.Manager, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseUploadForm(w, r, cfg, maxFilesPerUpload*cfg.MaxFileSize+maxJSONBody) {
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			sendError(w, "No files provided", "NO_FILE", http.StatusBadRequest)
			return
		}
		if len(headers) > maxFilesPerUpload {
			sendError(w, fmt.Sprintf("At most %d files may be uploaded at once", maxFilesPerUpload),
				"TOO_MANY_FILES", http.StatusBadRequest)
			return
		}

		template := newUploadTemplate(r, cfg)
		resp := models.MultiUploadResponse{UploadedFiles: []models.UploadResponse{}}
		firstStatus := 0

		for _, header := range headers {
			result, err := uploadPart(r, mgr, header, template)
			if err != nil {
				status, body := lifecycleError(r, err)
				if firstStatus == 0 {
					firstStatus = status
				}
				resp.Errors = append(resp.Errors, models.UploadFailure{
					File:    header.Filename,
					Status:  status,
					Error:   body.Error,
					Code:    body.Code,
					Details: body.Details,
				})
				continue
			}
			resp.UploadedFiles = append(resp.UploadedFiles, toUploadResponse(result))
		}

		resp.Message = fmt.Sprintf("%d of %d files uploaded", len(resp.UploadedFiles), len(headers))
		if len(resp.UploadedFiles) == 0 {
			sendJSON(w, firstStatus, resp)
			return
		}
		sendJSON(w, http.StatusCreated, resp)
	}
}

// parseUploadForm enforces the auth requirement and the body limit and parses
// the multipart form. It writes the error response and returns false on failure.
func parseUploadForm(w http.ResponseWriter, r *http.Request, cfg *config.Config, limit int64) bool {
	if cfg.RequireAuthForUpload && middleware.UserID(r.Context()) == "" {
		sendError(w, "Authentication required to upload files", "AUTH_REQUIRED", http.StatusUnauthorized)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			sendError(w, "File exceeds the maximum allowed size", "FILE_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		sendError(w, "Invalid multipart form", "INVALID_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// newUploadTemplate builds the request fields shared by every file of an
// upload. Form field problems travel in Violations so the manager reports
// them together with its own checks.
func newUploadTemplate(r *http.Request, cfg *config.Config) lifecycle.UploadRequest {
	isPublic, expiresAt, violations := parseUploadFields(r, time.Now())
	return lifecycle.UploadRequest{
		OwnerID:    middleware.UserID(r.Context()),
		IsPublic:   isPublic,
		Password:   r.FormValue("password"),
		ExpiresAt:  expiresAt,
		UploaderIP: middleware.GetClientIP(r),
		BaseURL:    baseURL(r, cfg.PublicURL),
		Violations: violations,
	}
}

func uploadPart(r *http.Request, mgr *lifecycle.Manager, header *multipart.FileHeader, req lifecycle.UploadRequest) (*lifecycle.UploadResult, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload part: %w", err)
	}
	defer file.Close()

	req.Body = file
	req.Filename = header.Filename
	req.MimeType = header.Header.Get("Content-Type")
	req.Size = header.Size

	result, err := mgr.Upload(r.Context(), req)
	if err != nil {
		slog.Warn("upload rejected",
			"filename", header.Filename,
			"size", header.Size,
			"client_ip", req.UploaderIP,
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

func toUploadResponse(result *lifecycle.UploadResult) models.UploadResponse {
	return models.UploadResponse{
		File:          toFileResponse(result.File),
		ShareableLink: result.ShareableLink,
		CanPreview:    result.CanPreview,
	}
}

// parseUploadFields reads is_public and the expiry fields. expires_at takes an
// RFC 3339 timestamp; expires_in_hours is relative to now. At most one may be set.
func parseUploadFields(r *http.Request, now time.Time) (*bool, *time.Time, []string) {
	var violations []string
	var isPublic *bool
	var expiresAt *time.Time

	if raw := strings.TrimSpace(r.FormValue("is_public")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			violations = append(violations, "is_public must be true or false")
		} else {
			isPublic = &v
		}
	}

	rawAt := strings.TrimSpace(r.FormValue("expires_at"))
	rawHours := strings.TrimSpace(r.FormValue("expires_in_hours"))

	switch {
	case rawAt != "" && rawHours != "":
		violations = append(violations, "only one of expires_at and expires_in_hours may be set")
	case rawAt != "":
		t, err := time.Parse(time.RFC3339, rawAt)
		if err != nil {
			violations = append(violations, "expires_at must be an RFC 3339 timestamp")
		} else {
			t = t.UTC()
			expiresAt = &t
		}
	case rawHours != "":
		hours, err := strconv.ParseFloat(rawHours, 64)
		switch {
		case err != nil || math.IsNaN(hours) || hours <= 0:
			violations = append(violations, "expires_in_hours must be a positive number")
		case hours > maxExpiresInHours:
			violations = append(violations, fmt.Sprintf("expires_in_hours must not exceed %.0f", maxExpiresInHours))
		default:
			t := now.Add(time.Duration(hours * float64(time.Hour))).UTC()
			expiresAt = &t
		}
	}

	return isPublic, expiresAt, violations
}
