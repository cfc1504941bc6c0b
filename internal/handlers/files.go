package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjmerc/fileshare/internal/lifecycle"
	"github.com/fjmerc/fileshare/internal/middleware"
	"github.com/fjmerc/fileshare/internal/models"
)

func requestAccess(w http.ResponseWriter, r *http.Request) lifecycle.Access {
	return lifecycle.Access{
		CallerID: middleware.UserID(r.Context()),
		Password: requestPassword(w, r),
	}
}

// FileInfoHandler returns file metadata. Password-protected files answer with
// a summary until the password is supplied.
func FileInfoHandler(mgr *lifecycle.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := mgr.GetInfo(r.Context(), chi.URLParam(r, "id"), requestAccess(w, r))
		if err != nil {
			sendLifecycleError(w, r, err)
			return
		}

		if !info.Full {
			sendJSON(w, http.StatusOK, toFileSummary(info.File))
			return
		}

		sendJSON(w, http.StatusOK, models.FileInfoResponse{
			File:       toFileResponse(info.File),
			CanPreview: info.CanPreview,
		})
	}
}

// ContentHandler streams file bytes as an attachment (download) or inline (preview)
func ContentHandler(mgr *lifecycle.Manager, mode lifecycle.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		content, err := mgr.GetContent(r.Context(), id, mode, requestAccess(w, r))
		if err != nil {
			sendLifecycleError(w, r, err)
			return
		}
		defer content.Body.Close()

		w.Header().Set("Content-Type", content.MimeType)
		w.Header().Set("Content-Length", strconv.FormatInt(content.Size, 10))
		w.Header().Set("Content-Disposition", content.Disposition)
		w.Header().Set("Cache-Control", "private, no-store")
		w.WriteHeader(http.StatusOK)

		written, err := io.Copy(w, content.Body)
		if err != nil {
			slog.Warn("file stream interrupted",
				"file_id", id,
				"mode", string(mode),
				"bytes_written", written,
				"client_ip", middleware.GetClientIP(r),
				"error", err,
			)
		}
	}
}

// MyFilesHandler lists the authenticated user's files, newest first
func MyFilesHandler(mgr *lifecycle.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := 1, 0
		var violations []string

		if raw := r.URL.Query().Get("page"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				violations = append(violations, "page must be an integer")
			}
			page = v
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 {
				violations = append(violations, "limit must be a positive integer")
			}
			limit = v
		}
		if len(violations) > 0 {
			sendValidationError(w, violations)
			return
		}

		list, err := mgr.ListByOwner(r.Context(), middleware.UserID(r.Context()), page, limit)
		if err != nil {
			sendLifecycleError(w, r, err)
			return
		}

		files := make([]models.FileResponse, 0, len(list.Files))
		for _, f := range list.Files {
			files = append(files, toFileResponse(f))
		}

		sendJSON(w, http.StatusOK, models.FileListResponse{
			Files: files,
			Pagination: models.Pagination{
				Page:    list.Page,
				Limit:   list.Limit,
				Count:   len(files),
				HasMore: list.HasMore,
			},
		})
	}
}

// updateFileRequest is the JSON body accepted by UpdateFileHandler
type updateFileRequest struct {
	OriginalName *string    `json:"original_name"`
	IsPublic     *bool      `json:"is_public"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// UpdateFileHandler renames a file, toggles its visibility or moves its expiry
func UpdateFileHandler(mgr *lifecycle.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateFileRequest
		if err := decodeJSON(w, r, &req); err != nil {
			sendError(w, "Invalid request body", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}

		updated, err := mgr.Update(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), lifecycle.UpdateRequest{
			OriginalName: req.OriginalName,
			IsPublic:     req.IsPublic,
			ExpiresAt:    req.ExpiresAt,
		})
		if err != nil {
			sendLifecycleError(w, r, err)
			return
		}

		sendJSON(w, http.StatusOK, toFileResponse(updated))
	}
}

// DeleteFileHandler removes a file's bytes and record
func DeleteFileHandler(mgr *lifecycle.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := mgr.Delete(r.Context(), middleware.UserID(r.Context()), id); err != nil {
			sendLifecycleError(w, r, err)
			return
		}

		sendJSON(w, http.StatusOK, map[string]string{
			"message": "File deleted successfully",
			"id":      id,
		})
	}
}
