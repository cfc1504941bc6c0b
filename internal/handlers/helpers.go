package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/fjmerc/fileshare/internal/auth"
	"github.com/fjmerc/fileshare/internal/lifecycle"
	"github.com/fjmerc/fileshare/internal/middleware"
	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/utils"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20 // 1MB

// sendJSON writes v as a JSON response with the given status
func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// sendError sends a JSON error response
func sendError(w http.ResponseWriter, message, code string, status int) {
	sendJSON(w, status, models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// sendValidationError sends a 400 listing every violated rule
func sendValidationError(w http.ResponseWriter, violations []string) {
	sendJSON(w, http.StatusBadRequest, models.ErrorResponse{
		Error:   "Validation failed",
		Code:    "VALIDATION_FAILED",
		Details: violations,
	})
}

// sendLifecycleError maps a lifecycle error to its HTTP status and error code
func sendLifecycleError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := lifecycleError(r, err)
	sendJSON(w, status, body)
}

// lifecycleError returns the HTTP status and error body for a lifecycle error.
func lifecycleError(r *http.Request, err error) (int, models.ErrorResponse) {
	var verr *lifecycle.ValidationError
	var maxErr *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, models.ErrorResponse{Error: "Validation failed", Code: "VALIDATION_FAILED", Details: verr.Violations}
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "File exceeds the maximum allowed size", Code: "FILE_TOO_LARGE"}
	case errors.Is(err, lifecycle.ErrValidationFailed):
		return http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: "VALIDATION_FAILED"}
	case errors.Is(err, lifecycle.ErrPasswordRequired):
		return http.StatusUnauthorized, models.ErrorResponse{Error: "This file is password protected", Code: "PASSWORD_REQUIRED"}
	case errors.Is(err, lifecycle.ErrInvalidPassword):
		return http.StatusUnauthorized, models.ErrorResponse{Error: "Incorrect password", Code: "INVALID_PASSWORD"}
	case errors.Is(err, lifecycle.ErrAccessDenied):
		return http.StatusForbidden, models.ErrorResponse{Error: "You do not have access to this file", Code: "ACCESS_DENIED"}
	case errors.Is(err, lifecycle.ErrNotFound):
		return http.StatusNotFound, models.ErrorResponse{Error: "File not found", Code: "NOT_FOUND"}
	case errors.Is(err, lifecycle.ErrConflict):
		return http.StatusConflict, models.ErrorResponse{Error: "A file with the same identifier or storage key already exists", Code: "CONFLICT"}
	case errors.Is(err, lifecycle.ErrExpired):
		return http.StatusGone, models.ErrorResponse{Error: "This file has expired", Code: "EXPIRED"}
	case errors.Is(err, lifecycle.ErrNotPreviewable):
		return http.StatusUnprocessableEntity, models.ErrorResponse{Error: "This file type cannot be previewed", Code: "NOT_PREVIEWABLE"}
	case errors.Is(err, lifecycle.ErrStorageFailure):
		return http.StatusBadGateway, models.ErrorResponse{Error: "Storage backend unavailable", Code: "STORAGE_FAILURE"}
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		return http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error", Code: "INTERNAL_ERROR"}
	}
}

// sendAuthError maps an auth service error to its HTTP status and error code
func sendAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *auth.ValidationError

	switch {
	case errors.As(err, &verr):
		sendValidationError(w, verr.Violations)
	case errors.Is(err, auth.ErrEmailTaken):
		sendError(w, "Email is already registered", "EMAIL_TAKEN", http.StatusConflict)
	case errors.Is(err, auth.ErrInvalidCredentials):
		sendError(w, "Invalid email or password", "INVALID_CREDENTIALS", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrUserNotFound):
		sendError(w, "User not found", "NOT_FOUND", http.StatusNotFound)
	default:
		slog.Error("auth request failed",
			"path", r.URL.Path,
			"error", err,
		)
		sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// decodeJSON reads a size-limited JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// requestPassword returns the file password from the query string, a form
// field or a JSON body, in that order.
func requestPassword(w http.ResponseWriter, r *http.Request) string {
	if password := r.URL.Query().Get("password"); password != "" {
		return password
	}
	if r.Method != http.MethodPost || r.Body == nil {
		return ""
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body struct {
			Password string `json:"password"`
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return ""
		}
		return body.Password
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		return r.PostFormValue("password")
	}
	return ""
}

// baseURL returns the origin used for shareable links: PUBLIC_URL when set,
// otherwise the request origin. Forwarding headers only count when the
// request came through a trusted proxy.
func baseURL(r *http.Request, publicURL string) string {
	if publicURL != "" {
		return strings.TrimSuffix(publicURL, "/")
	}
	return getScheme(r) + "://" + getHost(r)
}

// getScheme returns the scheme (http/https) respecting reverse proxy headers
func getScheme(r *http.Request) string {
	if middleware.ViaTrustedProxy(r) {
		switch proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto {
		case "http", "https":
			return proto
		}
	}

	if r.TLS != nil {
		return "https"
	}

	return "http"
}

// getHost returns the host respecting reverse proxy headers
func getHost(r *http.Request) string {
	if middleware.ViaTrustedProxy(r) {
		if host := strings.TrimSpace(r.Header.Get("X-Forwarded-Host")); host != "" {
			return host
		}
	}
	return r.Host
}

func toFileResponse(f *models.File) models.FileResponse {
	return models.FileResponse{
		ID:                  f.ID,
		OriginalName:        f.OriginalName,
		MimeType:            f.MimeType,
		SizeBytes:           f.SizeBytes,
		SizeFormatted:       utils.FormatBytes(f.SizeBytes),
		OwnerID:             f.OwnerID,
		IsPublic:            f.IsPublic,
		IsPasswordProtected: f.IsPasswordProtected(),
		DownloadCount:       f.DownloadCount,
		SHA256Hash:          f.SHA256Hash,
		CreatedAt:           f.CreatedAt,
		UpdatedAt:           f.UpdatedAt,
		LastAccessedAt:      f.LastAccessedAt,
		ExpiresAt:           f.ExpiresAt,
	}
}

func toFileSummary(f *models.File) models.FileSummaryResponse {
	return models.FileSummaryResponse{
		ID:                  f.ID,
		OriginalName:        f.OriginalName,
		IsPasswordProtected: f.IsPasswordProtected(),
		CreatedAt:           f.CreatedAt,
		ExpiresAt:           f.ExpiresAt,
	}
}

func toUserResponse(u *models.User) models.UserResponse {
	return models.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}
