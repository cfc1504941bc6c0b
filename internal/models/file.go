package models

import "time"

// Storage backend identifiers persisted in files.storage_backend
const (
	StorageBackendLocal       = "local"
	StorageBackendObjectStore = "object-store"
)

// File represents a file record in the database
type File struct {
	ID              string
	OriginalName    string
	StoredKey       string
	MimeType        string
	SizeBytes       int64
	OwnerID         *string // nil for anonymous uploads
	StorageBackend  string
	StorageLocation string
	IsPublic        bool
	PasswordHash    string
	SHA256Hash      string
	UploaderIP      string
	DownloadCount   int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastAccessedAt  *time.Time
	ExpiresAt       *time.Time // nil means the file never expires
}

// IsPasswordProtected reports whether a password is required to access the file.
func (f *File) IsPasswordProtected() bool {
	return f.PasswordHash != ""
}

// IsExpired reports whether the file is past its expiration time at now.
func (f *File) IsExpired(now time.Time) bool {
	return f.ExpiresAt != nil && !now.Before(*f.ExpiresAt)
}

// IsOwnedBy reports whether userID owns the file. Anonymous files have no owner.
func (f *File) IsOwnedBy(userID string) bool {
	return f.OwnerID != nil && userID != "" && *f.OwnerID == userID
}

// FileResponse is the full JSON projection of a file record
type FileResponse struct {
	ID                  string     `json:"id"`
	OriginalName        string     `json:"original_name"`
	MimeType            string     `json:"mime_type"`
	SizeBytes           int64      `json:"size_bytes"`
	SizeFormatted       string     `json:"size_formatted"`
	OwnerID             *string    `json:"owner_id"`
	IsPublic            bool       `json:"is_public"`
	IsPasswordProtected bool       `json:"is_password_protected"`
	DownloadCount       int64      `json:"download_count"`
	SHA256Hash          string     `json:"sha256_hash,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	LastAccessedAt      *time.Time `json:"last_accessed_at"`
	ExpiresAt           *time.Time `json:"expires_at"`
}

// FileSummaryResponse is the reduced projection returned for password-protected
// files when no password was supplied
type FileSummaryResponse struct {
	ID                  string     `json:"id"`
	OriginalName        string     `json:"original_name"`
	IsPasswordProtected bool       `json:"is_password_protected"`
	CreatedAt           time.Time  `json:"created_at"`
	ExpiresAt           *time.Time `json:"expires_at"`
}

// UploadResponse is the JSON response returned after a successful upload
type UploadResponse struct {
	File          FileResponse `json:"file"`
	ShareableLink string       `json:"shareable_link"`
	CanPreview    bool         `json:"can_preview"`
}

// MultiUploadResponse is the JSON response for a multi-file upload
type MultiUploadResponse struct {
	Message       string           `json:"message"`
	UploadedFiles []UploadResponse `json:"uploaded_files"`
	Errors        []UploadFailure  `json:"errors,omitempty"`
}

// UploadFailure describes one file of a multi-file upload that was rejected
type UploadFailure struct {
	File    string   `json:"file"`
	Status  int      `json:"status"`
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// FileInfoResponse is the JSON response for a full info lookup
type FileInfoResponse struct {
	File       FileResponse `json:"file"`
	CanPreview bool         `json:"can_preview"`
}

// FileListResponse is the JSON response for an owner's file listing
type FileListResponse struct {
	Files      []FileResponse `json:"files"`
	Pagination Pagination     `json:"pagination"`
}

// Pagination describes a page of results. HasMore is true when further records exist.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

// ErrorResponse is the JSON error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// HealthResponse is the JSON response for the health check endpoint
type HealthResponse struct {
	Status           string `json:"status"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	TotalFiles       int    `json:"total_files"`
	StorageUsedBytes int64  `json:"storage_used_bytes"`
	StorageBackend   string `json:"storage_backend"`
	Database         string `json:"database"`
	Storage          string `json:"storage"`
}
