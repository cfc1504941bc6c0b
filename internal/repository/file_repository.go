package repository

import (
	"context"
	"time"

	"github.com/fjmerc/fileshare/internal/models"
)

// NewFile carries everything needed to insert a file record.
// Build it with PrepareNewFile so the ID, password hash and expiry are set.
type NewFile struct {
	ID              string
	OriginalName    string
	StoredKey       string
	MimeType        string
	SizeBytes       int64
	OwnerID         *string
	StorageBackend  string
	StorageLocation string
	IsPublic        bool
	PasswordHash    string
	SHA256Hash      string
	UploaderIP      string
	ExpiresAt       *time.Time
	CreatedAt       time.Time
}

// FileUpdate lists the mutable fields of a file record. Nil fields are left unchanged.
type FileUpdate struct {
	OriginalName *string
	IsPublic     *bool
	ExpiresAt    *time.Time
}

// IsEmpty reports whether the update changes nothing.
func (u FileUpdate) IsEmpty() bool {
	return u.OriginalName == nil && u.IsPublic == nil && u.ExpiresAt == nil
}

// FileRepository defines the interface for file-related database operations.
// All methods accept a context for cancellation and timeout support.
type FileRepository interface {
	// Create inserts a new file record.
	// Returns ErrDuplicateKey if the ID or stored key already exists.
	Create(ctx context.Context, file *NewFile) (*models.File, error)

	// GetByID retrieves a file by its ID, expired or not.
	// Returns ErrNotFound if the file doesn't exist.
	GetByID(ctx context.Context, id string) (*models.File, error)

	// ListByOwner returns a page of the owner's files, newest first.
	// hasMore is true when further records exist past this page.
	ListByOwner(ctx context.Context, ownerID string, opts PaginationOptions) (files []*models.File, hasMore bool, err error)

	// Update applies the mutable fields in a single conditional statement.
	// Returns ErrNotFound if the file doesn't exist and ErrExpired if it expired at now.
	Update(ctx context.Context, id string, update FileUpdate, now time.Time) (*models.File, error)

	// IncrementDownload atomically adds one to download_count and sets
	// last_accessed_at, unless the file expired at now.
	// Returns ErrNotFound or ErrExpired.
	IncrementDownload(ctx context.Context, id string, now time.Time) (*models.File, error)

	// Delete removes a file record by ID. Returns false if nothing was deleted.
	Delete(ctx context.Context, id string) (bool, error)

	// ListExpired returns up to limit records whose expiry is at or before now, oldest first.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.File, error)

	// DeleteExpired deletes the given records, but only those still expired at now.
	// Returns the records that were actually deleted.
	DeleteExpired(ctx context.Context, ids []string, now time.Time) ([]*models.File, error)

	// Stats returns the number of records and the sum of their sizes.
	Stats(ctx context.Context) (*StoreStats, error)

	// Ping checks connectivity to the database.
	Ping(ctx context.Context) error
}
