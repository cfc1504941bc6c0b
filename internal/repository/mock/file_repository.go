// Package mock provides mock implementations of repository interfaces for testing.
// These mocks allow tests to run without a real database and provide
// configurable behavior for testing error conditions and edge cases.
//
// IMPORTANT: Error injection fields (e.g., CreateError) and hooks (e.g., OnCreate)
// should be set BEFORE any concurrent operations begin. They are not protected
// by the mutex for performance reasons in typical test scenarios.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/repository"
)

// FileRepository is a mock implementation of repository.FileRepository for testing.
// It stores files in memory and provides configurable behavior for tests.
type FileRepository struct {
	mu sync.RWMutex

	files map[string]*models.File
	keys  map[string]string // stored key -> id

	// Error injection for testing error handling
	// NOTE: Set these BEFORE concurrent access begins
	CreateError            error
	GetByIDError           error
	ListByOwnerError       error
	UpdateError            error
	IncrementDownloadError error
	DeleteError            error
	ListExpiredError       error
	DeleteExpiredError     error
	StatsError             error
	PingError              error

	// Custom behavior hooks
	// NOTE: Set these BEFORE concurrent access begins
	OnCreate        func(ctx context.Context, file *repository.NewFile) error
	OnDeleteExpired func(ctx context.Context, ids []string) error
}

// NewFileRepository creates a new mock FileRepository with default behavior.
func NewFileRepository() *FileRepository {
	return &FileRepository{
		files: make(map[string]*models.File),
		keys:  make(map[string]string),
	}
}

// Ensure FileRepository implements repository.FileRepository
var _ repository.FileRepository = (*FileRepository)(nil)

// Reset clears all files, errors and hooks for a fresh test state.
func (r *FileRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.files = make(map[string]*models.File)
	r.keys = make(map[string]string)

	r.CreateError = nil
	r.GetByIDError = nil
	r.ListByOwnerError = nil
	r.UpdateError = nil
	r.IncrementDownloadError = nil
	r.DeleteError = nil
	r.ListExpiredError = nil
	r.DeleteExpiredError = nil
	r.StatsError = nil
	r.PingError = nil

	r.OnCreate = nil
	r.OnDeleteExpired = nil
}

// deepCopyFile creates a deep copy of a file including pointer fields.
func deepCopyFile(src *models.File) *models.File {
	if src == nil {
		return nil
	}
	dst := *src
	if src.OwnerID != nil {
		owner := *src.OwnerID
		dst.OwnerID = &owner
	}
	if src.LastAccessedAt != nil {
		accessed := *src.LastAccessedAt
		dst.LastAccessedAt = &accessed
	}
	if src.ExpiresAt != nil {
		expires := *src.ExpiresAt
		dst.ExpiresAt = &expires
	}
	return &dst
}

// AddFile stores a copy of file directly, bypassing Create validation (test helper).
func (r *FileRepository) AddFile(file *models.File) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.files[file.ID] = deepCopyFile(file)
	r.keys[file.StoredKey] = file.ID
}

// GetFiles returns copies of all stored files (test helper).
func (r *FileRepository) GetFiles() []*models.File {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.File, 0, len(r.files))
	for _, f := range r.files {
		result = append(result, deepCopyFile(f))
	}
	return result
}

// Count returns the number of stored files (test helper).
func (r *FileRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// Create inserts a new file.
func (r *FileRepository) Create(ctx context.Context, file *repository.NewFile) (*models.File, error) {
	if r.CreateError != nil {
		return nil, r.CreateError
	}
	if r.OnCreate != nil {
		if err := r.OnCreate(ctx, file); err != nil {
			return nil, err
		}
	}
	if file == nil || file.ID == "" || file.StoredKey == "" {
		return nil, repository.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.files[file.ID]; exists {
		return nil, repository.ErrDuplicateKey
	}
	if _, exists := r.keys[file.StoredKey]; exists {
		return nil, repository.ErrDuplicateKey
	}

	createdAt := file.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	stored := &models.File{
		ID:              file.ID,
		OriginalName:    file.OriginalName,
		StoredKey:       file.StoredKey,
		MimeType:        file.MimeType,
		SizeBytes:       file.SizeBytes,
		OwnerID:         file.OwnerID,
		StorageBackend:  file.StorageBackend,
		StorageLocation: file.StorageLocation,
		IsPublic:        file.IsPublic,
		PasswordHash:    file.PasswordHash,
		SHA256Hash:      file.SHA256Hash,
		UploaderIP:      file.UploaderIP,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
		ExpiresAt:       file.ExpiresAt,
	}
	stored = deepCopyFile(stored)
	r.files[stored.ID] = stored
	r.keys[stored.StoredKey] = stored.ID

	return deepCopyFile(stored), nil
}

// GetByID retrieves a file by ID.
func (r *FileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	if r.GetByIDError != nil {
		return nil, r.GetByIDError
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return deepCopyFile(file), nil
}

// ListByOwner returns the owner's files newest first.
func (r *FileRepository) ListByOwner(ctx context.Context, ownerID string, opts repository.PaginationOptions) ([]*models.File, bool, error) {
	if r.ListByOwnerError != nil {
		return nil, false, r.ListByOwnerError
	}
	if opts.Limit <= 0 {
		opts = repository.DefaultPagination()
	}

	r.mu.RLock()
	var owned []*models.File
	for _, f := range r.files {
		if f.IsOwnedBy(ownerID) {
			owned = append(owned, deepCopyFile(f))
		}
	}
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if opts.Offset >= len(owned) {
		return []*models.File{}, false, nil
	}
	end := opts.Offset + opts.Limit
	if end >= len(owned) {
		return owned[opts.Offset:], false, nil
	}
	return owned[opts.Offset:end], true, nil
}

// Update applies the mutable fields to an active file.
func (r *FileRepository) Update(ctx context.Context, id string, update repository.FileUpdate, now time.Time) (*models.File, error) {
	if r.UpdateError != nil {
		return nil, r.UpdateError
	}

	return r.mutateActive(id, now, func(f *models.File) {
		if update.OriginalName != nil {
			f.OriginalName = *update.OriginalName
		}
		if update.IsPublic != nil {
			f.IsPublic = *update.IsPublic
		}
		if update.ExpiresAt != nil {
			expires := *update.ExpiresAt
			f.ExpiresAt = &expires
		}
		f.UpdatedAt = now
	})
}

// IncrementDownload atomically increments the download counter of an active file.
func (r *FileRepository) IncrementDownload(ctx context.Context, id string, now time.Time) (*models.File, error) {
	if r.IncrementDownloadError != nil {
		return nil, r.IncrementDownloadError
	}

	return r.mutateActive(id, now, func(f *models.File) {
		f.DownloadCount++
		accessed := now
		f.LastAccessedAt = &accessed
	})
}

func (r *FileRepository) mutateActive(id string, now time.Time, apply func(*models.File)) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if file.IsExpired(now) {
		return nil, repository.ErrExpired
	}

	apply(file)
	return deepCopyFile(file), nil
}

// Delete removes a file by ID.
func (r *FileRepository) Delete(ctx context.Context, id string) (bool, error) {
	if r.DeleteError != nil {
		return false, r.DeleteError
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[id]
	if !ok {
		return false, nil
	}
	delete(r.keys, file.StoredKey)
	delete(r.files, id)
	return true, nil
}

// ListExpired returns up to limit files expired at now, oldest expiry first.
func (r *FileRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.File, error) {
	if r.ListExpiredError != nil {
		return nil, r.ListExpiredError
	}
	if limit <= 0 {
		limit = 1000
	}

	r.mu.RLock()
	var expired []*models.File
	for _, f := range r.files {
		if f.IsExpired(now) {
			expired = append(expired, deepCopyFile(f))
		}
	}
	r.mu.RUnlock()

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(*expired[j].ExpiresAt)
	})
	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

// DeleteExpired deletes the listed files that are still expired at now.
func (r *FileRepository) DeleteExpired(ctx context.Context, ids []string, now time.Time) ([]*models.File, error) {
	if r.DeleteExpiredError != nil {
		return nil, r.DeleteExpiredError
	}
	if r.OnDeleteExpired != nil {
		if err := r.OnDeleteExpired(ctx, ids); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted []*models.File
	for _, id := range ids {
		file, ok := r.files[id]
		if !ok || !file.IsExpired(now) {
			continue
		}
		delete(r.keys, file.StoredKey)
		delete(r.files, id)
		deleted = append(deleted, file)
	}
	return deleted, nil
}

// Stats returns totals over all stored files.
func (r *FileRepository) Stats(ctx context.Context) (*repository.StoreStats, error) {
	if r.StatsError != nil {
		return nil, r.StatsError
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &repository.StoreStats{TotalFiles: len(r.files)}
	for _, f := range r.files {
		stats.StorageUsed += f.SizeBytes
	}
	return stats, nil
}

// Ping returns PingError.
func (r *FileRepository) Ping(ctx context.Context) error {
	return r.PingError
}

func (r *FileRepository) clearOwner(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.files {
		if f.IsOwnedBy(ownerID) {
			f.OwnerID = nil
		}
	}
}
