package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/repository"
)

// fileColumns is the column list shared by every query that returns a file.
const fileColumns = `id, original_name, stored_key, mime_type, size_bytes, owner_id,
	storage_backend, storage_location, is_public, password_hash, sha256_hash, uploader_ip,
	download_count, created_at, updated_at, last_accessed_at, expires_at`

// notExpired matches rows that are still active at the bound time parameter.
const notExpired = `(expires_at IS NULL OR expires_at > ?)`

// FileRepository implements repository.FileRepository for SQLite.
type FileRepository struct {
	db *sql.DB
}

// NewFileRepository creates a new SQLite file repository.
func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

var _ repository.FileRepository = (*FileRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*models.File, error) {
	var (
		file           models.File
		ownerID        sql.NullString
		isPublic       int
		createdAt      string
		updatedAt      string
		lastAccessedAt sql.NullString
		expiresAt      sql.NullString
		err            error
	)

	if err := row.Scan(
		&file.ID, &file.OriginalName, &file.StoredKey, &file.MimeType, &file.SizeBytes, &ownerID,
		&file.StorageBackend, &file.StorageLocation, &isPublic, &file.PasswordHash, &file.SHA256Hash, &file.UploaderIP,
		&file.DownloadCount, &createdAt, &updatedAt, &lastAccessedAt, &expiresAt,
	); err != nil {
		return nil, err
	}

	if ownerID.Valid {
		file.OwnerID = &ownerID.String
	}
	file.IsPublic = isPublic != 0

	if file.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if file.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	if file.LastAccessedAt, err = parseNullableTime(lastAccessedAt); err != nil {
		return nil, fmt.Errorf("invalid last_accessed_at: %w", err)
	}
	if file.ExpiresAt, err = parseNullableTime(expiresAt); err != nil {
		return nil, fmt.Errorf("invalid expires_at: %w", err)
	}

	return &file, nil
}

func scanFiles(rows *sql.Rows) ([]*models.File, error) {
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}
	return files, nil
}

// Create inserts a new file record.
func (r *FileRepository) Create(ctx context.Context, file *repository.NewFile) (*models.File, error) {
	if file == nil || file.ID == "" || file.StoredKey == "" {
		return nil, fmt.Errorf("%w: file id and stored key are required", repository.ErrInvalidInput)
	}

	createdAt := file.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `INSERT INTO files (
		id, original_name, stored_key, mime_type, size_bytes, owner_id,
		storage_backend, storage_location, is_public, password_hash, sha256_hash, uploader_ip,
		download_count, created_at, updated_at, last_accessed_at, expires_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, NULL, ?)
	RETURNING ` + fileColumns

	created, err := withBusyRetry(ctx, func() (*models.File, error) {
		return scanFile(r.db.QueryRowContext(ctx, query,
			file.ID, file.OriginalName, file.StoredKey, file.MimeType, file.SizeBytes, nullableString(file.OwnerID),
			file.StorageBackend, file.StorageLocation, boolToInt(file.IsPublic), file.PasswordHash, file.SHA256Hash, file.UploaderIP,
			formatTime(createdAt), formatTime(createdAt), formatNullableTime(file.ExpiresAt),
		))
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: file %s", repository.ErrDuplicateKey, file.ID)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: owner does not exist", repository.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to insert file: %w", err)
	}

	return created, nil
}

// GetByID retrieves a file by its ID.
func (r *FileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = ?`

	file, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// ListByOwner returns a page of the owner's files, newest first.
func (r *FileRepository) ListByOwner(ctx context.Context, ownerID string, opts repository.PaginationOptions) ([]*models.File, bool, error) {
	if opts.Limit <= 0 {
		opts = repository.DefaultPagination()
	}

	query := `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, ownerID, opts.Limit+1, opts.Offset)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list files: %w", err)
	}

	files, err := scanFiles(rows)
	if err != nil {
		return nil, false, err
	}
	if len(files) > opts.Limit {
		return files[:opts.Limit], true, nil
	}
	return files, false, nil
}

// Update applies the mutable fields in a single conditional statement.
func (r *FileRepository) Update(ctx context.Context, id string, update repository.FileUpdate, now time.Time) (*models.File, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(now)}

	if update.OriginalName != nil {
		sets = append(sets, "original_name = ?")
		args = append(args, *update.OriginalName)
	}
	if update.IsPublic != nil {
		sets = append(sets, "is_public = ?")
		args = append(args, boolToInt(*update.IsPublic))
	}
	if update.ExpiresAt != nil {
		sets = append(sets, "expires_at = ?")
		args = append(args, formatTime(*update.ExpiresAt))
	}

	query := `UPDATE files SET ` + strings.Join(sets, ", ") + `
		WHERE id = ? AND ` + notExpired + `
		RETURNING ` + fileColumns
	args = append(args, id, formatTime(now))

	return r.conditionalUpdate(ctx, id, query, args)
}

// IncrementDownload atomically increments the download counter of an active file.
func (r *FileRepository) IncrementDownload(ctx context.Context, id string, now time.Time) (*models.File, error) {
	query := `UPDATE files
		SET download_count = download_count + 1, last_accessed_at = ?
		WHERE id = ? AND ` + notExpired + `
		RETURNING ` + fileColumns

	return r.conditionalUpdate(ctx, id, query, []any{formatTime(now), id, formatTime(now)})
}

// conditionalUpdate runs an UPDATE ... RETURNING guarded by the expiry
// condition and distinguishes a missing row from an expired one.
func (r *FileRepository) conditionalUpdate(ctx context.Context, id, query string, args []any) (*models.File, error) {
	file, err := withBusyRetry(ctx, func() (*models.File, error) {
		return scanFile(r.db.QueryRowContext(ctx, query, args...))
	})
	if err == nil {
		return file, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update file: %w", err)
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, repository.ErrExpired
}

// Delete removes a file record by ID.
func (r *FileRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := withBusyRetry(ctx, func() (sql.Result, error) {
		return r.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListExpired returns up to limit expired records, oldest expiry first.
func (r *FileRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.File, error) {
	if limit <= 0 {
		limit = 1000
	}

	query := `SELECT ` + fileColumns + ` FROM files
		WHERE expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, formatTime(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired files: %w", err)
	}
	return scanFiles(rows)
}

// DeleteExpired deletes the given records that are still expired at now.
func (r *FileRepository) DeleteExpired(ctx context.Context, ids []string, now time.Time) ([]*models.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `DELETE FROM files
		WHERE id IN (` + placeholders(len(ids)) + `)
		AND expires_at IS NOT NULL AND expires_at <= ?
		RETURNING ` + fileColumns

	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, formatTime(now))

	return withBusyRetry(ctx, func() ([]*models.File, error) {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to delete expired files: %w", err)
		}
		return scanFiles(rows)
	})
}

// Stats returns the number of records and the sum of their sizes.
func (r *FileRepository) Stats(ctx context.Context) (*repository.StoreStats, error) {
	var stats repository.StoreStats
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM files",
	).Scan(&stats.TotalFiles, &stats.StorageUsed)
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats: %w", err)
	}
	return &stats, nil
}

// Ping checks connectivity to the database.
func (r *FileRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
