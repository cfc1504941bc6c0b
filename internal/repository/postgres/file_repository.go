package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/repository"
)

const fileColumns = `id, original_name, stored_key, mime_type, size_bytes, owner_id,
	storage_backend, storage_location, is_public, password_hash, sha256_hash, uploader_ip,
	download_count, created_at, updated_at, last_accessed_at, expires_at`

// FileRepository implements repository.FileRepository for PostgreSQL.
type FileRepository struct {
	pool *Pool
}

// NewFileRepository creates a new PostgreSQL file repository.
func NewFileRepository(pool *Pool) *FileRepository {
	return &FileRepository{pool: pool}
}

var _ repository.FileRepository = (*FileRepository)(nil)

func scanFile(row pgx.Row) (*models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID, &file.OriginalName, &file.StoredKey, &file.MimeType, &file.SizeBytes, &file.OwnerID,
		&file.StorageBackend, &file.StorageLocation, &file.IsPublic, &file.PasswordHash, &file.SHA256Hash, &file.UploaderIP,
		&file.DownloadCount, &file.CreatedAt, &file.UpdatedAt, &file.LastAccessedAt, &file.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func collectFiles(rows pgx.Rows) ([]*models.File, error) {
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
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, $13, $13, NULL, $14)
	RETURNING ` + fileColumns

	created, err := withRetry(ctx, func() (*models.File, error) {
		return scanFile(r.pool.QueryRow(ctx, query,
			file.ID, file.OriginalName, file.StoredKey, file.MimeType, file.SizeBytes, file.OwnerID,
			file.StorageBackend, file.StorageLocation, file.IsPublic, file.PasswordHash, file.SHA256Hash, file.UploaderIP,
			createdAt, file.ExpiresAt,
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
	file, err := scanFile(r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	rows, err := r.pool.Query(ctx, `SELECT `+fileColumns+` FROM files
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, ownerID, opts.Limit+1, opts.Offset)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list files: %w", err)
	}

	files, err := collectFiles(rows)
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
	args := []any{id, now}
	sets := []string{"updated_at = $2"}

	if update.OriginalName != nil {
		args = append(args, *update.OriginalName)
		sets = append(sets, fmt.Sprintf("original_name = $%d", len(args)))
	}
	if update.IsPublic != nil {
		args = append(args, *update.IsPublic)
		sets = append(sets, fmt.Sprintf("is_public = $%d", len(args)))
	}
	if update.ExpiresAt != nil {
		args = append(args, *update.ExpiresAt)
		sets = append(sets, fmt.Sprintf("expires_at = $%d", len(args)))
	}

	query := `UPDATE files SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1 AND (expires_at IS NULL OR expires_at > $2)
		RETURNING ` + fileColumns

	return r.conditionalUpdate(ctx, id, query, args)
}

// IncrementDownload atomically increments the download counter of an active file.
func (r *FileRepository) IncrementDownload(ctx context.Context, id string, now time.Time) (*models.File, error) {
	query := `UPDATE files
		SET download_count = download_count + 1, last_accessed_at = $2
		WHERE id = $1 AND (expires_at IS NULL OR expires_at > $2)
		RETURNING ` + fileColumns

	return r.conditionalUpdate(ctx, id, query, []any{id, now})
}

func (r *FileRepository) conditionalUpdate(ctx context.Context, id, query string, args []any) (*models.File, error) {
	file, err := withRetry(ctx, func() (*models.File, error) {
		return scanFile(r.pool.QueryRow(ctx, query, args...))
	})
	if err == nil {
		return file, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update file: %w", err)
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, repository.ErrExpired
}

// Delete removes a file record by ID.
func (r *FileRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM files WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListExpired returns up to limit expired records, oldest expiry first.
func (r *FileRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.File, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.pool.Query(ctx, `SELECT `+fileColumns+` FROM files
		WHERE expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired files: %w", err)
	}
	return collectFiles(rows)
}

// DeleteExpired deletes the given records that are still expired at now.
func (r *FileRepository) DeleteExpired(ctx context.Context, ids []string, now time.Time) ([]*models.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return withRetry(ctx, func() ([]*models.File, error) {
		rows, err := r.pool.Query(ctx, `DELETE FROM files
			WHERE id = ANY($1) AND expires_at IS NOT NULL AND expires_at <= $2
			RETURNING `+fileColumns, ids, now)
		if err != nil {
			return nil, fmt.Errorf("failed to delete expired files: %w", err)
		}
		return collectFiles(rows)
	})
}

// Stats returns the number of records and the sum of their sizes.
func (r *FileRepository) Stats(ctx context.Context) (*repository.StoreStats, error) {
	var stats repository.StoreStats
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*), COALESCE(SUM(size_bytes), 0)::BIGINT FROM files",
	).Scan(&stats.TotalFiles, &stats.StorageUsed)
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats: %w", err)
	}
	return &stats, nil
}

// Ping checks connectivity to the database.
func (r *FileRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
