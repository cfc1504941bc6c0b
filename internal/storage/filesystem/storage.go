// Package filesystem implements the storage.Backend interface for local filesystem storage.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/storage"
)

// partialPath names the in-progress write for key. Keys never start with a dot,
// so it cannot collide with a stored object.
func partialPath(key string) string {
	return "." + key + ".partial"
}

// FilesystemStorage implements storage.Backend on top of an afero.Fs rooted at
// the upload directory.
type FilesystemStorage struct {
	fs      afero.Fs
	baseDir string
}

// NewFilesystemStorage creates a new FilesystemStorage with the given base directory.
func NewFilesystemStorage(baseDir string) (*FilesystemStorage, error) {
	if baseDir == "" {
		return nil, storage.NewStorageErrorWithMessage("NewFilesystemStorage", baseDir, nil, "base directory is required")
	}

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(baseDir, 0755); err != nil {
		return nil, storage.NewStorageError("NewFilesystemStorage", baseDir, err)
	}

	return NewWithFs(afero.NewBasePathFs(osFs, baseDir), baseDir), nil
}

// NewWithFs creates a FilesystemStorage over an existing afero.Fs whose root is
// the storage root. Tests pass afero.NewMemMapFs().
func NewWithFs(fs afero.Fs, baseDir string) *FilesystemStorage {
	return &FilesystemStorage{fs: fs, baseDir: baseDir}
}

// Kind implements storage.Backend.
func (fs *FilesystemStorage) Kind() string {
	return models.StorageBackendLocal
}

// BaseDir returns the base directory.
func (fs *FilesystemStorage) BaseDir() string {
	return fs.baseDir
}

// validateKey ensures a key is a flat, safe filename.
// Keys are generated by the lifecycle manager (uuid + extension), so anything
// else indicates a corrupted record or a bug.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", storage.ErrInvalidKey)
	}
	if strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: key starts with dot", storage.ErrInvalidKey)
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("%w: path traversal not allowed: %s", storage.ErrInvalidKey, key)
	}
	for _, char := range key {
		isValid := (char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '-' ||
			char == '_' ||
			char == '.'
		if !isValid {
			return fmt.Errorf("%w: invalid character %q", storage.ErrInvalidKey, char)
		}
	}
	return nil
}

// Store writes data from the reader to storage under key.
// The key is first reserved with O_EXCL so an existing object is never
// overwritten; content is then written to a temp file and renamed over the
// reservation.
func (fs *FilesystemStorage) Store(ctx context.Context, key string, reader io.Reader, size int64, mimeType string) (*storage.StoredObject, error) {
	if err := validateKey(key); err != nil {
		return nil, storage.NewStorageErrorWithMessage("Store", key, err, "path validation failed")
	}
	if err := ctx.Err(); err != nil {
		return nil, storage.NewStorageError("Store", key, err)
	}

	reservation, err := fs.fs.OpenFile(key, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, storage.NewStorageErrorWithMessage("Store", key, storage.ErrAlreadyExists, "key already in use")
		}
		return nil, storage.NewStorageError("Store", key, err)
	}
	reservation.Close()

	tempPath := partialPath(key)
	tempFile, err := fs.fs.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		_ = fs.fs.Remove(key)
		return nil, storage.NewStorageError("Store", key, err)
	}

	var succeeded bool
	defer func() {
		tempFile.Close()
		if !succeeded {
			_ = fs.fs.Remove(tempPath)
			_ = fs.fs.Remove(key)
		}
	}()

	hasher := sha256.New()
	written, err := io.Copy(tempFile, io.TeeReader(&contextReader{ctx: ctx, r: reader}, hasher))
	if err != nil {
		return nil, storage.NewStorageError("Store", key, err)
	}

	if size >= 0 && written != size {
		return nil, storage.NewStorageErrorWithMessage("Store", key, nil,
			fmt.Sprintf("size mismatch: expected %d bytes, wrote %d bytes", size, written))
	}

	if err := tempFile.Close(); err != nil {
		return nil, storage.NewStorageError("Store", key, err)
	}

	if err := fs.fs.Rename(tempPath, key); err != nil {
		return nil, storage.NewStorageError("Store", key, err)
	}

	succeeded = true
	hash := hex.EncodeToString(hasher.Sum(nil))

	slog.Debug("file stored",
		"key", key,
		"size", written,
		"mime_type", mimeType,
		"hash", hash[:16]+"...",
	)

	return &storage.StoredObject{
		Location: key,
		Size:     written,
		SHA256:   hash,
	}, nil
}

// Retrieve returns a reader for the stored file.
func (fs *FilesystemStorage) Retrieve(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := validateKey(location); err != nil {
		return nil, storage.NewStorageErrorWithMessage("Retrieve", location, err, "path validation failed")
	}

	file, err := fs.fs.Open(location)
	if err != nil {
		if isNotExist(err) {
			return nil, storage.NewStorageErrorWithMessage("Retrieve", location, storage.ErrNotFound, "file not found")
		}
		return nil, storage.NewStorageError("Retrieve", location, err)
	}

	return file, nil
}

// Delete removes a file from storage.
func (fs *FilesystemStorage) Delete(ctx context.Context, location string) error {
	if err := validateKey(location); err != nil {
		return storage.NewStorageErrorWithMessage("Delete", location, err, "path validation failed")
	}

	if err := fs.fs.Remove(location); err != nil {
		if isNotExist(err) {
			return nil
		}
		return storage.NewStorageError("Delete", location, err)
	}

	slog.Debug("file deleted", "key", location)
	return nil
}

// Describe returns the size and modification time of a stored file.
func (fs *FilesystemStorage) Describe(ctx context.Context, location string) (*storage.ObjectInfo, error) {
	if err := validateKey(location); err != nil {
		return nil, storage.NewStorageErrorWithMessage("Describe", location, err, "path validation failed")
	}

	info, err := fs.fs.Stat(location)
	if err != nil {
		if isNotExist(err) {
			return nil, storage.NewStorageErrorWithMessage("Describe", location, storage.ErrNotFound, "file not found")
		}
		return nil, storage.NewStorageError("Describe", location, err)
	}

	return &storage.ObjectInfo{
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}

// HealthCheck verifies the storage root is reachable.
func (fs *FilesystemStorage) HealthCheck(ctx context.Context) error {
	if _, err := fs.fs.Stat("/"); err != nil {
		return storage.NewStorageErrorWithMessage("HealthCheck", fs.baseDir, err, "upload directory not accessible")
	}
	return nil
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) || errors.Is(err, afero.ErrFileNotFound)
}

// contextReader stops a copy once the context is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
