// Package storage provides abstraction for file storage operations.
// The lifecycle manager is written against Backend once; the local filesystem
// and S3 implementations differ only in how they satisfy it.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned (wrapped in a StorageError) when a key does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAlreadyExists is returned when Store is asked to write over an existing key.
	ErrAlreadyExists = errors.New("object already exists")

	// ErrInvalidKey is returned when a key fails path validation.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Backend defines the interface for file storage operations.
type Backend interface {
	// Store writes data from the reader under key. It never overwrites an existing
	// key. When size is non-negative the number of bytes written must match it.
	// The returned StoredObject carries the locator used by the other methods.
	Store(ctx context.Context, key string, reader io.Reader, size int64, mimeType string) (*StoredObject, error)

	// Retrieve returns a reader for the stored object.
	// The caller is responsible for closing the returned ReadCloser.
	Retrieve(ctx context.Context, location string) (io.ReadCloser, error)

	// Delete removes an object. Deleting an absent object is not an error.
	Delete(ctx context.Context, location string) error

	// Describe returns object metadata without reading its content.
	Describe(ctx context.Context, location string) (*ObjectInfo, error)

	// Kind returns the backend identifier persisted with each file record.
	Kind() string
}

// HealthChecker is implemented by backends that can check their own availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StoredObject describes a successfully stored object.
type StoredObject struct {
	Location string
	Size     int64
	SHA256   string
}

// ObjectInfo is the result of Describe.
type ObjectInfo struct {
	Size         int64
	LastModified time.Time
}

// StorageError represents errors from storage operations with additional context.
type StorageError struct {
	Op      string // Operation that failed (e.g., "Store", "Retrieve", "Delete")
	Path    string // Key or location involved
	Err     error  // Underlying error
	Message string // Human-readable message
}

func (e *StorageError) Error() string {
	if e.Message != "" {
		if e.Err != nil {
			return e.Op + " " + e.Path + ": " + e.Message + ": " + e.Err.Error()
		}
		return e.Op + " " + e.Path + ": " + e.Message
	}
	if e.Err == nil {
		return e.Op + " " + e.Path
	}
	if e.Path != "" {
		return e.Op + " " + e.Path + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError with the given details.
func NewStorageError(op, path string, err error) *StorageError {
	return &StorageError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// NewStorageErrorWithMessage creates a new StorageError with a custom message.
func NewStorageErrorWithMessage(op, path string, err error, message string) *StorageError {
	return &StorageError{
		Op:      op,
		Path:    path,
		Err:     err,
		Message: message,
	}
}

// IsNotFound reports whether err indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
