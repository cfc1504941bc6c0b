package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fjmerc/fileshare/internal/repository"
	"github.com/fjmerc/fileshare/internal/storage"
)

// Outcomes reported by Manager operations. Match with errors.Is.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrNotFound         = errors.New("file not found")
	ErrExpired          = errors.New("file has expired")
	ErrPasswordRequired = errors.New("password required")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrNotPreviewable   = errors.New("file cannot be previewed")
	ErrAccessDenied     = errors.New("access denied")
	ErrStorageFailure   = errors.New("storage failure")
	ErrConflict         = errors.New("duplicate identifier or storage key")
)

// ValidationError lists every rule an upload or update request violated.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Violations, "; "))
}

// Is reports ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// StorageFailureError wraps a backend error. It matches ErrStorageFailure.
type StorageFailureError struct {
	Op  string
	Err error
}

func (e *StorageFailureError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageFailureError) Unwrap() error {
	return e.Err
}

// Is reports ErrStorageFailure.
func (e *StorageFailureError) Is(target error) bool {
	return target == ErrStorageFailure
}

// validator collects violations.
type validator struct {
	violations []string
}

func (v *validator) check(ok bool, format string, args ...any) {
	if !ok {
		v.violations = append(v.violations, fmt.Sprintf(format, args...))
	}
}

func (v *validator) err() error {
	if len(v.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: v.violations}
}

// classifyRecordError maps record store errors into the outcome taxonomy.
func classifyRecordError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrExpired):
		return ErrExpired
	case errors.Is(err, repository.ErrDuplicateKey):
		return fmt.Errorf("%w: %s", ErrConflict, op)
	case errors.Is(err, repository.ErrInvalidInput):
		return &ValidationError{Violations: []string{err.Error()}}
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// classifyStorageError maps backend errors into the outcome taxonomy.
func classifyStorageError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return fmt.Errorf("%w: storage key already exists", ErrConflict)
	default:
		return &StorageFailureError{Op: op, Err: err}
	}
}
