// Package lifecycle implements the file lifecycle: upload, access, owner
// management and the expiry sweep, on top of a storage backend and a record store.
package lifecycle

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/repository"
	"github.com/fjmerc/fileshare/internal/storage"
	"github.com/fjmerc/fileshare/internal/utils"
)

// Options configures a Manager.
type Options struct {
	MaxFileSize       int64
	DefaultExpiration time.Duration
	MaxExpiration     time.Duration // zero disables the upper bound
	BlockedExtensions []string
	BlockedMimeTypes  []string
	BcryptCost        int
	BaseURL           string // used by shareable links when a request supplies none
	SweepBatchSize    int

	// ReadBackends serve records written by a backend other than the active
	// one, keyed by their Kind.
	ReadBackends []storage.Backend

	// Now returns the current time; defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Manager orchestrates the storage backend and the record store.
type Manager struct {
	files    repository.FileRepository
	backend  storage.Backend
	backends map[string]storage.Backend
	opts     Options
	now      func() time.Time
	logger   *slog.Logger
}

// NewManager creates a Manager. Zero-valued options fall back to defaults.
func NewManager(files repository.FileRepository, backend storage.Backend, opts Options) *Manager {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = utils.DefaultBcryptCost
	}
	if opts.SweepBatchSize <= 0 {
		opts.SweepBatchSize = 500
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backends := make(map[string]storage.Backend, len(opts.ReadBackends)+1)
	for _, b := range opts.ReadBackends {
		backends[b.Kind()] = b
	}
	backends[backend.Kind()] = backend

	return &Manager{
		files:    files,
		backend:  backend,
		backends: backends,
		opts:     opts,
		now:      now,
		logger:   logger.With(slog.String("component", "lifecycle")),
	}
}

// backendFor returns the backend that persisted file's bytes.
func (m *Manager) backendFor(file *models.File) (storage.Backend, error) {
	if b, ok := m.backends[file.StorageBackend]; ok {
		return b, nil
	}
	return nil, &StorageFailureError{
		Op:  "resolve backend",
		Err: fmt.Errorf("no storage backend configured for %q", file.StorageBackend),
	}
}

// BackendKind returns the kind of the active storage backend.
func (m *Manager) BackendKind() string {
	return m.backend.Kind()
}

// Access carries the caller identity and the password supplied with a request.
type Access struct {
	CallerID string // empty for anonymous callers
	Password string // empty when none was supplied
}
