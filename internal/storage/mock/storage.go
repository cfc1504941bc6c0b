// Package mock provides an in-memory implementation of storage.Backend for testing.
// It supports error injection and behavior hooks so tests can exercise failure paths.
package mock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/storage"
)

type object struct {
	data    []byte
	modTime time.Time
}

// StorageBackend is a mock implementation of storage.Backend for testing.
type StorageBackend struct {
	mu sync.RWMutex

	objects map[string]object

	// KindName is returned by Kind; defaults to models.StorageBackendLocal.
	KindName string

	// Error injection for testing
	StoreError    error
	RetrieveError error
	DeleteError   error
	DescribeError error
	HealthError   error

	// Custom behavior hooks
	OnStore    func(ctx context.Context, key string, reader io.Reader, size int64) (*storage.StoredObject, error)
	OnRetrieve func(ctx context.Context, location string) (io.ReadCloser, error)
	OnDelete   func(ctx context.Context, location string) error

	// Counters for assertions
	storeCalls    int
	retrieveCalls int
	deleteCalls   int
	openReaders   int
}

// NewStorageBackend creates a new mock StorageBackend with default behavior.
func NewStorageBackend() *StorageBackend {
	return &StorageBackend{
		objects:  make(map[string]object),
		KindName: models.StorageBackendLocal,
	}
}

var (
	_ storage.Backend       = (*StorageBackend)(nil)
	_ storage.HealthChecker = (*StorageBackend)(nil)
)

// Reset clears all objects, errors, and hooks for a fresh test state.
func (s *StorageBackend) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects = make(map[string]object)
	s.StoreError = nil
	s.RetrieveError = nil
	s.DeleteError = nil
	s.DescribeError = nil
	s.HealthError = nil
	s.OnStore = nil
	s.OnRetrieve = nil
	s.OnDelete = nil
	s.storeCalls = 0
	s.retrieveCalls = 0
	s.deleteCalls = 0
	s.openReaders = 0
}

// AddObject directly adds an object for test setup.
func (s *StorageBackend) AddObject(location string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := make([]byte, len(content))
	copy(data, content)
	s.objects[location] = object{data: data, modTime: time.Now()}
}

// Content returns the content of an object (for test assertions).
func (s *StorageBackend) Content(location string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[location]
	if !ok {
		return nil, false
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, true
}

// Locations returns all stored locations, sorted.
func (s *StorageBackend) Locations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locations := make([]string, 0, len(s.objects))
	for loc := range s.objects {
		locations = append(locations, loc)
	}
	sort.Strings(locations)
	return locations
}

// Count returns the number of stored objects.
func (s *StorageBackend) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// StoreCalls returns how many times Store was called.
func (s *StorageBackend) StoreCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storeCalls
}

// RetrieveCalls returns how many times Retrieve was called.
func (s *StorageBackend) RetrieveCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retrieveCalls
}

// DeleteCalls returns how many times Delete was called.
func (s *StorageBackend) DeleteCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deleteCalls
}

// OpenReaders returns the number of readers returned by Retrieve that have not been closed.
func (s *StorageBackend) OpenReaders() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openReaders
}

// Kind implements storage.Backend.
func (s *StorageBackend) Kind() string {
	return s.KindName
}

// Store implements storage.Backend.
func (s *StorageBackend) Store(ctx context.Context, key string, reader io.Reader, size int64, mimeType string) (*storage.StoredObject, error) {
	s.mu.Lock()
	s.storeCalls++
	hook := s.OnStore
	storeErr := s.StoreError
	s.mu.Unlock()

	if hook != nil {
		return hook(ctx, key, reader, size)
	}
	if storeErr != nil {
		return nil, storage.NewStorageError("Store", key, storeErr)
	}
	if key == "" {
		return nil, storage.NewStorageErrorWithMessage("Store", key, storage.ErrInvalidKey, "empty key")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, storage.NewStorageError("Store", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return nil, storage.NewStorageErrorWithMessage("Store", key, nil,
			fmt.Sprintf("size mismatch: expected %d bytes, wrote %d bytes", size, len(data)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; exists {
		return nil, storage.NewStorageErrorWithMessage("Store", key, storage.ErrAlreadyExists, "key already in use")
	}
	s.objects[key] = object{data: data, modTime: time.Now()}

	sum := sha256.Sum256(data)
	return &storage.StoredObject{
		Location: key,
		Size:     int64(len(data)),
		SHA256:   hex.EncodeToString(sum[:]),
	}, nil
}

// Retrieve implements storage.Backend.
func (s *StorageBackend) Retrieve(ctx context.Context, location string) (io.ReadCloser, error) {
	s.mu.Lock()
	s.retrieveCalls++
	hook := s.OnRetrieve
	retrieveErr := s.RetrieveError
	s.mu.Unlock()

	if hook != nil {
		return hook(ctx, location)
	}
	if retrieveErr != nil {
		return nil, storage.NewStorageError("Retrieve", location, retrieveErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[location]
	if !ok {
		return nil, storage.NewStorageErrorWithMessage("Retrieve", location, storage.ErrNotFound, "file not found")
	}
	s.openReaders++
	return &trackedReader{Reader: bytes.NewReader(obj.data), backend: s}, nil
}

// Delete implements storage.Backend.
func (s *StorageBackend) Delete(ctx context.Context, location string) error {
	s.mu.Lock()
	s.deleteCalls++
	hook := s.OnDelete
	deleteErr := s.DeleteError
	s.mu.Unlock()

	if hook != nil {
		return hook(ctx, location)
	}
	if deleteErr != nil {
		return storage.NewStorageError("Delete", location, deleteErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, location)
	return nil
}

// Describe implements storage.Backend.
func (s *StorageBackend) Describe(ctx context.Context, location string) (*storage.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.DescribeError != nil {
		return nil, storage.NewStorageError("Describe", location, s.DescribeError)
	}
	obj, ok := s.objects[location]
	if !ok {
		return nil, storage.NewStorageErrorWithMessage("Describe", location, storage.ErrNotFound, "file not found")
	}
	return &storage.ObjectInfo{Size: int64(len(obj.data)), LastModified: obj.modTime}, nil
}

// HealthCheck implements storage.HealthChecker.
func (s *StorageBackend) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.HealthError != nil {
		return storage.NewStorageErrorWithMessage("HealthCheck", "", s.HealthError, "mock storage unavailable")
	}
	return nil
}

// trackedReader decrements the open reader count on Close.
type trackedReader struct {
	*bytes.Reader
	backend *StorageBackend
	once    sync.Once
}

func (r *trackedReader) Close() error {
	r.once.Do(func() {
		r.backend.mu.Lock()
		r.backend.openReaders--
		r.backend.mu.Unlock()
	})
	return nil
}
