package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fjmerc/fileshare/internal/config"
	"github.com/fjmerc/fileshare/internal/models"
	repoMock "github.com/fjmerc/fileshare/internal/repository/mock"
	storageMock "github.com/fjmerc/fileshare/internal/storage/mock"
	"github.com/fjmerc/fileshare/internal/utils"
)

// MockRepositories contains all mock repository implementations for testing.
type MockRepositories struct {
	Files *repoMock.FileRepository
	Users *repoMock.UserRepository
}

// NewMockRepositories creates a new set of mock repositories for testing.
// Deleting a mock user clears ownership of that user's mock files.
func NewMockRepositories() *MockRepositories {
	files := repoMock.NewFileRepository()
	users := repoMock.NewUserRepository()
	users.Files = files
	return &MockRepositories{
		Files: files,
		Users: users,
	}
}

// Reset clears all mock repositories to a fresh state.
func (m *MockRepositories) Reset() {
	m.Files.Reset()
	m.Users.Reset()
}

// MockTestEnv provides a complete mock test environment including
// configuration, mock repositories, and mock storage.
type MockTestEnv struct {
	Config  *config.Config
	Mocks   *MockRepositories
	Storage *storageMock.StorageBackend
}

// NewMockTestEnv creates a new mock test environment for testing.
func NewMockTestEnv(t testing.TB) *MockTestEnv {
	t.Helper()

	return &MockTestEnv{
		Config:  SetupTestConfig(t),
		Mocks:   NewMockRepositories(),
		Storage: storageMock.NewStorageBackend(),
	}
}

// Reset clears all mock state for a fresh test.
func (env *MockTestEnv) Reset() {
	env.Mocks.Reset()
	env.Storage.Reset()
}

// MockFileOption is a function that modifies a File for testing.
type MockFileOption func(*models.File)

// SetupMockFile adds a public, active file record and its bytes to the mocks.
// Returns the created file.
func (env *MockTestEnv) SetupMockFile(t testing.TB, content []byte, opts ...MockFileOption) *models.File {
	t.Helper()

	now := time.Now().UTC()
	expires := now.Add(24 * time.Hour)
	id := uuid.NewString()

	file := &models.File{
		ID:              id,
		OriginalName:    "test-file.txt",
		StoredKey:       id + ".txt",
		MimeType:        "text/plain",
		SizeBytes:       int64(len(content)),
		StorageBackend:  env.Storage.Kind(),
		StorageLocation: id + ".txt",
		IsPublic:        true,
		UploaderIP:      "127.0.0.1",
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       &expires,
	}

	for _, opt := range opts {
		opt(file)
	}

	env.Mocks.Files.AddFile(file)
	env.Storage.AddObject(file.StorageLocation, content)
	return file
}

// WithFilename sets the display name.
func WithFilename(name string) MockFileOption {
	return func(f *models.File) {
		f.OriginalName = name
	}
}

// WithMimeType sets the recorded content type.
func WithMimeType(mimeType string) MockFileOption {
	return func(f *models.File) {
		f.MimeType = mimeType
	}
}

// WithExpiresAt sets the expiry time.
func WithExpiresAt(t time.Time) MockFileOption {
	return func(f *models.File) {
		f.ExpiresAt = &t
	}
}

// WithExpired makes the file expired an hour ago.
func WithExpired() MockFileOption {
	return WithExpiresAt(time.Now().Add(-time.Hour))
}

// WithOwner sets the owning user.
func WithOwner(userID string) MockFileOption {
	return func(f *models.File) {
		f.OwnerID = &userID
	}
}

// WithPrivate marks the file owner-only.
func WithPrivate() MockFileOption {
	return func(f *models.File) {
		f.IsPublic = false
	}
}

// WithPassword protects the file with password, hashed at the minimum bcrypt cost.
func WithPassword(password string) MockFileOption {
	return func(f *models.File) {
		hash, err := utils.HashPassword(password, 4)
		if err != nil {
			panic(err)
		}
		f.PasswordHash = hash
	}
}

// WithDownloadCount sets the download counter.
func WithDownloadCount(count int64) MockFileOption {
	return func(f *models.File) {
		f.DownloadCount = count
	}
}

// SetupMockUser adds a user with the given email and password to the mocks.
func (env *MockTestEnv) SetupMockUser(t testing.TB, email, password string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	env.Mocks.Users.AddUser(user)
	return user
}
